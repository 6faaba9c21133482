package quorum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newScanDaemon() (*Daemon, *memDiskState) {
	state := newMemDiskState(512)
	d := newTestDaemon(Config{MyID: 1}, memDisk{state: state})
	return d, state
}

func TestScanPeerIncrementsSeenOnFreshTimestamp(t *testing.T) {
	d, state := newScanDaemon()
	state.blocks[2] = StatusBlock{NodeID: 2, State: StateRun, Timestamp: 100}

	d.scan()
	rec := d.table.Get(2)
	assert.Equal(t, 1, rec.Seen)
	assert.Equal(t, 0, rec.Misses)
	assert.EqualValues(t, 100, rec.LastSeen)

	state.blocks[2] = StatusBlock{NodeID: 2, State: StateRun, Timestamp: 101}
	d.scan()
	rec = d.table.Get(2)
	assert.Equal(t, 2, rec.Seen)
}

func TestScanPeerIncrementsMissesOnStaleTimestamp(t *testing.T) {
	d, state := newScanDaemon()
	state.blocks[2] = StatusBlock{NodeID: 2, State: StateRun, Timestamp: 100}
	d.scan()
	d.scan() // same timestamp again: a missed tick

	rec := d.table.Get(2)
	assert.Equal(t, 1, rec.Seen) // from the first, fresh scan; a miss leaves it alone
	assert.Equal(t, 1, rec.Misses)
}

func TestScanPeerIgnoresLivenessWhileNotYetRunning(t *testing.T) {
	d, state := newScanDaemon()
	state.blocks[2] = StatusBlock{NodeID: 2, State: StateNone, Timestamp: 100}
	d.scan()
	d.scan()

	rec := d.table.Get(2)
	assert.Equal(t, 0, rec.Seen)
	assert.Equal(t, 0, rec.Misses)
}

func TestScanSkipsBlockWithMismatchedNodeID(t *testing.T) {
	d, state := newScanDaemon()
	state.blocks[2] = StatusBlock{NodeID: 3, State: StateRun, Timestamp: 100}

	d.scan()
	rec := d.table.Get(2)
	assert.Equal(t, 0, rec.Seen)
}

func TestSelfCheckRebootsWhenFencedByAnotherNode(t *testing.T) {
	d, state := newScanDaemon()
	rb := &fakeRebooter{}
	d.WithRebooter(rb)
	state.blocks[1] = StatusBlock{NodeID: 1, State: StateEvict, UpdateNode: 2}

	d.scan()
	assert.Len(t, rb.reasons, 1)
}

func TestSelfCheckStopsOnUnexplainedForeignWrite(t *testing.T) {
	d, state := newScanDaemon()
	state.blocks[1] = StatusBlock{NodeID: 1, State: StateRun, UpdateNode: 2}

	d.scan()
	assert.True(t, d.stopping())
}

func TestSelfCheckIgnoresOwnWrites(t *testing.T) {
	d, state := newScanDaemon()
	state.blocks[1] = StatusBlock{NodeID: 1, State: StateRun, UpdateNode: 1}

	d.scan()
	assert.False(t, d.stopping())
}
