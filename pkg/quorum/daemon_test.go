package quorum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuorateMaskReadsOwnMaskWhenSelfIsMaster(t *testing.T) {
	state := newMemDiskState(512)
	d := newTestDaemon(Config{MyID: 1}, memDisk{state: state})
	d.elect.master = 1
	d.elect.masterMask.Set(1)
	d.elect.masterMask.Set(2)

	got := d.quorateMask()
	assert.True(t, got.Test(1))
	assert.True(t, got.Test(2))
}

func TestQuorateMaskReadsPeerBroadcastWhenPeerIsMaster(t *testing.T) {
	state := newMemDiskState(512)
	d := newTestDaemon(Config{MyID: 2}, memDisk{state: state})
	d.elect.master = 1

	var peerMask Mask
	peerMask.Set(1)
	peerMask.Set(2)
	rec := d.table.Get(1)
	rec.Status.MasterMask = peerMask

	got := d.quorateMask()
	assert.True(t, got.Test(1))
	assert.True(t, got.Test(2))
}

func TestQuorateMaskEmptyWhenNoMaster(t *testing.T) {
	state := newMemDiskState(512)
	d := newTestDaemon(Config{MyID: 1}, memDisk{state: state})

	assert.True(t, d.quorateMask().Zero())
}

func TestDumpStatusStopsAtInitState(t *testing.T) {
	state := newMemDiskState(512)
	d := newTestDaemon(Config{MyID: 1}, memDisk{state: state})
	d.elect.status = StateInit

	var buf bytes.Buffer
	d.dumpStatus(&buf, d.now())

	out := buf.String()
	assert.Contains(t, out, "Current state: INIT")
	assert.NotContains(t, out, "Master Node ID")
}

func TestDumpStatusReportsNoMaster(t *testing.T) {
	state := newMemDiskState(512)
	d := newTestDaemon(Config{MyID: 1}, memDisk{state: state})
	d.elect.status = StateRun

	var buf bytes.Buffer
	d.dumpStatus(&buf, d.now())

	assert.Contains(t, buf.String(), "Master Node ID: (none)")
}

func TestDumpStatusReportsQuorateSet(t *testing.T) {
	state := newMemDiskState(512)
	d := newTestDaemon(Config{MyID: 1}, memDisk{state: state})
	d.elect.status = StateMaster
	d.elect.master = 1
	d.elect.masterMask.Set(1)

	var buf bytes.Buffer
	d.dumpStatus(&buf, d.now())

	out := buf.String()
	assert.Contains(t, out, "Master Node ID: 1")
	assert.Contains(t, out, "Quorate Set: [1]")
}

func TestOwnBlockOmitsMasterMaskUnlessMaster(t *testing.T) {
	state := newMemDiskState(512)
	d := newTestDaemon(Config{MyID: 1}, memDisk{state: state})
	d.elect.status = StateRun
	d.elect.masterMask.Set(1)

	sb := d.ownBlock(d.now(), d.bootedAt)
	assert.True(t, sb.MasterMask.Zero())

	d.elect.status = StateMaster
	sb = d.ownBlock(d.now(), d.bootedAt)
	assert.False(t, sb.MasterMask.Zero())
}
