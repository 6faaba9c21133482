package quorum

import (
	"sync"
	"time"

	"github.com/opencluster/qdiskd/pkg/membership"
)

// memDiskState is the shared backing store for a simulated quorum disk:
// several memDisk handles (one per "node") reading and writing into the
// same map reproduce a shared block device without touching the
// filesystem.
type memDiskState struct {
	mu        sync.Mutex
	blocks    map[int]StatusBlock
	blockSize int
}

func newMemDiskState(blockSize int) *memDiskState {
	return &memDiskState{blocks: make(map[int]StatusBlock), blockSize: blockSize}
}

// memDisk is a DiskIO backed by a memDiskState, standing in for
// FileDiskIO in tests that need several daemons to share one disk.
type memDisk struct {
	state *memDiskState
}

func (d memDisk) BlockSize() int { return d.state.blockSize }

func (d memDisk) ReadBlock(id int) (StatusBlock, error) {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	sb, ok := d.state.blocks[id]
	if !ok {
		return StatusBlock{NodeID: id, State: StateNone}, nil
	}
	return sb, nil
}

func (d memDisk) WriteBlock(sb StatusBlock) error {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	d.state.blocks[sb.NodeID] = sb
	return nil
}

func (d memDisk) Close() error { return nil }

// nullLogger discards everything; tests that don't assert on log output
// use it to keep failures quiet.
type nullLogger struct{}

func (nullLogger) Debugf(string, ...interface{})    {}
func (nullLogger) Infof(string, ...interface{})     {}
func (nullLogger) Warnf(string, ...interface{})     {}
func (nullLogger) Criticalf(string, ...interface{}) {}
func (nullLogger) Emergf(string, ...interface{})    {}

// nullMembership is a membership.Service that never reports any peers;
// tests that don't exercise the master's membership-intersection logic
// use it as a harmless default.
type nullMembership struct{}

func (nullMembership) Self() (int, error)                       { return 1, nil }
func (nullMembership) Nodes() ([]membership.NodeInfo, error)     { return nil, nil }
func (nullMembership) Poll(ok bool) error                        { return nil }
func (nullMembership) Kill(id int) error                         { return nil }
func (nullMembership) Register(label string, votes int) error    { return nil }
func (nullMembership) Unregister() error                         { return nil }
func (nullMembership) Shutdown() error                            { return nil }
func (nullMembership) DispatchNonblocking() error                 { return nil }

// fakeRebooter records reboot calls instead of touching the kernel.
type fakeRebooter struct {
	reasons []string
}

func (r *fakeRebooter) Reboot(reason string) { r.reasons = append(r.reasons, reason) }

// manualClock lets tests advance "now" deterministically without
// touching the wall clock.
type manualClock struct {
	at time.Time
}

func (c *manualClock) Now() time.Time { return c.at }

func (c *manualClock) Advance(d time.Duration) { c.at = c.at.Add(d) }

// newTestDaemon builds a Daemon wired to an in-memory disk and discard
// logger/membership, ready for white-box exercise of scan/transition/
// electTick without going through Run's sleep loop.
func newTestDaemon(cfg Config, disk DiskIO) *Daemon {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	d := New(cfg, disk, nullMembership{}, StaticScorer{}, nullLogger{})
	clock := &manualClock{at: time.Unix(1_700_000_000, 0)}
	d.WithClock(clock)
	d.bootedAt = clock.Now()
	d.elect.incarnation = newIncarnation()
	d.table = NewNodeTable(MaxNodes, d.timestampAt(clock.Now(), d.bootedAt))
	return d
}
