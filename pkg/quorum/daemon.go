package quorum

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/opencluster/qdiskd/pkg/membership"
)

// Rebooter is the single, signal-safe action the daemon is allowed to
// take from deep inside the main loop: reboot the host, with no
// cleanup. Real implementations call into the kernel; tests substitute
// a recording fake.
type Rebooter interface {
	Reboot(reason string)
}

// Logger is the small leveled-logging surface the quorum package needs.
// internal/logging provides the production implementation.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})
	Emergf(format string, args ...interface{})
}

// Clock abstracts "now" so tests can drive time deterministically and
// so the daemon can switch between wall-clock and uptime per the
// UPTIME flag.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// electState is this node's own election bookkeeping: the mutable part
// of LocalContext that changes tick to tick.
type electState struct {
	status          State
	msg             Msg
	arg             int
	seq             uint64
	mask            Mask
	masterMask      Mask
	master          int // elected master id, 0 if none
	bidPending      bool
	bidAge          int
	upgradeCooldown int
	incarnation     uint64
	lastScoreReq    int
}

// Daemon is the whole per-node quorum arbitration state machine: one
// value owns the NodeTable, the disk, the membership and scoring
// collaborators, and this node's own election state.
type Daemon struct {
	cfg    Config
	disk   DiskIO
	mem    membership.Service
	scorer Scorer
	log    Logger
	clock  Clock
	reboot Rebooter

	table    *NodeTable
	bootedAt time.Time

	mu    sync.Mutex // guards elect and the fields Status reads concurrently
	elect electState

	running atomic.Bool
}

// New constructs a Daemon. cfg must already be valid (see Config.Validate).
func New(cfg Config, disk DiskIO, mem membership.Service, scorer Scorer, log Logger) *Daemon {
	if scorer == nil {
		scorer = StaticScorer{}
	}
	d := &Daemon{
		cfg:    cfg,
		disk:   disk,
		mem:    mem,
		scorer: scorer,
		log:    log,
		clock:  wallClock{},
		reboot: &osRebooter{flags: cfg.Flags, log: log},
	}
	d.running.Store(true)
	return d
}

// WithClock overrides the clock used for Timestamp and pacing; for tests.
func (d *Daemon) WithClock(c Clock) *Daemon { d.clock = c; return d }

// WithRebooter overrides the reboot action; for tests.
func (d *Daemon) WithRebooter(r Rebooter) *Daemon { d.reboot = r; return d }

// Stop requests a clean shutdown; the current tick finishes first.
func (d *Daemon) Stop() { d.running.Store(false) }

// Status returns this node's current belief about its own state and
// the elected master id (0 if none). Safe to call concurrently with Run.
func (d *Daemon) Status() (state State, masterID int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.elect.status, d.elect.master
}

func (d *Daemon) stopping() bool { return !d.running.Load() }

func (d *Daemon) now() time.Time { return d.clock.Now() }

// newIncarnation derives a fresh 64-bit incarnation value from a random
// UUIDv4, one per process boot.
func newIncarnation() uint64 {
	id := uuid.New()
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(id[i])
	}
	return v
}

// timestampAt renders now in the unit configured by the UPTIME flag:
// wall-clock seconds by default, or monotonic seconds since this
// incarnation's boot when UPTIME is set.
func (d *Daemon) timestampAt(now time.Time, bootedAt time.Time) int64 {
	if d.cfg.Flags.Has(FlagUptime) {
		return int64(now.Sub(bootedAt).Seconds())
	}
	return now.Unix()
}

// ownBlock renders this node's current election state as a StatusBlock
// ready to write to disk.
func (d *Daemon) ownBlock(now time.Time, bootedAt time.Time) StatusBlock {
	sb := StatusBlock{
		NodeID:      d.cfg.MyID,
		State:       d.elect.status,
		Incarnation: d.elect.incarnation,
		Seq:         d.elect.seq,
		Timestamp:   d.timestampAt(now, bootedAt),
		UpdateNode:  d.cfg.MyID,
		Msg:         d.elect.msg,
		Arg:         d.elect.arg,
	}
	if d.elect.status == StateMaster {
		sb.MasterMask = d.elect.masterMask
	}
	return sb
}

// quorateMask returns the currently elected master's broadcast
// master_mask: our own if we are master, or the peer's last-known one
// read off the table otherwise.
func (d *Daemon) quorateMask() Mask {
	if d.elect.master == 0 {
		return Mask{}
	}
	if d.elect.master == d.cfg.MyID {
		return d.elect.masterMask
	}
	return d.table.Get(d.elect.master).Status.MasterMask
}

// dumpStatus writes the human-readable status snapshot to w.
func (d *Daemon) dumpStatus(w io.Writer, now time.Time) {
	fmt.Fprintf(w, "Time Stamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(w, "Node ID: %d\n", d.cfg.MyID)
	score, max := d.scorer.Score()
	fmt.Fprintf(w, "Score: %d/%d (Minimum required = %d)\n", score, max, d.elect.lastScoreReq)
	fmt.Fprintf(w, "Current state: %s\n", d.elect.status)

	var initializing, visible []int
	d.table.Each(func(id int, rec *NodeRecord) {
		if rec.Status.State == StateInit && rec.Seen != 0 {
			initializing = append(initializing, id)
		}
		if rec.State >= StateRun || id == d.cfg.MyID {
			visible = append(visible, id)
		}
	})
	fmt.Fprintf(w, "Initializing Set: %v\n", initializing)
	fmt.Fprintf(w, "Visible Set: %v\n", visible)

	if d.elect.status == StateInit {
		return
	}
	if d.elect.master != 0 {
		fmt.Fprintf(w, "Master Node ID: %d\n", d.elect.master)
	} else {
		fmt.Fprintf(w, "Master Node ID: (none)\n")
		return
	}

	qm := d.quorateMask()
	var quorate []int
	for id := 1; id <= d.table.Max(); id++ {
		if qm.Test(id) {
			quorate = append(quorate, id)
		}
	}
	fmt.Fprintf(w, "Quorate Set: %v\n", quorate)

	if d.cfg.Flags.Has(FlagDebug) {
		d.table.Each(func(id int, rec *NodeRecord) {
			fmt.Fprintf(w, "  node %2d: state=%-6s belief=%-6s misses=%d seen=%d incarnation=%d evil=%d msg=%s\n",
				id, rec.Status.State, rec.State, rec.Misses, rec.Seen, rec.Incarnation, rec.EvilIncarnation, rec.Status.Msg)
		})
	}
}
