package quorum

import (
	"time"
)

// sleepInterval sleeps for this node's configured interval. Stop does not
// cut the sleep short; it is seen at the next loop check. Used only during
// Init's settle-in loop.
func (d *Daemon) sleepInterval() {
	d.sleepFor(time.Duration(d.cfg.Interval) * time.Second)
}

func (d *Daemon) sleepFor(dur time.Duration) {
	if dur <= 0 {
		return
	}
	time.Sleep(dur)
}

// Run drives one tick per configured interval until Stop is called or
// ctx-equivalent shutdown is requested via signals (the caller is
// responsible for wiring SIGINT/SIGTERM to Stop). On return, the
// daemon has already written its final logout block.
func (d *Daemon) Run() error {
	interval := time.Duration(d.cfg.Interval) * time.Second

	for !d.stopping() {
		start := d.now()

		d.mu.Lock()
		d.scan()
		mask := Mask{}
		d.transition(d.timestampAt(d.now(), d.bootedAt), &mask)
		d.electTick(mask)
		sb := d.ownBlock(d.now(), d.bootedAt)
		d.mu.Unlock()

		if err := d.disk.WriteBlock(sb); err != nil {
			d.log.Warnf("write own block: %v", err)
		}
		d.writeStatusFile(d.now())

		if d.enforceDeadline(start) {
			continue
		}
		d.sleepFor(interval - d.now().Sub(start))
	}

	return d.logout()
}

// enforceDeadline checks how long the tick starting at start has taken
// and, if it has overrun the eviction window (cfg.Interval*cfg.TKO)
// while FlagParanoid is set, self-reboots rather than risk being
// declared dead by a peer while still believing itself healthy. It
// returns true when the caller should skip its usual sleep and loop
// immediately (either because it just issued a reboot, or because the
// tick already ran long enough that sleeping further would only make
// things worse).
func (d *Daemon) enforceDeadline(start time.Time) bool {
	maxElapsed := time.Duration(d.cfg.Interval) * time.Duration(d.cfg.TKO) * time.Second
	interval := time.Duration(d.cfg.Interval) * time.Second
	elapsed := d.now().Sub(start)

	if elapsed > maxElapsed && d.cfg.Flags.Has(FlagParanoid) {
		d.reboot.Reboot("failed to complete a cycle within the eviction window")
		return true
	}
	if elapsed > interval {
		d.log.Warnf("cycle took longer than %s to complete (%s)", interval, elapsed)
		return true
	}
	return false
}

// logout writes a final state=NONE block and releases the disk.
func (d *Daemon) logout() error {
	d.mu.Lock()
	d.elect.status = StateNone
	d.elect.msg = MsgNone
	sb := d.ownBlock(d.now(), d.bootedAt)
	d.mu.Unlock()

	if err := d.disk.WriteBlock(sb); err != nil {
		d.log.Warnf("logout: write block: %v", err)
	}
	if err := d.mem.Unregister(); err != nil {
		d.log.Warnf("logout: unregister: %v", err)
	}
	return d.disk.Close()
}

