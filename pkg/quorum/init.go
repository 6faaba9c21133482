package quorum

import "fmt"

// Init resets the node table, writes our own INIT block, and spins for
// tko ticks to let already-running peers become visible before the
// main loop starts bidding. Validate/open is assumed already done by
// the caller constructing the DiskIO. This prevents two nodes that
// start within a second or two of each other from both observing "no
// master, I am lowest id" and bidding concurrently.
func (d *Daemon) Init() error {
	d.log.Infof("quorum daemon initializing")

	d.bootedAt = d.now()
	d.elect.incarnation = newIncarnation()

	now0 := d.timestampAt(d.bootedAt, d.bootedAt)
	d.table = NewNodeTable(MaxNodes, now0)

	d.elect.status = StateInit
	if err := d.writeInitBlock(); err != nil {
		return fmt.Errorf("quorum: could not initialize status block: %w", err)
	}

	for x := 1; x <= d.cfg.TKO && !d.stopping(); x++ {
		d.scan()
		d.transition(d.timestampAt(d.now(), d.bootedAt), nil)
		if err := d.writeInitBlock(); err != nil {
			return fmt.Errorf("quorum: initialization failed: %w", err)
		}
		_, max := d.scorer.Score()
		d.elect.lastScoreReq = scoreRequirement(d.cfg, max)
		d.writeStatusFile(d.now())
		d.sleepInterval()
	}

	score, max := d.scorer.Score()
	d.log.Infof("initial score %d/%d", score, max)
	d.log.Infof("initialization complete")
	return nil
}

func (d *Daemon) writeInitBlock() error {
	sb := d.ownBlock(d.now(), d.bootedAt)
	return d.disk.WriteBlock(sb)
}
