package quorum

// masterExists walks the table computing (masterID, lowID, masterCount).
// masterID is the first peer (or self) believed running with
// self-reported state MASTER; a peer claiming MASTER while we believe
// it is not yet RUN is a dead master and is ignored. lowID is the
// lowest node id among all peers we believe are running, defaulting to
// our own id when no peer qualifies.
func (d *Daemon) masterExists() (masterID, lowID, count int) {
	lowID = d.cfg.MyID
	for id := 1; id <= d.table.Max(); id++ {
		if id == d.cfg.MyID {
			if d.elect.status == StateMaster {
				if masterID == 0 {
					masterID = d.cfg.MyID
				}
				count++
			}
			continue
		}
		rec := d.table.Get(id)
		if rec.State >= StateRun && rec.Status.State == StateMaster {
			if masterID == 0 {
				masterID = rec.Status.NodeID
			}
			count++
			continue
		}
		if rec.State < StateRun && rec.Status.State == StateMaster {
			d.log.Debugf("node %d is marked master, but is dead", rec.NodeID)
			continue
		}
		if rec.State < StateRun {
			continue
		}
		if rec.NodeID < lowID {
			lowID = rec.NodeID
		}
	}
	return
}

// doVote scans for peers bidding with an id lower than ours and votes
// ACK for the lowest such bidder, overwriting msg/arg/seq in place.
func (d *Daemon) doVote() {
	for id := 1; id <= d.table.Max(); id++ {
		if id == d.cfg.MyID {
			continue
		}
		rec := d.table.Get(id)
		if rec.State != StateRun {
			continue
		}
		if rec.Status.Msg == MsgBid && rec.NodeID < d.cfg.MyID {
			d.elect.msg = MsgAck
			d.elect.arg = rec.NodeID
			d.elect.seq = rec.Status.Seq
			return
		}
	}
}

// voteResult is check_votes's return value.
type voteResult int

const (
	voteWait        voteResult = 0 // still waiting, don't clear the bid
	voteLowerBidder voteResult = 1 // a lower id is also bidding, rescind
	voteNacked      voteResult = 2 // at least one peer nacked us
	voteWon         voteResult = 3 // every running peer acked us
)

// checkVotes tallies acks/nacks targeting our own pending bid. As a
// side effect, if a lower-id peer is also bidding, it stashes a vote
// for that peer into msg/arg/seq, exactly as doVote would.
func (d *Daemon) checkVotes() voteResult {
	running, acks, nacks := 0, 0, 0
	lowID := d.cfg.MyID
	for id := 1; id <= d.table.Max(); id++ {
		if id == d.cfg.MyID {
			continue
		}
		rec := d.table.Get(id)
		if !rec.State.Running() {
			continue
		}
		running++
		if rec.Status.Msg == MsgAck && rec.Status.Arg == d.cfg.MyID {
			acks++
		}
		if rec.Status.Msg == MsgNack && rec.Status.Arg == d.cfg.MyID {
			nacks++
		}
		if rec.Status.Msg == MsgBid && rec.NodeID < lowID {
			lowID = rec.NodeID
			d.elect.msg = MsgAck
			d.elect.arg = rec.NodeID
			d.elect.seq = rec.Status.Seq
		}
	}
	switch {
	case acks == running:
		return voteWon
	case nacks > 0:
		return voteNacked
	case lowID != d.cfg.MyID:
		return voteLowerBidder
	default:
		return voteWait
	}
}

// reArmUpgradeCooldown puts this node back into its post-upgrade grace
// period, used both on initial upgrade and on conflict abdication.
func (d *Daemon) reArmUpgradeCooldown() {
	d.elect.upgradeCooldown = d.cfg.UpgradeWait
	d.elect.bidPending = false
	d.elect.msg = MsgNone
	d.elect.seq++
}

// electTick runs the local status update algorithm: score
// gating, master discovery, conflict resolution, and the bid/vote state
// machine. mask is the visibility mask the Transitioner just computed
// for this tick; electTick adds or removes our own bit and, if we are
// master, derives masterMask from it.
func (d *Daemon) electTick(mask Mask) {
	if d.elect.upgradeCooldown > 0 {
		d.elect.upgradeCooldown--
	}

	score, max := d.scorer.Score()
	scoreReq := scoreRequirement(d.cfg, max)
	d.elect.lastScoreReq = scoreReq

	if score < scoreReq {
		mask.Clear(d.cfg.MyID)
		if d.elect.status > StateNone {
			d.log.Infof("score insufficient for master operation (%d/%d; required=%d); downgrading", score, max, scoreReq)
			d.elect.status = StateNone
			d.elect.msg = MsgNone
			d.elect.seq++
			d.elect.bidPending = false
			if err := d.mem.Poll(false); err != nil {
				d.log.Warnf("membership poll: %v", err)
			}
			if d.cfg.Flags.Has(FlagReboot) {
				d.reboot.Reboot("score insufficient for master operation")
			}
		}
	} else {
		mask.Set(d.cfg.MyID)
		if d.elect.status == StateNone {
			d.log.Infof("score sufficient for master operation (%d/%d; required=%d); upgrading", score, max, scoreReq)
			d.elect.status = StateRun
			d.elect.upgradeCooldown = d.cfg.UpgradeWait
			d.elect.bidPending = false
			d.elect.msg = MsgNone
			d.elect.seq++
		}
	}
	d.elect.mask = mask

	master, lowID, count := d.masterExists()
	d.elect.master = master

	if count >= 1 && d.elect.status == StateMaster && master != d.cfg.MyID {
		d.log.Warnf("master conflict: abdicating")
		d.elect.status = StateRun
		d.reArmUpgradeCooldown()
	}

	switch {
	case master == 0 && lowID == d.cfg.MyID && d.elect.status == StateRun &&
		!d.elect.bidPending && d.elect.upgradeCooldown == 0:
		d.log.Debugf("making bid for master")
		d.elect.msg = MsgBid
		d.elect.seq++
		d.elect.bidPending = true
		d.elect.bidAge = 1

	case master == 0 && !d.elect.bidPending:
		d.doVote()

	case master == 0 && d.elect.bidPending:
		d.elect.bidAge++
		switch d.checkVotes() {
		case voteWon:
			if d.elect.bidAge < d.cfg.MasterWait {
				break
			}
			d.log.Infof("assuming master role")
			d.elect.status = StateMaster
			fallthrough
		case voteNacked:
			d.elect.msg = MsgNone
			fallthrough
		case voteLowerBidder:
			d.elect.bidPending = false
		case voteWait:
		}

	case d.elect.status == StateMaster && master != d.cfg.MyID:
		d.log.Criticalf("a master exists, but it's not me?!")

	case d.elect.status == StateMaster && master == d.cfg.MyID:
		if err := d.mem.DispatchNonblocking(); err != nil {
			d.log.Warnf("membership dispatch: %v", err)
		}
		d.elect.masterMask = d.checkMembership(mask)
		if err := d.mem.Poll(true); err != nil {
			d.log.Warnf("membership poll: %v", err)
		}

	case d.elect.status == StateRun && master != 0 && master != d.cfg.MyID:
		if d.masterBit(master) {
			if err := d.mem.DispatchNonblocking(); err != nil {
				d.log.Warnf("membership dispatch: %v", err)
			}
			if err := d.mem.Poll(true); err != nil {
				d.log.Warnf("membership poll: %v", err)
			}
		}
	}
}

// checkMembership intersects mask with the membership service's live
// node list: only the master does this, to produce the authoritative
// master_mask broadcast to the rest of the cluster.
func (d *Daemon) checkMembership(mask Mask) Mask {
	nodes, err := d.mem.Nodes()
	if err != nil {
		d.log.Warnf("membership nodes: %v", err)
		return Mask{}
	}
	var out Mask
	for _, n := range nodes {
		if mask.Test(n.ID) && n.Member {
			out.Set(n.ID)
		}
	}
	return out
}

// masterBit reports whether masterID's broadcast master_mask has our
// own bit set, i.e. whether the master currently counts us as
// contributing to quorum.
func (d *Daemon) masterBit(masterID int) bool {
	if masterID == d.cfg.MyID {
		return d.elect.masterMask.Test(d.cfg.MyID)
	}
	return d.table.Get(masterID).Status.MasterMask.Test(d.cfg.MyID)
}
