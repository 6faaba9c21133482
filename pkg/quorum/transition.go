package quorum

// transition walks the table and applies, per peer, the first matching
// rule. mask is optional: during initialization (before the
// daemon has its own visibility mask to maintain) callers pass nil and
// only NodeTable state is touched.
func (d *Daemon) transition(now int64, mask *Mask) {
	if mask != nil {
		*mask = Mask{}
	}
	for id := 1; id <= d.table.Max(); id++ {
		if id == d.cfg.MyID {
			continue
		}
		d.transitionOne(d.table.Get(id), mask, now)
	}
}

func (d *Daemon) transitionOne(rec *NodeRecord, mask *Mask, now int64) {
	// Case 1: Online -> Offline (observed eviction, clean restart, or
	// shutdown). First-match, takes priority over everything else.
	restarted := rec.Incarnation != 0 && rec.Incarnation != rec.Status.Incarnation
	observedDown := rec.State >= StateEvict && rec.Status.State <= StateEvict
	if observedDown || restarted {
		if rec.Status.State == StateEvict {
			d.log.Infof("node %d evicted", rec.NodeID)
		} else {
			d.log.Infof("node %d shutdown", rec.NodeID)
			rec.EvilIncarnation = 0
		}
		rec.Incarnation = 0
		rec.Seen = 0
		rec.Misses = 0
		rec.State = StateNone
		if mask != nil {
			mask.Clear(rec.NodeID)
		}
		return
	}

	// Case 2: Online -> Evicted (heartbeat timeout).
	if rec.Misses > d.cfg.TKO && rec.Status.State.Running() {
		if d.elect.status == StateMaster {
			d.log.Infof("writing eviction notice for node %d", rec.NodeID)
			d.writeEvictionNotice(rec)
			if d.cfg.Flags.Has(FlagAllowKill) {
				if err := d.mem.Kill(rec.NodeID); err != nil {
					d.log.Warnf("kill node %d: %v", rec.NodeID, err)
				}
			}
		}
		if rec.Status.State >= StateRun && rec.Seen != 0 {
			d.log.Debugf("node %d down", rec.NodeID)
			rec.Seen = 0
		}
		rec.State = StateEvict
		rec.Status.State = StateEvict
		rec.EvilIncarnation = rec.Status.Incarnation
		if mask != nil {
			mask.Clear(rec.NodeID)
		}
		return
	}

	// Case 3: Undead detection.
	if rec.EvilIncarnation != 0 && rec.EvilIncarnation == rec.Status.Incarnation {
		d.log.Criticalf("node %d is undead", rec.NodeID)
		d.writeEvictionNotice(rec)
		rec.Status.State = StateEvict
		if d.cfg.Flags.Has(FlagAllowKill) {
			if err := d.mem.Kill(rec.NodeID); err != nil {
				d.log.Warnf("kill node %d: %v", rec.NodeID, err)
			}
		}
		return
	}

	// Case 4: Offline -> Online.
	if rec.Seen > d.cfg.TKOUp && !rec.State.Running() {
		rec.State = StateRun
		d.log.Debugf("node %d is up", rec.NodeID)
		rec.Incarnation = rec.Status.Incarnation
		if mask != nil {
			mask.Set(rec.NodeID)
		}
		return
	}

	// Case 5: Run -> Master (not really a transition, just belief sync).
	if rec.State == StateRun && rec.Status.State == StateMaster {
		d.log.Infof("node %d is the master", rec.NodeID)
		rec.State = StateMaster
		if mask != nil {
			mask.Set(rec.NodeID)
		}
		return
	}

	// Case 6: fallthrough -- believe the peer's reported state.
	if rec.State.Running() {
		rec.State = rec.Status.State
		if mask != nil {
			mask.Set(rec.NodeID)
		}
	}
}

// writeEvictionNotice writes state=EVICT into a peer's own slot on its
// behalf. Case 2 calls it only when we are master; Case 3 (undead peer)
// calls it whatever our role. The peer's own self-check will see this on
// its next tick.
func (d *Daemon) writeEvictionNotice(rec *NodeRecord) {
	sb := StatusBlock{
		NodeID:      rec.NodeID,
		State:       StateEvict,
		Incarnation: rec.Status.Incarnation,
		Seq:         rec.Status.Seq,
		Timestamp:   rec.Status.Timestamp,
		UpdateNode:  d.cfg.MyID,
	}
	if err := d.disk.WriteBlock(sb); err != nil {
		d.log.Warnf("write eviction notice for node %d: %v", rec.NodeID, err)
	}
}
