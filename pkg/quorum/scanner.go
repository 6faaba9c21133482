package quorum

// scan reads every peer's status block and updates NodeTable liveness
// bookkeeping. It never touches the visibility mask; that is the
// Transitioner's job.
func (d *Daemon) scan() {
	for id := 1; id <= d.table.Max(); id++ {
		sb, err := d.disk.ReadBlock(id)
		if err != nil {
			d.log.Warnf("scan: read block %d: %v", id, err)
			continue
		}
		if sb.NodeID != id {
			// A block that doesn't self-identify correctly is either
			// unformatted or corrupt; skip it like any other transient
			// I/O failure.
			d.log.Warnf("scan: block %d reports node id %d", id, sb.NodeID)
			continue
		}
		if id == d.cfg.MyID {
			d.selfCheck(sb)
			continue
		}
		d.scanPeer(d.table.Get(id), sb)
	}
}

func (d *Daemon) scanPeer(rec *NodeRecord, sb StatusBlock) {
	rec.LastMsg = rec.Status.Msg
	rec.Status = sb

	if !sb.State.Running() {
		// The peer itself does not yet claim to be online (state
		// below INIT): liveness counters don't apply until it does.
		return
	}

	if sb.Timestamp == rec.LastSeen {
		rec.Misses++
		if rec.Misses > 1 {
			d.log.Infof("scan: node %d missed %d consecutive ticks", rec.NodeID, rec.Misses)
		}
		return
	}
	rec.Misses = 0
	rec.Seen++
	rec.LastSeen = sb.Timestamp
}
