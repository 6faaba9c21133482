package quorum

import "strconv"

// selfCheck handles the case where the Scanner reads a block at our own
// node id written by some other node. That is only ever
// legitimate when they are fencing us (state EVICT) while we were too
// slow to heartbeat; anything else is a protocol violation we cannot
// safely continue past.
func (d *Daemon) selfCheck(sb StatusBlock) {
	if sb.UpdateNode == 0 || sb.UpdateNode == d.cfg.MyID {
		return
	}
	if sb.State == StateEvict {
		d.reboot.Reboot("fenced by node " + strconv.Itoa(sb.UpdateNode))
		return
	}
	d.log.Emergf("self-check: node %d wrote our slot with unexpected state %s", sb.UpdateNode, sb.State)
	d.Stop()
}
