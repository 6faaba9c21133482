package quorum

import (
	"golang.org/x/sys/unix"
)

// osRebooter is the production Rebooter: it asks the kernel to reboot
// the host immediately, with no cleanup, unless DEBUG is set, in which
// case the fatal action is logged and suppressed so the operator can
// keep diagnosing the process that would otherwise have disappeared.
type osRebooter struct {
	flags Flags
	log   Logger
}

func (r *osRebooter) Reboot(reason string) {
	if r.flags.Has(FlagDebug) {
		r.log.Criticalf("reboot suppressed (debug): %s", reason)
		return
	}
	r.log.Emergf("rebooting: %s", reason)
	_ = unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
