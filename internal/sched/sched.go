// Package sched applies the real-time scheduling discipline qdiskd needs
// to keep pace with its deadline: memory locked resident and a real-time
// scheduling class, mirroring the original daemon's set_priority/mlockall
// startup sequence via golang.org/x/sys/unix.
package sched

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Policy names a POSIX scheduling policy.
type Policy string

const (
	PolicyOther Policy = "other"
	PolicyRR    Policy = "rr"
	PolicyFIFO  Policy = "fifo"
)

// schedOther is the POSIX SCHED_OTHER policy value; this version of
// golang.org/x/sys/unix does not export it as a named constant.
const schedOther = 0

// schedParam mirrors the kernel's struct sched_param, which this version
// of golang.org/x/sys/unix does not export.
type schedParam struct {
	Priority int32
}

// schedSetscheduler wraps the sched_setscheduler(2) syscall directly,
// since this version of golang.org/x/sys/unix does not export a
// SchedSetscheduler helper.
func schedSetscheduler(pid, policy int, param *schedParam) error {
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, uintptr(pid), uintptr(policy), uintptr(unsafe.Pointer(param)))
	if errno != 0 {
		return errno
	}
	return nil
}

// Lock mlocks the process's entire address space so it is never paged
// out while it must keep writing to the quorum disk on a tight deadline.
func Lock() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("sched: mlockall: %w", err)
	}
	return nil
}

// Unlock releases a previous Lock call. Primarily useful in tests.
func Unlock() error {
	if err := unix.Munlockall(); err != nil {
		return fmt.Errorf("sched: munlockall: %w", err)
	}
	return nil
}

// SetPriority sets this process's scheduling policy and priority. An
// empty or "other" policy leaves the process on the default scheduler
// and is always safe to call without elevated privileges.
func SetPriority(policy Policy, priority int) error {
	var schedPolicy int
	switch policy {
	case "", PolicyOther:
		schedPolicy = schedOther
	case PolicyRR:
		schedPolicy = unix.SCHED_RR
	case PolicyFIFO:
		schedPolicy = unix.SCHED_FIFO
	default:
		return fmt.Errorf("sched: unknown policy %q", policy)
	}

	param := &schedParam{Priority: int32(priority)}
	if err := schedSetscheduler(0, schedPolicy, param); err != nil {
		return fmt.Errorf("sched: setscheduler(%s, %d): %w", policy, priority, err)
	}
	return nil
}
