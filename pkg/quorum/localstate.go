package quorum

import (
	"os"
	"time"
)

// writeStatusFile overwrites the configured human-readable status file
// (or stdout) with this tick's snapshot. An empty path disables the
// dump entirely, matching the original's "no status file configured"
// behavior.
func (d *Daemon) writeStatusFile(now time.Time) {
	path := d.cfg.StatusFile
	if path == "" {
		return
	}
	if path == "-" {
		d.dumpStatus(os.Stdout, now)
		return
	}
	f, err := os.Create(path)
	if err != nil {
		d.log.Warnf("write status file: %v", err)
		return
	}
	defer f.Close()
	d.dumpStatus(f, now)
}
