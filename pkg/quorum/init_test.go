package quorum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitEmitsStatusDumpEachSettleInTick drives a full Init() (TKO=3,
// the minimum Validate allows) against a real status file and checks
// that the settle-in loop refreshed it, not just the one-shot INIT
// block write before the loop starts. This takes a few real wall-clock
// seconds since sleepInterval isn't clock-mocked, same as Run's pacing.
func TestInitEmitsStatusDumpEachSettleInTick(t *testing.T) {
	statusPath := filepath.Join(t.TempDir(), "status")

	state := newMemDiskState(512)
	cfg := Config{MyID: 1, TKO: 3, TKOUp: 2, MasterWait: 3, StatusFile: statusPath}
	require.NoError(t, cfg.Validate())
	d := newTestDaemon(cfg, memDisk{state: state})

	require.NoError(t, d.Init())

	contents, err := os.ReadFile(statusPath)
	require.NoError(t, err)
	out := string(contents)
	assert.Contains(t, out, "Current state: INIT")
	assert.Contains(t, out, "Node ID: 1")
}
