package quorum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforceDeadlineRebootsWhenParanoidAndOverEvictionWindow(t *testing.T) {
	state := newMemDiskState(512)
	cfg := Config{MyID: 1, TKO: 3, TKOUp: 2, MasterWait: 3, Flags: FlagParanoid}
	require.NoError(t, cfg.Validate())
	d := newTestDaemon(cfg, memDisk{state: state})

	rebooter := &fakeRebooter{}
	d.WithRebooter(rebooter)

	clock := d.clock.(*manualClock)
	start := clock.Now()
	clock.Advance(time.Duration(cfg.Interval) * time.Duration(cfg.TKO) * time.Second * 2)

	skipped := d.enforceDeadline(start)

	assert.True(t, skipped)
	require.Len(t, rebooter.reasons, 1)
	assert.Contains(t, rebooter.reasons[0], "eviction window")
}

func TestEnforceDeadlineOnlyWarnsWithoutParanoidFlag(t *testing.T) {
	state := newMemDiskState(512)
	cfg := Config{MyID: 1, TKO: 3, TKOUp: 2, MasterWait: 3}
	require.NoError(t, cfg.Validate())
	d := newTestDaemon(cfg, memDisk{state: state})

	rebooter := &fakeRebooter{}
	d.WithRebooter(rebooter)

	clock := d.clock.(*manualClock)
	start := clock.Now()
	clock.Advance(time.Duration(cfg.Interval) * time.Duration(cfg.TKO) * time.Second * 2)

	skipped := d.enforceDeadline(start)

	assert.True(t, skipped)
	assert.Empty(t, rebooter.reasons)
}

func TestEnforceDeadlineFalseWithinInterval(t *testing.T) {
	state := newMemDiskState(512)
	cfg := Config{MyID: 1, TKO: 3, TKOUp: 2, MasterWait: 3}
	require.NoError(t, cfg.Validate())
	d := newTestDaemon(cfg, memDisk{state: state})

	start := d.now()
	assert.False(t, d.enforceDeadline(start))
}
