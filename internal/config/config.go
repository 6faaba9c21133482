// Package config loads and validates the quorum daemon's configuration
// from a YAML file and QDISK_-prefixed environment variables, the way the
// reference corpus's richest configuration package is structured. CLI
// flags are not read here; cmd/qdiskd applies its -d flag afterwards.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/opencluster/qdiskd/pkg/quorum"
)

// Config is the top-level, validated configuration for one qdiskd
// process.
type Config struct {
	Node    NodeConfig    `mapstructure:"node"`
	Disk    DiskConfig    `mapstructure:"disk"`
	Timing  TimingConfig  `mapstructure:"timing"`
	Flags   FlagsConfig   `mapstructure:"flags"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// NodeConfig identifies this node and its contribution to quorum.
type NodeConfig struct {
	ID       int    `mapstructure:"id"`
	Label    string `mapstructure:"label"`
	Votes    int    `mapstructure:"votes"`
	MinScore int    `mapstructure:"min_score"`
}

// DiskConfig locates the shared quorum disk.
type DiskConfig struct {
	Device    string `mapstructure:"device"`
	BlockSize int    `mapstructure:"block_size"`
}

// TimingConfig holds the protocol's pacing parameters.
type TimingConfig struct {
	Interval    int `mapstructure:"interval"`
	TKO         int `mapstructure:"tko"`
	TKOUp       int `mapstructure:"tko_up"`
	UpgradeWait int `mapstructure:"upgrade_wait"`
	MasterWait  int `mapstructure:"master_wait"`
}

// FlagsConfig holds the daemon-wide behavior switches.
type FlagsConfig struct {
	Reboot    bool `mapstructure:"reboot"`
	StopCman  bool `mapstructure:"stop_cman"`
	Paranoid  bool `mapstructure:"paranoid"`
	AllowKill bool `mapstructure:"allow_kill"`
	UseUptime bool `mapstructure:"use_uptime"`
	CmanLabel bool `mapstructure:"cman_label"`
	Debug     bool `mapstructure:"debug"`
}

// LoggingConfig controls the ambient logging helper.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	StatusFile string `mapstructure:"status_file"`
}

// Scheduler describes the real-time-priority options. It is not a field
// of Config, Load does not fill it, and nothing passes it to
// internal/sched: cmd/qdiskd always requests round-robin at priority 1.
type Scheduler struct {
	Policy   string `mapstructure:"scheduler"`
	Priority int    `mapstructure:"priority"`
}

// Load reads configuration from configPath (if non-empty), layers
// QDISK_-prefixed environment variables and defaults on top, and
// returns a validated Config.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("qdiskd")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/qdiskd")
	}

	setDefaults(v)

	v.SetEnvPrefix("QDISK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timing.interval", 1)
	v.SetDefault("timing.tko", 10)
	v.SetDefault("timing.tko_up", 0) // 0 => derived from tko
	v.SetDefault("timing.upgrade_wait", 2)
	v.SetDefault("timing.master_wait", 0) // 0 => derived from tko
	v.SetDefault("disk.block_size", 512)
	v.SetDefault("node.votes", 1)
	v.SetDefault("node.min_score", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.status_file", "-")
}

func validate(cfg *Config) error {
	if cfg.Node.ID < 1 || cfg.Node.ID > quorum.MaxNodes {
		return fmt.Errorf("node.id %d out of range [1,%d]", cfg.Node.ID, quorum.MaxNodes)
	}
	if cfg.Disk.Device == "" {
		return fmt.Errorf("disk.device is required")
	}
	if cfg.Timing.Interval < 1 {
		return fmt.Errorf("timing.interval must be >= 1")
	}
	if cfg.Timing.TKO < 3 {
		return fmt.Errorf("timing.tko must be >= 3")
	}
	if cfg.Timing.TKOUp != 0 && cfg.Timing.TKOUp < 2 {
		return fmt.Errorf("timing.tko_up must be >= 2")
	}
	if cfg.Timing.UpgradeWait < 1 {
		return fmt.Errorf("timing.upgrade_wait must be >= 1")
	}
	if cfg.Node.Votes < 0 {
		return fmt.Errorf("node.votes must be >= 0")
	}
	if cfg.Node.MinScore < 0 {
		return fmt.Errorf("node.min_score must be >= 0")
	}
	return nil
}

// QuorumConfig translates this configuration into the quorum package's
// runtime Config.
func (c *Config) QuorumConfig() quorum.Config {
	var flags quorum.Flags
	if c.Flags.Reboot {
		flags |= quorum.FlagReboot
	}
	if c.Flags.AllowKill {
		flags |= quorum.FlagAllowKill
	}
	if c.Flags.UseUptime {
		flags |= quorum.FlagUptime
	}
	if c.Flags.Paranoid {
		flags |= quorum.FlagParanoid
	}
	if c.Flags.StopCman {
		flags |= quorum.FlagStopCman
	}
	if c.Flags.Debug {
		flags |= quorum.FlagDebug
	}
	if c.Flags.CmanLabel {
		flags |= quorum.FlagCmanLabel
	}
	return quorum.Config{
		MyID:        c.Node.ID,
		Interval:    c.Timing.Interval,
		TKO:         c.Timing.TKO,
		TKOUp:       c.Timing.TKOUp,
		UpgradeWait: c.Timing.UpgradeWait,
		MasterWait:  c.Timing.MasterWait,
		ScoreMin:    c.Node.MinScore,
		Votes:       c.Node.Votes,
		Label:       c.Node.Label,
		Flags:       flags,
		StatusFile:  c.Logging.StatusFile,
	}
}
