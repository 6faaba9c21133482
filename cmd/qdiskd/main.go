// Command qdiskd runs the disk-based quorum arbitration daemon: one
// process per cluster node, communicating with its peers exclusively
// through a shared block device and reporting vote/quorum status to a
// membership service.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/opencluster/qdiskd/internal/config"
	"github.com/opencluster/qdiskd/internal/logging"
	"github.com/opencluster/qdiskd/internal/sched"
	"github.com/opencluster/qdiskd/pkg/membership"
	"github.com/opencluster/qdiskd/pkg/membership/fake"
	"github.com/opencluster/qdiskd/pkg/quorum"
)

var (
	flagConfig     string
	flagForeground bool
	flagDebug      bool
	flagQuiet      bool
	flagMemberDSN  string
)

func main() {
	root := &cobra.Command{
		Use:   "qdiskd",
		Short: "Disk-based quorum arbitration daemon",
		RunE:  run,
	}
	root.Flags().StringVarP(&flagConfig, "config", "c", "", "path to qdiskd.yaml")
	root.Flags().BoolVarP(&flagForeground, "foreground", "f", false, "stay attached to the controlling terminal")
	root.Flags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging and status dumps")
	root.Flags().BoolVarP(&flagQuiet, "quiet", "Q", false, "log only warnings and more severe messages")
	root.Flags().StringVar(&flagMemberDSN, "membership-dsn", "", "Postgres DSN for the membership service stand-in (empty disables membership reporting)")

	if os.Getenv("QDISK_DEBUGLOG") != "" {
		flagDebug = true
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagDebug {
		cfg.Flags.Debug = true
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if flagQuiet {
		level = logging.LevelWarn
	}
	if cfg.Flags.Debug {
		level = logging.LevelDebug
	}
	log := logging.New(level)

	if !flagForeground {
		log.Infof("daemonizing is left to the process supervisor; running attached")
	}

	if err := sched.Lock(); err != nil {
		log.Warnf("%v", err)
	}
	if err := sched.SetPriority(sched.PolicyRR, 1); err != nil {
		log.Warnf("%v", err)
	}

	disk, err := quorum.OpenFileDisk(cfg.Disk.Device, cfg.Disk.BlockSize, quorum.MaxNodes)
	if err != nil {
		return fmt.Errorf("open quorum disk: %w", err)
	}

	mem, err := newMembership(cfg, log)
	if err != nil {
		return fmt.Errorf("membership service: %w", err)
	}

	qcfg := cfg.QuorumConfig()
	if err := qcfg.Validate(); err != nil {
		return fmt.Errorf("invalid quorum configuration: %w", err)
	}

	d := quorum.New(qcfg, disk, mem, quorum.StaticScorer{}, log)

	if err := mem.Register(qcfg.Label, qcfg.Votes); err != nil {
		log.Warnf("register with membership service: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Infof("shutdown requested")
		d.Stop()
	}()

	if err := d.Init(); err != nil {
		return fmt.Errorf("quorum init: %w", err)
	}
	return d.Run()
}

// newMembership wires the membership.Service boundary to the Postgres
// fake store when a DSN is configured, or otherwise to a null
// implementation that reports only this node, as a member (e.g.
// single-node testing).
func newMembership(cfg *config.Config, log *logging.Logger) (membership.Service, error) {
	if flagMemberDSN == "" {
		return nullMembership{selfID: cfg.Node.ID}, nil
	}

	db, err := gorm.Open(postgres.Open(flagMemberDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect membership database: %w", err)
	}

	return fake.New(fake.Config{
		DB:     db,
		SelfID: cfg.Node.ID,
	})
}

// nullMembership is a no-op membership.Service for running qdiskd
// without a separate membership service, e.g. in a single-node
// development setup.
type nullMembership struct{ selfID int }

func (n nullMembership) Self() (int, error) { return n.selfID, nil }

func (n nullMembership) Nodes() ([]membership.NodeInfo, error) {
	return []membership.NodeInfo{{ID: n.selfID, Member: true}}, nil
}

func (n nullMembership) Poll(ok bool) error                      { return nil }
func (n nullMembership) Kill(id int) error                       { return nil }
func (n nullMembership) Register(label string, votes int) error { return nil }
func (n nullMembership) Unregister() error                       { return nil }
func (n nullMembership) Shutdown() error                         { return nil }
func (n nullMembership) DispatchNonblocking() error              { return nil }
