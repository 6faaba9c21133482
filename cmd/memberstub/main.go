// Command memberstub runs the Postgres-backed membership.Service stand-in
// on its own, so a qdiskd cluster can be exercised locally or in
// integration tests without a real cman/corosync deployment. It does not
// participate in quorum arbitration itself and does not register a node;
// it only reads the node list every ten seconds and logs it.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/opencluster/qdiskd/internal/logging"
	"github.com/opencluster/qdiskd/pkg/membership/fake"
)

var (
	flagDSN    string
	flagSelfID int
)

func main() {
	root := &cobra.Command{
		Use:   "memberstub",
		Short: "Stand-in membership service backed by Postgres",
		RunE:  run,
	}
	root.Flags().StringVar(&flagDSN, "dsn", "host=localhost user=postgres password=postgres dbname=qdiskd port=5432 sslmode=disable", "Postgres DSN")
	root.Flags().IntVar(&flagSelfID, "id", 0, "observer node id used only for schema bootstrap")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logging.New(logging.LevelInfo)

	db, err := gorm.Open(postgres.Open(flagDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	selfID := flagSelfID
	if selfID < 1 {
		selfID = 1
	}
	store, err := fake.New(fake.Config{DB: db, SelfID: selfID})
	if err != nil {
		return fmt.Errorf("start store: %w", err)
	}
	defer store.Shutdown()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigc:
			log.Infof("shutting down")
			return nil
		case <-ticker.C:
			nodes, err := store.Nodes()
			if err != nil {
				log.Warnf("list nodes: %v", err)
				continue
			}
			log.Infof("%d node(s) registered", len(nodes))
			for _, n := range nodes {
				log.Infof("  node %d member=%v", n.ID, n.Member)
			}
		}
	}
}
