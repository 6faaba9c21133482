// Package fake is a Postgres-backed stand-in for the external cluster
// membership service (cman/corosync in the original system) that
// quorum.Daemon reports its vote/quorum status to and asks for the
// cluster's current node list. It exists so the quorum package's
// membership.Service boundary can be exercised end to end in tests and
// local runs without a real cluster stack: a gorm model, a stale-record
// cleanup goroutine, and transactional updates. Heartbeats are refreshed
// by Register and Poll calls, not by a goroutine of their own.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/opencluster/qdiskd/pkg/membership"
)

// MemberRecord is one node's row in the membership table.
type MemberRecord struct {
	NodeID        int    `gorm:"primaryKey"`
	Label         string `gorm:"type:varchar(64)"`
	Votes         int
	Quorate       bool
	LastHeartbeat time.Time `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (MemberRecord) TableName() string { return "qdiskd_members" }

// Store implements membership.Service on top of a gorm database,
// tracking this node's registration and the last-seen liveness of every
// node that has ever registered.
type Store struct {
	db          *gorm.DB
	selfID      int
	nodeTimeout time.Duration

	mu         sync.Mutex
	dispatched int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config configures a Store.
type Config struct {
	DB          *gorm.DB
	SelfID      int
	NodeTimeout time.Duration // records older than this are considered gone
}

// New creates a Store, migrating its schema, and starts its background
// stale-record cleanup loop.
func New(cfg Config) (*Store, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("fake: db is required")
	}
	if cfg.SelfID < 1 {
		return nil, fmt.Errorf("fake: selfID must be >= 1")
	}
	if cfg.NodeTimeout <= 0 {
		cfg.NodeTimeout = 30 * time.Second
	}

	if err := cfg.DB.AutoMigrate(&MemberRecord{}); err != nil {
		return nil, fmt.Errorf("fake: migrate schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:          cfg.DB,
		selfID:      cfg.SelfID,
		nodeTimeout: cfg.NodeTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s, nil
}

// Self returns this node's id.
func (s *Store) Self() (int, error) { return s.selfID, nil }

// Register creates or refreshes this node's row with the vote weight
// and label the daemon was configured with.
func (s *Store) Register(label string, votes int) error {
	rec := MemberRecord{
		NodeID:        s.selfID,
		Label:         label,
		Votes:         votes,
		LastHeartbeat: time.Now(),
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing MemberRecord
		err := tx.Where("node_id = ?", s.selfID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(&rec).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&MemberRecord{}).
			Where("node_id = ?", s.selfID).
			Updates(map[string]interface{}{
				"label":          label,
				"votes":          votes,
				"last_heartbeat": time.Now(),
			}).Error
	})
}

// Unregister removes this node's row, announcing a clean departure.
func (s *Store) Unregister() error {
	return s.db.Where("node_id = ?", s.selfID).Delete(&MemberRecord{}).Error
}

// Poll reports this node's current vote/quorum status and refreshes
// its heartbeat, the way the daemon periodically tells cman "I am
// quorate" or "I am not quorate" each tick.
func (s *Store) Poll(ok bool) error {
	return s.db.Model(&MemberRecord{}).
		Where("node_id = ?", s.selfID).
		Updates(map[string]interface{}{
			"quorate":        ok,
			"last_heartbeat": time.Now(),
		}).Error
}

// Kill marks a node as evicted by deleting its row, simulating the
// membership service fencing/removing it from the cluster view.
func (s *Store) Kill(id int) error {
	return s.db.Where("node_id = ?", id).Delete(&MemberRecord{}).Error
}

// Nodes returns every node whose heartbeat is still within the timeout
// window, reporting Member as true only for nodes that last polled
// quorate.
func (s *Store) Nodes() ([]membership.NodeInfo, error) {
	var recs []MemberRecord
	cutoff := time.Now().Add(-s.nodeTimeout)
	if err := s.db.Where("last_heartbeat > ?", cutoff).Find(&recs).Error; err != nil {
		return nil, err
	}
	nodes := make([]membership.NodeInfo, 0, len(recs))
	for _, r := range recs {
		nodes = append(nodes, membership.NodeInfo{ID: r.NodeID, Member: r.Quorate})
	}
	return nodes, nil
}

// DispatchNonblocking simulates notifying the membership service of a
// quorum-relevant event without blocking the caller's tick.
func (s *Store) DispatchNonblocking() error {
	s.mu.Lock()
	s.dispatched++
	s.mu.Unlock()
	return nil
}

// Shutdown stops the cleanup loop and releases the underlying database
// connection.
func (s *Store) Shutdown() error {
	s.cancel()
	s.wg.Wait()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.nodeTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.nodeTimeout * 2)
			s.db.Where("last_heartbeat < ?", cutoff).Delete(&MemberRecord{})
		}
	}
}
