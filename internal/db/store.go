package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/store"
)

// Store adapts the SQLite queries to store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ListChannels(ctx context.Context) ([]channel.Channel, error) {
	return ListChannels(ctx, s.db)
}

func (s *Store) GetChannel(ctx context.Context, channelID string) (*channel.Channel, error) {
	return GetChannel(ctx, s.db, channelID)
}

func (s *Store) RecentSnapshots(ctx context.Context, channelID string, limit int) ([]channel.Snapshot, error) {
	return RecentSnapshots(ctx, s.db, channelID, limit)
}

func (s *Store) UpsertChannel(ctx context.Context, ch channel.Channel) error {
	return UpsertChannel(ctx, s.db, ch)
}

func (s *Store) InsertSnapshot(ctx context.Context, snap channel.Snapshot) error {
	return InsertSnapshot(ctx, s.db, snap)
}

func (s *Store) PurgeSnapshots(ctx context.Context, before time.Time) (int64, error) {
	return PurgeSnapshots(ctx, s.db, before)
}

func (s *Store) RecordDecision(ctx context.Context, rec store.DecisionRecord) error {
	return RecordDecision(ctx, s.db, rec)
}

func (s *Store) ListDecisions(ctx context.Context, filter store.DecisionFilter) ([]store.DecisionRecord, error) {
	return ListDecisions(ctx, s.db, filter)
}

func (s *Store) Close() error {
	return s.db.Close()
}
