// Package pgstore implements store.Store on PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hpungsan/lnfee/internal/channel"
	ferrors "github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements store.Store using a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Open connects to Postgres, verifies the connection and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// migrate executes the embedded migrations in file name order.
// Every statement is idempotent.
func (s *Store) migrate(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := migrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) ListChannels(ctx context.Context) ([]channel.Channel, error) {
	query := `
		SELECT channel_id, channel_name, channel_point, capacity
		FROM channel_lists
		ORDER BY channel_name, channel_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, ferrors.NewInternal(fmt.Errorf("list channels: %w", err))
	}
	defer rows.Close()

	var channels []channel.Channel
	for rows.Next() {
		var ch channel.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.ChannelPoint, &ch.Capacity); err != nil {
			return nil, ferrors.NewInternal(fmt.Errorf("scan channel: %w", err))
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.NewInternal(err)
	}
	return channels, nil
}

func (s *Store) GetChannel(ctx context.Context, channelID string) (*channel.Channel, error) {
	query := `
		SELECT channel_id, channel_name, channel_point, capacity
		FROM channel_lists
		WHERE channel_id = $1
	`

	var ch channel.Channel
	err := s.pool.QueryRow(ctx, query, channelID).Scan(&ch.ID, &ch.Name, &ch.ChannelPoint, &ch.Capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ferrors.NewNotFound(channelID)
	}
	if err != nil {
		return nil, ferrors.NewInternal(fmt.Errorf("get channel: %w", err))
	}
	return &ch, nil
}

func (s *Store) UpsertChannel(ctx context.Context, ch channel.Channel) error {
	if ch.ID == "" {
		return ferrors.NewInvalidRequest("channel_id is required")
	}

	query := `
		INSERT INTO channel_lists (channel_id, channel_name, channel_point, capacity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id) DO UPDATE
		SET channel_name = EXCLUDED.channel_name,
			channel_point = EXCLUDED.channel_point,
			capacity = EXCLUDED.capacity
	`

	if _, err := s.pool.Exec(ctx, query, ch.ID, ch.Name, ch.ChannelPoint, ch.Capacity); err != nil {
		return ferrors.NewInternal(fmt.Errorf("upsert channel: %w", err))
	}
	return nil
}

func (s *Store) RecentSnapshots(ctx context.Context, channelID string, limit int) ([]channel.Snapshot, error) {
	if limit <= 0 {
		return nil, nil
	}

	// Newest rows first, re-ordered oldest first by the outer select
	query := `
		SELECT channel_id, date, local_balance, local_fee, local_infee,
			remote_balance, remote_fee, remote_infee, num_updates, amboss_fee, active
		FROM (
			SELECT * FROM channel_datas
			WHERE channel_id = $1
			ORDER BY date DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, ferrors.NewInternal(fmt.Errorf("recent snapshots: %w", err))
	}
	defer rows.Close()

	var snapshots []channel.Snapshot
	for rows.Next() {
		var snap channel.Snapshot
		err := rows.Scan(
			&snap.ChannelID, &snap.Date, &snap.LocalBalance, &snap.LocalFee, &snap.LocalInboundFee,
			&snap.RemoteBalance, &snap.RemoteFee, &snap.RemoteInboundFee, &snap.NumUpdates,
			&snap.ReferenceFee, &snap.Active,
		)
		if err != nil {
			return nil, ferrors.NewInternal(fmt.Errorf("scan snapshot: %w", err))
		}
		snap.Date = snap.Date.UTC()
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.NewInternal(err)
	}
	return snapshots, nil
}

func (s *Store) InsertSnapshot(ctx context.Context, snap channel.Snapshot) error {
	if snap.ChannelID == "" {
		return ferrors.NewInvalidRequest("channel_id is required")
	}

	query := `
		INSERT INTO channel_datas (
			channel_id, date, local_balance, local_fee, local_infee,
			remote_balance, remote_fee, remote_infee, num_updates, amboss_fee, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		snap.ChannelID, snap.Date.UTC(), snap.LocalBalance, snap.LocalFee, snap.LocalInboundFee,
		snap.RemoteBalance, snap.RemoteFee, snap.RemoteInboundFee, snap.NumUpdates,
		snap.ReferenceFee, snap.Active,
	)
	if err != nil {
		return ferrors.NewInternal(fmt.Errorf("insert snapshot: %w", err))
	}
	return nil
}

func (s *Store) PurgeSnapshots(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM channel_datas WHERE date < $1", before.UTC())
	if err != nil {
		return 0, ferrors.NewInternal(fmt.Errorf("purge snapshots: %w", err))
	}
	return tag.RowsAffected(), nil
}

func (s *Store) RecordDecision(ctx context.Context, rec store.DecisionRecord) error {
	query := `
		INSERT INTO fee_decisions (
			id, run_id, channel_id, channel_name, mode, class, reason, ratio,
			current_local_fee, current_inbound_fee, new_local_fee, new_inbound_fee,
			local_balance, pushed, dry_run, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.RunID, rec.ChannelID, rec.ChannelName,
		string(rec.Mode), rec.Class, string(rec.Reason), rec.Ratio,
		rec.CurrentLocalFee, rec.CurrentInboundFee, rec.NewLocalFee, rec.NewInboundFee,
		rec.LocalBalance, rec.Pushed, rec.DryRun, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return ferrors.NewInternal(fmt.Errorf("record decision: %w", err))
	}
	return nil
}

func (s *Store) ListDecisions(ctx context.Context, filter store.DecisionFilter) ([]store.DecisionRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.RunID != nil {
		args = append(args, *filter.RunID)
		where = append(where, fmt.Sprintf("run_id = $%d", len(args)))
	}
	if filter.ChannelID != nil {
		args = append(args, *filter.ChannelID)
		where = append(where, fmt.Sprintf("channel_id = $%d", len(args)))
	}
	if filter.PushOnly {
		where = append(where, "new_local_fee IS NOT NULL")
	}

	query := `
		SELECT id, run_id, channel_id, channel_name, mode, class, reason, ratio,
			current_local_fee, current_inbound_fee, new_local_fee, new_inbound_fee,
			local_balance, pushed, dry_run, error, created_at
		FROM fee_decisions
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, store.ClampLimit(filter.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, ferrors.NewInternal(fmt.Errorf("list decisions: %w", err))
	}
	defer rows.Close()

	var records []store.DecisionRecord
	for rows.Next() {
		var (
			rec          store.DecisionRecord
			mode, reason string
		)
		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.ChannelID, &rec.ChannelName, &mode, &rec.Class, &reason, &rec.Ratio,
			&rec.CurrentLocalFee, &rec.CurrentInboundFee, &rec.NewLocalFee, &rec.NewInboundFee,
			&rec.LocalBalance, &rec.Pushed, &rec.DryRun, &rec.Error, &rec.CreatedAt,
		)
		if err != nil {
			return nil, ferrors.NewInternal(fmt.Errorf("scan decision: %w", err))
		}
		rec.Mode = fee.Mode(mode)
		rec.Reason = fee.Reason(reason)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.NewInternal(err)
	}
	return records, nil
}
