package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/store"
)

// DateLayout is the format written to channel_datas.date.
// The fraction is fixed width so it sorts lexicographically in time order,
// including after whole-second dates written by older versions.
const DateLayout = "2006-01-02 15:04:05.000000"

// dateLayouts are accepted when reading channel_datas.date.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ListChannels returns all channels ordered by name.
func ListChannels(ctx context.Context, db *sql.DB) ([]channel.Channel, error) {
	query := `
		SELECT channel_id, channel_name, channel_point, capacity
		FROM channel_lists
		ORDER BY channel_name, channel_id
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var channels []channel.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		channels = append(channels, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return channels, nil
}

// GetChannel retrieves a channel by its channel id.
func GetChannel(ctx context.Context, db *sql.DB, channelID string) (*channel.Channel, error) {
	query := `
		SELECT channel_id, channel_name, channel_point, capacity
		FROM channel_lists
		WHERE channel_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	ch, err := scanChannel(db.QueryRowContext(ctx, query, channelID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(channelID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return ch, nil
}

// UpsertChannel updates a channel's metadata or inserts it when absent.
// channel_lists carries no unique constraint on channel_id, so this is
// an update-then-insert inside one transaction.
func UpsertChannel(ctx context.Context, db *sql.DB, ch channel.Channel) error {
	if ch.ID == "" {
		return errors.NewInvalidRequest("channel_id is required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE channel_lists
		SET channel_name = ?, channel_point = ?, capacity = ?
		WHERE channel_id = ?
	`, ch.Name, ch.ChannelPoint, ch.Capacity, ch.ID)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO channel_lists (channel_name, channel_id, channel_point, capacity)
			VALUES (?, ?, ?, ?)
		`, ch.Name, ch.ID, ch.ChannelPoint, ch.Capacity)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// RecentSnapshots returns at most limit of the newest snapshots of a
// channel, ordered oldest first.
func RecentSnapshots(ctx context.Context, db *sql.DB, channelID string, limit int) ([]channel.Snapshot, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT channel_id, date, local_balance, local_fee, local_infee,
			remote_balance, remote_fee, remote_infee, num_updates,
			amboss_fee, active
		FROM channel_datas
		WHERE channel_id = ?
		ORDER BY date DESC, rowid DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, channelID, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var snapshots []channel.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		snapshots = append(snapshots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Newest first from the query; the engine reads oldest first
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}

	return snapshots, nil
}

// InsertSnapshot appends one channel snapshot.
func InsertSnapshot(ctx context.Context, db *sql.DB, s channel.Snapshot) error {
	if s.ChannelID == "" {
		return errors.NewInvalidRequest("channel_id is required")
	}

	var ambossFee sql.NullInt64
	if s.ReferenceFee != nil {
		ambossFee = sql.NullInt64{Int64: *s.ReferenceFee, Valid: true}
	}

	query := `
		INSERT INTO channel_datas (
			channel_id, date, local_balance, local_fee, local_infee,
			remote_balance, remote_fee, remote_infee, num_updates,
			amboss_fee, active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		s.ChannelID, FormatDate(s.Date), s.LocalBalance, s.LocalFee, s.LocalInboundFee,
		s.RemoteBalance, s.RemoteFee, s.RemoteInboundFee, s.NumUpdates,
		ambossFee, boolToInt(s.Active),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// PurgeSnapshots deletes snapshots dated before the cutoff.
func PurgeSnapshots(ctx context.Context, db *sql.DB, before time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM channel_datas WHERE date < ?", FormatDate(before))
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// RecordDecision appends a decision audit record.
func RecordDecision(ctx context.Context, db *sql.DB, rec store.DecisionRecord) error {
	query := `
		INSERT INTO fee_decisions (
			id, run_id, channel_id, channel_name, mode, class, reason, ratio,
			current_local_fee, current_inbound_fee, new_local_fee, new_inbound_fee,
			local_balance, pushed, dry_run, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		rec.ID, rec.RunID, rec.ChannelID, rec.ChannelName,
		string(rec.Mode), rec.Class, string(rec.Reason), rec.Ratio,
		rec.CurrentLocalFee, rec.CurrentInboundFee,
		toNullInt64(rec.NewLocalFee), toNullInt64(rec.NewInboundFee), toNullInt64(rec.LocalBalance),
		boolToInt(rec.Pushed), boolToInt(rec.DryRun), toNullString(rec.Error), rec.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListDecisions returns audit records matching the filter, newest first.
func ListDecisions(ctx context.Context, db *sql.DB, filter store.DecisionFilter) ([]store.DecisionRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.RunID != nil {
		where = append(where, "run_id = ?")
		args = append(args, *filter.RunID)
	}
	if filter.ChannelID != nil {
		where = append(where, "channel_id = ?")
		args = append(args, *filter.ChannelID)
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
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, store.ClampLimit(filter.Limit))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var records []store.DecisionRecord
	for rows.Next() {
		var (
			rec            store.DecisionRecord
			name           sql.NullString
			mode, reason   string
			newLocal       sql.NullInt64
			newInbound     sql.NullInt64
			localBalance   sql.NullInt64
			pushed, dryRun int
			errText        sql.NullString
		)
		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.ChannelID, &name, &mode, &rec.Class, &reason, &rec.Ratio,
			&rec.CurrentLocalFee, &rec.CurrentInboundFee, &newLocal, &newInbound,
			&localBalance, &pushed, &dryRun, &errText, &rec.CreatedAt,
		)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		rec.ChannelName = name.String
		rec.Mode = fee.Mode(mode)
		rec.Reason = fee.Reason(reason)
		rec.NewLocalFee = fromNullInt64(newLocal)
		rec.NewInboundFee = fromNullInt64(newInbound)
		rec.LocalBalance = fromNullInt64(localBalance)
		rec.Pushed = pushed != 0
		rec.DryRun = dryRun != 0
		rec.Error = fromNullString(errText)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return records, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanChannel scans a channel_lists row.
func scanChannel(row rowScanner) (*channel.Channel, error) {
	var (
		ch          channel.Channel
		name, point sql.NullString
		capacity    sql.NullInt64
	)
	if err := row.Scan(&ch.ID, &name, &point, &capacity); err != nil {
		return nil, err
	}
	ch.Name = name.String
	ch.ChannelPoint = point.String
	ch.Capacity = capacity.Int64
	return &ch, nil
}

// scanSnapshot scans a channel_datas row.
// amboss_fee is read as REAL and active as TEXT so rows written by other
// collectors (floats, "True"/"False") load as well.
func scanSnapshot(row rowScanner) (*channel.Snapshot, error) {
	var (
		s                                  channel.Snapshot
		date                               string
		localBalance, localFee, localInfee sql.NullInt64
		remoteBalance, remoteFee           sql.NullInt64
		remoteInfee, numUpdates            sql.NullInt64
		ambossFee                          sql.NullFloat64
		active                             sql.NullString
	)
	err := row.Scan(
		&s.ChannelID, &date, &localBalance, &localFee, &localInfee,
		&remoteBalance, &remoteFee, &remoteInfee, &numUpdates,
		&ambossFee, &active,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	s.Date = parsed
	s.LocalBalance = localBalance.Int64
	s.LocalFee = localFee.Int64
	s.LocalInboundFee = localInfee.Int64
	s.RemoteBalance = remoteBalance.Int64
	s.RemoteFee = remoteFee.Int64
	s.RemoteInboundFee = remoteInfee.Int64
	s.NumUpdates = numUpdates.Int64
	if ambossFee.Valid {
		v := int64(ambossFee.Float64)
		s.ReferenceFee = &v
	}
	s.Active = parseActive(active)
	return &s, nil
}

// FormatDate renders t in the stored date layout (UTC).
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a stored date in any accepted layout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseActive(ns sql.NullString) bool {
	if !ns.Valid {
		return false
	}
	v := strings.TrimSpace(ns.String)
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	n, err := strconv.ParseFloat(v, 64)
	return err == nil && n != 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}
