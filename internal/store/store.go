package store

import (
	"context"
	"time"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/fee"
)

// Store is the persistence boundary for channels, snapshots and the
// decision audit trail.
type Store interface {
	// ListChannels returns all channels ordered by name.
	ListChannels(ctx context.Context) ([]channel.Channel, error)

	// GetChannel returns one channel. Returns a NOT_FOUND error if missing.
	GetChannel(ctx context.Context, channelID string) (*channel.Channel, error)

	// RecentSnapshots returns at most limit of the newest snapshots of a
	// channel, ordered oldest first.
	RecentSnapshots(ctx context.Context, channelID string, limit int) ([]channel.Snapshot, error)

	// UpsertChannel inserts a channel or updates its metadata.
	UpsertChannel(ctx context.Context, ch channel.Channel) error

	// InsertSnapshot appends a snapshot.
	InsertSnapshot(ctx context.Context, s channel.Snapshot) error

	// PurgeSnapshots deletes snapshots older than before and returns the count.
	PurgeSnapshots(ctx context.Context, before time.Time) (int64, error)

	// RecordDecision appends an audit record.
	RecordDecision(ctx context.Context, rec DecisionRecord) error

	// ListDecisions returns audit records, newest first.
	ListDecisions(ctx context.Context, filter DecisionFilter) ([]DecisionRecord, error)

	Close() error
}

// DecisionRecord is one audited engine decision.
type DecisionRecord struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	ChannelID   string     `json:"channel_id"`
	ChannelName string     `json:"channel_name"`
	Mode        fee.Mode   `json:"mode"`
	Class       string     `json:"class"`
	Reason      fee.Reason `json:"reason"`
	Ratio       float64    `json:"ratio"`

	CurrentLocalFee   int64 `json:"current_local_fee"`
	CurrentInboundFee int64 `json:"current_inbound_fee"`

	// New fees are set only for push decisions
	NewLocalFee   *int64 `json:"new_local_fee,omitempty"`
	NewInboundFee *int64 `json:"new_inbound_fee,omitempty"`
	LocalBalance  *int64 `json:"local_balance,omitempty"`

	Pushed bool    `json:"pushed"`
	DryRun bool    `json:"dry_run"`
	Error  *string `json:"error,omitempty"`

	CreatedAt int64 `json:"created_at"`
}

// DecisionFilter narrows ListDecisions.
type DecisionFilter struct {
	RunID     *string
	ChannelID *string

	// PushOnly keeps only decisions that carried a fee update
	PushOnly bool

	Limit int
}

// Default and maximum ListDecisions page sizes.
const (
	DefaultDecisionLimit = 50
	MaxDecisionLimit     = 1000
)

// ClampLimit applies the ListDecisions defaults and bounds.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultDecisionLimit
	}
	if limit > MaxDecisionLimit {
		return MaxDecisionLimit
	}
	return limit
}

// NewDecisionRecord converts an engine decision into an audit record.
func NewDecisionRecord(id, runID string, ch channel.Channel, d fee.Decision, createdAt int64) DecisionRecord {
	rec := DecisionRecord{
		ID:                id,
		RunID:             runID,
		ChannelID:         ch.ID,
		ChannelName:       ch.Name,
		Mode:              d.Mode,
		Class:             d.Class.String(),
		Reason:            d.Reason,
		Ratio:             d.Ratio,
		CurrentLocalFee:   d.CurrentLocalFee,
		CurrentInboundFee: d.CurrentInboundFee,
		CreatedAt:         createdAt,
	}
	if d.Update != nil {
		local, inbound, balance := d.Update.LocalFee, d.Update.InboundFee, d.Update.LocalBalance
		rec.NewLocalFee = &local
		rec.NewInboundFee = &inbound
		rec.LocalBalance = &balance
	}
	return rec
}
