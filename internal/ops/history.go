package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/lnfee/internal/store"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	RunID     string // optional filter
	ChannelID string // optional filter
	PushOnly  bool
	Limit     int // default: 50, max: 1000
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items []store.DecisionRecord `json:"items"`
	Limit int                    `json:"limit"`
}

// History lists recorded decisions, newest first.
func History(ctx context.Context, deps Deps, input HistoryInput) (*HistoryOutput, error) {
	filter := store.DecisionFilter{
		PushOnly: input.PushOnly,
		Limit:    store.ClampLimit(input.Limit),
	}
	if id := strings.TrimSpace(input.RunID); id != "" {
		filter.RunID = &id
	}
	if id := strings.TrimSpace(input.ChannelID); id != "" {
		filter.ChannelID = &id
	}

	items, err := deps.Store.ListDecisions(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.DecisionRecord{}
	}

	return &HistoryOutput{Items: items, Limit: filter.Limit}, nil
}
