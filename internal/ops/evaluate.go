package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/fee"
)

// EvaluateInput contains parameters for the Evaluate operation.
type EvaluateInput struct {
	ChannelID string // required
	Mode      string // initial|regular, default regular
}

// EvaluateOutput contains the result of the Evaluate operation.
type EvaluateOutput struct {
	Channel  channel.Channel    `json:"channel"`
	Window   []channel.Snapshot `json:"window"`
	Decision fee.Decision       `json:"decision"`
}

// Evaluate runs the engine for one channel without pushing or recording anything.
func Evaluate(ctx context.Context, deps Deps, input EvaluateInput) (*EvaluateOutput, error) {
	id := strings.TrimSpace(input.ChannelID)
	if id == "" {
		return nil, errors.NewInvalidRequest("channel_id is required")
	}
	mode, err := ParseMode(input.Mode)
	if err != nil {
		return nil, err
	}

	ch, err := deps.Store.GetChannel(ctx, id)
	if err != nil {
		return nil, err
	}

	window, decision, err := decide(ctx, deps, mode, *ch)
	if err != nil {
		return nil, err
	}
	if window == nil {
		window = []channel.Snapshot{}
	}

	return &EvaluateOutput{
		Channel:  *ch,
		Window:   window,
		Decision: decision,
	}, nil
}

// decide loads the channel's window and evaluates it.
func decide(ctx context.Context, deps Deps, mode fee.Mode, ch channel.Channel) ([]channel.Snapshot, fee.Decision, error) {
	window, err := deps.Store.RecentSnapshots(ctx, ch.ID, deps.windowSize())
	if err != nil {
		return nil, fee.Decision{}, err
	}
	class := deps.Classifier.Classify(ch.ID)
	return window, fee.Evaluate(deps.Params, mode, class, ch, window), nil
}
