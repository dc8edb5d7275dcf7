package ops

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/metrics"
	"github.com/hpungsan/lnfee/internal/store"
)

// RunInput contains parameters for the Run operation.
type RunInput struct {
	Mode string // initial|regular, default regular

	// DryRun marks audit records; the caller supplies a matching setter
	DryRun bool

	// ChannelIDs restricts the run to these channels; empty means all
	ChannelIDs []string
}

// ChannelResult is the outcome for one channel.
type ChannelResult struct {
	ChannelName string       `json:"channel_name"`
	Decision    fee.Decision `json:"decision"`
	Pushed      bool         `json:"pushed"`
	Error       string       `json:"error,omitempty"`
}

// RunSummary aggregates a run.
type RunSummary struct {
	Channels int                `json:"channels"`
	Pushed   int                `json:"pushed"`
	Failed   int                `json:"failed"`
	NoOps    int                `json:"no_ops"`
	ByReason map[fee.Reason]int `json:"by_reason"`
}

// RunOutput contains the result of the Run operation.
type RunOutput struct {
	RunID      string          `json:"run_id"`
	Mode       fee.Mode        `json:"mode"`
	DryRun     bool            `json:"dry_run"`
	StartedAt  int64           `json:"started_at"`
	FinishedAt int64           `json:"finished_at"`
	Results    []ChannelResult `json:"results"`
	Summary    RunSummary      `json:"summary"`
}

// Run evaluates every channel once, pushes fee updates through the setter
// and records each decision. A failed push or an unreadable channel is
// recorded and the batch continues.
func Run(ctx context.Context, deps Deps, input RunInput) (*RunOutput, error) {
	mode, err := ParseMode(input.Mode)
	if err != nil {
		return nil, err
	}
	if deps.Setter == nil {
		return nil, errors.NewInvalidRequest("fee setter is required")
	}

	channels, err := selectChannels(ctx, deps, input.ChannelIDs)
	if err != nil {
		return nil, err
	}

	started := deps.now()
	log := deps.logger()
	out := &RunOutput{
		RunID:     newID(started),
		Mode:      mode,
		DryRun:    input.DryRun,
		StartedAt: started.Unix(),
		Results:   make([]ChannelResult, 0, len(channels)),
		Summary:   RunSummary{ByReason: map[fee.Reason]int{}},
	}

	fixed, managed := deps.Classifier.Counts()
	log.WithFields(logrus.Fields{
		"run_id":   out.RunID,
		"mode":     mode,
		"dry_run":  input.DryRun,
		"channels": len(channels),
		"fixed":    fixed,
		"managed":  managed,
	}).Info("fee run started")

	for _, ch := range channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := runChannel(ctx, deps, out.RunID, mode, input.DryRun, ch)
		out.Results = append(out.Results, result)

		s := &out.Summary
		s.Channels++
		s.ByReason[result.Decision.Reason]++
		switch {
		case result.Error != "":
			s.Failed++
		case result.Pushed:
			s.Pushed++
		default:
			s.NoOps++
		}
	}

	finished := deps.now()
	out.FinishedAt = finished.Unix()
	deps.Metrics.ObserveRun(started, finished)

	log.WithFields(logrus.Fields{
		"run_id": out.RunID,
		"pushed": out.Summary.Pushed,
		"failed": out.Summary.Failed,
		"no_ops": out.Summary.NoOps,
	}).Info("fee run finished")

	return out, nil
}

func selectChannels(ctx context.Context, deps Deps, ids []string) ([]channel.Channel, error) {
	if len(ids) == 0 {
		return deps.Store.ListChannels(ctx)
	}
	channels := make([]channel.Channel, 0, len(ids))
	for _, id := range ids {
		ch, err := deps.Store.GetChannel(ctx, id)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, nil
}

// runChannel evaluates, pushes and records one channel.
func runChannel(ctx context.Context, deps Deps, runID string, mode fee.Mode, dryRun bool, ch channel.Channel) ChannelResult {
	log := deps.logger().WithFields(logrus.Fields{
		"run_id":       runID,
		"channel_id":   ch.ID,
		"channel_name": ch.Name,
	})
	result := ChannelResult{ChannelName: ch.Name}

	_, decision, err := decide(ctx, deps, mode, ch)
	if err != nil {
		// Keep the channel in the output with a reason the audit trail can show
		decision = fee.Decision{
			ChannelID: ch.ID,
			Class:     deps.Classifier.Classify(ch.ID).Class,
			Mode:      mode,
			Reason:    fee.ReasonNoData,
		}
		result.Error = err.Error()
		log.WithError(err).Warn("failed to load snapshots")
	}
	result.Decision = decision

	deps.Metrics.ObserveDecision(decision.Class.String(), string(decision.Reason))
	if ratioMeasured(decision) {
		deps.Metrics.ObserveRatio(ch.ID, decision.Ratio)
	}

	fields := logrus.Fields{
		"class":   decision.Class.String(),
		"reason":  decision.Reason,
		"ratio":   decision.Ratio,
		"local":   decision.CurrentLocalFee,
		"inbound": decision.CurrentInboundFee,
	}
	if u := decision.Update; u != nil && result.Error == "" {
		fields["new_local"] = u.LocalFee
		fields["new_inbound"] = u.InboundFee
		if err := deps.Setter.SetFee(ctx, ch, u.LocalFee, u.InboundFee, u.LocalBalance); err != nil {
			result.Error = err.Error()
			deps.Metrics.ObservePush(metrics.PushError)
			log.WithFields(fields).WithError(err).Error("fee update failed")
		} else {
			result.Pushed = true
			if dryRun {
				deps.Metrics.ObservePush(metrics.PushDryRun)
			} else {
				deps.Metrics.ObservePush(metrics.PushOK)
			}
			log.WithFields(fields).Info("fee updated")
		}
	} else if result.Error == "" {
		log.WithFields(fields).Debug("no fee change")
	}

	now := deps.now()
	rec := store.NewDecisionRecord(newID(now), runID, ch, decision, now.Unix())
	rec.Pushed = result.Pushed
	rec.DryRun = dryRun
	if result.Error != "" {
		msg := result.Error
		rec.Error = &msg
	}
	if err := deps.Store.RecordDecision(ctx, rec); err != nil {
		log.WithError(err).Warn("failed to record decision")
	}

	return result
}

// ratioMeasured reports whether the engine computed d.Ratio. A drained
// channel has a measured ratio of zero.
func ratioMeasured(d fee.Decision) bool {
	if d.Class != fee.ClassManaged {
		return false
	}
	switch d.Reason {
	case fee.ReasonNoData, fee.ReasonInactive, fee.ReasonInvalidCapacity:
		return false
	}
	return true
}
