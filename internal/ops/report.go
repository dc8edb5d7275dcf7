package ops

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/store"
)

// ReportInput contains parameters for the Report operation.
type ReportInput struct {
	RunID string // optional, default: latest run
}

// ReportOutput contains the result of the Report operation.
type ReportOutput struct {
	RunID    string `json:"run_id"`
	Records  int    `json:"records"`
	Markdown string `json:"markdown"`
}

// Report renders the recorded decisions of one run as Markdown.
func Report(ctx context.Context, deps Deps, input ReportInput) (*ReportOutput, error) {
	runID := strings.TrimSpace(input.RunID)
	if runID == "" {
		latest, err := deps.Store.ListDecisions(ctx, store.DecisionFilter{Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(latest) == 0 {
			return nil, errors.NewInvalidRequest("no fee runs recorded")
		}
		runID = latest[0].RunID
	}

	records, err := deps.Store.ListDecisions(ctx, store.DecisionFilter{
		RunID: &runID,
		Limit: store.MaxDecisionLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("run not found: %s", runID))
	}

	return &ReportOutput{
		RunID:    runID,
		Records:  len(records),
		Markdown: RenderReport(runID, records),
	}, nil
}

// RenderReport renders run records as Markdown.
func RenderReport(runID string, records []store.DecisionRecord) string {
	// Oldest first reads in processing order
	sorted := append([]store.DecisionRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt != sorted[j].CreatedAt {
			return sorted[i].CreatedAt < sorted[j].CreatedAt
		}
		return sorted[i].ID < sorted[j].ID
	})

	var pushed, failed int
	reasons := map[string]int{}
	for _, r := range sorted {
		reasons[string(r.Reason)]++
		if r.Error != nil {
			failed++
		} else if r.Pushed {
			pushed++
		}
	}

	var sb strings.Builder
	first := sorted[0]

	sb.WriteString(fmt.Sprintf("# Fee run %s\n\n", runID))
	sb.WriteString(fmt.Sprintf("Started: %s | Mode: %s", time.Unix(first.CreatedAt, 0).UTC().Format(time.RFC3339), first.Mode))
	if first.DryRun {
		sb.WriteString(" | **dry run**")
	}
	sb.WriteString("\n\n")

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Channels | %d |\n", len(sorted)))
	sb.WriteString(fmt.Sprintf("| Pushed | %d |\n", pushed))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", failed))
	sb.WriteString(fmt.Sprintf("| No change | %d |\n", len(sorted)-pushed-failed))
	sb.WriteString("\n")

	names := make([]string, 0, len(reasons))
	for r := range reasons {
		names = append(names, r)
	}
	sort.Strings(names)
	sb.WriteString("### Reasons\n\n")
	for _, r := range names {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", r, reasons[r]))
	}
	sb.WriteString("\n")

	sb.WriteString("## Channels\n\n")
	sb.WriteString("| Channel | Class | Reason | Ratio | Local | Inbound | New local | New inbound | Status |\n")
	sb.WriteString("|---------|-------|--------|-------|-------|---------|-----------|-------------|--------|\n")
	for _, r := range sorted {
		name := r.ChannelName
		if name == "" {
			name = r.ChannelID
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %d | %d | %s | %s | %s |\n",
			escapeCell(name), r.Class, r.Reason, r.Ratio,
			r.CurrentLocalFee, r.CurrentInboundFee,
			optInt(r.NewLocalFee), optInt(r.NewInboundFee), status(r)))
	}

	return sb.String()
}

func optInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func status(r store.DecisionRecord) string {
	switch {
	case r.Error != nil:
		return "FAILED: " + escapeCell(*r.Error)
	case r.Pushed:
		return "pushed"
	default:
		return "-"
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
