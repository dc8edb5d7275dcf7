package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/gateway"
	"github.com/hpungsan/lnfee/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps   ops.Deps
	policy gateway.PolicyParams
}

// NewHandlers creates a new Handlers instance. deps.Setter is ignored:
// fee_run always uses a dry-run setter built from policy.
func NewHandlers(deps ops.Deps, policy gateway.PolicyParams) *Handlers {
	return &Handlers{deps: deps, policy: policy}
}

// EvaluateRequest represents the arguments for fee_evaluate.
type EvaluateRequest struct {
	ChannelID string `json:"channel_id"`
	Mode      string `json:"mode,omitempty"`
}

// HistoryRequest represents the arguments for fee_history.
type HistoryRequest struct {
	RunID     string `json:"run_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	PushOnly  bool   `json:"push_only,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// ReportRequest represents the arguments for fee_report.
type ReportRequest struct {
	RunID string `json:"run_id,omitempty"`
}

// RunRequest represents the arguments for fee_run.
type RunRequest struct {
	Mode       string   `json:"mode,omitempty"`
	ChannelIDs []string `json:"channel_ids,omitempty"`
}

// HandleChannelList handles the channel_list tool call.
func (h *Handlers) HandleChannelList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListChannels(ctx, h.deps)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleEvaluate handles the fee_evaluate tool call.
func (h *Handlers) HandleEvaluate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EvaluateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Evaluate(ctx, h.deps, ops.EvaluateInput{
		ChannelID: input.ChannelID,
		Mode:      input.Mode,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistory handles the fee_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(ctx, h.deps, ops.HistoryInput{
		RunID:     input.RunID,
		ChannelID: input.ChannelID,
		PushOnly:  input.PushOnly,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleReport handles the fee_report tool call.
func (h *Handlers) HandleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Report(ctx, h.deps, ops.ReportInput{RunID: input.RunID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRun handles the fee_run tool call. Runs are always dry runs.
func (h *Handlers) HandleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	deps := h.deps
	deps.Setter = gateway.NewDryRun(deps.Log, h.policy)

	result, err := ops.Run(ctx, deps, ops.RunInput{
		Mode:       input.Mode,
		DryRun:     true,
		ChannelIDs: input.ChannelIDs,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from any error.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var fErr *errors.FeeError
	if stderrors.As(err, &fErr) {
		errorObj := map[string]any{
			"code":    fErr.Code,
			"message": fErr.Message,
			"status":  fErr.Status,
		}
		if fErr.Code != errors.ErrInternal && fErr.Details != nil {
			errorObj["details"] = fErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
