package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/lnfee/internal/config"
	"github.com/hpungsan/lnfee/internal/gateway"
	"github.com/hpungsan/lnfee/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"channel_list": {
		def:     channelListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleChannelList },
	},
	"fee_evaluate": {
		def:     evaluateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEvaluate },
	},
	"fee_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"fee_report": {
		def:     reportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReport },
	},
	"fee_run": {
		def:     runToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRun },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the lnfee tools registered.
// Tools listed in cfg.MCP.DisabledTools are excluded from registration.
func NewServer(deps ops.Deps, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lnfee",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps, policyFromConfig(cfg))

	disabled := make(map[string]bool, len(cfg.MCP.DisabledTools))
	for _, name := range cfg.MCP.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// policyFromConfig returns the policy fields used by fee_run's dry-run payloads.
func policyFromConfig(cfg *config.Config) gateway.PolicyParams {
	return gateway.PolicyParams{
		BaseFeeMsat:   cfg.Fees.BaseFeeMsat,
		TimeLockDelta: uint32(cfg.Fees.TimeLockDelta),
	}
}

// Run starts the MCP server using stdio transport.
func Run(deps ops.Deps, cfg *config.Config, version string) error {
	s := NewServer(deps, cfg, version)
	return server.ServeStdio(s)
}
