package mcp

import "github.com/mark3labs/mcp-go/mcp"

var channelListToolDef = mcp.NewTool("channel_list",
	mcp.WithDescription("List stored channels with their fee class (fixed, managed or unmanaged) and fixed fee."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var evaluateToolDef = mcp.NewTool("fee_evaluate",
	mcp.WithDescription("Evaluate the fee decision for one channel from its recent snapshots. Never pushes a fee update."),
	mcp.WithString("channel_id",
		mcp.Required(),
		mcp.Description("Channel identifier"),
	),
	mcp.WithString("mode",
		mcp.Description("Decision mode"),
		mcp.Enum("regular", "initial"),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var historyToolDef = mcp.NewTool("fee_history",
	mcp.WithDescription("List recorded fee decisions, newest first."),
	mcp.WithString("run_id", mcp.Description("Only decisions of this run")),
	mcp.WithString("channel_id", mcp.Description("Only decisions for this channel")),
	mcp.WithBoolean("push_only", mcp.Description("Only decisions that carried a fee update")),
	mcp.WithNumber("limit", mcp.Description("Maximum records (default 50, max 1000)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var reportToolDef = mcp.NewTool("fee_report",
	mcp.WithDescription("Render a Markdown report of one fee run. Defaults to the latest run."),
	mcp.WithString("run_id", mcp.Description("Run to report on")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var runToolDef = mcp.NewTool("fee_run",
	mcp.WithDescription("Run the fee engine over all channels in dry-run mode. Decisions are recorded; no fee update reaches the node."),
	mcp.WithString("mode",
		mcp.Description("Decision mode"),
		mcp.Enum("regular", "initial"),
	),
	mcp.WithArray("channel_ids",
		mcp.Description("Restrict the run to these channels"),
		mcp.WithStringItems(),
	),
	mcp.WithDestructiveHintAnnotation(false),
)
