package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/mcp"
	"github.com/hpungsan/lnfee/internal/ops"
	"github.com/hpungsan/lnfee/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// env may be nil when only help or version output is needed.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "lnfee",
		Usage:   "Lightning channel fee decision engine",
		Version: Version,
		Commands: []*cli.Command{
			runCmd(env),
			evaluateCmd(env),
			channelsCmd(env),
			exportCmd(env),
			importCmd(env),
			historyCmd(env),
			reportCmd(env),
			purgeCmd(env),
			serveCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// modeFlag selects initial mode; the default is regular.
var modeFlag = &cli.BoolFlag{Name: "initial", Aliases: []string{"i"}, Usage: "Initial fee setting instead of regular adjustment"}

func modeFrom(c *cli.Context) string {
	if c.Bool("initial") {
		return string(fee.ModeInitial)
	}
	return string(fee.ModeRegular)
}

// runCmd creates the run command.
func runCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Evaluate every channel once and push fee updates",
		Flags: []cli.Flag{
			modeFlag,
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Log fee updates instead of sending them"},
			&cli.StringSliceFlag{Name: "channel", Aliases: []string{"c"}, Usage: "Restrict the run to these channel IDs"},
		},
		Action: func(c *cli.Context) error {
			dryRun := c.Bool("dry-run") || env.cfg.Debug.DebugMode

			setter, closer, err := env.newSetter(dryRun)
			if err != nil {
				return outputError(err)
			}
			defer closer.Close()

			deps := env.deps
			deps.Setter = setter

			output, err := ops.Run(c.Context, deps, ops.RunInput{
				Mode:       modeFrom(c),
				DryRun:     dryRun,
				ChannelIDs: c.StringSlice("channel"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// evaluateCmd creates the evaluate command.
func evaluateCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "evaluate",
		Usage:     "Show the fee decision for one channel without pushing it",
		ArgsUsage: "<channel_id>",
		Flags:     []cli.Flag{modeFlag},
		Action: func(c *cli.Context) error {
			output, err := ops.Evaluate(c.Context, env.deps, ops.EvaluateInput{
				ChannelID: c.Args().First(),
				Mode:      modeFrom(c),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// channelsCmd creates the channels command group.
func channelsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "Inspect stored channels",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List channels with their fee class",
				Action: func(c *cli.Context) error {
					output, err := ops.ListChannels(c.Context, env.deps)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "export",
				Usage: "Write all channels to a channel list CSV (fee 0)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Value: ops.DefaultChannelExportPath, Usage: "Output CSV path"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ExportChannels(c.Context, env.deps, ops.ExportChannelsInput{
						Path: c.String("path"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export channels and snapshots to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Export file path (.jsonl)"},
			&cli.IntFlag{Name: "snapshots", Value: ops.DefaultExportSnapshots, Usage: "Newest snapshots per channel"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env.deps, ops.ExportInput{
				Path:                c.String("path"),
				SnapshotsPerChannel: c.Int("snapshots"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import channels and snapshots from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Bad line handling: error|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, env.deps, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded fee decisions, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "run", Aliases: []string{"r"}, Usage: "Filter by run ID"},
			&cli.StringFlag{Name: "channel", Aliases: []string{"c"}, Usage: "Filter by channel ID"},
			&cli.BoolFlag{Name: "push-only", Usage: "Only decisions that carried a fee update"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Maximum records (max 1000)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, env.deps, ops.HistoryInput{
				RunID:     c.String("run"),
				ChannelID: c.String("channel"),
				PushOnly:  c.Bool("push-only"),
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Print a Markdown report of a run (default: latest)",
		ArgsUsage: "[run_id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output JSON instead of Markdown"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Report(c.Context, env.deps, ops.ReportInput{RunID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(output)
			}
			_, err = fmt.Fprint(os.Stdout, output.Markdown)
			return err
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete old snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Required: true, Usage: "Delete snapshots older than N days (e.g., 30d)"},
		},
		Action: func(c *cli.Context) error {
			days, err := parseDuration(c.String("older-than"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			output, err := ops.Purge(c.Context, env.deps, ops.PurgeInput{OlderThanDays: days})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the read-only web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8787, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(env.deps, web.Options{
				Version:  Version,
				Bind:     c.String("bind"),
				Port:     c.Int("port"),
				Gatherer: env.gatherer,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(c.Context, srv, env.log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio (fee_run is always a dry run)",
		Action: func(c *cli.Context) error {
			if unknown := mcp.ValidateDisabledTools(env.cfg.MCP.DisabledTools); len(unknown) > 0 {
				env.log.WithField("tools", strings.Join(unknown, ",")).Warn("ignoring unknown disabled tools")
			}
			return mcp.Run(env.deps, env.cfg, Version)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var fErr *errors.FeeError
	if stderrors.As(err, &fErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 30d")
}
