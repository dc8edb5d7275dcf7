package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/gateway"
	"github.com/hpungsan/lnfee/internal/ops"
)

const testConfigTOML = `
[fees]
inbound_fee_base = -1000
inbound_fee_ratio = [1.2, 1.1, 1.0, 1.0, 1.0]
local_fee_ratio = [0.4, 0.6, 0.8, 1.0, 1.2]

[analysis]
data_period = 3
`

const testImport = `{"_lnfee_import":true}
{"kind":"channel","channel":{"channel_id":"c1","channel_name":"alice","channel_point":"aa:0","capacity":1000000}}
{"kind":"channel","channel":{"channel_id":"c2","channel_name":"bob","channel_point":"bb:1","capacity":1000000}}
{"kind":"snapshot","snapshot":{"channel_id":"c1","date":"2024-06-01T09:00:00Z","local_balance":500000,"local_fee":100,"amboss_fee":500,"active":true}}
{"kind":"snapshot","snapshot":{"channel_id":"c1","date":"2024-06-01T10:00:00Z","local_balance":500000,"local_fee":100,"amboss_fee":500,"active":true}}
{"kind":"snapshot","snapshot":{"channel_id":"c1","date":"2024-06-01T11:00:00Z","local_balance":500000,"local_fee":100,"amboss_fee":500,"active":true}}
{"kind":"snapshot","snapshot":{"channel_id":"c2","date":"2024-06-01T11:00:00Z","local_balance":300000,"local_fee":0,"active":true}}
`

// recordingSetter records every push.
type recordingSetter struct {
	calls []string
}

func (r *recordingSetter) SetFee(ctx context.Context, ch channel.Channel, localFee, inboundFee, localBalance int64) error {
	r.calls = append(r.calls, ch.ID)
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupTestEnv writes a config and channel lists to a temp home, opens the
// environment and seeds it through the import command.
func setupTestEnv(t *testing.T) (*appEnv, *recordingSetter) {
	t.Helper()
	home := t.TempDir()

	files := map[string]string{
		"config.toml":              testConfigTOML,
		"fixed_channel_list.csv":   "channel_name,channel_id,fee\nbob,c2,300\n",
		"control_channel_list.csv": "channel_name,channel_id,fee\nalice,c1,0\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(home, name), []byte(content), 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	env, err := newEnv(context.Background(), home, io.Discard)
	if err != nil {
		t.Fatalf("newEnv: %v", err)
	}
	t.Cleanup(env.Close)

	setter := &recordingSetter{}
	env.newSetter = func(dryRun bool) (gateway.FeeSetter, io.Closer, error) {
		return setter, nopCloser{}, nil
	}

	importPath := filepath.Join(home, "seed.jsonl")
	if err := os.WriteFile(importPath, []byte(testImport), 0600); err != nil {
		t.Fatalf("write import: %v", err)
	}
	var out ops.ImportOutput
	runCLI(t, env, &out, "import", "--path="+importPath)
	if out.Channels != 2 || out.Snapshots != 4 {
		t.Fatalf("import = %+v", out)
	}

	return env, setter
}

func TestNewEnv_LogFileResolvedAgainstHome(t *testing.T) {
	home := t.TempDir()
	cfg := testConfigTOML + "\n[log]\nfile = \"logs/lnfee.log\"\n"
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(cfg), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	env, err := newEnv(context.Background(), home, io.Discard)
	if err != nil {
		t.Fatalf("newEnv: %v", err)
	}
	env.log.Info("log file check")
	env.Close()

	data, err := os.ReadFile(filepath.Join(home, "logs", "lnfee.log"))
	if err != nil {
		t.Fatalf("log file not under home: %v", err)
	}
	if !strings.Contains(string(data), "log file check") {
		t.Errorf("log file = %q", data)
	}
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	oldStdout := os.Stdout
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	runErr := fn()
	w.Close()
	os.Stdout = oldStdout
	return <-done, runErr
}

// runCLI runs the app and decodes its JSON output into out when non-nil.
func runCLI(t *testing.T, env *appEnv, out any, args ...string) string {
	t.Helper()
	app := newCLIApp(env)
	stdout, err := captureStdout(t, func() error {
		return app.Run(append([]string{"lnfee"}, args...))
	})
	if err != nil {
		t.Fatalf("lnfee %s: %v", strings.Join(args, " "), err)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(stdout), out); err != nil {
			t.Fatalf("decode output of %s: %v\n%s", args[0], err, stdout)
		}
	}
	return stdout
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input       string
		expected    int
		expectError bool
	}{
		{"7d", 7, false},
		{"30d", 30, false},
		{"0d", 0, true},
		{"-1d", 0, true},
		{"7", 0, true},
		{"xd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("parseDuration(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCLIChannelsList(t *testing.T) {
	env, _ := setupTestEnv(t)

	var out ops.ListChannelsOutput
	runCLI(t, env, &out, "channels", "list")

	if out.Total != 2 || out.Fixed != 1 || out.Managed != 1 {
		t.Errorf("counts = %+v", out)
	}
	if out.Items[0].Name != "alice" || out.Items[0].Class != fee.ClassManaged {
		t.Errorf("first item = %+v", out.Items[0])
	}
}

func TestCLIChannelsExport(t *testing.T) {
	env, _ := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "all_channel_list.csv")

	var out ops.ExportChannelsOutput
	runCLI(t, env, &out, "channels", "export", "--path="+path)

	if out.Count != 2 {
		t.Errorf("count = %d, want 2", out.Count)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "channel_name,channel_id,fee\n") {
		t.Errorf("missing header: %q", data)
	}
	if !strings.Contains(string(data), "alice,c1,0") {
		t.Errorf("missing channel row: %q", data)
	}
}

func TestCLIExport(t *testing.T) {
	env, _ := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "backup.jsonl")

	var out ops.ExportOutput
	runCLI(t, env, &out, "export", "--path="+path)
	if out.Channels != 2 || out.Snapshots != 4 {
		t.Errorf("export = %+v", out)
	}
}

func TestCLIRun(t *testing.T) {
	env, setter := setupTestEnv(t)

	var out ops.RunOutput
	runCLI(t, env, &out, "run")

	if out.Mode != fee.ModeRegular || out.DryRun {
		t.Errorf("mode = %s, dry_run = %v", out.Mode, out.DryRun)
	}
	if out.Summary.Channels != 2 || out.Summary.Pushed != 1 {
		t.Errorf("summary = %+v", out.Summary)
	}
	if len(setter.calls) != 1 || setter.calls[0] != "c2" {
		t.Errorf("pushes = %v, want [c2]", setter.calls)
	}

	var hist ops.HistoryOutput
	runCLI(t, env, &hist, "history", "--run="+out.RunID)
	if len(hist.Items) != 2 {
		t.Errorf("history items = %d, want 2", len(hist.Items))
	}
}

func TestCLIRun_InitialSingleChannel(t *testing.T) {
	env, setter := setupTestEnv(t)

	var out ops.RunOutput
	runCLI(t, env, &out, "run", "--initial", "--dry-run", "--channel=c1")

	if !out.DryRun || out.Mode != fee.ModeInitial {
		t.Errorf("mode = %s, dry_run = %v", out.Mode, out.DryRun)
	}
	if len(out.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(out.Results))
	}
	update := out.Results[0].Decision.Update
	if update == nil || update.LocalFee != 1400 || update.InboundFee != -500 {
		t.Errorf("update = %+v, want 1400/-500", update)
	}
	if len(setter.calls) != 1 {
		t.Errorf("pushes = %v", setter.calls)
	}
}

func TestCLIEvaluate(t *testing.T) {
	env, setter := setupTestEnv(t)

	var out ops.EvaluateOutput
	runCLI(t, env, &out, "evaluate", "c2")

	if out.Decision.Reason != fee.ReasonFixedFee {
		t.Errorf("reason = %s, want fixed_fee", out.Decision.Reason)
	}
	if out.Decision.Update == nil || out.Decision.Update.LocalFee != 1300 {
		t.Errorf("update = %+v, want local fee 1300", out.Decision.Update)
	}
	if len(setter.calls) != 0 {
		t.Error("evaluate must not push")
	}
}

func TestCLIEvaluate_MissingChannel(t *testing.T) {
	env, _ := setupTestEnv(t)

	app := newCLIApp(env)
	_, err := captureStdout(t, func() error {
		return app.Run([]string{"lnfee", "evaluate"})
	})
	if err == nil || !strings.Contains(err.Error(), "INVALID_REQUEST") {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestCLIReport(t *testing.T) {
	env, _ := setupTestEnv(t)

	var run ops.RunOutput
	runCLI(t, env, &run, "run")

	md := runCLI(t, env, nil, "report")
	if !strings.HasPrefix(md, "# Fee run "+run.RunID) {
		t.Errorf("unexpected report:\n%s", md)
	}

	var out ops.ReportOutput
	runCLI(t, env, &out, "report", "--json", run.RunID)
	if out.Records != 2 {
		t.Errorf("records = %d, want 2", out.Records)
	}
}

func TestCLIPurge(t *testing.T) {
	env, _ := setupTestEnv(t)

	var out ops.PurgeOutput
	runCLI(t, env, &out, "purge", "--older-than=1d")
	// The seeded snapshots are from 2024
	if out.Purged != 4 {
		t.Errorf("purged = %d, want 4", out.Purged)
	}

	app := newCLIApp(env)
	_, err := captureStdout(t, func() error {
		return app.Run([]string{"lnfee", "purge", "--older-than=0d"})
	})
	if err == nil {
		t.Error("expected error for zero-day retention")
	}
}

func TestCLIHelpWithoutEnv(t *testing.T) {
	app := newCLIApp(nil)
	stdout, err := captureStdout(t, func() error {
		return app.Run([]string{"lnfee", "--help"})
	})
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, cmd := range []string{"run", "evaluate", "channels", "history", "serve", "mcp"} {
		if !strings.Contains(stdout, cmd) {
			t.Errorf("help output missing %q", cmd)
		}
	}
}
