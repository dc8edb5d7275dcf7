package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	ferrors "github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/fee"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `json:"database" toml:"database"`
	Channels ChannelsConfig `json:"channels" toml:"channels"`
	API      APIConfig      `json:"api" toml:"api"`
	Fees     FeesConfig     `json:"fees" toml:"fees"`
	Analysis AnalysisConfig `json:"analysis" toml:"analysis"`
	Debug    DebugConfig    `json:"debug" toml:"debug"`
	Log      LogConfig      `json:"log" toml:"log"`
	MCP      MCPConfig      `json:"mcp" toml:"mcp"`
}

// DatabaseConfig selects the snapshot store.
type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "postgres"
	Driver string `json:"driver" toml:"driver"`

	// Path is the SQLite database file. Empty means <home>/lnfee.db.
	// Pointing it at an existing channel database reuses its tables.
	Path string `json:"path,omitempty" toml:"path"`

	// DSN is the Postgres connection string when Driver is "postgres"
	DSN string `json:"dsn,omitempty" toml:"dsn"`

	// MaxOpenConns and MaxIdleConns tune the SQLite pool; 0 keeps sql.DB defaults.
	MaxOpenConns int `json:"max_open_conns,omitempty" toml:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns,omitempty" toml:"max_idle_conns"`
}

// ChannelsConfig points at the CSV channel lists.
// Relative paths are resolved against the home directory.
type ChannelsConfig struct {
	FixedChannelList   string `json:"fixed_channel_list" toml:"fixed_channel_list"`
	ControlChannelList string `json:"control_channel_list" toml:"control_channel_list"`
}

// APIConfig describes how fee updates reach the node.
type APIConfig struct {
	// Backend is "rest" (default) or "grpc"
	Backend string `json:"backend" toml:"backend"`

	// APIURL is the REST endpoint base, e.g. https://localhost:8080
	APIURL string `json:"api_url" toml:"api_url"`

	// GRPCHost is the gRPC host:port, e.g. localhost:10009
	GRPCHost string `json:"grpc_host" toml:"grpc_host"`

	MacaroonPath string `json:"macaroon_path" toml:"macaroon_path"`
	TLSPath      string `json:"tls_path" toml:"tls_path"`

	TimeoutSeconds int `json:"timeout_seconds,omitempty" toml:"timeout_seconds"`

	// RateLimitPerSec limits fee updates per second; 0 disables limiting.
	RateLimitPerSec float64 `json:"rate_limit_per_sec,omitempty" toml:"rate_limit_per_sec"`
}

// FeesConfig is the fee policy.
type FeesConfig struct {
	BaseFeeMsat   int64 `json:"basefee_msat" toml:"basefee_msat"`
	TimeLockDelta int64 `json:"time_lock_delta" toml:"time_lock_delta"`

	// InboundFeeBase is the inbound fee rate (ppm) applied to every channel; <= 0
	InboundFeeBase int64 `json:"inbound_fee_base" toml:"inbound_fee_base"`

	// InboundFeeRatio and LocalFeeRatio hold one multiplier per balance bucket,
	// lowest local balance first.
	InboundFeeRatio []float64 `json:"inbound_fee_ratio" toml:"inbound_fee_ratio"`
	LocalFeeRatio   []float64 `json:"local_fee_ratio" toml:"local_fee_ratio"`

	FeeDecreasingThreshold float64 `json:"fee_decreasing_threshold" toml:"fee_decreasing_threshold"`
	ReferenceFeeCap        int64   `json:"reference_fee_cap" toml:"reference_fee_cap"`
}

// AnalysisConfig controls the snapshot window.
type AnalysisConfig struct {
	DataPeriod int `json:"data_period" toml:"data_period"`
}

// DebugConfig toggles dry runs.
type DebugConfig struct {
	// DebugMode logs fee update payloads instead of sending them
	DebugMode bool `json:"debug_mode" toml:"debug_mode"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"` // text|json

	// File enables a rotating log file in addition to stdout
	File       string `json:"file,omitempty" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups,omitempty" toml:"max_backups"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty" toml:"disabled_tools"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Channels: ChannelsConfig{
			FixedChannelList:   "fixed_channel_list.csv",
			ControlChannelList: "control_channel_list.csv",
		},
		API: APIConfig{
			Backend:        "rest",
			APIURL:         "https://localhost:8080",
			GRPCHost:       "localhost:10009",
			MacaroonPath:   "~/.lnd/data/chain/bitcoin/mainnet/admin.macaroon",
			TLSPath:        "~/.lnd/tls.cert",
			TimeoutSeconds: 30,
		},
		Fees: FeesConfig{
			BaseFeeMsat:            0,
			TimeLockDelta:          144,
			InboundFeeBase:         0,
			InboundFeeRatio:        []float64{-0.2, -0.1, 0, 0, 0},
			LocalFeeRatio:          []float64{1.5, 1.2, 1.0, 0.8, 0.6},
			FeeDecreasingThreshold: 0.8,
			ReferenceFeeCap:        5000,
		},
		Analysis: AnalysisConfig{
			DataPeriod: 6,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from baseDir/config.toml, or baseDir/config.json
// when no TOML file exists. Values missing from the file keep their defaults.
// Returns the default config if neither file exists.
func Load(baseDir string) (*Config, error) {
	tomlPath := filepath.Join(baseDir, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		return loadTOML(tomlPath)
	}
	return loadJSON(filepath.Join(baseDir, "config.json"))
}

// loadTOML decodes a TOML config file over the defaults.
func loadTOML(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadJSON decodes a JSON config file over the defaults.
func loadJSON(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values the fee engine and gateways depend on.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return ferrors.NewInvalidConfig("database.dsn", "required for the postgres driver")
		}
	default:
		return ferrors.NewInvalidConfig("database.driver", "must be one of: sqlite, postgres")
	}

	switch c.API.Backend {
	case "rest", "grpc":
	default:
		return ferrors.NewInvalidConfig("api.backend", "must be one of: rest, grpc")
	}
	if c.API.RateLimitPerSec < 0 {
		return ferrors.NewInvalidConfig("api.rate_limit_per_sec", "must not be negative")
	}

	if len(c.Fees.InboundFeeRatio) != fee.NumBuckets {
		return ferrors.NewInvalidConfig("fees.inbound_fee_ratio", "must have exactly 5 values")
	}
	if len(c.Fees.LocalFeeRatio) != fee.NumBuckets {
		return ferrors.NewInvalidConfig("fees.local_fee_ratio", "must have exactly 5 values")
	}
	if c.Fees.InboundFeeBase > 0 {
		return ferrors.NewInvalidConfig("fees.inbound_fee_base", "must not be positive")
	}
	if c.Fees.FeeDecreasingThreshold < 0 || c.Fees.FeeDecreasingThreshold > 1 {
		return ferrors.NewInvalidConfig("fees.fee_decreasing_threshold", "must be within [0, 1]")
	}
	if c.Fees.ReferenceFeeCap <= 0 {
		return ferrors.NewInvalidConfig("fees.reference_fee_cap", "must be positive")
	}
	if c.Fees.TimeLockDelta < 0 {
		return ferrors.NewInvalidConfig("fees.time_lock_delta", "must not be negative")
	}
	if c.Analysis.DataPeriod <= 0 {
		return ferrors.NewInvalidConfig("analysis.data_period", "must be positive")
	}
	return nil
}

// FeeParams returns the engine parameters for a run.
// Call Validate first; short ratio tables are zero-padded.
func (c *Config) FeeParams() fee.Params {
	p := fee.Params{
		InboundFeeBase:         c.Fees.InboundFeeBase,
		DataPeriod:             c.Analysis.DataPeriod,
		FeeDecreasingThreshold: c.Fees.FeeDecreasingThreshold,
		ReferenceFeeCap:        c.Fees.ReferenceFeeCap,
	}
	copy(p.InboundFeeRatio[:], c.Fees.InboundFeeRatio)
	copy(p.LocalFeeRatio[:], c.Fees.LocalFeeRatio)
	return p
}

// ResolvePath expands a leading ~ and environment variables, and makes a
// relative path relative to baseDir.
func ResolvePath(baseDir, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.Replace(path, "~", home, 1)
		}
	}
	path = os.ExpandEnv(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return filepath.Clean(path)
}
