package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/lnfee/internal/chanlist"
	"github.com/hpungsan/lnfee/internal/config"
	"github.com/hpungsan/lnfee/internal/db"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/gateway"
	"github.com/hpungsan/lnfee/internal/logging"
	"github.com/hpungsan/lnfee/internal/metrics"
	"github.com/hpungsan/lnfee/internal/ops"
	"github.com/hpungsan/lnfee/internal/pgstore"
	"github.com/hpungsan/lnfee/internal/store"
)

// appEnv is everything a command needs, built once per invocation.
type appEnv struct {
	baseDir string
	cfg     *config.Config
	log     logrus.FieldLogger

	// deps has no Setter; commands that push build one with newSetter
	deps ops.Deps

	newSetter func(dryRun bool) (gateway.FeeSetter, io.Closer, error)
	gatherer  prometheus.Gatherer

	closers []io.Closer
}

// newEnv loads config from baseDir and opens the store, channel lists and logger.
func newEnv(ctx context.Context, baseDir string, logOut io.Writer) (*appEnv, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	logCfg.File = config.ResolvePath(baseDir, logCfg.File)
	log, logCloser, err := logging.Setup(logCfg, logOut)
	if err != nil {
		return nil, err
	}
	env := &appEnv{
		baseDir:  baseDir,
		cfg:      cfg,
		log:      log,
		gatherer: prometheus.DefaultGatherer,
		closers:  []io.Closer{logCloser},
	}

	st, err := openStore(ctx, cfg, baseDir)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	env.closers = append([]io.Closer{st}, env.closers...)

	classifier, err := loadClassifier(cfg, baseDir, log)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.deps = ops.Deps{
		Store:      st,
		Classifier: classifier,
		Params:     cfg.FeeParams(),
		Log:        log,
		Metrics:    metrics.Fee(),
	}
	env.newSetter = func(dryRun bool) (gateway.FeeSetter, io.Closer, error) {
		return gateway.New(cfg, baseDir, dryRun, log)
	}
	return env, nil
}

// Close releases the store and log file.
func (e *appEnv) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			e.log.WithError(err).Warn("close failed")
		}
	}
	e.closers = nil
}

// openStore opens the configured backend: SQLite (default) or PostgreSQL.
func openStore(ctx context.Context, cfg *config.Config, baseDir string) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := pgstore.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		database, err := openSQLite(cfg, baseDir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(database, cfg.Database)
		return db.NewStore(database), nil
	}
}

func openSQLite(cfg *config.Config, baseDir string) (*sql.DB, error) {
	if cfg.Database.Path != "" {
		return db.Open(config.ResolvePath(baseDir, cfg.Database.Path))
	}
	return db.Init(baseDir)
}

// loadClassifier reads the fixed and control channel lists.
func loadClassifier(cfg *config.Config, baseDir string, log logrus.FieldLogger) (*fee.Classifier, error) {
	fixed, err := chanlist.LoadFixed(config.ResolvePath(baseDir, cfg.Channels.FixedChannelList), log)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixed channel list: %w", err)
	}
	managed, err := chanlist.LoadControl(config.ResolvePath(baseDir, cfg.Channels.ControlChannelList), log)
	if err != nil {
		return nil, fmt.Errorf("failed to load control channel list: %w", err)
	}
	return fee.NewClassifier(fixed, managed), nil
}
