package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hpungsan/lnfee/internal/config"
	"github.com/hpungsan/lnfee/internal/errors"
)

// Setup builds the process logger. Output always goes to out; when
// cfg.File is set a rotating file receives the same lines.
// The returned closer releases the file and is never nil.
func Setup(cfg config.LogConfig, out io.Writer) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level := logrus.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		parsed, err := logrus.ParseLevel(s)
		if err != nil {
			return nil, nil, errors.NewInvalidConfig("log.level", err.Error())
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, nil, errors.NewInvalidConfig("log.format", "must be text or json")
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}
	logger.SetOutput(out)

	return logger, closer, nil
}

// Discard returns a logger that drops everything. Tests and library
// callers that pass a nil logger use it.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
