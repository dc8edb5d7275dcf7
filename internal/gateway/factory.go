package gateway

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/lnfee/internal/config"
	"github.com/hpungsan/lnfee/internal/errors"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the setter selected by cfg. Debug mode (or dryRun) never
// touches the node. The closer releases the backend connection.
func New(cfg *config.Config, baseDir string, dryRun bool, log logrus.FieldLogger) (FeeSetter, io.Closer, error) {
	policy := PolicyParams{
		BaseFeeMsat:   cfg.Fees.BaseFeeMsat,
		TimeLockDelta: uint32(cfg.Fees.TimeLockDelta),
	}

	var (
		setter FeeSetter
		closer io.Closer = nopCloser{}
	)
	switch {
	case dryRun || cfg.Debug.DebugMode:
		setter = NewDryRun(log, policy)
	case cfg.API.Backend == "grpc":
		c, err := NewGRPC(GRPCConfig{
			Host:         cfg.API.GRPCHost,
			MacaroonPath: config.ResolvePath(baseDir, cfg.API.MacaroonPath),
			TLSPath:      config.ResolvePath(baseDir, cfg.API.TLSPath),
			Policy:       policy,
		})
		if err != nil {
			return nil, nil, err
		}
		setter, closer = c, c
	case cfg.API.Backend == "" || cfg.API.Backend == "rest":
		c, err := NewREST(RESTConfig{
			URL:          cfg.API.APIURL,
			MacaroonPath: config.ResolvePath(baseDir, cfg.API.MacaroonPath),
			TLSPath:      config.ResolvePath(baseDir, cfg.API.TLSPath),
			Timeout:      time.Duration(cfg.API.TimeoutSeconds) * time.Second,
			Policy:       policy,
		})
		if err != nil {
			return nil, nil, err
		}
		setter = c
	default:
		return nil, nil, errors.NewInvalidConfig("api.backend", "must be rest or grpc")
	}

	if cfg.API.RateLimitPerSec > 0 {
		setter = NewLimited(setter, cfg.API.RateLimitPerSec)
	}
	return setter, closer, nil
}
