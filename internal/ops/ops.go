package ops

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/lnfee/internal/errors"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/gateway"
	"github.com/hpungsan/lnfee/internal/logging"
	"github.com/hpungsan/lnfee/internal/metrics"
	"github.com/hpungsan/lnfee/internal/store"
)

// Deps holds the collaborators shared by operations.
// Setter is only required by Run.
type Deps struct {
	Store      store.Store
	Setter     gateway.FeeSetter
	Classifier *fee.Classifier
	Params     fee.Params
	Log        logrus.FieldLogger
	Metrics    *metrics.FeeMetrics

	// Now defaults to time.Now
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) logger() logrus.FieldLogger {
	if d.Log != nil {
		return d.Log
	}
	return logging.Discard()
}

// windowSize is the number of snapshots loaded per channel.
func (d Deps) windowSize() int {
	return max(d.Params.DataPeriod, 1)
}

// ParseMode maps "initial"/"regular" to a Mode. Empty means regular.
func ParseMode(s string) (fee.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(fee.ModeRegular):
		return fee.ModeRegular, nil
	case string(fee.ModeInitial):
		return fee.ModeInitial, nil
	default:
		return "", errors.NewInvalidRequest("mode must be one of: initial, regular")
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newID returns a new ULID string. IDs from one process sort in creation order.
func newID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
