package ops

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/db"
	"github.com/hpungsan/lnfee/internal/fee"
	"github.com/hpungsan/lnfee/internal/logging"
	"github.com/hpungsan/lnfee/internal/metrics"
)

const testCapacity = 1_000_000

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testParams() fee.Params {
	return fee.Params{
		InboundFeeBase:         -1000,
		InboundFeeRatio:        [fee.NumBuckets]float64{1.2, 1.1, 1, 1, 1},
		LocalFeeRatio:          [fee.NumBuckets]float64{0.4, 0.6, 0.8, 1, 1.2},
		DataPeriod:             3,
		FeeDecreasingThreshold: 0.8,
		ReferenceFeeCap:        5000,
	}
}

// setCall is one recorded SetFee call.
type setCall struct {
	ChannelID    string
	LocalFee     int64
	InboundFee   int64
	LocalBalance int64
}

// recordingSetter records calls and fails for the channels in failFor.
type recordingSetter struct {
	mu      sync.Mutex
	calls   []setCall
	failFor map[string]bool
}

func (r *recordingSetter) SetFee(ctx context.Context, ch channel.Channel, localFee, inboundFee, localBalance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, setCall{ch.ID, localFee, inboundFee, localBalance})
	if r.failFor[ch.ID] {
		return fmt.Errorf("node rejected %s", ch.ID)
	}
	return nil
}

// newTestDeps opens a temp SQLite store seeded with four channels:
//
//	c1 "a-managed"   managed, ratio 0.5, fee 100/0, reference 500
//	c2 "b-fixed"     fixed at 500, fee 0/0
//	c3 "c-unmanaged" neither list
//	c4 "d-decrease"  managed, ratio 0.9, fee 2000/-1000
func newTestDeps(t *testing.T, setter *recordingSetter) Deps {
	t.Helper()

	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	s := db.NewStore(database)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	seed := []struct {
		ch      channel.Channel
		ratio   float64
		local   int64
		inbound int64
	}{
		{channel.Channel{ID: "c1", Name: "a-managed", ChannelPoint: "aa:0", Capacity: testCapacity}, 0.5, 100, 0},
		{channel.Channel{ID: "c2", Name: "b-fixed", ChannelPoint: "bb:1", Capacity: testCapacity}, 0.3, 0, 0},
		{channel.Channel{ID: "c3", Name: "c-unmanaged", ChannelPoint: "cc:0", Capacity: testCapacity}, 0.5, 10, 0},
		{channel.Channel{ID: "c4", Name: "d-decrease", ChannelPoint: "dd:2", Capacity: testCapacity}, 0.9, 2000, -1000},
	}
	for _, sc := range seed {
		require.NoError(t, s.UpsertChannel(ctx, sc.ch))
		ref := int64(500)
		for i := 0; i < 3; i++ {
			require.NoError(t, s.InsertSnapshot(ctx, channel.Snapshot{
				ChannelID:       sc.ch.ID,
				Date:            testNow.Add(time.Duration(i-3) * time.Hour),
				LocalBalance:    int64(sc.ratio * testCapacity),
				LocalFee:        sc.local,
				LocalInboundFee: sc.inbound,
				ReferenceFee:    &ref,
				Active:          true,
			}))
		}
	}

	if setter == nil {
		setter = &recordingSetter{}
	}

	return Deps{
		Store:      s,
		Setter:     setter,
		Classifier: fee.NewClassifier(map[string]int64{"c2": 500}, []string{"c1", "c4"}),
		Params:     testParams(),
		Log:        logging.Discard(),
		Metrics:    metrics.NewFeeMetrics(prometheus.NewRegistry()),
		Now:        func() time.Time { return testNow },
	}
}
