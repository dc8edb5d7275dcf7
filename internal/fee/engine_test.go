package fee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lnfee/internal/channel"
)

func testParams() Params {
	return Params{
		InboundFeeBase:         -1000,
		InboundFeeRatio:        [NumBuckets]float64{1.2, 1.1, 1, 1, 1},
		LocalFeeRatio:          [NumBuckets]float64{0.4, 0.6, 0.8, 1, 1.2},
		DataPeriod:             3,
		FeeDecreasingThreshold: 0.8,
		ReferenceFeeCap:        5000,
	}
}

func testChannel() channel.Channel {
	return channel.Channel{
		ID:           "chan",
		Name:         "peer",
		ChannelPoint: "abcd:0",
		Capacity:     testCapacity,
	}
}

func refFee(v int64) *int64 { return &v }

// window builds an active window at the given ratios with uniform fees.
func window(localFee, inboundFee int64, ref *int64, ratios ...float64) []channel.Snapshot {
	w := atRatios(ratios...)
	for i := range w {
		w[i].LocalFee = localFee
		w[i].LocalInboundFee = inboundFee
		w[i].ReferenceFee = ref
	}
	return w
}

var (
	managed = Classification{Class: ClassManaged}
	fixed   = Classification{Class: ClassFixed, FixedFee: 100}
)

func TestEvaluate_NoData(t *testing.T) {
	for _, mode := range []Mode{ModeInitial, ModeRegular} {
		d := Evaluate(testParams(), mode, managed, testChannel(), nil)
		assert.Equal(t, ReasonNoData, d.Reason)
		assert.False(t, d.IsPush())
	}
}

func TestEvaluate_InactiveChannel(t *testing.T) {
	w := window(2000, -1000, refFee(500), 0.9, 0.9, 0.1)
	w[len(w)-1].Active = false

	for _, class := range []Classification{managed, fixed} {
		for _, mode := range []Mode{ModeInitial, ModeRegular} {
			d := Evaluate(testParams(), mode, class, testChannel(), w)
			assert.Equal(t, ReasonInactive, d.Reason)
			assert.Nil(t, d.Update)
		}
	}
}

func TestEvaluate_Unmanaged(t *testing.T) {
	w := window(2000, -1000, refFee(500), 0.9, 0.5, 0.1)
	d := Evaluate(testParams(), ModeRegular, Classification{}, testChannel(), w)
	assert.Equal(t, ReasonUnmanaged, d.Reason)
	assert.False(t, d.IsPush())
}

func TestEvaluate_Fixed(t *testing.T) {
	for _, mode := range []Mode{ModeInitial, ModeRegular} {
		t.Run(string(mode), func(t *testing.T) {
			// Window shorter than DataPeriod does not matter for fixed channels.
			w := window(500, 0, nil, 0.5)
			d := Evaluate(testParams(), mode, fixed, testChannel(), w)
			require.True(t, d.IsPush())
			assert.Equal(t, ReasonFixedFee, d.Reason)
			assert.Equal(t, int64(1100), d.Update.LocalFee)
			assert.Equal(t, int64(-1000), d.Update.InboundFee)
			assert.Equal(t, w[0].LocalBalance, d.Update.LocalBalance)
		})
	}
}

func TestEvaluate_FixedAlreadySet(t *testing.T) {
	w := window(1100, -1000, nil, 0.5)
	d := Evaluate(testParams(), ModeRegular, fixed, testChannel(), w)
	assert.Equal(t, ReasonFixedAlreadySet, d.Reason)
	assert.False(t, d.IsPush())

	// Only the inbound fee differs: push.
	w = window(1100, -900, nil, 0.5)
	d = Evaluate(testParams(), ModeRegular, fixed, testChannel(), w)
	assert.True(t, d.IsPush())
}

func TestEvaluate_Initial(t *testing.T) {
	w := window(0, 0, refFee(500), 0.5)
	d := Evaluate(testParams(), ModeInitial, managed, testChannel(), w)

	require.True(t, d.IsPush())
	assert.Equal(t, ReasonInitialFee, d.Reason)
	// bucket 2: inbound = -1000 + 500*1 ; local = 500*0.8 + 1000
	assert.Equal(t, int64(-500), d.Update.InboundFee)
	assert.Equal(t, int64(1400), d.Update.LocalFee)
	assert.InDelta(t, 0.5, d.Ratio, 1e-9)
}

func TestEvaluate_InitialAlreadySet(t *testing.T) {
	w := window(1400, -500, refFee(500), 0.5)
	d := Evaluate(testParams(), ModeInitial, managed, testChannel(), w)
	assert.Equal(t, ReasonInitialAlreadySet, d.Reason)
	assert.False(t, d.IsPush())
}

func TestEvaluate_InitialCapsReferenceAndClampsInbound(t *testing.T) {
	w := window(0, 0, refFee(20000), 0.9)
	d := Evaluate(testParams(), ModeInitial, managed, testChannel(), w)

	require.True(t, d.IsPush())
	// capped at 5000, bucket 4: inbound = -1000 + 5000 > 0 -> 0 ; local = 5000*1.2 + 1000
	assert.Equal(t, int64(0), d.Update.InboundFee)
	assert.Equal(t, int64(7000), d.Update.LocalFee)
}

func TestEvaluate_InitialMissingReferenceFee(t *testing.T) {
	w := window(0, 0, nil, 0.5)
	d := Evaluate(testParams(), ModeInitial, managed, testChannel(), w)
	assert.Equal(t, ReasonMissingReferenceFee, d.Reason)
	assert.False(t, d.IsPush())
}

func TestEvaluate_InvalidCapacity(t *testing.T) {
	ch := testChannel()
	ch.Capacity = 0
	w := window(0, 0, refFee(500), 0.5)
	d := Evaluate(testParams(), ModeInitial, managed, ch, w)
	assert.Equal(t, ReasonInvalidCapacity, d.Reason)
	assert.Zero(t, d.Ratio)
}

func TestEvaluate_RegularInsufficientData(t *testing.T) {
	// Disjoint latest pair would re-rate with a full window.
	w := window(2000, -1000, refFee(500), 0.75, 0.45)
	d := Evaluate(testParams(), ModeRegular, managed, testChannel(), w)
	assert.Equal(t, ReasonInsufficientData, d.Reason)
	assert.False(t, d.IsPush())
}

func TestEvaluate_RegularDecrease(t *testing.T) {
	tests := []struct {
		name     string
		localFee int64
		want     int64
	}{
		// (2000 - 1000) * 0.9 + 1000
		{"decrease", 2000, 1900},
		{"rounding", 2005, 1905},
		// effective fee already zero
		{"at floor", 1000, 1000},
		{"below floor", 500, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := window(tt.localFee, -700, refFee(500), 0.85, 0.85, 0.85)
			d := Evaluate(testParams(), ModeRegular, managed, testChannel(), w)

			require.True(t, d.IsPush())
			assert.Equal(t, ReasonDecrease, d.Reason)
			assert.Equal(t, tt.want, d.Update.LocalFee)
			assert.Equal(t, int64(-700), d.Update.InboundFee, "inbound fee is unchanged")
			assert.GreaterOrEqual(t, d.Update.LocalFee, int64(1000))
		})
	}
}

func TestEvaluate_RegularDecreaseNeedsConstantFee(t *testing.T) {
	w := window(2000, -1000, refFee(500), 0.85, 0.85, 0.85)
	w[0].LocalFee = 2100

	d := Evaluate(testParams(), ModeRegular, managed, testChannel(), w)
	assert.Equal(t, ReasonStable, d.Reason)
	assert.False(t, d.IsPush())
}

func TestEvaluate_RegularDecreaseNeedsThreshold(t *testing.T) {
	w := window(2000, -1000, refFee(500), 0.65, 0.65, 0.65)
	d := Evaluate(testParams(), ModeRegular, managed, testChannel(), w)
	assert.Equal(t, ReasonStable, d.Reason)
}

func TestEvaluate_RegularRerate(t *testing.T) {
	// Current fees already equal the computed ones; re-rate still pushes.
	w := window(1400, -500, refFee(500), 0.75, 0.75, 0.45)
	d := Evaluate(testParams(), ModeRegular, managed, testChannel(), w)

	require.True(t, d.IsPush())
	assert.Equal(t, ReasonRerate, d.Reason)
	assert.Equal(t, int64(1400), d.Update.LocalFee)
	assert.Equal(t, int64(-500), d.Update.InboundFee)
}

func TestEvaluate_RegularRerateAfterLeavingFullBand(t *testing.T) {
	// Above threshold earlier but the window is not stable: re-rate from bucket 2.
	w := window(2000, -1000, refFee(500), 0.85, 0.85, 0.5)
	d := Evaluate(testParams(), ModeRegular, managed, testChannel(), w)
	assert.Equal(t, ReasonRerate, d.Reason)
	require.NotNil(t, d.Update)
	assert.Equal(t, int64(1400), d.Update.LocalFee)
}

func TestEvaluate_RegularRerateMissingReferenceFee(t *testing.T) {
	w := window(2000, -1000, nil, 0.75, 0.75, 0.45)
	d := Evaluate(testParams(), ModeRegular, managed, testChannel(), w)
	assert.Equal(t, ReasonMissingReferenceFee, d.Reason)
	assert.False(t, d.IsPush())
}

func TestEvaluate_RegularStable(t *testing.T) {
	w := window(2000, -1000, refFee(500), 0.3, 0.5, 0.55)
	d := Evaluate(testParams(), ModeRegular, managed, testChannel(), w)
	assert.Equal(t, ReasonStable, d.Reason)
	assert.False(t, d.IsPush())
}

func TestEvaluate_DoesNotMutateWindow(t *testing.T) {
	w := window(0, 0, refFee(20000), 0.9)
	Evaluate(testParams(), ModeInitial, managed, testChannel(), w)
	assert.Equal(t, int64(20000), *w[0].ReferenceFee)
}
