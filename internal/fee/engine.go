package fee

import (
	"math"

	"github.com/hpungsan/lnfee/internal/channel"
)

// Evaluate turns a channel's snapshot window into a fee decision.
// The window must be ordered oldest first. Evaluate has no side effects.
func Evaluate(p Params, mode Mode, class Classification, ch channel.Channel, window []channel.Snapshot) Decision {
	d := Decision{
		ChannelID: ch.ID,
		Class:     class.Class,
		Mode:      mode,
	}

	latest, ok := channel.Latest(window)
	if !ok {
		d.Reason = ReasonNoData
		return d
	}
	d.CurrentLocalFee = latest.LocalFee
	d.CurrentInboundFee = latest.LocalInboundFee

	if !latest.Active {
		d.Reason = ReasonInactive
		return d
	}

	switch class.Class {
	case ClassFixed:
		return evaluateFixed(p, class.FixedFee, latest, d)
	case ClassManaged:
		if ch.Capacity <= 0 {
			d.Reason = ReasonInvalidCapacity
			return d
		}
		d.Ratio = Ratio(latest.LocalBalance, ch.Capacity)
		if mode == ModeInitial {
			return evaluateInitial(p, latest, d)
		}
		return evaluateRegular(p, ch, window, latest, d)
	default:
		d.Reason = ReasonUnmanaged
		return d
	}
}

func evaluateFixed(p Params, fixedFee int64, latest channel.Snapshot, d Decision) Decision {
	localFee := fixedFee - p.InboundFeeBase
	if latest.LocalFee == localFee && latest.LocalInboundFee == p.InboundFeeBase {
		d.Reason = ReasonFixedAlreadySet
		return d
	}
	d.Reason = ReasonFixedFee
	d.Update = &FeeUpdate{
		LocalFee:     localFee,
		InboundFee:   p.InboundFeeBase,
		LocalBalance: latest.LocalBalance,
	}
	return d
}

func evaluateInitial(p Params, latest channel.Snapshot, d Decision) Decision {
	localFee, inboundFee, ok := rateFees(p, latest, d.Ratio)
	if !ok {
		d.Reason = ReasonMissingReferenceFee
		return d
	}
	if localFee == latest.LocalFee && inboundFee == latest.LocalInboundFee {
		d.Reason = ReasonInitialAlreadySet
		return d
	}
	d.Reason = ReasonInitialFee
	d.Update = &FeeUpdate{
		LocalFee:     localFee,
		InboundFee:   inboundFee,
		LocalBalance: latest.LocalBalance,
	}
	return d
}

func evaluateRegular(p Params, ch channel.Channel, window []channel.Snapshot, latest channel.Snapshot, d Decision) Decision {
	if len(window) < p.DataPeriod {
		d.Reason = ReasonInsufficientData
		return d
	}

	if d.Ratio >= p.FeeDecreasingThreshold &&
		StableOverWindow(window, ch.Capacity) &&
		FeeConstantOverWindow(window) {
		d.Reason = ReasonDecrease
		d.Update = &FeeUpdate{
			LocalFee:     decreasedLocalFee(p, latest.LocalFee),
			InboundFee:   latest.LocalInboundFee,
			LocalBalance: latest.LocalBalance,
		}
		return d
	}

	if !StableLatestPair(window, ch.Capacity) {
		localFee, inboundFee, ok := rateFees(p, latest, d.Ratio)
		if !ok {
			d.Reason = ReasonMissingReferenceFee
			return d
		}
		// Re-rate always pushes, even when the fees are unchanged.
		d.Reason = ReasonRerate
		d.Update = &FeeUpdate{
			LocalFee:     localFee,
			InboundFee:   inboundFee,
			LocalBalance: latest.LocalBalance,
		}
		return d
	}

	d.Reason = ReasonStable
	return d
}

// rateFees computes local and inbound fees from the capped reference fee and
// the bucket of ratio. The inbound fee is never positive.
func rateFees(p Params, latest channel.Snapshot, ratio float64) (localFee, inboundFee int64, ok bool) {
	if latest.ReferenceFee == nil {
		return 0, 0, false
	}
	ref := *latest.ReferenceFee
	if ref > p.ReferenceFeeCap {
		ref = p.ReferenceFeeCap
	}
	b := BucketIndex(ratio)

	inboundFee = int64(float64(p.InboundFeeBase) + float64(ref)*p.InboundFeeRatio[b])
	if inboundFee > 0 {
		inboundFee = 0
	}
	localFee = int64(float64(ref)*p.LocalFeeRatio[b]) - p.InboundFeeBase
	return localFee, inboundFee, true
}

// decreasedLocalFee lowers the effective fee (local + base) by DecreaseFactor.
// The result never drops below -base, i.e. an effective fee of zero.
func decreasedLocalFee(p Params, current int64) int64 {
	next := int64(math.Round(float64(current+p.InboundFeeBase)*DecreaseFactor - float64(p.InboundFeeBase)))
	if floor := -p.InboundFeeBase; next < floor {
		return floor
	}
	return next
}
