package fee

// DecreaseFactor is applied to the effective outbound fee on each decrease step.
const DecreaseFactor = 0.9

// Params is the static fee configuration of a run.
type Params struct {
	// InboundFeeBase is the inbound fee applied to every managed and fixed
	// channel; it is also the offset between effective and advertised local fee.
	InboundFeeBase int64

	// InboundFeeRatio and LocalFeeRatio are multipliers indexed by balance bucket.
	InboundFeeRatio [NumBuckets]float64
	LocalFeeRatio   [NumBuckets]float64

	// DataPeriod is the window size required by regular mode
	DataPeriod int

	// FeeDecreasingThreshold is the minimum local ratio for a decrease
	FeeDecreasingThreshold float64

	// ReferenceFeeCap caps the reference fee before use
	ReferenceFeeCap int64
}
