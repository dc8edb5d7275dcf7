package fee

import "math"

// NumBuckets is the number of equal-width balance bands.
const NumBuckets = 5

// Range flags, one bit per band. The highest bit is the fullest band.
const (
	FlagFull    uint8 = 0b10000 // [0.8, 1.0]
	FlagHigh    uint8 = 0b01000 // [0.6, 0.8)
	FlagMid     uint8 = 0b00100 // [0.4, 0.6)
	FlagLow     uint8 = 0b00010 // [0.2, 0.4)
	FlagDrained uint8 = 0b00001 // [0.0, 0.2)
)

// Ratio returns localBalance/capacity, or NaN when capacity is not positive.
func Ratio(localBalance, capacity int64) float64 {
	if capacity <= 0 {
		return math.NaN()
	}
	return float64(localBalance) / float64(capacity)
}

// BucketIndex maps a balance ratio to a table index in [0,4].
// Bucket 0 holds the lowest local balance. Ratios above 1 land in bucket 4,
// negative ratios and NaN in bucket 0.
func BucketIndex(ratio float64) int {
	if math.IsNaN(ratio) || ratio <= 0 {
		return 0
	}
	idx := math.Floor(ratio * NumBuckets)
	if idx >= NumBuckets-1 {
		return NumBuckets - 1
	}
	return int(idx)
}

// RangeFlags returns the band mask for a balance ratio.
// Band boundaries belong to the upper band and the top band is closed at 1.0.
// A ratio outside [0,1] yields 0, meaning no band.
func RangeFlags(ratio float64) uint8 {
	var flags uint8
	if 0.8 <= ratio && ratio <= 1.0 {
		flags |= FlagFull
	}
	if 0.6 <= ratio && ratio < 0.8 {
		flags |= FlagHigh
	}
	if 0.4 <= ratio && ratio < 0.6 {
		flags |= FlagMid
	}
	if 0.2 <= ratio && ratio < 0.4 {
		flags |= FlagLow
	}
	if 0.0 <= ratio && ratio < 0.2 {
		flags |= FlagDrained
	}
	return flags
}
