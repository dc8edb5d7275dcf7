package fee

import "github.com/hpungsan/lnfee/internal/channel"

// StableOverWindow reports whether every snapshot in the window shares at
// least one balance band. An empty window is never stable.
func StableOverWindow(window []channel.Snapshot, capacity int64) bool {
	if len(window) == 0 {
		return false
	}
	common := RangeFlags(Ratio(window[0].LocalBalance, capacity))
	for _, s := range window[1:] {
		common &= RangeFlags(Ratio(s.LocalBalance, capacity))
	}
	return common != 0
}

// StableLatestPair reports whether the two newest snapshots share a band.
func StableLatestPair(window []channel.Snapshot, capacity int64) bool {
	n := len(window)
	if n < 2 {
		return false
	}
	latest := RangeFlags(Ratio(window[n-1].LocalBalance, capacity))
	previous := RangeFlags(Ratio(window[n-2].LocalBalance, capacity))
	return latest&previous != 0
}

// FeeConstantOverWindow reports whether the local fee never changed across
// the window. A single snapshot cannot establish constancy.
func FeeConstantOverWindow(window []channel.Snapshot) bool {
	if len(window) <= 1 {
		return false
	}
	base := window[0].LocalFee
	for _, s := range window[1:] {
		if s.LocalFee != base {
			return false
		}
	}
	return true
}
