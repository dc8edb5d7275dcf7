package channel

import (
	"fmt"
	"strconv"
	"strings"
)

// ChannelPoint is a parsed funding outpoint.
type ChannelPoint struct {
	FundingTxID string
	OutputIndex uint32
}

// String formats the outpoint as "txid:index".
func (cp ChannelPoint) String() string {
	return fmt.Sprintf("%s:%d", cp.FundingTxID, cp.OutputIndex)
}

// ParseChannelPoint parses a "txid:index" outpoint.
func ParseChannelPoint(s string) (ChannelPoint, error) {
	txid, idx, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || txid == "" || idx == "" {
		return ChannelPoint{}, fmt.Errorf("invalid channel point %q: expected txid:index", s)
	}
	index, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return ChannelPoint{}, fmt.Errorf("invalid channel point %q: bad output index", s)
	}
	return ChannelPoint{FundingTxID: txid, OutputIndex: uint32(index)}, nil
}
