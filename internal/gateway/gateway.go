// Package gateway pushes fee updates to the routing node.
package gateway

import (
	"context"
	"fmt"
	"math"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/errors"
)

// FeeSetter applies a fee pair to one channel.
type FeeSetter interface {
	SetFee(ctx context.Context, ch channel.Channel, localFee, inboundFee, localBalance int64) error
}

// PolicyParams are the policy fields shared by every update.
type PolicyParams struct {
	BaseFeeMsat   int64
	TimeLockDelta uint32
}

// ChanPoint is the JSON form of a funding outpoint.
type ChanPoint struct {
	FundingTxidStr string `json:"funding_txid_str"`
	OutputIndex    uint32 `json:"output_index"`
}

// InboundFee is the JSON form of an inbound fee.
type InboundFee struct {
	BaseFeeMsat int32 `json:"base_fee_msat"`
	FeeRatePpm  int32 `json:"fee_rate_ppm"`
}

// Policy is the chanpolicy request body.
type Policy struct {
	ChanPoint     ChanPoint  `json:"chan_point"`
	BaseFeeMsat   int64      `json:"base_fee_msat"`
	FeeRatePpm    uint32     `json:"fee_rate_ppm"`
	TimeLockDelta uint32     `json:"time_lock_delta"`
	MaxHtlcMsat   uint64     `json:"max_htlc_msat"`
	InboundFee    InboundFee `json:"inbound_fee"`
}

// ValidateFees rejects fee pairs the node must never receive.
func ValidateFees(localFee, inboundFee int64) error {
	if inboundFee > 0 {
		return errors.NewInvalidFee(localFee, inboundFee)
	}
	if inboundFee < math.MinInt32 {
		return errors.NewInvalidRequest(fmt.Sprintf("inbound fee out of range: %d", inboundFee))
	}
	if localFee < 0 || localFee > math.MaxUint32 {
		return errors.NewInvalidRequest(fmt.Sprintf("local fee out of range: %d", localFee))
	}
	return nil
}

// MaxHtlcMsat caps HTLCs at two thirds of the local balance.
func MaxHtlcMsat(localBalance int64) uint64 {
	if localBalance <= 0 {
		return 0
	}
	return uint64(float64(localBalance) / 3 * 2 * 1000)
}

// NewPolicy validates the fee pair and builds the request body for ch.
func NewPolicy(p PolicyParams, ch channel.Channel, localFee, inboundFee, localBalance int64) (Policy, error) {
	if err := ValidateFees(localFee, inboundFee); err != nil {
		return Policy{}, err
	}

	cp, err := channel.ParseChannelPoint(ch.ChannelPoint)
	if err != nil {
		return Policy{}, errors.NewInvalidRequest(err.Error())
	}

	return Policy{
		ChanPoint: ChanPoint{
			FundingTxidStr: cp.FundingTxID,
			OutputIndex:    cp.OutputIndex,
		},
		BaseFeeMsat:   p.BaseFeeMsat,
		FeeRatePpm:    uint32(localFee),
		TimeLockDelta: p.TimeLockDelta,
		MaxHtlcMsat:   MaxHtlcMsat(localBalance),
		InboundFee: InboundFee{
			BaseFeeMsat: 0,
			FeeRatePpm:  int32(inboundFee),
		},
	}, nil
}
