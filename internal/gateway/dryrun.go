package gateway

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/logging"
)

// DryRun logs the policy it would send and reports success.
type DryRun struct {
	log    logrus.FieldLogger
	policy PolicyParams
}

var _ FeeSetter = (*DryRun)(nil)

// NewDryRun creates a logging-only setter.
// A nil log discards the output.
func NewDryRun(log logrus.FieldLogger, policy PolicyParams) *DryRun {
	if log == nil {
		log = logging.Discard()
	}
	return &DryRun{log: log, policy: policy}
}

// SetFee validates and logs the payload. Nothing is sent.
func (d *DryRun) SetFee(ctx context.Context, ch channel.Channel, localFee, inboundFee, localBalance int64) error {
	policy, err := NewPolicy(d.policy, ch, localFee, inboundFee, localBalance)
	if err != nil {
		return err
	}

	d.log.WithFields(logrus.Fields{
		"channel_id":      ch.ID,
		"channel_name":    ch.Name,
		"chan_point":      ch.ChannelPoint,
		"base_fee_msat":   policy.BaseFeeMsat,
		"fee_rate_ppm":    policy.FeeRatePpm,
		"time_lock_delta": policy.TimeLockDelta,
		"max_htlc_msat":   policy.MaxHtlcMsat,
		"inbound_fee_ppm": policy.InboundFee.FeeRatePpm,
	}).Info("dry run: fee update not sent")
	return nil
}
