package gateway

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/errors"
)

// Limited spaces calls to the wrapped setter.
type Limited struct {
	next    FeeSetter
	limiter *rate.Limiter
}

var _ FeeSetter = (*Limited)(nil)

// NewLimited allows perSecond updates per second with a burst of one.
func NewLimited(next FeeSetter, perSecond float64) *Limited {
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// SetFee waits for a token, then delegates.
func (l *Limited) SetFee(ctx context.Context, ch channel.Channel, localFee, inboundFee, localBalance int64) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.NewGateway(ch.ID, err)
	}
	return l.next.SetFee(ctx, ch, localFee, inboundFee, localBalance)
}
