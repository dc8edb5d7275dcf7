package ops

import (
	"context"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/fee"
)

// ChannelSummary is a stored channel with its class for this run.
type ChannelSummary struct {
	channel.Channel
	Class    fee.Class `json:"class"`
	FixedFee *int64    `json:"fixed_fee,omitempty"`
}

// ListChannelsOutput contains the result of the ListChannels operation.
type ListChannelsOutput struct {
	Items   []ChannelSummary `json:"items"`
	Total   int              `json:"total"`
	Fixed   int              `json:"fixed"`
	Managed int              `json:"managed"`
}

// ListChannels returns every stored channel with its classification.
func ListChannels(ctx context.Context, deps Deps) (*ListChannelsOutput, error) {
	channels, err := deps.Store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListChannelsOutput{Items: make([]ChannelSummary, 0, len(channels))}
	for _, ch := range channels {
		c := deps.Classifier.Classify(ch.ID)
		item := ChannelSummary{Channel: ch, Class: c.Class}
		switch c.Class {
		case fee.ClassFixed:
			v := c.FixedFee
			item.FixedFee = &v
			out.Fixed++
		case fee.ClassManaged:
			out.Managed++
		}
		out.Items = append(out.Items, item)
	}
	out.Total = len(out.Items)
	return out, nil
}
