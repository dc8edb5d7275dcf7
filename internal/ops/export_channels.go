package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/lnfee/internal/chanlist"
	"github.com/hpungsan/lnfee/internal/errors"
)

// DefaultChannelExportPath is where ExportChannels writes without a path.
const DefaultChannelExportPath = "data/all_channel_list.csv"

// ExportChannelsInput contains parameters for the ExportChannels operation.
type ExportChannelsInput struct {
	Path string // optional, default: data/all_channel_list.csv
}

// ExportChannelsOutput contains the result of the ExportChannels operation.
type ExportChannelsOutput struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// ExportChannels writes every stored channel to a channel list CSV with
// fee 0, as a template for the fixed and control lists.
func ExportChannels(ctx context.Context, deps Deps, input ExportChannelsInput) (*ExportChannelsOutput, error) {
	path := strings.TrimSpace(input.Path)
	if path == "" {
		path = DefaultChannelExportPath
	}
	if err := ValidatePath(path, PathCheckWrite, ".csv"); err != nil {
		return nil, err
	}

	channels, err := deps.Store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	if err := chanlist.WriteFile(path, channels); err != nil {
		return nil, errors.NewInternal(err)
	}

	deps.logger().WithField("path", path).WithField("count", len(channels)).Info("channel list exported")
	return &ExportChannelsOutput{Path: path, Count: len(channels)}, nil
}
