package ops

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lnfee/internal/errors"
)

func TestReport(t *testing.T) {
	setter := &recordingSetter{failFor: map[string]bool{"c4": true}}
	deps := newTestDeps(t, setter)
	ctx := context.Background()

	_, err := Report(ctx, deps, ReportInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "no runs yet")

	run, err := Run(ctx, deps, RunInput{})
	require.NoError(t, err)

	out, err := Report(ctx, deps, ReportInput{})
	require.NoError(t, err)
	assert.Equal(t, run.RunID, out.RunID)
	assert.Equal(t, 4, out.Records)

	md := out.Markdown
	assert.True(t, strings.HasPrefix(md, "# Fee run "+run.RunID))
	assert.Contains(t, md, "| Pushed | 1 |")
	assert.Contains(t, md, "| Failed | 1 |")
	assert.Contains(t, md, "| No change | 2 |")
	assert.Contains(t, md, "- decrease: 1")
	assert.Contains(t, md, "| b-fixed | fixed | fixed_fee | 0.00 | 0 | 0 | 1500 | -1000 | pushed |")
	assert.Contains(t, md, "FAILED: node rejected c4")

	// Processing order
	assert.Less(t, strings.Index(md, "a-managed"), strings.Index(md, "d-decrease"))

	_, err = Report(ctx, deps, ReportInput{RunID: "nope"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
