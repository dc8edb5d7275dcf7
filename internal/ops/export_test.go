package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lnfee/internal/errors"
)

func TestExport(t *testing.T) {
	deps := newTestDeps(t, nil)
	path := filepath.Join(t.TempDir(), "backup", "lnfee.jsonl")

	out, err := Export(context.Background(), deps, ExportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Channels)
	assert.Equal(t, 12, out.Snapshots)
	assert.Equal(t, testNow.Unix(), out.ExportedAt)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	assert.JSONEq(t, `{"_lnfee_import":true}`, scanner.Text())

	kinds := map[string]int{}
	for scanner.Scan() {
		var rec ImportRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		kinds[rec.Kind]++
	}
	assert.Equal(t, map[string]int{RecordChannel: 4, RecordSnapshot: 12}, kinds)

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExport_RoundTripsThroughImport(t *testing.T) {
	src := newTestDeps(t, nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.jsonl")

	_, err := Export(ctx, src, ExportInput{Path: path, SnapshotsPerChannel: 2})
	require.NoError(t, err)

	dst := newTestDeps(t, nil)
	imported, err := Import(ctx, dst, ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 4, imported.Channels)
	assert.Equal(t, 8, imported.Snapshots)
	assert.Empty(t, imported.Errors)

	want, err := src.Store.RecentSnapshots(ctx, "c4", 1)
	require.NoError(t, err)
	got, err := dst.Store.RecentSnapshots(ctx, "c4", 1)
	require.NoError(t, err)
	assert.True(t, want[0].Date.Equal(got[0].Date))
	assert.Equal(t, want[0].LocalFee, got[0].LocalFee)
}

func TestExport_Validation(t *testing.T) {
	deps := newTestDeps(t, nil)
	ctx := context.Background()

	_, err := Export(ctx, deps, ExportInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Export(ctx, deps, ExportInput{Path: filepath.Join(t.TempDir(), "out.json")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Export(ctx, deps, ExportInput{Path: "../out.jsonl"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestExport_RejectsSymlinkDestination(t *testing.T) {
	deps := newTestDeps(t, nil)
	dir := t.TempDir()
	target := filepath.Join(dir, "target.jsonl")
	require.NoError(t, os.WriteFile(target, []byte("keep"), 0600))
	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := Export(context.Background(), deps, ExportInput{Path: link})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}
