package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hpungsan/lnfee/internal/errors"
)

// DefaultExportSnapshots is the number of newest snapshots exported per channel.
const DefaultExportSnapshots = 1000

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // required, .jsonl

	// SnapshotsPerChannel caps the newest snapshots written per channel (default: 1000)
	SnapshotsPerChannel int
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Channels   int    `json:"channels"`
	Snapshots  int    `json:"snapshots"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes channels and their snapshots to a JSONL file in the format
// Import reads. The file is written to a temp path and renamed into place.
func Export(ctx context.Context, deps Deps, input ExportInput) (*ExportOutput, error) {
	exportPath := strings.TrimSpace(input.Path)
	if err := ValidatePath(exportPath, PathCheckWrite, ".jsonl"); err != nil {
		return nil, err
	}
	perChannel := input.SnapshotsPerChannel
	if perChannel <= 0 {
		perChannel = DefaultExportSnapshots
	}

	channels, err := deps.Store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve existing file on failure
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	if err := enc.Encode(ImportRecord{Header: true}); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ExportOutput{Path: exportPath, ExportedAt: deps.now().Unix()}
	for i := range channels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ch := channels[i]
		if err := enc.Encode(ImportRecord{Kind: RecordChannel, Channel: &ch}); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.Channels++

		snaps, err := deps.Store.RecentSnapshots(ctx, ch.ID, perChannel)
		if err != nil {
			return nil, err
		}
		for j := range snaps {
			if err := enc.Encode(ImportRecord{Kind: RecordSnapshot, Snapshot: &snaps[j]}); err != nil {
				return nil, errors.NewInternal(err)
			}
			out.Snapshots++
		}
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows os.Rename fails if the destination exists; the existing file is kept.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	deps.logger().WithField("path", exportPath).
		WithField("channels", out.Channels).
		WithField("snapshots", out.Snapshots).
		Info("export finished")
	return out, nil
}
