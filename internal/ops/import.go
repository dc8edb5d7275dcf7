package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/lnfee/internal/channel"
	"github.com/hpungsan/lnfee/internal/errors"
)

// ImportMode controls how bad lines are handled.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // any bad line aborts before writing
	ImportModeSkip  ImportMode = "skip"  // bad lines are reported and skipped
)

// Record kinds in an import file.
const (
	RecordChannel  = "channel"
	RecordSnapshot = "snapshot"
)

// ImportRecord is one line of a JSONL import file.
type ImportRecord struct {
	Header   bool              `json:"_lnfee_import,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Channel  *channel.Channel  `json:"channel,omitempty"`
	Snapshot *channel.Snapshot `json:"snapshot,omitempty"`
}

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required, .jsonl
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Channels  int           `json:"channels"`
	Snapshots int           `json:"snapshots"`
	Errors    []ImportError `json:"errors"`
}

// ImportError represents a line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import loads channels and snapshots from a JSONL file into the store.
// Channels are upserted; snapshots are appended.
func Import(ctx context.Context, deps Deps, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}
	if err := ValidatePath(input.Path, PathCheckRead, ".jsonl"); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, lines, parseErrors := parseImportFile(file)
	out := &ImportOutput{Errors: parseErrors}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return out, nil
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		switch rec.Kind {
		case RecordChannel:
			if err = deps.Store.UpsertChannel(ctx, *rec.Channel); err == nil {
				out.Channels++
			}
		case RecordSnapshot:
			if err = deps.Store.InsertSnapshot(ctx, *rec.Snapshot); err == nil {
				out.Snapshots++
			}
		}
		if err != nil {
			if input.Mode == ImportModeError {
				return nil, err
			}
			out.Errors = append(out.Errors, ImportError{
				Line:    lines[i],
				Code:    "WRITE_ERROR",
				Message: err.Error(),
			})
		}
	}

	deps.logger().WithField("path", input.Path).
		WithField("channels", out.Channels).
		WithField("snapshots", out.Snapshots).
		Info("import finished")
	return out, nil
}

// parseImportFile parses and validates every line. It returns the valid
// records with their line numbers.
func parseImportFile(r io.Reader) ([]ImportRecord, []int, []ImportError) {
	var (
		records     []ImportRecord
		lines       []int
		parseErrors []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec ImportRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if rec.Header {
			continue
		}

		if msg := validateRecord(rec); msg != "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: msg,
			})
			continue
		}

		records = append(records, rec)
		lines = append(lines, lineNum)
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, lines, parseErrors
}

func validateRecord(rec ImportRecord) string {
	switch rec.Kind {
	case RecordChannel:
		if rec.Channel == nil || rec.Channel.ID == "" {
			return "channel record requires channel.channel_id"
		}
	case RecordSnapshot:
		if rec.Snapshot == nil || rec.Snapshot.ChannelID == "" {
			return "snapshot record requires snapshot.channel_id"
		}
		if rec.Snapshot.Date.IsZero() {
			return "snapshot record requires snapshot.date"
		}
	default:
		return fmt.Sprintf("unknown kind %q", rec.Kind)
	}
	return ""
}
