// Package chanlist reads and writes the channel_name,channel_id,fee CSV
// files that decide which channels are fixed or managed.
package chanlist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/lnfee/internal/channel"
)

// Header is the first row of every channel list.
var Header = []string{"channel_name", "channel_id", "fee"}

// Entry is one channel list row.
type Entry struct {
	Name      string
	ChannelID string
	Fee       string
}

// Read parses a channel list. The header row is skipped and rows without
// a channel id are ignored.
func Read(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []Entry
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read channel list: %w", err)
		}
		if first {
			first = false
			continue
		}
		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			continue
		}
		e := Entry{Name: row[0], ChannelID: strings.TrimSpace(row[1])}
		if len(row) >= 3 {
			e.Fee = strings.TrimSpace(row[2])
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LoadFixed loads the fixed-fee list as channel id -> fee (ppm).
// A missing file is logged and yields an empty map. Rows whose fee is
// not an integer are skipped with a warning.
func LoadFixed(path string, log logrus.FieldLogger) (map[string]int64, error) {
	entries, err := load(path, log)
	if err != nil {
		return nil, err
	}

	fixed := make(map[string]int64, len(entries))
	for _, e := range entries {
		v, err := strconv.ParseInt(e.Fee, 10, 64)
		if err != nil {
			log.WithFields(logrus.Fields{
				"file":       path,
				"channel_id": e.ChannelID,
				"fee":        e.Fee,
			}).Warn("skipping fixed channel with invalid fee")
			continue
		}
		fixed[e.ChannelID] = v
	}
	return fixed, nil
}

// LoadControl loads the managed channel ids. The fee column is ignored.
// A missing file is logged and yields an empty list.
func LoadControl(path string, log logrus.FieldLogger) ([]string, error) {
	entries, err := load(path, log)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ChannelID)
	}
	return ids, nil
}

func load(path string, log logrus.FieldLogger) ([]Entry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.WithField("file", path).Warn("channel list not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open channel list: %w", err)
	}
	defer f.Close()

	entries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Write renders channels as a channel list with every fee set to 0,
// ready to be edited into a fixed or control list.
func Write(w io.Writer, channels []channel.Channel) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, ch := range channels {
		if err := writer.Write([]string{ch.Name, ch.ID, "0"}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile writes the channel list to path, creating parent directories.
func WriteFile(path string, channels []channel.Channel) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create channel list: %w", err)
	}
	if err := Write(f, channels); err != nil {
		f.Close()
		return fmt.Errorf("write channel list: %w", err)
	}
	return f.Close()
}
