package csvlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// ReadAll parses every data row in the file at path.
//
// The header row is skipped. A missing file is returned as an error
// wrapping fs.ErrNotExist.
func ReadAll(path string) ([]Row, error) {
	rows, _, err := ReadFrom(path, 0)
	return rows, err
}

// ReadFrom parses complete rows starting at byte offset and returns the
// offset just past the last complete row.
//
// A trailing partial line (a write still in progress) is left unread so a
// later call can pick it up. Rows that do not have exactly three columns
// are skipped.
func ReadFrom(path string, offset int64) ([]Row, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, offset, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, err
	}
	if info.Size() < offset {
		// file was truncated or replaced; start over
		offset = 0
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("failed to seek %s: %w", path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, offset, fmt.Errorf("failed to read %s: %w", path, err)
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, offset, nil
	}
	complete := data[:end+1]

	rows, err := parseRows(complete)
	if err != nil {
		return nil, offset, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, offset + int64(len(complete)), nil
}

func parseRows(data []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if len(rec) != len(Header) || slices.Equal(rec, Header) {
			continue
		}
		rows = append(rows, Row{Timestamp: rec[0], APIName: rec[1], AvailableAgents: rec[2]})
	}
}
