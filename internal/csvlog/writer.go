package csvlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Header is the immutable first row of every log file.
var Header = []string{"Timestamp", "APIName", "AvailableAgents"}

// Row is one data row of the log file.
type Row struct {
	Timestamp       string `json:"timestamp"`
	APIName         string `json:"api_name"`
	AvailableAgents string `json:"available_agents"`
}

func (r Row) fields() []string {
	return []string{r.Timestamp, r.APIName, r.AvailableAgents}
}

// Writer appends rows to a CSV log file.
//
// Appends from one Writer are serialised. Across processes, the header is
// guarded by an exclusive create and each row is issued as a single append
// write, so concurrent invocations neither duplicate the header nor
// interleave partial rows.
type Writer struct {
	path     string
	mu       sync.Mutex
	openFile func(name string, flag int, perm os.FileMode) (*os.File, error)
}

// NewWriter returns a [Writer] for the file at path. The file is not
// touched until the first [Writer.Append].
func NewWriter(path string) *Writer {
	return &Writer{path: path, openFile: os.OpenFile}
}

// Path returns the file the writer appends to.
func (w *Writer) Path() string {
	return w.path
}

// Append writes row to the end of the file.
//
// If the file does not exist it is created and the header is written first;
// created reports whether that happened. If that first write fails the new
// file is removed again so the next Append starts over with the header. An
// existing file is never re-headed, even if it is empty.
func (w *Writer) Append(row Row) (created bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, created, err := w.open()
	if err != nil {
		return false, err
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if created {
		_ = cw.Write(Header)
	}
	if err := cw.Write(row.fields()); err != nil {
		_ = f.Close()
		return created, fmt.Errorf("failed to encode row: %w", err)
	}
	cw.Flush()

	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		if created {
			// a file left without its header would never get one
			_ = os.Remove(w.path)
			created = false
		}
		return created, fmt.Errorf("failed to write %s: %w", w.path, err)
	}
	if err := f.Close(); err != nil {
		return created, fmt.Errorf("failed to close %s: %w", w.path, err)
	}
	return created, nil
}

// open opens the file for appending, creating it exclusively if absent.
func (w *Writer) open() (*os.File, bool, error) {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := w.openFile(w.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, false, fmt.Errorf("failed to create %s: %w", w.path, err)
	}

	f, err = w.openFile(w.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open %s: %w", w.path, err)
	}
	return f, false, nil
}
