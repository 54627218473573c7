package csvlog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// followDebounce coalesces bursts of write events into one read.
const followDebounce = 100 * time.Millisecond

// Follower watches a log file and emits rows as they are appended.
//
// The parent directory is watched rather than the file itself so the file
// may be created, removed or atomically replaced while following.
type Follower struct {
	path      string
	offset    int64
	fsWatcher *fsnotify.Watcher
	rows      chan Row
	logger    *slog.Logger
}

// NewFollower prepares a [Follower] for path, starting at byte offset.
//
// Pass the offset returned by [ReadFrom] to continue after a backfill, or 0
// to emit every row already in the file on the first change.
func NewFollower(path string, offset int64, logger *slog.Logger) (*Follower, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Follower{
		path:      path,
		offset:    offset,
		fsWatcher: fsWatcher,
		rows:      make(chan Row, 100),
		logger:    logger,
	}, nil
}

// Rows returns the channel of appended rows. It is closed when
// [Follower.Run] returns.
func (f *Follower) Rows() <-chan Row {
	return f.rows
}

// Run processes file system events until ctx is cancelled.
func (f *Follower) Run(ctx context.Context) {
	defer close(f.rows)
	defer func() { _ = f.fsWatcher.Close() }()

	target := filepath.Clean(f.path)

	debounce := time.NewTimer(followDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-f.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// a replacement file starts from the beginning
				f.offset = 0
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(followDebounce)

		case err, ok := <-f.fsWatcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("csv watcher error", "path", f.path, "error", err)

		case <-debounce.C:
			if !f.emitNew(ctx) {
				return
			}
		}
	}
}

// emitNew reads rows appended since the last read and sends them.
// It returns false if ctx was cancelled while sending.
func (f *Follower) emitNew(ctx context.Context) bool {
	rows, offset, err := ReadFrom(f.path, f.offset)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("failed to read appended rows", "path", f.path, "error", err)
		}
		return true
	}
	f.offset = offset

	for _, row := range rows {
		select {
		case f.rows <- row:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
