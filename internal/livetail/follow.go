package livetail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrFileGone is returned by Follow when the followed file is removed or
// renamed away.
var ErrFileGone = errors.New("followed file removed")

// Follower tails a growing file, handing each complete line to a callback.
// Writes are picked up from fsnotify events, with a periodic poll as a
// fallback for filesystems that do not deliver them. A file that shrinks is
// treated as truncated and re-read from the start.
type Follower struct {
	path         string
	pollInterval time.Duration
	logger       *slog.Logger

	file    *os.File
	reader  *bufio.Reader
	offset  int64
	partial strings.Builder
}

func NewFollower(path string, pollInterval time.Duration) *Follower {
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}
	return &Follower{
		path:         path,
		pollInterval: pollInterval,
		logger:       slog.Default().With("component", "livetail-follow", "path", path),
	}
}

// Follow reads the file from the beginning, then keeps reading appended
// lines until ctx is cancelled, the file disappears or handle fails.
func (f *Follower) Follow(ctx context.Context, handle func(line string) error) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.path, err)
	}
	f.file = file
	f.reader = bufio.NewReader(file)
	defer f.file.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	// Watch the directory: inotify holds back the removal event for a file
	// that is still open.
	target := filepath.Clean(f.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", f.path, err)
	}

	if err := f.readAvailable(handle); err != nil {
		return err
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()
	f.logger.Info("following file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				f.logger.Warn("followed file went away", "op", ev.Op.String())
				return ErrFileGone
			}
			if ev.Has(fsnotify.Write) {
				if err := f.readAvailable(handle); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watcher error", "error", err)
		case <-ticker.C:
			if err := f.checkTruncated(); err != nil {
				return err
			}
			if err := f.readAvailable(handle); err != nil {
				return err
			}
		}
	}
}

// readAvailable consumes every complete line currently in the file. A
// trailing fragment without a newline is kept until the rest arrives.
func (f *Follower) readAvailable(handle func(line string) error) error {
	for {
		chunk, err := f.reader.ReadString('\n')
		f.offset += int64(len(chunk))
		if err != nil {
			if errors.Is(err, io.EOF) {
				f.partial.WriteString(chunk)
				return nil
			}
			return fmt.Errorf("reading %s: %w", f.path, err)
		}
		line := chunk
		if f.partial.Len() > 0 {
			f.partial.WriteString(chunk)
			line = f.partial.String()
			f.partial.Reset()
		}
		if err := handle(strings.TrimRight(line, "\r\n")); err != nil {
			return err
		}
	}
}

func (f *Follower) checkTruncated() error {
	info, err := f.file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", f.path, err)
	}
	if info.Size() >= f.offset {
		return nil
	}
	f.logger.Info("file truncated, reading from start", "size", info.Size(), "offset", f.offset)
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding %s: %w", f.path, err)
	}
	f.reader.Reset(f.file)
	f.offset = 0
	f.partial.Reset()
	return nil
}
