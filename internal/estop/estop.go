// Package estop implements process-wide emergency stop: a flag checked
// at every agent yield point, settable in-process or by another process
// dropping a sentinel file on disk.
package estop

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrStopped is returned by Check once the stop has been triggered.
var ErrStopped = errors.New("estop: emergency stop triggered")

// Switch is the process-wide emergency stop. A single Switch is shared
// by the Orchestrator and every Agent Runtime it drives.
type Switch struct {
	sentinelPath string
	log          *slog.Logger

	set    atomic.Bool
	mu     sync.Mutex
	reason string
	setAt  time.Time

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// New builds a Switch that also polls sentinelPath for existence. An
// empty sentinelPath disables the file-based trigger; only Trigger and
// signal handlers can then set the flag.
func New(sentinelPath string, log *slog.Logger) *Switch {
	if log == nil {
		log = slog.Default()
	}
	s := &Switch{sentinelPath: sentinelPath, log: log, stopCh: make(chan struct{})}
	if sentinelPath != "" {
		if _, err := os.Stat(sentinelPath); err == nil {
			s.Trigger(sentinelReason(sentinelPath, "sentinel_file_present_at_startup"))
		}
		s.startWatch()
	}
	return s
}

// sentinelReason reads the sentinel file's contents to use as the
// trigger reason (§6: "contents are the stop reason"), falling back to
// fallback if the file is empty or unreadable.
func sentinelReason(path, fallback string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	reason := strings.TrimSpace(string(b))
	if reason == "" {
		return fallback
	}
	return reason
}

// startWatch uses fsnotify for near-real-time detection of the sentinel
// file's creation; Check still polls os.Stat as a fallback in case the
// watch itself fails to establish (e.g. the parent directory is
// missing at startup).
func (s *Switch) startWatch() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn("estop: fsnotify unavailable, falling back to poll-only", "error", err)
		return
	}
	dir := dirOf(s.sentinelPath)
	if err := w.Add(dir); err != nil {
		s.log.Warn("estop: could not watch sentinel directory", "dir", dir, "error", err)
		_ = w.Close()
		return
	}
	s.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == s.sentinelPath && (ev.Op&(fsnotify.Create|fsnotify.Write) != 0) {
					s.Trigger(sentinelReason(s.sentinelPath, "sentinel_file_observed"))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("estop: watcher error", "error", err)
			case <-s.stopCh:
				return
			}
		}
	}()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// Trigger sets the stop flag. Idempotent: subsequent calls after the
// first are no-ops and keep the first reason.
func (s *Switch) Trigger(reason string) {
	if !s.set.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.reason = reason
	s.setAt = time.Now()
	s.mu.Unlock()
	s.log.Warn("emergency stop triggered", "reason", reason)
}

// Reset clears the stop flag. Used by operators after investigating a
// trigger; does not remove the sentinel file itself.
func (s *Switch) Reset() {
	s.set.Store(false)
	s.mu.Lock()
	s.reason = ""
	s.mu.Unlock()
}

// IsSet reports the current flag state. When the flag is clear but the
// sentinel file exists, it first triggers the switch with the file's
// contents as the reason.
func (s *Switch) IsSet() bool {
	if s.set.Load() {
		return true
	}
	if s.sentinelPath == "" {
		return false
	}
	if _, err := os.Stat(s.sentinelPath); err == nil {
		s.Trigger(sentinelReason(s.sentinelPath, "sentinel_file_poll"))
		return true
	}
	return false
}

// Check is the non-blocking yield-point call: it returns ErrStopped if
// the switch is set, nil otherwise. Every iteration boundary in the
// agent runtime calls Check before doing further work.
func (s *Switch) Check() error {
	if s.IsSet() {
		return ErrStopped
	}
	return nil
}

// Reason returns the trigger reason and timestamp, if set.
func (s *Switch) Reason() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason, s.setAt
}

// Close stops the background watcher goroutine, if any.
func (s *Switch) Close() error {
	close(s.stopCh)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
