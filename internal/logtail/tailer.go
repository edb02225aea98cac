package logtail

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is how often the log file is polled.
const DefaultInterval = 2 * time.Second

// ErrStopped is returned by requests made after Run has returned.
var ErrStopped = errors.New("log tailer stopped")

// Tailer runs a Poller on a ticker and publishes the text to show on
// Events. Clear and Refresh are handed to the running loop, so the poller
// state and the event order have a single owner.
type Tailer struct {
	poller   *Poller
	interval time.Duration

	events   chan string
	clearReq chan chan error
	refresh  chan struct{}
	stopped  chan struct{}
}

// New returns a Tailer for path. A non-positive interval selects
// DefaultInterval.
func New(path string, interval time.Duration) *Tailer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tailer{
		poller:   NewPoller(path),
		interval: interval,
		events:   make(chan string),
		clearReq: make(chan chan error),
		refresh:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Path returns the followed file.
func (t *Tailer) Path() string {
	return t.poller.Path()
}

// Events delivers the full text to display each time it changes. The
// channel is closed when Run returns.
func (t *Tailer) Events() <-chan string {
	return t.events
}

// Run emits an initial snapshot and then polls until ctx is cancelled. It
// must be called at most once.
func (t *Tailer) Run(ctx context.Context) {
	defer close(t.stopped)
	defer close(t.events)

	if !t.emit(ctx, t.poller.Snapshot()) {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if text, ok := t.poller.Tick(); ok {
				if !t.emit(ctx, text) {
					return
				}
			}

		case <-t.refresh:
			if !t.emit(ctx, t.poller.Snapshot()) {
				return
			}

		case reply := <-t.clearReq:
			err := t.poller.Clear()
			reply <- err
			if err == nil && !t.emit(ctx, "") {
				return
			}
		}
	}
}

// Clear deletes the log file and, on success, emits empty text.
func (t *Tailer) Clear(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case t.clearReq <- reply:
	case <-t.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-reply
}

// Refresh asks for a fresh snapshot regardless of the file's mtime.
func (t *Tailer) Refresh(ctx context.Context) error {
	select {
	case t.refresh <- struct{}{}:
		return nil
	case <-t.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tailer) emit(ctx context.Context, text string) bool {
	select {
	case t.events <- text:
		return true
	case <-ctx.Done():
		return false
	}
}
