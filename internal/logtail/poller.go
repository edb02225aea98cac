// Package logtail follows the dictation pipeline's debug log. The file is
// polled and re-read whole whenever its modification time moves forward, so
// truncation, rotation and recreation by the producer need no special care.
package logtail

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

// Placeholder is shown while the log file does not exist.
const Placeholder = "No logs yet.\n\nLogs will be created on next voice input."

// Poller decides when the log contents need to be shown again. It is not
// safe for concurrent use; Tailer owns one on its own goroutine.
type Poller struct {
	path    string
	present bool
	lastMod time.Time
}

// NewPoller returns a Poller for path.
func NewPoller(path string) *Poller {
	return &Poller{path: path}
}

// Path returns the followed file.
func (p *Poller) Path() string {
	return p.path
}

// Snapshot reads the file unconditionally. A missing or unreadable file
// yields Placeholder.
func (p *Poller) Snapshot() string {
	info, err := os.Stat(p.path)
	if err != nil || info.IsDir() {
		p.forget()
		return Placeholder
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.forget()
		return Placeholder
	}
	p.present = true
	p.lastMod = info.ModTime()
	return string(data)
}

// Tick checks the file once. It reports new text when the file's mtime is
// newer than the last one read, or Placeholder when a file that was present
// has disappeared. Otherwise it reports nothing.
func (p *Poller) Tick() (string, bool) {
	info, err := os.Stat(p.path)
	if err != nil || info.IsDir() {
		if p.present {
			p.forget()
			return Placeholder, true
		}
		return "", false
	}

	p.present = true
	if !info.ModTime().After(p.lastMod) {
		return "", false
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		// lastMod stays put so the next tick retries.
		return "", false
	}
	p.lastMod = info.ModTime()
	return string(data), true
}

// Clear deletes the log file if it exists. A cleared log shows empty text
// rather than Placeholder until the producer writes again.
func (p *Poller) Clear() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	p.forget()
	return nil
}

func (p *Poller) forget() {
	p.present = false
	p.lastMod = time.Time{}
}
