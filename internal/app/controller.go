package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fluestern/companion/internal/config"
	"github.com/fluestern/companion/internal/db"
)

// History is the part of the history store the UI drives.
type History interface {
	ListRecordings(ctx context.Context, limit int) ([]db.Recording, error)
	UpdateCorrection(ctx context.Context, id int64, text string) error
	DeleteRecording(ctx context.Context, id int64) error
	ListCorrections(ctx context.Context) ([]db.Correction, error)
	ExportPromptContext(ctx context.Context) (string, error)
}

// DefaultLimit is how many recordings the history page shows.
const DefaultLimit = 100

// Controller maps user intents onto the history and config stores. Read
// failures are logged and reported as empty results; write failures are
// logged and returned so the caller can leave its state untouched.
type Controller struct {
	history History
	config  *config.Config
	log     *slog.Logger
	limit   int
}

// NewController returns a Controller. A non-positive limit selects
// DefaultLimit.
func NewController(history History, cfg *config.Config, log *slog.Logger, limit int) *Controller {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Controller{history: history, config: cfg, log: log, limit: limit}
}

// Recordings returns the newest recordings, or nil if the query fails.
func (c *Controller) Recordings(ctx context.Context) []db.Recording {
	recordings, err := c.history.ListRecordings(ctx, c.limit)
	if err != nil {
		c.log.Error("list recordings", "err", err)
		return nil
	}
	return recordings
}

// Corrections returns all correction patterns, or nil if the query fails.
func (c *Controller) Corrections(ctx context.Context) []db.Correction {
	corrections, err := c.history.ListCorrections(ctx)
	if err != nil {
		c.log.Error("list corrections", "err", err)
		return nil
	}
	return corrections
}

// PromptContext returns the prompt-context snippet.
func (c *Controller) PromptContext(ctx context.Context) (string, error) {
	text, err := c.history.ExportPromptContext(ctx)
	if err != nil {
		c.log.Error("export prompt context", "err", err)
		return "", err
	}
	return text, nil
}

// SaveCorrection trims text and stores it as the correction for id. Empty
// text is ignored and reports false.
func (c *Controller) SaveCorrection(ctx context.Context, id int64, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	if err := c.history.UpdateCorrection(ctx, id, text); err != nil {
		c.log.Error("save correction", "recording_id", id, "err", err)
		return false, err
	}
	c.log.Info("correction saved", "recording_id", id)
	return true, nil
}

// DeleteRecording removes the recording with id.
func (c *Controller) DeleteRecording(ctx context.Context, id int64) error {
	if err := c.history.DeleteRecording(ctx, id); err != nil {
		c.log.Error("delete recording", "recording_id", id, "err", err)
		return err
	}
	c.log.Info("recording deleted", "recording_id", id)
	return nil
}

// Settings returns the current configuration for prefilling the settings
// page.
func (c *Controller) Settings() config.Settings {
	return c.config.Settings()
}

// SaveSettings persists s. On failure the config keeps its previous values.
func (c *Controller) SaveSettings(s config.Settings) error {
	if err := c.config.SaveSettings(s); err != nil {
		c.log.Error("save settings", "path", c.config.Path(), "err", err)
		return err
	}
	c.log.Info("settings saved", "path", c.config.Path())
	return nil
}
