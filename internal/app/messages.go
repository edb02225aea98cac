package app

import "github.com/fluestern/companion/internal/db"

// RecordingsLoadedMsg carries recordings read from the history store.
type RecordingsLoadedMsg struct {
	Recordings []db.Recording
}

// CorrectionsLoadedMsg carries the stored correction patterns.
type CorrectionsLoadedMsg struct {
	Corrections []db.Correction
}

// LogUpdatedMsg carries the full debug log text to display.
type LogUpdatedMsg struct {
	Text string
}

// LogClearedMsg reports the outcome of clearing the debug log.
type LogClearedMsg struct {
	Err error
}

// CorrectionSavedMsg reports the outcome of a save-correction intent.
// Saved is false when the trimmed text was empty and nothing was written.
type CorrectionSavedMsg struct {
	ID    int64
	Saved bool
	Err   error
}

// RecordingDeletedMsg reports the outcome of a delete-recording intent.
type RecordingDeletedMsg struct {
	ID  int64
	Err error
}

// PromptExportedMsg reports the outcome of copying the prompt context.
type PromptExportedMsg struct {
	Text string
	Err  error
}

// ClearTransientMsg clears a transient status or error after a timeout.
type ClearTransientMsg struct{}
