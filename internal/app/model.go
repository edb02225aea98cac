package app

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/fluestern/companion/internal/db"
	"github.com/fluestern/companion/internal/logtail"

	tea "github.com/charmbracelet/bubbletea"
)

// Page identifies the visible page.
type Page int

const (
	PageHistory Page = iota
	PageCorrections
	PageLogs
	PageSettings
	pageCount
)

var pageTitles = [pageCount]string{"History", "Corrections", "Debug Log", "Settings"}

// Model is the root bubbletea model for the companion TUI.
type Model struct {
	ctrl   *Controller
	tailer *logtail.Tailer
	stop   func()
	clip   func(string) error

	// History
	recordings []db.Recording
	selected   int
	expanded   map[int64]bool
	editing    bool
	editID     int64
	editor     textarea.Model
	confirmID  int64

	// Corrections
	corrections []db.Correction
	corrScroll  int

	// Debug log
	logText   string
	logView   viewport.Model
	logFollow bool

	// Settings
	form settingsForm

	// UI state
	page   Page
	width  int
	height int

	// Feedback
	errorMessage string
	statusText   string
	transient    bool
}

// New creates a Model. stop is called on quit and must stop the tailer;
// tailer may be nil, in which case the debug log page stays empty.
func New(ctrl *Controller, tailer *logtail.Tailer, stop func()) Model {
	if stop == nil {
		stop = func() {}
	}

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.MaxWidth = 0
	editor.Placeholder = "What did you actually mean?"
	editor.SetHeight(4)

	return Model{
		ctrl:      ctrl,
		tailer:    tailer,
		stop:      stop,
		clip:      clipboard.WriteAll,
		expanded:  make(map[int64]bool),
		editor:    editor,
		logView:   viewport.New(80, 20),
		logFollow: true,
		form:      newSettingsForm(ctrl.Settings()),
		page:      PageHistory,
	}
}

// Init loads recordings and corrections and starts listening for log
// updates.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		loadRecordingsCmd(m.ctrl),
		loadCorrectionsCmd(m.ctrl),
	}
	if m.tailer != nil {
		cmds = append(cmds, waitForLogCmd(m.tailer.Events()))
	}
	return tea.Batch(cmds...)
}

// loadRecordingsCmd reads recordings from the store. Errors are logged by
// the controller and show up as an empty list.
func loadRecordingsCmd(ctrl *Controller) tea.Cmd {
	return func() tea.Msg {
		return RecordingsLoadedMsg{Recordings: ctrl.Recordings(context.Background())}
	}
}

// loadCorrectionsCmd reads correction patterns from the store.
func loadCorrectionsCmd(ctrl *Controller) tea.Cmd {
	return func() tea.Msg {
		return CorrectionsLoadedMsg{Corrections: ctrl.Corrections(context.Background())}
	}
}

// waitForLogCmd blocks until the tailer publishes new log text.
func waitForLogCmd(events <-chan string) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-events
		if !ok {
			return nil
		}
		return LogUpdatedMsg{Text: text}
	}
}

// refreshLogCmd asks the tailer for a fresh snapshot; the text arrives as
// a LogUpdatedMsg.
func refreshLogCmd(tailer *logtail.Tailer) tea.Cmd {
	return func() tea.Msg {
		_ = tailer.Refresh(context.Background())
		return nil
	}
}

// clearLogsCmd deletes the debug log.
func clearLogsCmd(tailer *logtail.Tailer) tea.Cmd {
	return func() tea.Msg {
		return LogClearedMsg{Err: tailer.Clear(context.Background())}
	}
}

// saveCorrectionCmd stores a correction for a recording.
func saveCorrectionCmd(ctrl *Controller, id int64, text string) tea.Cmd {
	return func() tea.Msg {
		saved, err := ctrl.SaveCorrection(context.Background(), id, text)
		return CorrectionSavedMsg{ID: id, Saved: saved, Err: err}
	}
}

// deleteRecordingCmd removes a recording.
func deleteRecordingCmd(ctrl *Controller, id int64) tea.Cmd {
	return func() tea.Msg {
		return RecordingDeletedMsg{ID: id, Err: ctrl.DeleteRecording(context.Background(), id)}
	}
}

// exportPromptCmd builds the prompt context and copies it to the clipboard.
func exportPromptCmd(ctrl *Controller, clip func(string) error) tea.Cmd {
	return func() tea.Msg {
		text, err := ctrl.PromptContext(context.Background())
		if err != nil || text == "" {
			return PromptExportedMsg{Err: err}
		}
		if err := clip(text); err != nil {
			return PromptExportedMsg{Text: text, Err: fmt.Errorf("copy to clipboard: %w", err)}
		}
		return PromptExportedMsg{Text: text}
	}
}

// clearTransientCmd fires after a delay to clear transient feedback.
func clearTransientCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case RecordingsLoadedMsg:
		m.recordings = msg.Recordings
		if m.selected >= len(m.recordings) {
			m.selected = max(0, len(m.recordings)-1)
		}
		if m.editing && m.indexOf(m.editID) < 0 {
			m.stopEditing()
		}
		return m, nil

	case CorrectionsLoadedMsg:
		m.corrections = msg.Corrections
		if m.corrScroll >= len(m.corrections) {
			m.corrScroll = max(0, len(m.corrections)-1)
		}
		return m, nil

	case LogUpdatedMsg:
		m.logText = msg.Text
		m.logView.SetContent(msg.Text)
		if m.logFollow {
			m.logView.GotoBottom()
		}
		if m.tailer == nil {
			return m, nil
		}
		return m, waitForLogCmd(m.tailer.Events())

	case LogClearedMsg:
		if msg.Err != nil {
			return m, m.setError("Failed to clear logs: " + msg.Err.Error())
		}
		return m, nil

	case CorrectionSavedMsg:
		if msg.Err != nil {
			return m, m.setError("Failed to save correction: " + msg.Err.Error())
		}
		if !msg.Saved {
			return m, m.setStatus("Correction is empty, nothing saved")
		}
		m.stopEditing()
		return m, tea.Batch(
			m.setStatus("Correction saved"),
			loadRecordingsCmd(m.ctrl),
			loadCorrectionsCmd(m.ctrl),
		)

	case RecordingDeletedMsg:
		if msg.Err != nil {
			return m, m.setError("Failed to delete recording: " + msg.Err.Error())
		}
		delete(m.expanded, msg.ID)
		return m, tea.Batch(
			m.setStatus("Recording deleted"),
			loadRecordingsCmd(m.ctrl),
			loadCorrectionsCmd(m.ctrl),
		)

	case PromptExportedMsg:
		if msg.Err != nil {
			return m, m.setError("Failed to export prompt context: " + msg.Err.Error())
		}
		if msg.Text == "" {
			return m, m.setStatus("No corrections to export")
		}
		return m, m.setStatus("Prompt context copied to clipboard")

	case ClearTransientMsg:
		if m.transient {
			m.errorMessage = ""
			m.statusText = ""
			m.transient = false
		}
		return m, nil
	}

	// Cursor blinks and similar internal messages go to whatever has focus.
	var cmd tea.Cmd
	switch {
	case m.editing:
		m.editor, cmd = m.editor.Update(msg)
	case m.form.editing:
		cmd = m.form.update(msg)
	}
	return m, cmd
}

func (m *Model) setError(text string) tea.Cmd {
	m.errorMessage = text
	m.statusText = ""
	m.transient = true
	return clearTransientCmd()
}

func (m *Model) setStatus(text string) tea.Cmd {
	m.statusText = text
	m.errorMessage = ""
	m.transient = true
	return clearTransientCmd()
}

func (m *Model) resize() {
	h := m.contentHeight()
	m.logView.Width = max(10, m.width-2)
	m.logView.Height = max(3, h-1)
	m.editor.SetWidth(max(20, m.width-8))
	m.form.setWidth(m.width)
	if m.logFollow {
		m.logView.GotoBottom()
	}
}

func (m Model) indexOf(id int64) int {
	for i, r := range m.recordings {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m Model) selectedRecording() (db.Recording, bool) {
	if m.selected < 0 || m.selected >= len(m.recordings) {
		return db.Recording{}, false
	}
	return m.recordings[m.selected], true
}

func (m *Model) stopEditing() {
	m.editing = false
	m.editID = 0
	m.editor.Blur()
	m.editor.Reset()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.stop()
	return m, tea.Quit
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		return m.quit()
	}

	if m.editing {
		return m.handleEditorKey(msg)
	}
	if m.page == PageSettings && m.form.editing {
		return m.handleSettingsEditKey(msg)
	}

	if m.confirmID != 0 {
		id := m.confirmID
		m.confirmID = 0
		m.statusText = ""
		if key == KeyConfirm {
			return m, deleteRecordingCmd(m.ctrl, id)
		}
		return m, nil
	}

	switch key {
	case KeyQuit:
		return m.quit()

	case KeyNextPage:
		m.page = (m.page + 1) % pageCount
		return m, nil

	case KeyPrevPage:
		m.page = (m.page + pageCount - 1) % pageCount
		return m, nil

	case "1", "2", "3", "4":
		m.page = Page(key[0] - '1')
		return m, nil

	case KeyRefresh:
		cmds := []tea.Cmd{loadRecordingsCmd(m.ctrl), loadCorrectionsCmd(m.ctrl)}
		if m.tailer != nil {
			cmds = append(cmds, refreshLogCmd(m.tailer))
		}
		return m, tea.Batch(cmds...)
	}

	switch m.page {
	case PageHistory:
		return m.handleHistoryKey(msg)
	case PageCorrections:
		return m.handleCorrectionsKey(msg)
	case PageLogs:
		return m.handleLogsKey(msg)
	case PageSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyJ, KeyDown:
		if m.selected < len(m.recordings)-1 {
			m.selected++
		}
		return m, nil

	case KeyK, KeyUp:
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case KeyEnter:
		if rec, ok := m.selectedRecording(); ok {
			m.expanded[rec.ID] = !m.expanded[rec.ID]
		}
		return m, nil

	case KeyEdit:
		rec, ok := m.selectedRecording()
		if !ok {
			return m, nil
		}
		m.expanded[rec.ID] = true
		m.editing = true
		m.editID = rec.ID
		m.editor.SetValue(initialCorrection(rec))
		return m, m.editor.Focus()

	case KeyDelete:
		rec, ok := m.selectedRecording()
		if !ok {
			return m, nil
		}
		m.confirmID = rec.ID
		m.statusText = "Delete this recording? (y/n)"
		m.errorMessage = ""
		m.transient = false
		return m, nil
	}
	return m, nil
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.stopEditing()
		return m, nil
	case KeySave:
		return m, saveCorrectionCmd(m.ctrl, m.editID, m.editor.Value())
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleCorrectionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyJ, KeyDown:
		if m.corrScroll < len(m.corrections)-1 {
			m.corrScroll++
		}
	case KeyK, KeyUp:
		if m.corrScroll > 0 {
			m.corrScroll--
		}
	case KeyExport:
		return m, exportPromptCmd(m.ctrl, m.clip)
	}
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyClearLogs:
		if m.tailer == nil {
			return m, nil
		}
		return m, clearLogsCmd(m.tailer)
	case "G", "end":
		m.logView.GotoBottom()
		m.logFollow = true
		return m, nil
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	m.logFollow = m.logView.AtBottom()
	return m, cmd
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyJ, KeyDown:
		m.form.next()
	case KeyK, KeyUp:
		m.form.prev()
	case KeyToggle:
		m.form.toggle()
	case KeyEnter:
		return m, m.form.beginEdit()
	case KeySave:
		return m, m.saveSettings()
	case KeyResetPrompt:
		m.form.resetPrompt()
	}
	return m, nil
}

func (m Model) handleSettingsEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.form.endEdit()
		return m, nil
	case KeySave:
		m.form.endEdit()
		return m, m.saveSettings()
	case KeyResetPrompt:
		m.form.resetPrompt()
		return m, nil
	}
	return m, m.form.update(msg)
}

func (m *Model) saveSettings() tea.Cmd {
	if err := m.ctrl.SaveSettings(m.form.values()); err != nil {
		return m.setError("Failed to save settings: " + err.Error())
	}
	return m.setStatus("Settings saved")
}
