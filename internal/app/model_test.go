package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fluestern/companion/internal/config"
	"github.com/fluestern/companion/internal/db"
	"github.com/fluestern/companion/internal/logger"
	"github.com/fluestern/companion/internal/logtail"

	tea "github.com/charmbracelet/bubbletea"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, h *fakeHistory) Model {
	t.Helper()
	ctrl := NewController(h, openTestConfig(t), logger.Discard(), 10)
	m := New(ctrl, nil, nil)
	m.width = 100
	m.height = 30
	updated, _ := m.Update(RecordingsLoadedMsg{Recordings: h.recordings})
	return updated.(Model)
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(k)
		m = updated.(Model)
	}
	return m, cmd
}

func sampleRecordings() []db.Recording {
	return []db.Recording{
		{ID: 3, Timestamp: "2025-01-15T10:30:00+01:00", WhisperOutput: "hallo welt", LLMOutput: "Hallo Welt.", Success: true},
		{ID: 2, Timestamp: "2025-01-15T10:29:00+01:00", WhisperOutput: "test eins", LLMOutput: "Test eins.", UserCorrection: "Test 1.", Success: true},
		{ID: 1, Timestamp: "2025-01-15T10:28:00+01:00", Success: false, ErrorMessage: "API key missing"},
	}
}

func TestNewModel(t *testing.T) {
	m := newTestModel(t, newFakeHistory())
	if m.page != PageHistory {
		t.Errorf("page = %d, want history", m.page)
	}
	if !m.logFollow {
		t.Error("new model should follow the log")
	}
	if m.editing {
		t.Error("new model should not be editing")
	}
	if got := m.form.prompt.Value(); got != config.DefaultSystemPrompt {
		t.Errorf("prompt not prefilled with default, got %q", got)
	}
}

func TestRecordingsLoadedClampsSelection(t *testing.T) {
	m := newTestModel(t, newFakeHistory(sampleRecordings()...))
	m.selected = 2

	updated, _ := m.Update(RecordingsLoadedMsg{Recordings: sampleRecordings()[:1]})
	m = updated.(Model)
	if m.selected != 0 {
		t.Errorf("selected = %d, want 0", m.selected)
	}
}

func TestHistoryNavigation(t *testing.T) {
	m := newTestModel(t, newFakeHistory(sampleRecordings()...))

	m, _ = press(t, m, runes("j"), runes("j"), runes("j"))
	if m.selected != 2 {
		t.Errorf("selected = %d, want 2 (clamped)", m.selected)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 1 {
		t.Errorf("selected = %d, want 1", m.selected)
	}
}

func TestHistoryExpandToggle(t *testing.T) {
	m := newTestModel(t, newFakeHistory(sampleRecordings()...))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.expanded[3] {
		t.Fatal("recording 3 should be expanded")
	}
	if !strings.Contains(m.View(), "Whisper (raw transcription)") {
		t.Error("expanded view should show the raw transcription heading")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.expanded[3] {
		t.Error("recording 3 should be collapsed")
	}
}

func TestEditPrefill(t *testing.T) {
	h := newFakeHistory(sampleRecordings()...)
	m := newTestModel(t, h)

	m, _ = press(t, m, runes("e"))
	if !m.editing || m.editID != 3 {
		t.Fatalf("editing = %v, editID = %d", m.editing, m.editID)
	}
	if got := m.editor.Value(); got != "Hallo Welt." {
		t.Errorf("editor = %q, want LLM output", got)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc}, runes("j"), runes("e"))
	if got := m.editor.Value(); got != "Test 1." {
		t.Errorf("editor = %q, want existing correction", got)
	}
}

func TestSaveCorrection(t *testing.T) {
	h := newFakeHistory(sampleRecordings()...)
	m := newTestModel(t, h)

	m, _ = press(t, m, runes("e"))
	m.editor.SetValue("Hallo, Welt!")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatal("expected save command")
	}

	msg, ok := cmd().(CorrectionSavedMsg)
	if !ok || !msg.Saved || msg.Err != nil {
		t.Fatalf("msg = %+v", msg)
	}
	if h.updated[3] != "Hallo, Welt!" {
		t.Errorf("stored = %q", h.updated[3])
	}

	updated, cmd := m.Update(msg)
	m = updated.(Model)
	if m.editing {
		t.Error("editor should close after save")
	}
	if m.statusText != "Correction saved" {
		t.Errorf("status = %q", m.statusText)
	}
	if cmd == nil {
		t.Error("expected reload commands")
	}
}

func TestSaveEmptyCorrection(t *testing.T) {
	h := newFakeHistory(sampleRecordings()...)
	m := newTestModel(t, h)

	m, _ = press(t, m, runes("e"))
	m.editor.SetValue("   ")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if len(h.updated) != 0 {
		t.Errorf("updated = %v, want nothing", h.updated)
	}
	if !m.editing {
		t.Error("editor should stay open for empty text")
	}
}

func TestSaveCorrectionError(t *testing.T) {
	h := newFakeHistory(sampleRecordings()...)
	m := newTestModel(t, h)

	m, _ = press(t, m, runes("e"))
	h.err = errors.New("database is locked")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if !strings.Contains(m.errorMessage, "database is locked") {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
	if !m.editing {
		t.Error("editor should stay open after a failed save")
	}
	if !strings.Contains(m.View(), "Error: ") {
		t.Error("view should show the error bar")
	}
}

func TestDeleteRequiresConfirm(t *testing.T) {
	h := newFakeHistory(sampleRecordings()...)
	m := newTestModel(t, h)

	m, cmd := press(t, m, runes("d"), runes("n"))
	if cmd != nil {
		t.Error("cancelled delete should not issue a command")
	}
	if m.confirmID != 0 {
		t.Error("confirmation should be dismissed")
	}

	m, cmd = press(t, m, runes("d"), runes("y"))
	if cmd == nil {
		t.Fatal("expected delete command")
	}
	msg, ok := cmd().(RecordingDeletedMsg)
	if !ok || msg.Err != nil || msg.ID != 3 {
		t.Fatalf("msg = %+v", msg)
	}
	if len(h.deleted) != 1 || h.deleted[0] != 3 {
		t.Errorf("deleted = %v, want [3]", h.deleted)
	}

	updated, _ := m.Update(msg)
	m = updated.(Model)
	if m.statusText != "Recording deleted" {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestExportPromptContext(t *testing.T) {
	h := newFakeHistory(sampleRecordings()...)
	h.corrections = []db.Correction{{ID: 1, WhisperPattern: "hallo welt", IntendedText: "Hallo, Welt!"}}
	m := newTestModel(t, h)

	var copied string
	m.clip = func(s string) error {
		copied = s
		return nil
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.page != PageCorrections {
		t.Fatalf("page = %d, want corrections", m.page)
	}
	m, cmd := press(t, m, runes("x"))
	if cmd == nil {
		t.Fatal("expected export command")
	}

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if !strings.Contains(copied, `- When transcribed as "hallo welt", the user meant: "Hallo, Welt!"`) {
		t.Errorf("copied = %q", copied)
	}
	if m.statusText != "Prompt context copied to clipboard" {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestExportPromptContextEmpty(t *testing.T) {
	m := newTestModel(t, newFakeHistory())
	called := false
	m.clip = func(string) error {
		called = true
		return nil
	}

	m, _ = press(t, m, runes("2"))
	m, cmd := press(t, m, runes("x"))
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	if called {
		t.Error("clipboard should not be touched without corrections")
	}
	if m.statusText != "No corrections to export" {
		t.Errorf("status = %q", m.statusText)
	}
}

func TestPageSwitching(t *testing.T) {
	m := newTestModel(t, newFakeHistory())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.page != PageSettings {
		t.Errorf("page = %d, want settings", m.page)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.page != PageHistory {
		t.Errorf("page = %d, want history", m.page)
	}
	m, _ = press(t, m, runes("3"))
	if m.page != PageLogs {
		t.Errorf("page = %d, want logs", m.page)
	}
}

func TestLogUpdated(t *testing.T) {
	m := newTestModel(t, newFakeHistory())
	m, _ = press(t, m, runes("3"))

	updated, cmd := m.Update(LogUpdatedMsg{Text: "line one\nline two\n"})
	m = updated.(Model)
	if m.logText != "line one\nline two\n" {
		t.Errorf("logText = %q", m.logText)
	}
	if cmd != nil {
		t.Error("no tailer means no follow-up read")
	}
	if !strings.Contains(m.View(), "line two") {
		t.Error("view should show the log text")
	}
}

func TestQuitStops(t *testing.T) {
	h := newFakeHistory()
	stopped := false
	m := New(NewController(h, openTestConfig(t), logger.Discard(), 10), nil, func() { stopped = true })

	_, cmd := m.Update(runes("q"))
	if !stopped {
		t.Error("quit should stop the tailer")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestQuitKeyTypesWhileEditing(t *testing.T) {
	m := newTestModel(t, newFakeHistory(sampleRecordings()...))

	m, _ = press(t, m, runes("e"))
	m.editor.SetValue("")
	m, _ = press(t, m, runes("q"))
	if !m.editing {
		t.Fatal("q should be typed into the editor")
	}
	if m.editor.Value() != "q" {
		t.Errorf("editor = %q, want %q", m.editor.Value(), "q")
	}
}

func TestSettingsToggleAndSave(t *testing.T) {
	h := newFakeHistory()
	ctrl := NewController(h, openTestConfig(t), logger.Discard(), 10)
	m := New(ctrl, nil, nil)
	m.width = 100
	m.height = 30

	m, _ = press(t, m, runes("4"), runes("j"), runes("j"), runes("j"))
	if m.form.focus != fieldNotifications {
		t.Fatalf("focus = %d, want notifications", m.form.focus)
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if m.form.notifications {
		t.Error("notifications should toggle off")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.statusText != "Settings saved" {
		t.Fatalf("status = %q, error = %q", m.statusText, m.errorMessage)
	}

	reopened, err := config.Open(ctrl.config.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Bool(config.KeyNotifications) {
		t.Error("notifications should be saved as false")
	}
	if v, _ := reopened.Get(config.KeySystemPrompt); v != config.DefaultSystemPrompt {
		t.Error("system prompt should round-trip unchanged")
	}
}

func TestSettingsEditAPIKey(t *testing.T) {
	m := newTestModel(t, newFakeHistory())

	m, _ = press(t, m, runes("4"), tea.KeyMsg{Type: tea.KeyEnter})
	if !m.form.editing {
		t.Fatal("enter should start editing the API key")
	}
	m, _ = press(t, m, runes("gsk_x"), runes("q"))
	if got := m.form.values().APIKey; got != "gsk_xq" {
		t.Errorf("api key = %q, want %q", got, "gsk_xq")
	}
	if strings.Contains(m.View(), "gsk_xq") {
		t.Error("api key should be masked")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.form.editing {
		t.Error("esc should stop editing")
	}
}

func TestSettingsResetPrompt(t *testing.T) {
	m := newTestModel(t, newFakeHistory())
	m.form.prompt.SetValue("custom")

	m, _ = press(t, m, runes("4"), tea.KeyMsg{Type: tea.KeyCtrlR})
	if got := m.form.prompt.Value(); got != config.DefaultSystemPrompt {
		t.Errorf("prompt = %q, want default", got)
	}
	if got := m.form.values().SystemPrompt; got != config.DefaultSystemPrompt {
		t.Errorf("saved prompt = %q, want default", got)
	}
}

func TestClearTransient(t *testing.T) {
	m := newTestModel(t, newFakeHistory())
	m.setError("boom")

	updated, _ := m.Update(ClearTransientMsg{})
	m = updated.(Model)
	if m.errorMessage != "" {
		t.Errorf("errorMessage = %q, want empty", m.errorMessage)
	}
}

func TestViewHistoryRows(t *testing.T) {
	m := newTestModel(t, newFakeHistory(sampleRecordings()...))

	view := m.View()
	for _, want := range []string{"FLÜSTERN", "Hallo Welt.", "corrected", "Error"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if lines := strings.Count(view, "\n") + 1; lines > m.height {
		t.Errorf("view has %d lines, height is %d", lines, m.height)
	}
}

func TestViewBeforeResize(t *testing.T) {
	m := New(NewController(newFakeHistory(), openTestConfig(t), logger.Discard(), 10), nil, nil)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("view = %q", got)
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(db.Recording{Timestamp: "garbage"}.Time()); got != "?" {
		t.Errorf("formatTime(garbage) = %q, want ?", got)
	}
	got := formatTime(db.Recording{Timestamp: "2025-01-15T10:30:00+01:00"}.Time())
	if len(got) != len("15.01. 10:30") || got[2] != '.' || got[5] != '.' {
		t.Errorf("formatTime = %q, want dd.mm. HH:MM", got)
	}
	want := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC).Local().Format("02.01. 15:04")
	if got != want {
		t.Errorf("formatTime = %q, want %q", got, want)
	}
	if got := formatTime(db.Correction{CreatedAt: "2025-01-15 10:30:00"}.Time()); got != "15.01. 10:30" {
		t.Errorf("formatTime(correction) = %q, want 15.01. 10:30", got)
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("ä", 70)
	got := preview(db.Recording{LLMOutput: long})
	if got != strings.Repeat("ä", 60)+"..." {
		t.Errorf("preview = %q", got)
	}

	got = preview(db.Recording{WhisperOutput: "nur\nwhisper"})
	if got != "nur whisper" {
		t.Errorf("preview = %q, want whisper fallback on one line", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSettingsSaveKeepsUntouchedPrompt(t *testing.T) {
	cfg := openTestConfig(t)
	custom := "col1\tcol2\r\nline2  \n" + strings.Repeat("rule\n", 12000)
	s := cfg.Settings()
	s.SystemPrompt = custom
	if err := cfg.SaveSettings(s); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	ctrl := NewController(newFakeHistory(), cfg, logger.Discard(), 10)
	m := New(ctrl, nil, nil)
	m.width = 100
	m.height = 30

	m, _ = press(t, m, runes("4"), runes("j"), runes("j"), runes("j"), tea.KeyMsg{Type: tea.KeySpace}, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.statusText != "Settings saved" {
		t.Fatalf("status = %q, error = %q", m.statusText, m.errorMessage)
	}

	reopened, err := config.Open(cfg.Path())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, _ := reopened.Get(config.KeySystemPrompt); got != custom {
		t.Errorf("prompt changed on save: got %d bytes, want %d", len(got), len(custom))
	}
	if reopened.Bool(config.KeyNotifications) {
		t.Error("notifications toggle should be saved")
	}
}

func TestSettingsSaveEditedPrompt(t *testing.T) {
	m := newTestModel(t, newFakeHistory())

	m, _ = press(t, m, runes("4"))
	for m.form.focus != fieldPrompt {
		m, _ = press(t, m, runes("j"))
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("X"), tea.KeyMsg{Type: tea.KeyEsc})
	if !m.form.promptDirty {
		t.Fatal("typing into the prompt should mark it changed")
	}
	if got := m.form.values().SystemPrompt; got == config.DefaultSystemPrompt || !strings.Contains(got, "X") {
		t.Errorf("edited prompt not picked up, got %q", got)
	}
}

func TestLogStatusShowsFollowedFile(t *testing.T) {
	ctrl := NewController(newFakeHistory(), openTestConfig(t), logger.Discard(), 10)
	m := New(ctrl, logtail.New("/tmp/fluestern-debug.log", time.Second), nil)
	m.width = 100
	m.height = 30
	m, _ = press(t, m, runes("3"))

	if got := m.renderStatusBar(); !strings.Contains(got, "/tmp/fluestern-debug.log") {
		t.Errorf("status = %q, want the debug log path", got)
	}
}
