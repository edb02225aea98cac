package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/fluestern/companion/internal/config"
	"github.com/fluestern/companion/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

type settingsField int

const (
	fieldAPIKey settingsField = iota
	fieldMicSource
	fieldLanguage
	fieldNotifications
	fieldTrayIcon
	fieldPrompt
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Groq API Key",
	"Microphone Source",
	"Language",
	"Notifications",
	"Tray Icon",
	"System Prompt",
}

// settingsForm holds the editable copy of the configuration. Nothing is
// written until the user saves.
type settingsForm struct {
	inputs        [3]textinput.Model // API key, mic source, language
	notifications bool
	trayIcon      bool
	prompt        textarea.Model
	focus         settingsField
	editing       bool

	// The textarea normalizes tabs and line endings, so the loaded prompt
	// is kept verbatim and only replaced once the user changes it.
	loadedPrompt string
	promptDirty  bool
}

func newSettingsForm(s config.Settings) settingsForm {
	var f settingsForm

	placeholders := [3]string{
		"gsk_...",
		"empty = default microphone",
		"e.g. 'de', 'en', empty = auto",
	}
	values := [3]string{s.APIKey, s.MicSource, s.Language}
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = placeholders[i]
		in.SetValue(values[i])
		f.inputs[i] = in
	}
	f.inputs[fieldAPIKey].EchoMode = textinput.EchoPassword
	f.inputs[fieldAPIKey].EchoCharacter = '•'

	f.prompt = textarea.New()
	f.prompt.ShowLineNumbers = false
	f.prompt.CharLimit = 0
	f.prompt.MaxHeight = 0
	f.prompt.MaxWidth = 0
	f.prompt.SetHeight(8)
	f.prompt.SetValue(s.SystemPrompt)
	f.loadedPrompt = s.SystemPrompt

	f.notifications = s.Notifications
	f.trayIcon = s.TrayIcon
	return f
}

// values returns the form contents as settings.
func (f settingsForm) values() config.Settings {
	prompt := f.loadedPrompt
	if f.promptDirty {
		prompt = f.prompt.Value()
	}
	return config.Settings{
		APIKey:        f.inputs[fieldAPIKey].Value(),
		MicSource:     f.inputs[fieldMicSource].Value(),
		Language:      f.inputs[fieldLanguage].Value(),
		Notifications: f.notifications,
		TrayIcon:      f.trayIcon,
		SystemPrompt:  prompt,
	}
}

func (f *settingsForm) next() {
	if f.focus < fieldCount-1 {
		f.focus++
	}
}

func (f *settingsForm) prev() {
	if f.focus > 0 {
		f.focus--
	}
}

// toggle flips the focused checkbox. Other fields are unaffected.
func (f *settingsForm) toggle() {
	switch f.focus {
	case fieldNotifications:
		f.notifications = !f.notifications
	case fieldTrayIcon:
		f.trayIcon = !f.trayIcon
	}
}

// beginEdit focuses the input under the cursor. Checkboxes toggle instead.
func (f *settingsForm) beginEdit() tea.Cmd {
	switch f.focus {
	case fieldNotifications, fieldTrayIcon:
		f.toggle()
		return nil
	case fieldPrompt:
		f.editing = true
		return f.prompt.Focus()
	default:
		f.editing = true
		return f.inputs[f.focus].Focus()
	}
}

func (f *settingsForm) endEdit() {
	f.editing = false
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	f.prompt.Blur()
}

func (f *settingsForm) resetPrompt() {
	f.prompt.SetValue(config.DefaultSystemPrompt)
	f.promptDirty = true
}

// update forwards msg to the focused input.
func (f *settingsForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case fieldAPIKey, fieldMicSource, fieldLanguage:
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	case fieldPrompt:
		before := f.prompt.Value()
		f.prompt, cmd = f.prompt.Update(msg)
		if f.prompt.Value() != before {
			f.promptDirty = true
		}
	}
	return cmd
}

func (f *settingsForm) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(10, width-labelWidth-6)
	}
	f.prompt.SetWidth(max(20, width-4))
}

const labelWidth = 20

func (f settingsForm) view(width, height int) []string {
	var lines []string

	heading := func(s string) {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, ui.HeadingStyle.Render(s))
	}

	row := func(field settingsField, value string) {
		marker := "  "
		label := padRight(fieldLabels[field], labelWidth)
		if f.focus == field {
			marker = ui.SelectedStyle.Render("> ")
			label = ui.SelectedStyle.Render(label)
		}
		lines = append(lines, marker+label+value)
	}

	checkbox := func(on bool) string {
		if on {
			return ui.SuccessStyle.Render("[x]")
		}
		return ui.DimStyle.Render("[ ]")
	}

	heading("API CONFIGURATION")
	row(fieldAPIKey, f.inputs[fieldAPIKey].View())

	heading("RECORDING")
	row(fieldMicSource, f.inputs[fieldMicSource].View())
	row(fieldLanguage, f.inputs[fieldLanguage].View())

	heading("INTERFACE")
	row(fieldNotifications, checkbox(f.notifications))
	row(fieldTrayIcon, checkbox(f.trayIcon))

	heading("SYSTEM PROMPT")
	row(fieldPrompt, ui.DimStyle.Render("ctrl+r resets to default"))
	lines = append(lines, strings.Split(f.prompt.View(), "\n")...)

	if len(lines) > height {
		// Keep the focused field on screen; the prompt sits at the bottom.
		if f.focus == fieldPrompt {
			lines = lines[len(lines)-height:]
		} else {
			lines = lines[:height]
		}
	}
	for i := range lines {
		lines[i] = truncateToWidth(lines[i], width)
	}
	return lines
}
