package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/fluestern/companion/internal/db"
	"github.com/fluestern/companion/internal/ui"
)

const previewRunes = 60

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	// Header
	sections = append(sections, m.renderHeader())

	// Status bar
	sections = append(sections, m.renderStatusBar())

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Page content
	sections = append(sections, m.renderPage())

	// Divider
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	// Error bar
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	// Footer
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("FLÜSTERN")

	var tabs []string
	for p := Page(0); p < pageCount; p++ {
		label := fmt.Sprintf("%d %s", p+1, pageTitles[p])
		if p == m.page {
			tabs = append(tabs, ui.TabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, ui.TabStyle.Render(label))
		}
	}

	return title + "  " + strings.Join(tabs, "")
}

func (m Model) renderStatusBar() string {
	if m.statusText != "" {
		return ui.AccentStyle.Render(m.statusText)
	}

	switch m.page {
	case PageHistory:
		return ui.StatusStyle.Render(fmt.Sprintf("%d recordings", len(m.recordings)))
	case PageCorrections:
		return ui.StatusStyle.Render(fmt.Sprintf("%d correction patterns", len(m.corrections)))
	case PageLogs:
		badge := ui.FollowBadgeStyle.Render("FOLLOW")
		if !m.logFollow {
			badge = ui.ScrollBadgeStyle.Render("SCROLL")
		}
		status := fmt.Sprintf("  %3.f%%", m.logView.ScrollPercent()*100)
		if m.tailer != nil {
			status += "  " + m.tailer.Path()
		}
		return badge + ui.StatusStyle.Render(status)
	case PageSettings:
		return ui.StatusStyle.Render(m.ctrl.config.Path())
	}
	return ""
}

// contentHeight is the number of rows available between the dividers.
func (m Model) contentHeight() int {
	// header + status + two dividers + footer + error bar
	return max(3, m.height-6)
}

func (m Model) renderPage() string {
	h := m.contentHeight()

	var lines []string
	switch m.page {
	case PageHistory:
		lines = m.renderHistory(m.width, h)
	case PageCorrections:
		lines = m.renderCorrections(m.width, h)
	case PageLogs:
		lines = m.renderLogs()
	case PageSettings:
		lines = m.form.view(m.width, h)
	}

	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines[:h], "\n")
}

func (m Model) renderHistory(width, height int) []string {
	if len(m.recordings) == 0 {
		return []string{ui.DimStyle.Render("No recordings yet.")}
	}

	var lines []string
	selectedLine := 0
	for i, rec := range m.recordings {
		if i == m.selected {
			selectedLine = len(lines)
		}
		lines = append(lines, m.renderRecordingRow(rec, i == m.selected, width))
		if m.expanded[rec.ID] {
			lines = append(lines, m.renderRecordingDetails(rec, width)...)
		}
	}

	// Scroll so the selected row stays near the top quarter.
	start := 0
	if len(lines) > height {
		start = min(max(0, selectedLine-height/4), len(lines)-height)
	}
	end := min(len(lines), start+height)
	return lines[start:end]
}

func (m Model) renderRecordingRow(rec db.Recording, selected bool, width int) string {
	marker := "▸ "
	if m.expanded[rec.ID] {
		marker = "▾ "
	}

	ts := ui.TimestampStyle.Render(padRight(formatTime(rec.Time()), 13))
	text := preview(rec)

	var status string
	switch {
	case rec.UserCorrection != "":
		status = ui.SuccessStyle.Render("corrected")
	case !rec.Success:
		status = ui.ErrorTextStyle.Render("Error")
	}

	room := width - lipgloss.Width(marker) - 13 - lipgloss.Width(status) - 2
	if selected {
		marker = ui.SelectedStyle.Render(marker)
		text = ui.SelectedStyle.Render(truncateToWidth(text, room))
	} else {
		text = truncateToWidth(text, room)
	}

	row := marker + ts + padRight(text, max(0, room)) + "  " + status
	return truncateToWidth(row, width)
}

func (m Model) renderRecordingDetails(rec db.Recording, width int) []string {
	const indent = "    "
	textWidth := max(10, width-len(indent))

	var lines []string
	block := func(title string, style lipgloss.Style, text string) {
		lines = append(lines, indent+style.Render(title))
		if text == "" {
			lines = append(lines, indent+ui.DimStyle.Render("(empty)"))
			return
		}
		for _, l := range wrapText(text, textWidth) {
			lines = append(lines, indent+l)
		}
	}

	if rec.TotalDurationMs > 0 {
		lines = append(lines, indent+ui.DimStyle.Render(fmt.Sprintf(
			"Duration: %dms (Whisper: %dms, LLM: %dms)",
			rec.TotalDurationMs, rec.WhisperDurationMs, rec.LLMDurationMs)))
	}

	block("Whisper (raw transcription)", ui.HeadingStyle, rec.WhisperOutput)
	block("LLM (formatted)", ui.HeadingStyle, rec.LLMOutput)

	if rec.ErrorMessage != "" {
		lines = append(lines, indent+ui.ErrorStyle.Render("Error: ")+ui.ErrorTextStyle.Render(rec.ErrorMessage))
	}

	if m.editing && m.editID == rec.ID {
		lines = append(lines, indent+ui.AccentStyle.Render("Your correction"))
		editor := ui.EditorBorderStyle.Render(m.editor.View())
		for _, l := range strings.Split(editor, "\n") {
			lines = append(lines, indent+l)
		}
	} else if rec.UserCorrection != "" {
		block("Your correction", ui.AccentStyle, rec.UserCorrection)
	}

	return append(lines, "")
}

func (m Model) renderCorrections(width, height int) []string {
	if len(m.corrections) == 0 {
		return []string{ui.DimStyle.Render("No corrections yet. Edit a recording to teach a pattern.")}
	}

	var lines []string
	for i, c := range m.corrections[m.corrScroll:] {
		if i >= height {
			break
		}
		ts := ui.TimestampStyle.Render(padRight(formatTime(c.Time()), 13))
		pair := fmt.Sprintf(`"%s" -> "%s"`, oneLine(c.WhisperPattern), oneLine(c.IntendedText))
		lines = append(lines, ts+truncateToWidth(pair, width-13))
	}
	return lines
}

func (m Model) renderLogs() []string {
	return strings.Split(m.logView.View(), "\n")
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string
	key := func(k, desc string) {
		parts = append(parts, ui.FooterKeyStyle.Render(k)+ui.FooterDescStyle.Render(" "+desc))
	}

	switch {
	case m.editing:
		key("ctrl+s", "Save")
		key("Esc", "Cancel")
		return strings.Join(parts, "  ")
	case m.confirmID != 0:
		key("y", "Delete")
		key("any", "Cancel")
		return strings.Join(parts, "  ")
	case m.page == PageSettings && m.form.editing:
		key("ctrl+s", "Save")
		key("Esc", "Done")
		return strings.Join(parts, "  ")
	}

	switch m.page {
	case PageHistory:
		key("j/k", "Nav")
		key("Enter", "Expand")
		key("e", "Correct")
		key("d", "Delete")
	case PageCorrections:
		key("j/k", "Scroll")
		key("x", "Export")
	case PageLogs:
		key("↑↓", "Scroll")
		key("G", "Follow")
		key("c", "Clear")
	case PageSettings:
		key("j/k", "Nav")
		key("Enter", "Edit")
		key("Space", "Toggle")
		key("ctrl+s", "Save")
		key("ctrl+r", "Reset prompt")
	}

	key("Tab", "Page")
	key("r", "Refresh")
	key("q", "Quit")

	return strings.Join(parts, "  ")
}

// Helpers

// formatTime renders a parsed timestamp as day.month. hour:minute in local
// time, or "?" when it could not be parsed.
func formatTime(t time.Time, ok bool) string {
	if !ok {
		return "?"
	}
	return t.Local().Format("02.01. 15:04")
}

// preview returns the first line of text shown for a recording: the
// formatted output, or the raw transcription when there is none.
func preview(rec db.Recording) string {
	text := rec.LLMOutput
	if text == "" {
		text = rec.WhisperOutput
	}
	text = oneLine(text)

	runes := []rune(text)
	if len(runes) > previewRunes {
		return string(runes[:previewRunes]) + "..."
	}
	return text
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// initialCorrection is the text the correction editor starts with.
func initialCorrection(rec db.Recording) string {
	switch {
	case rec.UserCorrection != "":
		return rec.UserCorrection
	case rec.LLMOutput != "":
		return rec.LLMOutput
	default:
		return rec.WhisperOutput
	}
}

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
