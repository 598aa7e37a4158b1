package application

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/RareDx/internal/core"
)

/* ----------------------------------------
	STYLES
---------------------------------------- */

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2c3e50"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c8d"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3498db"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c"))
	loadingStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#f39c12"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	cardBodyStyle = lipgloss.NewStyle().PaddingLeft(4)
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Rare Disease Classification System"))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("Upload an image to classify rare diseases using advanced zero-shot learning"))
	b.WriteString("\n\n")

	b.WriteString(m.viewMenu())
	b.WriteString("\n")

	if m.mode == modeInput {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	b.WriteString(m.viewFile())
	b.WriteString("\n")

	if section := m.viewOutcome(); section != "" {
		b.WriteString("\n")
		b.WriteString(section)
		b.WriteString("\n")
	}

	if len(m.diseases) > 0 {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(strings.Join(m.diseases, "\n")))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(errorText(m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(subtleStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(m.help()))
	return b.String()
}

func (m *Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(m.menu.Title)
	b.WriteString("\n")

	for i, item := range m.menu.Items {
		if m.mode == modeMenu && i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + item.Label))
		} else {
			b.WriteString("  " + item.Label)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewFile() string {
	file, ok := m.orch.SelectedFile()
	if !ok {
		return subtleStyle.Render("No image selected")
	}
	return "Image: " + file.Name + " (" + file.Info().Summary() + ")"
}

// viewOutcome renders nothing while idle, a spinner line while loading, the
// error panel on failure and the cards on success.
func (m *Model) viewOutcome() string {
	outcome := m.orch.Outcome()
	if outcome.IsLoading() {
		return loadingStyle.Render("Analyzing Image...")
	}

	switch core.SectionFor(outcome) {
	case core.SectionError:
		return errorStyle.Render(panelStyle.Render("Error\n" + outcome.Message))
	case core.SectionResults:
		return m.viewResults(m.orch.Results())
	}
	return ""
}

func (m *Model) viewResults(results *core.ResultsView) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Classification Results"))
	b.WriteString("\n")
	b.WriteString("Based on the uploaded image, here are the possible conditions:\n\n")

	for _, item := range results.Items() {
		b.WriteString(m.viewCard(item))
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("Note: " + core.ResultsDisclaimer))
	return b.String()
}

func (m *Model) viewCard(item core.ResultItem) string {
	rec := item.Record

	marker := "  "
	if m.mode == modeResults && item.Index == m.card {
		marker = "> "
	}
	icon := "+"
	if item.Expanded {
		icon = "−"
	}

	name := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(item.Severity().Color())).Render(rec.DiseaseName)
	line := fmt.Sprintf("%s%s  %s  [%s]\n", marker, name, rec.ConfidenceLabel(), icon)
	if !item.Expanded {
		return line
	}

	body := []string{"Prevalence: " + rec.Prevalence}
	for _, section := range []struct{ title, text string }{
		{"Description", rec.Description},
		{"Symptoms", rec.Symptoms},
		{"Treatment", rec.Treatment},
	} {
		if section.text != "" {
			body = append(body, section.title+": "+section.text)
		}
	}
	body = append(body, subtleStyle.Render("Medical Disclaimer: "+core.MedicalDisclaimer))

	return line + cardBodyStyle.Render(strings.Join(body, "\n")) + "\n"
}

func (m *Model) help() string {
	switch m.mode {
	case modeInput:
		return "enter: select • esc: cancel"
	case modeResults:
		return "↑/↓: move • enter/space: expand or collapse • esc: back"
	default:
		return "↑/↓: move • enter: choose • esc: back • q: quit"
	}
}

// errorText prefers the coded user message when the error is a known one.
func errorText(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}
