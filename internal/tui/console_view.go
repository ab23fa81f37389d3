package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const outputHeight = 8

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	outputTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true)

	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// View renders the console.
func (a *App) View() string {
	if !a.ready {
		return "starting funcbridge console…"
	}
	if a.state == stateCompose {
		return a.composeView()
	}
	return a.browseView()
}

func (a *App) browseView() string {
	sections := []string{a.catalog.View()}

	if a.showJournal {
		sections = append(sections, outputTitleStyle.Render("── journal "))
		sections = append(sections, a.journalView())
	} else {
		sections = append(sections, outputTitleStyle.Render("── responses "))
		sections = append(sections, a.output.View())
	}

	if a.err != nil {
		sections = append(sections, errorStyle.Render("bridge error: "+a.err.Error()))
	} else if a.statusMsg != "" {
		sections = append(sections, statusStyle.Render(a.statusMsg))
	}
	help := "enter call · tab functions/assertions · r refresh · q quit"
	if a.journal != nil {
		help = "enter call · tab functions/assertions · j journal · r refresh · q quit"
	}
	sections = append(sections, helpStyle.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// journalView re-reads the journal tail on every render so the pane tracks
// the bridge as it serves.
func (a *App) journalView() string {
	lines := a.journal.Tail(outputHeight)
	if len(lines) == 0 {
		return statusStyle.Render("(journal empty)")
	}
	return strings.Join(lines, "\n")
}

func (a *App) composeView() string {
	kind := "function"
	if a.pending.kind == kindAssertions {
		kind = "assertion"
	}
	header := fmt.Sprintf("call %s %q with args as a JSON object", kind, a.pending.info.Name)
	if a.pending.info.Description != "" {
		header += "\n" + statusStyle.Render(a.pending.info.Description)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		promptStyle.Render(a.argsInput.View()),
		helpStyle.Render("enter send · esc cancel"),
	)
}
