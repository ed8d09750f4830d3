package tui

import (
	"time"

	"emotedl/pkg/models"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// UserStartMsg is sent when a new user query begins
type UserStartMsg struct {
	UserID string
}

// UserFoundMsg carries the display name read from the page
type UserFoundMsg struct {
	DisplayName string
}

// EmotesLoadedMsg is sent on every entry count change while scrolling
type EmotesLoadedMsg struct {
	Count int
}

// ListingDoneMsg is sent once the listing reached a terminal state
type ListingDoneMsg struct {
	State models.ListingState
	Count int
}

// OutcomeMsg carries one download outcome
type OutcomeMsg struct {
	Outcome models.DownloadOutcome
}

// UserDoneMsg is sent when a user query finished
type UserDoneMsg struct {
	UserID   string
	Counters models.Counters
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = progressWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case UserStartMsg:
		m.StartUser(msg.UserID)
		m.AddLogMessage("INFO", "Loading page for "+msg.UserID)
		return m, m.progress.SetPercent(0)

	case UserFoundMsg:
		m.SetDisplayName(msg.DisplayName)
		m.AddLogMessage("INFO", "Found user: "+msg.DisplayName)
		return m, nil

	case EmotesLoadedMsg:
		m.SetLoaded(msg.Count)
		return m, nil

	case ListingDoneMsg:
		switch msg.State {
		case models.ListingNotFound:
			m.FinishUser(models.Counters{})
			m.AddLogMessage("WARN", "User was not found")
		case models.ListingEmpty:
			m.FinishUser(models.Counters{})
			m.AddLogMessage("WARN", "User has no emotes")
		default:
			m.FinishListing(msg.Count)
			m.AddLogMessage("INFO", "Finished loading emotes")
		}
		return m, nil

	case OutcomeMsg:
		m.RecordOutcome(msg.Outcome)
		if msg.Outcome.Kind == models.OutcomeFailed {
			m.AddLogMessage("ERROR", "Failed: "+msg.Outcome.Asset.Name)
		}
		return m, m.progress.SetPercent(m.Percent())

	case UserDoneMsg:
		m.FinishUser(msg.Counters)
		m.AddLogMessage("SUCCESS", "Finished "+msg.UserID)
		return m, m.progress.SetPercent(1)

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "f", "F":
		m.showFailures = !m.showFailures
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

func progressWidth(termWidth int) int {
	w := termWidth/2 - 10
	if w < 20 {
		w = 20
	}
	return w
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
