package tui

import (
	"fmt"

	"emotedl/pkg/models"
	"emotedl/pkg/ui"

	tea "github.com/charmbracelet/bubbletea"
)

var _ ui.Display = (*TUI)(nil)

// TUI is a full-screen dashboard fed by download events
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a new TUI instance
func NewTUI(opts ...tea.ProgramOption) *TUI {
	model := NewModel()
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Start runs the TUI until the user quits or Stop is called
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) LoadingPage(userID string) {
	t.Send(UserStartMsg{UserID: userID})
}

func (t *TUI) UserFound(displayName string) {
	t.Send(UserFoundMsg{DisplayName: displayName})
}

func (t *TUI) EmotesLoaded(count int) {
	t.Send(EmotesLoadedMsg{Count: count})
}

func (t *TUI) UserNotFound(userID string) {
	t.Send(ListingDoneMsg{State: models.ListingNotFound})
}

func (t *TUI) NoEmotes(userID string) {
	t.Send(ListingDoneMsg{State: models.ListingEmpty})
}

func (t *TUI) ListingFinished(count int) {
	t.Send(ListingDoneMsg{State: models.ListingComplete, Count: count})
}

func (t *TUI) Report(o models.DownloadOutcome) {
	t.Send(OutcomeMsg{Outcome: o})
}

func (t *TUI) Finished(userID string, c models.Counters) {
	t.Send(UserDoneMsg{UserID: userID, Counters: c})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
