package tui

import (
	"fmt"
	"strings"
	"time"

	"emotedl/pkg/ui"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, logoStyle.Width(m.width).Render("7TV EMOTE DOWNLOADER  :3"))

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderUserPanel(width),
		m.renderStatsPanel(width),
	)
	right := m.renderLogsPanel(width)
	if m.showFailures {
		right = m.renderFailuresPanel(width)
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

// renderUserPanel shows the current user, stage and progress bar
func (m *Model) renderUserPanel(width int) string {
	title := titleStyle.Render(" CURRENT USER ")

	name := m.displayName
	if name == "" {
		name = m.userID
	}
	if name == "" {
		name = "-"
	}

	stage := statsValueStyle.Render(m.stage.String())
	if m.stage == StageLoadingPage || m.stage == StageScrolling || m.stage == StageDownloading {
		stage = m.spinner.View() + " " + stage
	}

	lines := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("User:"), statsValueStyle.Render(name)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Stage:"), stage),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Loaded:"), statsValueStyle.Render(fmt.Sprintf("%d emotes", m.loaded))),
	}
	if m.stage == StageDownloading || m.stage == StageDone {
		lines = append(lines,
			"",
			m.progress.View(),
			dimStyle.Render(fmt.Sprintf("%d/%d", m.counters.Attempted, m.total)),
		)
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderStatsPanel renders the statistics panel
func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" STATS ")

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Session Time:"), statsValueStyle.Render(formatDuration(time.Since(m.sessionStartTime)))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Users Done:"), statsValueStyle.Render(fmt.Sprint(m.usersDone))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Downloaded:"), successStyle.Render(fmt.Sprint(m.counters.Succeeded))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Skipped:"), dimStyle.Render(fmt.Sprint(m.counters.Skipped))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Failed:"), failedStyle(m.counters.Failed).Render(fmt.Sprint(m.counters.Failed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Size:"), statsValueStyle.Render(ui.FormatBytes(m.bytes))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Rate:"), speedStyle.Render(fmt.Sprintf("%.1f emotes/min", m.Rate()))),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(stats, "\n")),
	)
}

// renderLogsPanel renders the most recent log lines
func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(truncate(log.Message, width-25))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimStyle.Render("No logs yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderFailuresPanel lists every failed download of the current user
func (m *Model) renderFailuresPanel(width int) string {
	title := titleStyle.Render(" FAILED DOWNLOADS ")

	var items []string
	for _, f := range m.failures {
		items = append(items, errorStyle.Render("✗ ")+truncate(f, width-8))
	}
	content := strings.Join(items, "\n")
	if content == "" {
		content = dimStyle.Render("No failures")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Quit
    f/F      - Toggle failed downloads
    ctrl+l   - Clear log
    ?        - Toggle this help
`
	return panelStyle.Width(m.width).Render(help)
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
