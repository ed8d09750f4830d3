package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=emotedl", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		$template = [Windows.UI.Notifications.ToastTemplateType]::ToastText02
		$xml = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent($template)
		$text = $xml.GetElementsByTagName("text")
		$text.Item(0).AppendChild($xml.CreateTextNode('%s')) | Out-Null
		$text.Item(1).AppendChild($xml.CreateTextNode('%s')) | Out-Null
		$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("emotedl").Show($toast)
	`, psQuote(title), psQuote(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Notifier sends desktop notifications when a user's emotes are done
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a new Notifier based on the current platform
func NewNotifier() *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return &Notifier{sender: sender}
}

// NewNotifierWithSender is used by tests and by callers with their own transport
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// Notify sends a desktop notification. Failures are returned, never printed.
func (n *Notifier) Notify(title, message string) error {
	if n == nil || n.sender == nil {
		return nil
	}
	return n.sender.Send(title, message)
}

// NotifyFinished announces the summary of one user
func (n *Notifier) NotifyFinished(displayName string, downloaded, failed int) error {
	msg := fmt.Sprintf("Downloaded %d emotes", downloaded)
	if failed > 0 {
		msg += fmt.Sprintf(", %d failed", failed)
	}
	return n.Notify("emotedl: "+displayName, msg)
}
