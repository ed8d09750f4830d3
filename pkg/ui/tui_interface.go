package ui

import "emotedl/pkg/models"

// Display receives the user-visible events of a download run. The console
// progress printer and the dashboard in pkg/ui/tui both implement it.
type Display interface {
	LoadingPage(userID string)
	UserFound(displayName string)
	EmotesLoaded(count int)
	UserNotFound(userID string)
	NoEmotes(userID string)
	ListingFinished(count int)
	Report(o models.DownloadOutcome)
	Finished(userID string, c models.Counters)
	LogInfo(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
}

// NopDisplay discards every event
type NopDisplay struct{}

func (NopDisplay) LoadingPage(string) {}
func (NopDisplay) UserFound(string) {}
func (NopDisplay) EmotesLoaded(int) {}
func (NopDisplay) UserNotFound(string) {}
func (NopDisplay) NoEmotes(string) {}
func (NopDisplay) ListingFinished(int) {}
func (NopDisplay) Report(models.DownloadOutcome) {}
func (NopDisplay) Finished(string, models.Counters) {}
func (NopDisplay) LogInfo(string, ...interface{}) {}
func (NopDisplay) LogWarning(string, ...interface{}) {}
func (NopDisplay) LogError(string, ...interface{}) {}
