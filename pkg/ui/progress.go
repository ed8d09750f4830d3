package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"emotedl/pkg/models"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker folds download outcomes into running totals
type StatusTracker struct {
	mu        sync.Mutex
	counters  models.Counters
	bytes     int64
	total     int
	StartTime time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
	}
}

// Record adds one outcome
func (st *StatusTracker) Record(o models.DownloadOutcome) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.counters = st.counters.Add(o)
	st.bytes += int64(o.Size)
	if o.Total > st.total {
		st.total = o.Total
	}
}

// Reset clears the totals for a new user
func (st *StatusTracker) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.counters = models.Counters{}
	st.bytes = 0
	st.total = 0
	st.StartTime = time.Now()
}

func (st *StatusTracker) Counters() models.Counters {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.counters
}

func (st *StatusTracker) Bytes() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.bytes
}

// GetProgress returns a formatted progress bar over all known assets
func (st *StatusTracker) GetProgress() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	const width = 20
	filled := 0
	if st.total > 0 {
		filled = st.counters.Attempted * width / st.total
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.counters.Attempted, st.total)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	st.mu.Lock()
	defer st.mu.Unlock()
	return time.Since(st.StartTime)
}

// GetDownloadRate returns the average download rate (emotes per minute)
func (st *StatusTracker) GetDownloadRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Counters().Succeeded) / elapsed
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
