// Package queue persists disc jobs in SQLite so work survives restarts
// and the workflow manager can hand discs through the pipeline one at a
// time.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusAnalyzed   Status = "analyzed"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusStopped    Status = "stopped"
)

var allStatuses = []Status{
	StatusPending,
	StatusAnalyzing,
	StatusAnalyzed,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusStopped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus validates a status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("queue: unknown status %q", value)
	}
	return status, nil
}

// IsTerminal reports whether the status ends the item's lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	default:
		return false
	}
}

// statusTransition is one in-flight state rolled back on startup after an
// unclean shutdown.
type statusTransition struct {
	from Status
	to   Status
}

var startupRollbacks = []statusTransition{
	{from: StatusAnalyzing, to: StatusPending},
	{from: StatusProcessing, to: StatusAnalyzed},
}

// Item is one disc job.
type Item struct {
	ID              int64
	SourcePath      string
	DiscTitle       string
	Status          Status
	TitleCount      int
	SelectedTitles  []int
	ProgressStage   string
	ProgressMessage string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SelectedOrAll returns the explicitly selected title numbers, or nil when
// every analyzed title should be processed.
func (i *Item) SelectedOrAll() []int {
	if len(i.SelectedTitles) == 0 {
		return nil
	}
	return append([]int(nil), i.SelectedTitles...)
}

func encodeTitles(titles []int) (string, error) {
	if len(titles) == 0 {
		return "", nil
	}
	payload, err := json.Marshal(titles)
	if err != nil {
		return "", fmt.Errorf("encode selected titles: %w", err)
	}
	return string(payload), nil
}

func decodeTitles(payload string) ([]int, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	var titles []int
	if err := json.Unmarshal([]byte(payload), &titles); err != nil {
		return nil, fmt.Errorf("decode selected titles: %w", err)
	}
	return titles, nil
}
