package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DueLayout is the wire format of a due timestamp: YYYY-MM-DDTHH:MM:SSZ, always UTC.
const DueLayout = "2006-01-02T15:04:05Z"

// ErrMalformedDue is wrapped by every due-date parse failure.
var ErrMalformedDue = errors.New("malformed due date")

// DueDateError reports which series carried an unparsable due timestamp.
type DueDateError struct {
	SeriesID string
	Value    string
	Err      error
}

func (e *DueDateError) Error() string {
	if e.SeriesID == "" {
		return fmt.Sprintf("%v %q: %v", ErrMalformedDue, e.Value, e.Err)
	}
	return fmt.Sprintf("task series %s: %v %q: %v", e.SeriesID, ErrMalformedDue, e.Value, e.Err)
}

func (e *DueDateError) Unwrap() []error { return []error{ErrMalformedDue, e.Err} }

// Project is a task list whose name carries the project prefix marker.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsProject reports whether the list name starts with prefix.
func (p Project) IsProject(prefix string) bool {
	return strings.HasPrefix(p.Name, prefix)
}

// DisplayName returns the list name with the project marker stripped.
func (p Project) DisplayName(prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(p.Name, prefix))
}

// Task is a single occurrence of a task series. Due is empty when the
// occurrence has no due date.
type Task struct {
	ID  string `json:"id"`
	Due string `json:"due"`
}

// TaskSeries groups occurrences sharing a name and tag set within one list.
type TaskSeries struct {
	ID     string   `json:"id"`
	ListID string   `json:"list_id"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags,omitempty"`
	Tasks  []Task   `json:"tasks"`
}

// HasTag reports whether the series carries tag.
func (s TaskSeries) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// DueDate returns the earliest due timestamp across the series' occurrences.
// The boolean is false when no occurrence is dated.
func (s TaskSeries) DueDate() (time.Time, bool, error) {
	var (
		earliest time.Time
		dated    bool
	)
	for _, task := range s.Tasks {
		due, ok, err := ParseDue(task.Due)
		if err != nil {
			var dueErr *DueDateError
			if errors.As(err, &dueErr) {
				dueErr.SeriesID = s.ID
			}
			return time.Time{}, false, err
		}
		if !ok {
			continue
		}
		if !dated || due.Before(earliest) {
			earliest = due
			dated = true
		}
	}
	return earliest, dated, nil
}

// ParseDue parses a due timestamp in DueLayout. An empty string means no due date.
func ParseDue(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(DueLayout, s)
	if err != nil {
		return time.Time{}, false, &DueDateError{Value: s, Err: err}
	}
	return t, true, nil
}

// FormatDue renders t in DueLayout.
func FormatDue(t time.Time) string {
	return t.UTC().Format(DueLayout)
}
