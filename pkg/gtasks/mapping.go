package gtasks

import (
	"regexp"
	"time"

	tasks "google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/nextact/pkg/fetch"
	"github.com/harrisonrobin/nextact/pkg/model"
)

var hashtagRegex = regexp.MustCompile(`(?:^|\s)#([\w-]+)`)

func toProject(tl *tasks.TaskList) model.Project {
	if tl == nil {
		return model.Project{}
	}
	return model.Project{ID: tl.Id, Name: tl.Title}
}

// toSeries converts a task to a single-occurrence series with its due date
// in the canonical wire format.
func toSeries(listID string, t *tasks.Task) (model.TaskSeries, error) {
	if t == nil {
		return model.TaskSeries{}, nil
	}
	due := ""
	if t.Due != "" {
		parsed, err := time.Parse(time.RFC3339, t.Due)
		if err != nil {
			return model.TaskSeries{}, &model.DueDateError{SeriesID: t.Id, Value: t.Due, Err: err}
		}
		due = model.FormatDue(parsed)
	}
	return model.TaskSeries{
		ID:     t.Id,
		ListID: listID,
		Name:   t.Title,
		Tags:   parseTags(t.Notes),
		Tasks:  []model.Task{{ID: t.Id, Due: due}},
	}, nil
}

func parseTags(notes string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, m := range hashtagRegex.FindAllStringSubmatch(notes, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			tags = append(tags, m[1])
		}
	}
	return tags
}

// matches mirrors the service-side filter: tagged, or due on or after the
// calendar date of q.Since.
func matches(s model.TaskSeries, q fetch.Query) bool {
	if s.HasTag(q.Tag) {
		return true
	}
	due, ok, err := s.DueDate()
	if err != nil || !ok {
		return false
	}
	y, m, d := q.Since.Date()
	since := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !due.Before(since)
}
