// Package nextaction picks the actionable subset of a project's task series.
//
// A project's next actions are the series due on the earliest calendar date,
// followed by every series explicitly tagged as a next action regardless of
// its due date. A series satisfying both rules is listed once, in the tagged
// group.
package nextaction

import (
	"sort"
	"time"

	"github.com/harrisonrobin/nextact/pkg/model"
)

// DefaultTag marks a series as explicitly actionable.
const DefaultTag = "next-action"

// Candidate is a series selected for display under its project.
type Candidate struct {
	Series model.TaskSeries `json:"series"`
	Due    time.Time        `json:"due,omitempty"`
	Dated  bool             `json:"dated"`
	Tagged bool             `json:"tagged"`
}

// Selector holds the tag and the location used to decide calendar dates.
type Selector struct {
	Tag      string
	Location *time.Location
}

// Select runs the default selector: DefaultTag, calendar dates in UTC.
func Select(series []model.TaskSeries) ([]Candidate, error) {
	return Selector{Tag: DefaultTag, Location: time.UTC}.Select(series)
}

// Select returns the earliest-due cohort without tagged members, followed by
// all tagged series in input order. A malformed due date fails the whole
// selection.
func (s Selector) Select(series []model.TaskSeries) ([]Candidate, error) {
	tag := s.Tag
	if tag == "" {
		tag = DefaultTag
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}

	var tagged, dated []Candidate
	for _, ser := range series {
		due, ok, err := ser.DueDate()
		if err != nil {
			return nil, err
		}
		c := Candidate{Series: ser, Due: due, Dated: ok, Tagged: ser.HasTag(tag)}
		if c.Tagged {
			tagged = append(tagged, c)
		}
		if c.Dated {
			dated = append(dated, c)
		}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Due.Before(dated[j].Due)
	})

	result := make([]Candidate, 0, len(tagged)+len(dated))
	if len(dated) > 0 {
		first := calendarDate(dated[0].Due, loc)
		for _, c := range dated {
			if calendarDate(c.Due, loc) != first {
				break
			}
			if !c.Tagged {
				result = append(result, c)
			}
		}
	}
	return append(result, tagged...), nil
}

type date struct {
	year  int
	month time.Month
	day   int
}

func calendarDate(t time.Time, loc *time.Location) date {
	y, m, d := t.In(loc).Date()
	return date{y, m, d}
}
