package rtm

import "github.com/harrisonrobin/nextact/pkg/model"

// toProjects keeps live, non-smart lists.
func toProjects(lists []List) []model.Project {
	out := make([]model.Project, 0, len(lists))
	for _, l := range lists {
		if l.Deleted == "1" || l.Archived == "1" || l.Smart == "1" {
			continue
		}
		out = append(out, model.Project{ID: l.ID, Name: l.Name})
	}
	return out
}

// toSeries flattens the per-list response, dropping completed and deleted
// occurrences and series left without any.
func toSeries(lists []TaskList) []model.TaskSeries {
	var out []model.TaskSeries
	for _, l := range lists {
		for _, ts := range l.Series {
			s := model.TaskSeries{
				ID:     ts.ID,
				ListID: l.ID,
				Name:   ts.Name,
				Tags:   append([]string(nil), ts.Tags...),
			}
			for _, t := range ts.Tasks {
				if t.Completed != "" || t.Deleted != "" {
					continue
				}
				s.Tasks = append(s.Tasks, model.Task{ID: t.ID, Due: t.Due})
			}
			if len(s.Tasks) == 0 {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}
