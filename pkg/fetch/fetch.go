// Package fetch retrieves one run's snapshot of projects and their task
// series from a task service.
package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/nextact/pkg/logging"
	"github.com/harrisonrobin/nextact/pkg/model"
)

// Source is a remote task service. Implementations translate their own
// response shapes into the model types before returning.
type Source interface {
	Lists(ctx context.Context) ([]model.Project, error)
	Tasks(ctx context.Context, q Query) ([]model.TaskSeries, error)
}

// Query selects the task series worth looking at: those in one of Lists
// that are due on or after Since, or that carry Tag.
type Query struct {
	Lists []model.Project
	Since time.Time
	Tag   string
}

// Expression renders the query in the service filter language:
//
//	(list:"A" OR list:"B") AND (due:yesterday OR dueAfter:yesterday OR tag:"next-action")
func (q Query) Expression() string {
	names := make([]string, 0, len(q.Lists))
	for _, l := range q.Lists {
		names = append(names, "list:"+quote(l.Name))
	}
	return fmt.Sprintf("(%s) AND (due:yesterday OR dueAfter:yesterday OR tag:%s)",
		strings.Join(names, " OR "), quote(q.Tag))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// ProjectTasks is one project with the series fetched for it.
type ProjectTasks struct {
	Project model.Project      `json:"project"`
	Series  []model.TaskSeries `json:"series"`
}

// Snapshot is the read-only view of the service for a single run.
type Snapshot struct {
	Projects []ProjectTasks `json:"projects"`
}

type Fetcher struct {
	Source Source
	Prefix string
	Tag    string
	Now    func() time.Time
	Logger *zap.Logger
}

// Fetch enumerates lists, keeps the ones carrying the project prefix and
// fetches their task series with a single filtered query.
func (f *Fetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	logger := f.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	lists, err := f.Source.Lists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	snap := &Snapshot{}
	index := make(map[string]int)
	var projects []model.Project
	for _, l := range lists {
		if !l.IsProject(f.Prefix) {
			continue
		}
		index[l.ID] = len(snap.Projects)
		snap.Projects = append(snap.Projects, ProjectTasks{Project: l})
		projects = append(projects, l)
	}
	logger.Debug("enumerated lists", zap.Int("lists", len(lists)), zap.Int("projects", len(projects)))

	if len(projects) == 0 {
		return snap, nil
	}

	q := Query{Lists: projects, Since: Yesterday(now()), Tag: f.Tag}
	logger.Debug("fetching tasks", zap.String("filter", q.Expression()))
	series, err := f.Source.Tasks(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	for _, s := range series {
		i, ok := index[s.ListID]
		if !ok {
			logger.Debug("dropping series outside project lists", zap.String("series", s.ID), zap.String("list", s.ListID))
			continue
		}
		snap.Projects[i].Series = append(snap.Projects[i].Series, s)
	}
	for _, p := range snap.Projects {
		logger.Debug("project fetched", logging.Project(p.Project.Name), zap.Int("series", len(p.Series)))
	}
	return snap, nil
}

// Yesterday returns the start of the day before now, in now's location.
func Yesterday(now time.Time) time.Time {
	y, m, d := now.AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
