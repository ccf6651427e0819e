// Package gtasks plugs Google Tasks into the authenticator and the task
// fetcher. Task lists are projects, each task is a one-occurrence series and
// tags are #hashtags written in the task notes.
package gtasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/nextact/pkg/fetch"
	"github.com/harrisonrobin/nextact/pkg/logging"
	"github.com/harrisonrobin/nextact/pkg/model"
)

const pageSize = 100

// Source wraps the Google Tasks service.
type Source struct {
	svc    *tasks.Service
	logger *zap.Logger
}

// NewSource creates a Source authorized with refreshToken.
func NewSource(ctx context.Context, cfg *oauth2.Config, refreshToken string, logger *zap.Logger) (*Source, error) {
	client := cfg.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}
	return NewSourceWithService(svc, logger), nil
}

func NewSourceWithService(svc *tasks.Service, logger *zap.Logger) *Source {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Source{svc: svc, logger: logger}
}

func (s *Source) Lists(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	err := s.svc.Tasklists.List().MaxResults(pageSize).Pages(ctx, func(page *tasks.TaskLists) error {
		for _, tl := range page.Items {
			out = append(out, toProject(tl))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}
	return out, nil
}

// Tasks lists the open tasks of every queried list and applies the query
// locally, since the service has no tag filter.
func (s *Source) Tasks(ctx context.Context, q fetch.Query) ([]model.TaskSeries, error) {
	var out []model.TaskSeries
	for _, l := range q.Lists {
		call := s.svc.Tasks.List(l.ID).ShowCompleted(false).ShowHidden(false).MaxResults(pageSize)
		err := call.Pages(ctx, func(page *tasks.Tasks) error {
			for _, t := range page.Items {
				series, err := toSeries(l.ID, t)
				if err != nil {
					return err
				}
				if matches(series, q) {
					out = append(out, series)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks of %q: %w", l.Name, err)
		}
		s.logger.Debug("listed tasks", logging.Project(l.Name))
	}
	return out, nil
}
