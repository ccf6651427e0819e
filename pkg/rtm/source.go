package rtm

import (
	"context"

	"github.com/harrisonrobin/nextact/pkg/fetch"
	"github.com/harrisonrobin/nextact/pkg/model"
)

// Source answers fetch queries with the service's own filter language.
type Source struct {
	Client *Client
}

func NewSource(c *Client) *Source {
	return &Source{Client: c}
}

func (s *Source) Lists(ctx context.Context) ([]model.Project, error) {
	lists, err := s.Client.GetLists(ctx)
	if err != nil {
		return nil, err
	}
	return toProjects(lists), nil
}

func (s *Source) Tasks(ctx context.Context, q fetch.Query) ([]model.TaskSeries, error) {
	lists, err := s.Client.GetTasks(ctx, q.Expression())
	if err != nil {
		return nil, err
	}
	return toSeries(lists), nil
}
