// Package app runs the pipeline: token cache, authentication, fetch,
// selection and report.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/harrisonrobin/nextact/pkg/auth"
	"github.com/harrisonrobin/nextact/pkg/cache"
	"github.com/harrisonrobin/nextact/pkg/config"
	"github.com/harrisonrobin/nextact/pkg/fetch"
	"github.com/harrisonrobin/nextact/pkg/logging"
	"github.com/harrisonrobin/nextact/pkg/nextaction"
	"github.com/harrisonrobin/nextact/pkg/report"
)

type App struct {
	Config    *config.Config
	CachePath string
	Backend   *Backend
	Auth      *auth.Authenticator
	Out       io.Writer
	Logger    *zap.Logger
	Location  *time.Location
	Now       func() time.Time
}

// New wires an App for cfg writing the report to out and prompts to errOut.
func New(cfg *config.Config, cachePath string, out, errOut io.Writer, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timezone %q: %w", config.ErrConfig, cfg.Timezone, err)
	}
	backend, err := NewBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:    cfg,
		CachePath: cachePath,
		Backend:   backend,
		Auth: &auth.Authenticator{
			Provider: backend.Provider,
			Prompter: auth.NewTerminalPrompter(),
			Out:      errOut,
			Logger:   logger,
		},
		Out:      out,
		Logger:   logger,
		Location: loc,
		Now:      time.Now,
	}, nil
}

// Run prints the next-action report. The token cache is saved on every exit
// path once it has been opened.
func (a *App) Run(ctx context.Context) error {
	return cache.With(a.CachePath, func(c *cache.Cache) error {
		results, _, err := a.collect(ctx, c)
		if err != nil {
			return err
		}
		return a.reporter().Print(results)
	})
}

// Snapshot writes the fetched snapshot and the selection as JSON.
func (a *App) Snapshot(ctx context.Context) error {
	return cache.With(a.CachePath, func(c *cache.Cache) error {
		results, snap, err := a.collect(ctx, c)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Snapshot *fetch.Snapshot `json:"snapshot"`
			Results  []report.Result `json:"results"`
		}{snap, results})
	})
}

// Reauthenticate discards the cached token and runs the desktop flow. The
// old token is gone even if the flow fails.
func (a *App) Reauthenticate(ctx context.Context) error {
	return cache.With(a.CachePath, func(c *cache.Cache) error {
		c.SetToken("")
		session, err := a.Auth.Reauthenticate(ctx)
		if err != nil {
			return err
		}
		c.SetToken(session.Token)
		fmt.Fprintf(a.Out, "Authentication successful! Token saved to %s\n", a.CachePath)
		return nil
	})
}

func (a *App) collect(ctx context.Context, c *cache.Cache) ([]report.Result, *fetch.Snapshot, error) {
	session, err := a.Auth.Authenticate(ctx, c.Token)
	if err != nil {
		return nil, nil, err
	}
	if session.Fresh {
		c.SetToken(session.Token)
	}

	src, err := a.Backend.Source(ctx, session.Token)
	if err != nil {
		return nil, nil, err
	}
	fetcher := &fetch.Fetcher{
		Source: src,
		Prefix: a.Config.ProjectPrefix,
		Tag:    a.Config.NextActionTag,
		Now:    a.now,
		Logger: a.Logger,
	}
	snap, err := fetcher.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}

	results, err := SelectAll(snap, nextaction.Selector{Tag: a.Config.NextActionTag, Location: a.Location})
	if err != nil {
		return nil, nil, err
	}
	return results, snap, nil
}

func (a *App) now() time.Time {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return now().In(a.Location)
}

// SelectAll selects candidates for every project in snap. A malformed due
// date in any project fails the whole run.
func SelectAll(snap *fetch.Snapshot, sel nextaction.Selector) ([]report.Result, error) {
	results := make([]report.Result, 0, len(snap.Projects))
	for _, p := range snap.Projects {
		candidates, err := sel.Select(p.Series)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", p.Project.Name, err)
		}
		results = append(results, report.Result{Project: p.Project, Candidates: candidates})
	}
	return results, nil
}

func (a *App) reporter() *report.Reporter {
	opts := report.Options{
		Prefix:   a.Config.ProjectPrefix,
		Tag:      a.Config.NextActionTag,
		Location: a.Location,
	}
	switch a.Config.Color {
	case config.ColorNever:
		opts.Plain = true
	case config.ColorAlways:
		opts.ForceColor = true
	default:
		opts.Plain = !isTerminal(a.Out)
	}
	return report.New(a.Out, opts)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
