package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/harrisonrobin/nextact/pkg/auth"
	"github.com/harrisonrobin/nextact/pkg/config"
	"github.com/harrisonrobin/nextact/pkg/fetch"
	"github.com/harrisonrobin/nextact/pkg/gtasks"
	"github.com/harrisonrobin/nextact/pkg/logging"
	"github.com/harrisonrobin/nextact/pkg/rtm"
)

// Backend bundles the authorization and fetch sides of one task service.
type Backend struct {
	Name     string
	Provider auth.Provider
	// Source returns a fetch source authorized with token.
	Source func(ctx context.Context, token string) (fetch.Source, error)
}

// NewBackend builds the backend named in cfg.
func NewBackend(cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	logger = logger.With(logging.Backend(cfg.Backend))
	switch cfg.Backend {
	case config.BackendRTM:
		client := rtm.NewClient(cfg.APIKey, cfg.SharedSecret, rtm.WithLogger(logger))
		return &Backend{
			Name:     cfg.Backend,
			Provider: rtm.NewProvider(client),
			Source: func(_ context.Context, token string) (fetch.Source, error) {
				client.SetToken(token)
				return rtm.NewSource(client), nil
			},
		}, nil
	case config.BackendGTasks:
		oauthCfg := gtasks.NewOAuthConfig(cfg.APIKey, cfg.SharedSecret)
		return &Backend{
			Name:     cfg.Backend,
			Provider: gtasks.NewProvider(oauthCfg, logger),
			Source: func(ctx context.Context, token string) (fetch.Source, error) {
				return gtasks.NewSource(ctx, oauthCfg, token, logger)
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrConfig, cfg.Backend)
	}
}
