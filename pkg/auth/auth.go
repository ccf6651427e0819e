package auth

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/harrisonrobin/nextact/pkg/logging"
)

var (
	// ErrAuthentication is wrapped by every failure to obtain a usable token.
	ErrAuthentication = errors.New("authentication failed")
	// ErrTokenRejected is wrapped by CheckToken when the service answered
	// that the token is no longer valid. Any other error is a remote failure.
	ErrTokenRejected = errors.New("token rejected")
)

// Provider is the service side of the desktop authorization handshake.
type Provider interface {
	// CheckToken returns an error wrapping ErrTokenRejected if the service
	// no longer accepts token.
	CheckToken(ctx context.Context, token string) error
	// Begin starts a new desktop authorization.
	Begin(ctx context.Context) (Flow, error)
}

// Flow is one in-progress desktop authorization.
type Flow interface {
	// URL is the page the user has to visit to grant access.
	URL() string
	// Complete blocks until the user granted access and returns the new token.
	Complete(ctx context.Context, p Prompter) (string, error)
}

// Session is an authenticated token. Fresh is set when the token was
// obtained during this run and has to be written back to the cache.
type Session struct {
	Token string
	Fresh bool
}

type Authenticator struct {
	Provider Provider
	Prompter Prompter
	// Open launches a browser on url. Defaults to the system browser.
	Open   func(url string) error
	Out    io.Writer
	Logger *zap.Logger
}

// Authenticate reuses cachedToken if the service still accepts it, and runs
// the interactive desktop flow if the service rejected it. Failing to reach
// the service is returned as is.
func (a *Authenticator) Authenticate(ctx context.Context, cachedToken string) (Session, error) {
	logger := a.logger()
	if cachedToken != "" {
		err := a.Provider.CheckToken(ctx, cachedToken)
		switch {
		case err == nil:
			logger.Debug("cached token accepted", logging.Token(cachedToken))
			return Session{Token: cachedToken}, nil
		case errors.Is(err, ErrTokenRejected):
			logger.Info("cached token rejected, starting desktop authorization", zap.Error(err))
		default:
			return Session{}, fmt.Errorf("could not verify cached token: %w", err)
		}
	}
	return a.Reauthenticate(ctx)
}

// Reauthenticate always runs the desktop flow.
func (a *Authenticator) Reauthenticate(ctx context.Context) (Session, error) {
	logger := a.logger()
	flow, err := a.Provider.Begin(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("%w: could not start authorization: %w", ErrAuthentication, err)
	}

	url := flow.URL()
	if a.Out != nil {
		fmt.Fprintf(a.Out, "Please open the following URL in your browser to authorize nextact:\n%s\n", url)
	}
	open := a.Open
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(url); err != nil {
		logger.Warn("could not open browser", zap.Error(err))
	}

	token, err := flow.Complete(ctx, a.Prompter)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	if token == "" {
		return Session{}, fmt.Errorf("%w: service returned an empty token", ErrAuthentication)
	}
	logger.Info("authorization complete", logging.Token(token))
	return Session{Token: token, Fresh: true}, nil
}

func (a *Authenticator) logger() *zap.Logger {
	if a.Logger == nil {
		return logging.Nop()
	}
	return a.Logger
}
