package rtm

import (
	"context"
	"errors"
	"fmt"

	"github.com/harrisonrobin/nextact/pkg/auth"
)

// Provider runs the frob-based desktop authorization against the service.
type Provider struct {
	Client *Client
	Perms  string
}

func NewProvider(c *Client) *Provider {
	return &Provider{Client: c, Perms: PermsRead}
}

// CheckToken reports an invalid token as auth.ErrTokenRejected. Transport
// and other service errors are returned unchanged.
func (p *Provider) CheckToken(ctx context.Context, token string) error {
	_, err := p.Client.CheckToken(ctx, token)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == CodeInvalidToken {
		return fmt.Errorf("%w: %w", auth.ErrTokenRejected, err)
	}
	return err
}

func (p *Provider) Begin(ctx context.Context) (auth.Flow, error) {
	frob, err := p.Client.GetFrob(ctx)
	if err != nil {
		return nil, err
	}
	return &frobFlow{client: p.Client, frob: frob, url: p.Client.AuthURL(frob, p.Perms)}, nil
}

type frobFlow struct {
	client *Client
	frob   string
	url    string
}

func (f *frobFlow) URL() string { return f.url }

// Complete waits for the user to confirm they granted access in the browser,
// then trades the frob for a token.
func (f *frobFlow) Complete(ctx context.Context, p auth.Prompter) (string, error) {
	if p != nil {
		if err := p.Confirm(ctx, "Authorize nextact in your browser, then confirm here"); err != nil {
			return "", err
		}
	}
	a, err := f.client.GetToken(ctx, f.frob)
	if err != nil {
		return "", fmt.Errorf("exchanging frob: %w", err)
	}
	return a.Token, nil
}
