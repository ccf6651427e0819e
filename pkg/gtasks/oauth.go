package gtasks

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/harrisonrobin/nextact/pkg/auth"
	"github.com/harrisonrobin/nextact/pkg/logging"
)

const (
	// LocalhostAuthAddr is where the loopback server captures the OAuth redirect.
	LocalhostAuthAddr = "127.0.0.1:6789"
	callbackPath      = "/oauth2callback"
)

// NewOAuthConfig builds a desktop-app OAuth2 config for read-only Tasks access.
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://" + LocalhostAuthAddr + callbackPath,
		Scopes:       []string{tasks.TasksReadonlyScope},
	}
}

// Provider authorizes through the browser and captures the code on a
// loopback server. The cached token is the OAuth refresh token.
type Provider struct {
	Config     *oauth2.Config
	ListenAddr string
	Timeout    time.Duration
	Logger     *zap.Logger
}

func NewProvider(cfg *oauth2.Config, logger *zap.Logger) *Provider {
	return &Provider{Config: cfg, ListenAddr: LocalhostAuthAddr, Timeout: 5 * time.Minute, Logger: logger}
}

// CheckToken refreshes an access token from refreshToken. A refusal from the
// token endpoint is reported as auth.ErrTokenRejected.
func (p *Provider) CheckToken(ctx context.Context, refreshToken string) error {
	_, err := p.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %w", auth.ErrTokenRejected, err)
	}
	return err
}

func (p *Provider) Begin(ctx context.Context) (auth.Flow, error) {
	listener, err := net.Listen("tcp", p.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on %s: %w", p.ListenAddr, err)
	}

	cfg := *p.Config
	cfg.RedirectURL = "http://" + listener.Addr().String() + callbackPath

	f := &loopbackFlow{
		config:   &cfg,
		state:    uuid.NewString(),
		listener: listener,
		codeCh:   make(chan string, 1),
		errCh:    make(chan error, 1),
		timeout:  p.Timeout,
		logger:   p.Logger,
	}
	if f.logger == nil {
		f.logger = logging.Nop()
	}
	f.server = &http.Server{
		Handler:      http.HandlerFunc(f.handle),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		if err := f.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.fail(fmt.Errorf("HTTP server error: %w", err))
		}
	}()
	f.logger.Debug("loopback server listening", zap.String("redirect", cfg.RedirectURL))
	return f, nil
}

type loopbackFlow struct {
	config   *oauth2.Config
	state    string
	listener net.Listener
	server   *http.Server
	codeCh   chan string
	errCh    chan error
	timeout  time.Duration
	logger   *zap.Logger
}

func (f *loopbackFlow) URL() string {
	return f.config.AuthCodeURL(f.state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (f *loopbackFlow) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != callbackPath {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	if q.Get("state") != f.state {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		f.fail(errors.New("state mismatch in OAuth redirect"))
		return
	}
	if e := q.Get("error"); e != "" {
		http.Error(w, "Authorization denied", http.StatusBadRequest)
		f.fail(fmt.Errorf("authorization denied: %s", e))
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Error(w, "Authorization code not found", http.StatusBadRequest)
		f.fail(errors.New("authorization code not found in redirect URL"))
		return
	}
	fmt.Fprint(w, "Authentication successful! You can close this window.")
	select {
	case f.codeCh <- code:
	default:
	}
}

func (f *loopbackFlow) fail(err error) {
	select {
	case f.errCh <- err:
	default:
	}
}

// Complete waits for the redirect and exchanges its code. The prompter is
// not needed: the browser redirect is the confirmation.
func (f *loopbackFlow) Complete(ctx context.Context, _ auth.Prompter) (string, error) {
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		f.server.Shutdown(shutdownCtx)
	}()

	timeout := f.timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	f.logger.Info("waiting for authorization code")

	select {
	case code := <-f.codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := f.config.Exchange(exchangeCtx, code)
		if err != nil {
			return "", fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		if tok.RefreshToken == "" {
			return "", errors.New("no refresh token returned; revoke nextact's access in your Google account and retry")
		}
		return tok.RefreshToken, nil
	case err := <-f.errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(timeout):
		return "", errors.New("authorization timed out, please try again")
	}
}
