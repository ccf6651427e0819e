// Package rtm is a small Remember The Milk REST client and the adapters
// that plug it into the authenticator and the task fetcher.
package rtm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/harrisonrobin/nextact/pkg/logging"
)

const (
	DefaultEndpoint     = "https://api.rememberthemilk.com/services/rest/"
	DefaultAuthEndpoint = "https://www.rememberthemilk.com/services/auth/"

	PermsRead = "read"

	// CodeInvalidToken is the service error for an unknown or revoked auth token.
	CodeInvalidToken = 98
)

// APIError is a stat="fail" response from the service.
type APIError struct {
	Method string
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rtm %s: error %d: %s", e.Method, e.Code, e.Msg)
}

type Client struct {
	apiKey       string
	secret       string
	token        string
	endpoint     string
	authEndpoint string
	http         *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
}

type Option func(*Client)

func WithEndpoint(rest, auth string) Option {
	return func(c *Client) {
		c.endpoint = rest
		c.authEndpoint = auth
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLimiter replaces the default pacing of one request per second.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(apiKey, secret string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		secret:       secret,
		endpoint:     DefaultEndpoint,
		authEndpoint: DefaultAuthEndpoint,
		http:         &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(time.Second), 1),
		logger:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the auth token sent with authenticated calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Sign computes api_sig: the md5 of the shared secret followed by every
// parameter name and value, sorted by name.
func (c *Client) Sign(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(c.secret)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// AuthURL is the desktop authorization page for frob.
func (c *Client) AuthURL(frob, perms string) string {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("perms", perms)
	params.Set("frob", frob)
	params.Set("api_sig", c.Sign(params))
	return c.authEndpoint + "?" + params.Encode()
}

// response is the envelope of every REST reply.
type response struct {
	XMLName xml.Name `xml:"rsp"`
	Stat    string   `xml:"stat,attr"`
	Err     *struct {
		Code int    `xml:"code,attr"`
		Msg  string `xml:"msg,attr"`
	} `xml:"err"`
	Inner []byte `xml:",innerxml"`
}

// call invokes method and decodes the inside of <rsp> into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	if c.token != "" && params.Get("auth_token") == "" {
		params.Set("auth_token", c.token)
	}
	params.Set("api_sig", c.Sign(params))

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	c.logger.Debug("rtm request", logging.Method(method))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rtm %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rtm %s: unexpected HTTP status %s: %s", method, resp.Status, strings.TrimSpace(string(body)))
	}

	var rsp response
	if err := xml.NewDecoder(resp.Body).Decode(&rsp); err != nil {
		return fmt.Errorf("rtm %s: failed to decode response: %w", method, err)
	}
	if rsp.Stat != "ok" {
		apiErr := &APIError{Method: method, Msg: "unknown failure"}
		if rsp.Err != nil {
			apiErr.Code = rsp.Err.Code
			apiErr.Msg = rsp.Err.Msg
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	wrapped := append(append([]byte("<rsp>"), rsp.Inner...), "</rsp>"...)
	if err := xml.Unmarshal(wrapped, out); err != nil {
		return fmt.Errorf("rtm %s: failed to decode payload: %w", method, err)
	}
	return nil
}

// Auth is the payload of rtm.auth.getToken and rtm.auth.checkToken.
type Auth struct {
	Token string `xml:"auth>token"`
	Perms string `xml:"auth>perms"`
	User  struct {
		ID       string `xml:"id,attr"`
		Username string `xml:"username,attr"`
		Fullname string `xml:"fullname,attr"`
	} `xml:"auth>user"`
}

func (c *Client) GetFrob(ctx context.Context) (string, error) {
	var out struct {
		Frob string `xml:"frob"`
	}
	if err := c.call(ctx, "rtm.auth.getFrob", nil, &out); err != nil {
		return "", err
	}
	return out.Frob, nil
}

func (c *Client) GetToken(ctx context.Context, frob string) (*Auth, error) {
	var out Auth
	params := url.Values{}
	params.Set("frob", frob)
	if err := c.call(ctx, "rtm.auth.getToken", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckToken validates token without changing the client's own token.
func (c *Client) CheckToken(ctx context.Context, token string) (*Auth, error) {
	var out Auth
	params := url.Values{}
	params.Set("auth_token", token)
	if err := c.call(ctx, "rtm.auth.checkToken", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List is an entry of rtm.lists.getList.
type List struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,attr"`
	Deleted  string `xml:"deleted,attr"`
	Archived string `xml:"archived,attr"`
	Smart    string `xml:"smart,attr"`
}

func (c *Client) GetLists(ctx context.Context) ([]List, error) {
	var out struct {
		Lists []List `xml:"lists>list"`
	}
	if err := c.call(ctx, "rtm.lists.getList", nil, &out); err != nil {
		return nil, err
	}
	return out.Lists, nil
}

// TaskSeries is an entry of rtm.tasks.getList.
type TaskSeries struct {
	ID    string   `xml:"id,attr"`
	Name  string   `xml:"name,attr"`
	Tags  []string `xml:"tags>tag"`
	Tasks []Task   `xml:"task"`
}

type Task struct {
	ID         string `xml:"id,attr"`
	Due        string `xml:"due,attr"`
	HasDueTime string `xml:"has_due_time,attr"`
	Completed  string `xml:"completed,attr"`
	Deleted    string `xml:"deleted,attr"`
}

// TaskList groups the series returned for one list.
type TaskList struct {
	ID     string       `xml:"id,attr"`
	Series []TaskSeries `xml:"taskseries"`
}

func (c *Client) GetTasks(ctx context.Context, filter string) ([]TaskList, error) {
	var out struct {
		Lists []TaskList `xml:"tasks>list"`
	}
	params := url.Values{}
	if filter != "" {
		params.Set("filter", filter)
	}
	if err := c.call(ctx, "rtm.tasks.getList", params, &out); err != nil {
		return nil, err
	}
	return out.Lists, nil
}
