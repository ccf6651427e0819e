package rtm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/harrisonrobin/nextact/pkg/auth"
	"github.com/harrisonrobin/nextact/pkg/fetch"
	"github.com/harrisonrobin/nextact/pkg/model"
)

const (
	listsXML = `<?xml version="1.0" encoding="UTF-8"?>
<rsp stat="ok"><lists>
	<list id="100" name="Inbox" deleted="0" locked="1" archived="0" position="-1" smart="0"/>
	<list id="200" name="P: Garden" deleted="0" locked="0" archived="0" position="0" smart="0"/>
	<list id="300" name="P: Old" deleted="0" locked="0" archived="1" position="0" smart="0"/>
	<list id="400" name="P: Smart" deleted="0" locked="0" archived="0" position="0" smart="1"/>
</lists></rsp>`

	tasksXML = `<rsp stat="ok"><tasks rev="r1">
	<list id="200">
		<taskseries id="s1" created="2024-01-01T00:00:00Z" modified="2024-01-01T00:00:00Z" name="Plant tulips" source="api">
			<tags><tag>outdoor</tag><tag>next-action</tag></tags>
			<participants/><notes/>
			<task id="t1" due="2024-01-10T00:00:00Z" has_due_time="0" added="2024-01-01T00:00:00Z" completed="" deleted="" priority="N" postponed="0" estimate=""/>
		</taskseries>
		<taskseries id="s2" name="Buy soil">
			<tags/>
			<task id="t2" due="" has_due_time="0" completed="" deleted=""/>
			<task id="t3" due="2024-01-02T00:00:00Z" has_due_time="0" completed="2024-01-02T10:00:00Z" deleted=""/>
		</taskseries>
		<taskseries id="s3" name="Done already">
			<task id="t4" due="2024-01-05T00:00:00Z" completed="2024-01-05T00:00:00Z" deleted=""/>
		</taskseries>
	</list>
</tasks></rsp>`
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("key", "secret",
		WithEndpoint(srv.URL+"/services/rest/", srv.URL+"/services/auth/"),
		WithHTTPClient(srv.Client()),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
	return c, srv
}

func TestSign(t *testing.T) {
	c := NewClient("abc123", "BANANAS")
	params := url.Values{}
	params.Set("yxz", "foo")
	params.Set("feg", "bar")
	params.Set("abc", "baz")

	// md5("BANANASabcbazfegbaryxzfoo")
	assert.Equal(t, "82044aae4dd676094f23f1ec152159ba", c.Sign(params))
}

func TestAuthURL(t *testing.T) {
	c := NewClient("key", "secret")
	u, err := url.Parse(c.AuthURL("frob-1", PermsRead))
	require.NoError(t, err)

	assert.Equal(t, "www.rememberthemilk.com", u.Host)
	q := u.Query()
	assert.Equal(t, "key", q.Get("api_key"))
	assert.Equal(t, "read", q.Get("perms"))
	assert.Equal(t, "frob-1", q.Get("frob"))

	signed := url.Values{"api_key": {"key"}, "perms": {"read"}, "frob": {"frob-1"}}
	assert.Equal(t, c.Sign(signed), q.Get("api_sig"))
}

func TestCall_SignsEveryRequest(t *testing.T) {
	var got url.Values
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		fmt.Fprint(w, listsXML)
	})
	c.SetToken("tok")

	_, err := c.GetLists(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "rtm.lists.getList", got.Get("method"))
	assert.Equal(t, "tok", got.Get("auth_token"))
	sig := got.Get("api_sig")
	got.Del("api_sig")
	assert.Equal(t, c.Sign(got), sig)
}

func TestCall_APIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<rsp stat="fail"><err code="98" msg="Login failed / Invalid auth token"/></rsp>`)
	})

	_, err := c.CheckToken(context.Background(), "bad")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 98, apiErr.Code)
	assert.Equal(t, "rtm.auth.checkToken", apiErr.Method)
}

func TestCall_HTTPError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := c.GetFrob(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestCall_MalformedXML(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<rsp stat="ok"><frob>`)
	})

	_, err := c.GetFrob(context.Background())
	assert.Error(t, err)
}

func TestProvider_FrobFlow(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("method") {
		case "rtm.auth.getFrob":
			fmt.Fprint(w, `<rsp stat="ok"><frob>f123</frob></rsp>`)
		case "rtm.auth.getToken":
			if q.Get("frob") != "f123" {
				fmt.Fprint(w, `<rsp stat="fail"><err code="101" msg="Invalid frob"/></rsp>`)
				return
			}
			fmt.Fprint(w, `<rsp stat="ok"><auth><token>tok-new</token><perms>read</perms><user id="1" username="bob" fullname="Bob"/></auth></rsp>`)
		case "rtm.auth.checkToken":
			if q.Get("auth_token") == "tok-new" {
				fmt.Fprint(w, `<rsp stat="ok"><auth><token>tok-new</token><perms>read</perms><user id="1" username="bob" fullname="Bob"/></auth></rsp>`)
				return
			}
			fmt.Fprint(w, `<rsp stat="fail"><err code="98" msg="Login failed / Invalid auth token"/></rsp>`)
		default:
			t.Errorf("unexpected method %s", q.Get("method"))
		}
	})
	p := NewProvider(c)
	ctx := context.Background()

	assert.ErrorIs(t, p.CheckToken(ctx, "old"), auth.ErrTokenRejected)

	flow, err := p.Begin(ctx)
	require.NoError(t, err)
	assert.Contains(t, flow.URL(), "frob=f123")

	confirms := 0
	token, err := flow.Complete(ctx, promptFunc(func() error { confirms++; return nil }))
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)
	assert.Equal(t, 1, confirms)

	assert.NoError(t, p.CheckToken(ctx, token))
}

func TestProvider_CheckTokenFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		rejected bool
	}{
		{
			name: "invalid token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<rsp stat="fail"><err code="98" msg="Login failed / Invalid auth token"/></rsp>`)
			},
			rejected: true,
		},
		{
			name: "invalid api key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<rsp stat="fail"><err code="100" msg="Invalid API Key"/></rsp>`)
			},
		},
		{
			name: "service unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "maintenance", http.StatusServiceUnavailable)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)

			err := NewProvider(c).CheckToken(context.Background(), "tok")
			require.Error(t, err)
			assert.Equal(t, tt.rejected, errors.Is(err, auth.ErrTokenRejected))
		})
	}
}

func TestProvider_CheckTokenUnreachable(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	err := NewProvider(c).CheckToken(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, errors.Is(err, auth.ErrTokenRejected))
}

type promptFunc func() error

func (f promptFunc) Confirm(ctx context.Context, message string) error { return f() }

func TestSource(t *testing.T) {
	var filter string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("method") {
		case "rtm.lists.getList":
			fmt.Fprint(w, listsXML)
		case "rtm.tasks.getList":
			filter = q.Get("filter")
			fmt.Fprint(w, tasksXML)
		}
	})
	s := NewSource(c)
	ctx := context.Background()

	lists, err := s.Lists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Project{{ID: "100", Name: "Inbox"}, {ID: "200", Name: "P: Garden"}}, lists)

	q := fetch.Query{Lists: lists[1:], Tag: "next-action"}
	series, err := s.Tasks(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, q.Expression(), filter)

	require.Len(t, series, 2)
	assert.Equal(t, model.TaskSeries{
		ID:     "s1",
		ListID: "200",
		Name:   "Plant tulips",
		Tags:   []string{"outdoor", "next-action"},
		Tasks:  []model.Task{{ID: "t1", Due: "2024-01-10T00:00:00Z"}},
	}, series[0])
	assert.Equal(t, "s2", series[1].ID)
	assert.Equal(t, []model.Task{{ID: "t2", Due: ""}}, series[1].Tasks)
	assert.Empty(t, series[1].Tags)
}
