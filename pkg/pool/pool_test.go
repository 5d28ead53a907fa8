package pool

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/germanamz/mcpchat/pkg/tools/mcpclient"
	"github.com/germanamz/mcpchat/pkg/tools/mcpserver"
	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	tools    []toolbox.Tool
	listErr  error
	closeErr error
	closes   int
}

func (f *fakeSession) ListTools(context.Context) ([]toolbox.Tool, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tools, nil
}

func (f *fakeSession) CallTool(_ context.Context, name string, _ json.RawMessage) (string, error) {
	return "called " + name, nil
}

func (f *fakeSession) Close() error {
	f.closes++
	return f.closeErr
}

// fakeDialer returns the session registered under the endpoint key, or an
// error for unknown keys.
func fakeDialer(sessions map[string]*fakeSession) Dialer {
	return func(_ context.Context, ep mcpclient.Endpoint) (Session, error) {
		s, ok := sessions[ep.Key()]
		if !ok {
			return nil, errors.New("connection refused")
		}
		return s, nil
	}
}

func tools(names ...string) []toolbox.Tool {
	out := make([]toolbox.Tool, len(names))
	for i, n := range names {
		out[i] = toolbox.Tool{Name: n}
	}
	return out
}

func TestConnect_AllEndpoints(t *testing.T) {
	a := &fakeSession{tools: tools("get_location")}
	b := &fakeSession{tools: tools("get_weather", "get_forecast")}
	p := New(fakeDialer(map[string]*fakeSession{"a": a, "b": b}), Options{})

	report := p.Connect(context.Background(), []mcpclient.Endpoint{{Name: "a"}, {Name: "b"}})

	require.NoError(t, report.Err())
	assert.Equal(t, 2, report.Connected())
	assert.Empty(t, report.Failed())
	assert.Equal(t, []string{"get_location", "get_weather", "get_forecast"}, toolbox.Names(report.Tools()))

	eps := p.Endpoints()
	require.Len(t, eps, 2)
	assert.Equal(t, "a", eps[0].Key())
	assert.Equal(t, "b", eps[1].Key())

	s, err := p.Get("b")
	require.NoError(t, err)
	assert.Same(t, b, s)
}

func TestConnect_IsolatesFailures(t *testing.T) {
	b := &fakeSession{tools: tools("get_weather")}
	p := New(fakeDialer(map[string]*fakeSession{"b": b}), Options{})

	report := p.Connect(context.Background(), []mcpclient.Endpoint{{Name: "a"}, {Name: "b"}})

	assert.Equal(t, 1, report.Connected())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "a", report.Failed()[0].Endpoint.Key())

	err := report.Err()
	require.Error(t, err)
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "a", connErr.Endpoint)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = p.Get("a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, p.Len())
}

func TestConnect_ListToolsFailureClosesSession(t *testing.T) {
	a := &fakeSession{listErr: errors.New("boom")}
	p := New(fakeDialer(map[string]*fakeSession{"a": a}), Options{})

	report := p.Connect(context.Background(), []mcpclient.Endpoint{{Name: "a"}})

	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "list tools: boom")
	assert.Equal(t, 1, a.closes)
	assert.Equal(t, 0, p.Len())
}

func TestConnect_DuplicateEndpoint(t *testing.T) {
	a := &fakeSession{tools: tools("x")}
	p := New(fakeDialer(map[string]*fakeSession{"a": a}), Options{})

	report := p.Connect(context.Background(), []mcpclient.Endpoint{{Name: "a"}, {Name: "a"}})

	assert.Equal(t, 1, report.Connected())
	require.Len(t, report.Failed(), 1)
	assert.ErrorIs(t, report.Failed()[0].Err, ErrDuplicateEndpoint)
}

func TestConnect_EndpointWithoutAddress(t *testing.T) {
	p := New(fakeDialer(nil), Options{})

	report := p.Connect(context.Background(), []mcpclient.Endpoint{{}})

	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "no address")
}

func TestConnect_AppliesTimeout(t *testing.T) {
	var deadline time.Time
	dialer := func(ctx context.Context, _ mcpclient.Endpoint) (Session, error) {
		deadline, _ = ctx.Deadline()
		return &fakeSession{}, nil
	}
	p := New(dialer, Options{ConnectTimeout: time.Minute})

	report := p.Connect(context.Background(), []mcpclient.Endpoint{{Name: "a"}})

	require.NoError(t, report.Err())
	assert.False(t, deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestGet_NeverConnected(t *testing.T) {
	p := New(fakeDialer(nil), Options{})

	_, err := p.Get("nowhere")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestCloseAll(t *testing.T) {
	a := &fakeSession{tools: tools("x")}
	b := &fakeSession{tools: tools("y")}
	p := New(fakeDialer(map[string]*fakeSession{"a": a, "b": b}), Options{})
	p.Connect(context.Background(), []mcpclient.Endpoint{{Name: "a"}, {Name: "b"}, {Name: "broken"}})

	require.NoError(t, p.CloseAll())
	require.NoError(t, p.CloseAll())

	assert.Equal(t, 1, a.closes)
	assert.Equal(t, 1, b.closes)
	assert.Empty(t, p.Endpoints())

	_, err := p.Get("a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	report := p.Connect(context.Background(), []mcpclient.Endpoint{{Name: "a"}})
	assert.ErrorIs(t, report.Err(), ErrClosed)
}

func TestCloseAll_JoinsErrors(t *testing.T) {
	a := &fakeSession{closeErr: errors.New("a gone")}
	b := &fakeSession{}
	c := &fakeSession{closeErr: errors.New("c gone")}
	p := New(fakeDialer(map[string]*fakeSession{"a": a, "b": b, "c": c}), Options{})
	p.Connect(context.Background(), []mcpclient.Endpoint{{Name: "a"}, {Name: "b"}, {Name: "c"}})

	err := p.CloseAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a gone")
	assert.Contains(t, err.Error(), "c gone")
	assert.Equal(t, 1, b.closes)

	assert.Equal(t, err, p.CloseAll())
}

func TestCloseAll_EmptyPool(t *testing.T) {
	p := New(nil, Options{})
	assert.NoError(t, p.CloseAll())
}

func TestCloseAll_SessionsBecomeUnusable(t *testing.T) {
	srv := mcpserver.New("weather", "1.0.0")
	srv.Register(toolbox.Tool{
		Name: "get_weather",
		Handler: func(context.Context, json.RawMessage) (string, error) {
			return "sunny", nil
		},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := New(nil, Options{})
	report := p.Connect(ctx, []mcpclient.Endpoint{{Name: "weather", URL: ts.URL, Transport: mcpclient.TransportStreamable}})
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"get_weather"}, toolbox.Names(report.Tools()))

	s, err := p.Get("weather")
	require.NoError(t, err)

	out, err := s.CallTool(ctx, "get_weather", nil)
	require.NoError(t, err)
	assert.Equal(t, "sunny", out)

	require.NoError(t, p.CloseAll())

	_, err = s.CallTool(ctx, "get_weather", nil)
	assert.ErrorIs(t, err, mcpclient.ErrClosed)
}
