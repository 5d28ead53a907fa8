package main

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/germanamz/mcpchat/pkg/tools/mcpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationTool(t *testing.T) {
	out, err := locationTool("Lisbon, Portugal").Handler(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "Lisbon, Portugal", out)
}

func TestWeatherTool(t *testing.T) {
	h := weatherTool().Handler

	first, err := h(context.Background(), json.RawMessage(`{"city":"Paris"}`))
	require.NoError(t, err)
	assert.Regexp(t, `^(Sunny|Partly cloudy|Overcast|Light rain|Windy) in Paris, \d+°C$`, first)

	again, err := h(context.Background(), json.RawMessage(`{"city":" Paris "}`))
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = h(context.Background(), json.RawMessage(`{}`))
	assert.EqualError(t, err, "city is required")

	_, err = h(context.Background(), json.RawMessage(`[]`))
	assert.ErrorContains(t, err, "invalid input")
}

func TestNewServer(t *testing.T) {
	srv, err := newServer(&serverOptions{tools: []string{"location", "weather"}, location: "Paris"})
	require.NoError(t, err)
	assert.Equal(t, []string{"get_location", "get_weather"}, srv.ToolNames())

	_, err = newServer(&serverOptions{tools: []string{"time"}})
	assert.ErrorContains(t, err, `unknown tool "time"`)

	_, err = newServer(&serverOptions{})
	assert.ErrorContains(t, err, "no tools selected")
}

func TestServer_OverHTTP(t *testing.T) {
	srv, err := newServer(&serverOptions{tools: []string{"location"}, location: "Paris, France"})
	require.NoError(t, err)

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mcpclient.NewStreamable(ctx, httpSrv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	out, err := client.CallTool(ctx, "get_location", nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris, France", out)
}
