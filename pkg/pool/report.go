package pool

import (
	"errors"
	"fmt"

	"github.com/germanamz/mcpchat/pkg/tools/mcpclient"
	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
)

// ConnectError reports an endpoint that could not be reached, failed the
// handshake, or failed its initial tool listing.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("pool: connect %q: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ConnectResult is the outcome of connecting one endpoint.
type ConnectResult struct {
	Endpoint mcpclient.Endpoint
	Tools    []toolbox.Tool
	Err      error
}

// OK reports whether the endpoint connected.
func (r ConnectResult) OK() bool { return r.Err == nil }

// Report aggregates the per-endpoint results of Connect, in input order.
type Report struct {
	Results []ConnectResult
}

// Connected returns the number of endpoints that connected.
func (r Report) Connected() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed returns the results of the endpoints that did not connect.
func (r Report) Failed() []ConnectResult {
	var out []ConnectResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Tools concatenates the tools of the connected endpoints in connection order.
func (r Report) Tools() []toolbox.Tool {
	var out []toolbox.Tool
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res.Tools...)
		}
	}
	return out
}

// Err joins every connect error, or returns nil when all endpoints connected.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}
