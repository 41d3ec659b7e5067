package fetcher

import (
	"context"
	"net/http"
	"strings"
)

// redirectTrace counts the hops of one request and holds the gate token of
// the host currently being requested. The client reuses the original request
// context for every hop, so the trace travels with it.
type redirectTrace struct {
	hops     int
	exceeded bool

	gate    HostGate
	host    string
	release func()
}

// enter takes the gate token for host unless it is already held. The token
// of the previous host is released first.
func (t *redirectTrace) enter(ctx context.Context, host string) error {
	if t.gate == nil || (t.release != nil && strings.EqualFold(t.host, host)) {
		return nil
	}
	t.done()
	release, err := t.gate.Acquire(ctx, host)
	if err != nil {
		return err
	}
	t.host, t.release = host, release
	return nil
}

// done releases the held token, if any.
func (t *redirectTrace) done() {
	if t.release != nil {
		t.release()
		t.release = nil
	}
}

type traceKey struct{}

func withRedirectTrace(ctx context.Context) (context.Context, *redirectTrace) {
	trace := &redirectTrace{}
	return context.WithValue(ctx, traceKey{}, trace), trace
}

// RedirectPolicy returns a CheckRedirect function that follows up to maxHops
// redirects. Past the limit it stops with http.ErrUseLastResponse, so the
// caller receives the final 3xx response instead of an error. A hop to
// another host waits for that host's gate token.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		trace, _ := req.Context().Value(traceKey{}).(*redirectTrace)
		if trace != nil {
			trace.hops = len(via)
		}
		if len(via) > maxHops {
			if trace != nil {
				trace.exceeded = true
			}
			return http.ErrUseLastResponse
		}
		if trace != nil {
			return trace.enter(req.Context(), req.URL.Host)
		}
		return nil
	}
}
