package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nholik/stackpilot/internal/healthcheck"
	"github.com/nholik/stackpilot/internal/metrics"
	"github.com/rs/zerolog"
)

func TestStartServesStatusRoutes(t *testing.T) {
	m := metrics.New()
	m.IncPolls("stack")
	tracker := healthcheck.NewTracker(m)
	tracker.RecordStart("web", "update", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := Start(ctx, zerolog.Nop(), "127.0.0.1:0", NewMux(tracker, m, time.Minute))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	base := "http://" + srv.Addr()
	for path, want := range map[string]string{
		"/healthz": `"operation":"update"`,
		"/readyz":  `"stack":"web"`,
		"/metrics": `stackpilot_polls_total{kind="stack"} 1`,
	} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), want) {
			t.Fatalf("%s: expected %q in body:\n%s", path, want, body)
		}
	}

	cancel()
	done := make(chan struct{})
	go func() {
		srv.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop after cancel")
	}
}

func TestStartReportsBindErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := Start(ctx, zerolog.Nop(), "127.0.0.1:0", http.NewServeMux())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := Start(ctx, zerolog.Nop(), first.Addr(), http.NewServeMux()); err == nil {
		t.Fatalf("expected bind error for address in use")
	}
}

func TestNewMuxWithoutMetrics(t *testing.T) {
	mux := NewMux(healthcheck.NewTracker(nil), nil, time.Second)
	_, pattern := mux.Handler(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if pattern == "/metrics" {
		t.Fatalf("metrics route should not be registered without metrics")
	}
}
