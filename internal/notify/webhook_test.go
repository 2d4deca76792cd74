package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWebhookNotifierTemplateRendering(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, `{"stack":"{{ .Stack }}","count":{{ len .Changes }}}`)
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}

	if err := notifier.Notify(context.Background(), makeReport(1)); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if !strings.Contains(body, `"stack":"alpha"`) || !strings.Contains(body, `"count":1`) {
		t.Fatalf("unexpected payload %s", body)
	}
}

func TestWebhookNotifierDefaultTemplateIsJSON(t *testing.T) {
	var got Report
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	notifier.now = func() time.Time { return fixed }

	if err := notifier.Notify(context.Background(), makeReport(2)); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if got.Stack != "alpha" || len(got.Changes) != 2 {
		t.Fatalf("unexpected decoded report %+v", got)
	}
	if !got.GeneratedAt.Equal(fixed) {
		t.Fatalf("unexpected generated_at %s", got.GeneratedAt)
	}
}

func TestWebhookNotifierRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}
	notifier.poster.timing.backoffInitial = time.Millisecond
	notifier.poster.timing.backoffMax = 2 * time.Millisecond
	notifier.poster.timing.backoffMaxElapsed = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := notifier.Notify(ctx, makeReport(1)); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestWebhookNotifierInvalidTemplate(t *testing.T) {
	if _, err := NewWebhookNotifier(zerolog.Nop(), "http://example.com", "{{"); err == nil {
		t.Fatalf("expected template error")
	}
}

func TestWebhookNotifierNilWithoutURL(t *testing.T) {
	notifier, err := NewWebhookNotifier(zerolog.Nop(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := notifier.Notify(context.Background(), makeReport(1)); err != nil {
		t.Fatalf("nil notifier should be a no-op, got %v", err)
	}
}
