package healthcheck

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakePolls struct {
	last time.Time
}

func (f *fakePolls) LastPoll() time.Time {
	return f.last
}

func TestHealthHandlerHealthy(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	polls := &fakePolls{last: now.Add(-2 * time.Second)}
	tracker := NewTracker(polls)
	tracker.RecordStart("web", "update", now.Add(-time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler := HealthHandler(tracker, 5*time.Second, func() time.Time { return now })
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.LastPollTime == nil || !payload.LastPollTime.Equal(polls.last) {
		t.Fatalf("expected last poll time, got %v", payload.LastPollTime)
	}
	if payload.Stack != "web" || payload.Operation != "update" {
		t.Fatalf("unexpected snapshot %+v", payload)
	}
}

func TestHealthHandlerUnhealthyWhenStale(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(&fakePolls{last: now.Add(-10 * time.Second)})
	tracker.RecordStart("web", "create", now.Add(-time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler := HealthHandler(tracker, 3*time.Second, func() time.Time { return now })
	handler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHealthyBeforeFirstPollUsesStart(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(&fakePolls{})

	if tracker.Healthy(now, time.Second) {
		t.Fatalf("expected unhealthy before start")
	}
	tracker.RecordStart("web", "delete", now.Add(-time.Second))
	if !tracker.Healthy(now, time.Second) {
		t.Fatalf("expected start to count as heartbeat")
	}
	if tracker.Healthy(now.Add(time.Minute), time.Second) {
		t.Fatalf("expected stale start to be unhealthy")
	}
	if tracker.Healthy(now, 0) {
		t.Fatalf("expected zero interval to be unhealthy")
	}
}

func TestReadyHandler(t *testing.T) {
	tracker := NewTracker(nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	handler := ReadyHandler(tracker)
	handler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", rec.Code)
	}

	tracker.RecordStart("web", "reset", time.Now())
	rec = httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after ready, got %d", rec.Code)
	}
}

func TestNilTracker(t *testing.T) {
	var tracker *Tracker
	tracker.RecordStart("web", "create", time.Now())
	if tracker.Ready() || tracker.Healthy(time.Now(), time.Second) {
		t.Fatalf("nil tracker must be neither ready nor healthy")
	}
	if snap := tracker.Snapshot(); snap.Stack != "" {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
