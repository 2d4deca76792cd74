package healthcheck

import (
	"encoding/json"
	"net/http"
	"time"
)

// Register mounts /healthz and /readyz on mux.
func Register(mux *http.ServeMux, tracker *Tracker, pollInterval time.Duration) {
	mux.HandleFunc("/healthz", HealthHandler(tracker, pollInterval, time.Now))
	mux.HandleFunc("/readyz", ReadyHandler(tracker))
}

// HealthHandler serves /healthz: 200 while polls keep arriving, 503 once
// they stall.
func HealthHandler(tracker *Tracker, pollInterval time.Duration, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := http.StatusServiceUnavailable
		if tracker.Healthy(now(), pollInterval) {
			status = http.StatusOK
		}
		writeJSON(w, status, tracker.Snapshot())
	}
}

// ReadyHandler serves /readyz.
func ReadyHandler(tracker *Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := http.StatusServiceUnavailable
		if tracker.Ready() {
			status = http.StatusOK
		}
		writeJSON(w, status, tracker.Snapshot())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
