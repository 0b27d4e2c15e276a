package status

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler returns an HTTP handler for liveness probes. It only
// confirms the process is serving.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes. An
// open breaker makes the engine unhealthy; a half-open breaker reports
// degraded but still ready.
func ReadinessHandler(p Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := p.Status()

		w.Header().Set("Content-Type", "text/plain")
		switch {
		case !snap.Healthy():
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNHEALTHY"))
		case snap.Degraded():
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		}
	}
}

// SnapshotHandler returns an HTTP handler serving the full snapshot as
// JSON for external dashboards.
func SnapshotHandler(p Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := p.Status()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			// Headers are gone; nothing useful left to do.
			return
		}
	}
}
