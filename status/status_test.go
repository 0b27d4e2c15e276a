package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zedarvates/StoryCore-Engine-sub006/analytics"
)

// fakeProvider returns a fixed snapshot.
type fakeProvider struct {
	snap Snapshot
}

func (f *fakeProvider) Status() Snapshot { return f.snap }

func snapshotWith(statuses ...string) Snapshot {
	snap := Snapshot{Timestamp: time.Now()}
	for i, s := range statuses {
		snap.Breakers = append(snap.Breakers, BreakerStatus{
			Name:   "backend-" + string(rune('a'+i)),
			Status: s,
		})
	}
	return snap
}

func TestSnapshot_Healthy(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		healthy  bool
		degraded bool
	}{
		{"all closed", []string{BreakerClosed, BreakerClosed}, true, false},
		{"one half-open", []string{BreakerClosed, BreakerHalfOpen}, true, true},
		{"one open", []string{BreakerClosed, BreakerOpen}, false, true},
		{"no breakers", nil, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotWith(tt.statuses...)
			if got := snap.Healthy(); got != tt.healthy {
				t.Errorf("Healthy() = %t, want %t", got, tt.healthy)
			}
			if got := snap.Degraded(); got != tt.degraded {
				t.Errorf("Degraded() = %t, want %t", got, tt.degraded)
			}
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		code     int
		body     string
	}{
		{"healthy", []string{BreakerClosed}, http.StatusOK, "OK"},
		{"degraded", []string{BreakerHalfOpen}, http.StatusOK, "DEGRADED"},
		{"unhealthy", []string{BreakerOpen}, http.StatusServiceUnavailable, "UNHEALTHY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{snap: snapshotWith(tt.statuses...)}
			rec := httptest.NewRecorder()
			ReadinessHandler(p)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			if rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestSnapshotHandler(t *testing.T) {
	snap := snapshotWith(BreakerClosed, BreakerOpen)
	snap.Breakers[1].ConsecutiveFailures = 5
	snap.Operations = []analytics.OperationStats{
		{Operation: "render", Attempts: 7, Successes: 4, Failures: 3},
	}
	snap.RecentErrors = analytics.Report{Total: 3}

	p := &fakeProvider{snap: snap}
	rec := httptest.NewRecorder()
	SnapshotHandler(p)(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var decoded Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if len(decoded.Breakers) != 2 {
		t.Fatalf("breakers = %d, want 2", len(decoded.Breakers))
	}
	if decoded.Breakers[1].Status != BreakerOpen || decoded.Breakers[1].ConsecutiveFailures != 5 {
		t.Errorf("breaker[1] = %+v, want open with 5 failures", decoded.Breakers[1])
	}
	if decoded.RecentErrors.Total != 3 {
		t.Errorf("recent errors total = %d, want 3", decoded.RecentErrors.Total)
	}
	if !strings.Contains(rec.Body.String(), "retry_stats") {
		t.Error("snapshot JSON should carry retry_stats")
	}
}
