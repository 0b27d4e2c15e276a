package analytics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

func newTestRecorder(t *testing.T, cfg Config) *Recorder {
	t.Helper()
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func classify(msg string, opCtx map[string]string) *faults.ErrorInfo {
	return faults.NewClassifier().Classify(errors.New(msg), opCtx)
}

func TestRecorder_SummaryCounts(t *testing.T) {
	r := newTestRecorder(t, Config{Window: time.Minute})

	for i := 0; i < 3; i++ {
		r.Record(classify("connection refused", nil))
	}
	r.Record(classify("CUDA out of memory", nil))

	report := r.Summary(0)
	if report.Total != 4 {
		t.Fatalf("Total = %d, want 4", report.Total)
	}

	// Sorted by count descending: network first.
	if report.Counts[0].Category != faults.CategoryNetwork || report.Counts[0].Count != 3 {
		t.Errorf("Counts[0] = %s/%d, want network/3", report.Counts[0].CategoryName, report.Counts[0].Count)
	}
	if report.Counts[0].SeverityName != "medium" {
		t.Errorf("network severity = %s, want medium", report.Counts[0].SeverityName)
	}
	if report.Counts[1].Category != faults.CategoryResourceExhaustion || report.Counts[1].Count != 1 {
		t.Errorf("Counts[1] = %s/%d, want resource_exhaustion/1", report.Counts[1].CategoryName, report.Counts[1].Count)
	}
}

func TestRecorder_WindowPruning(t *testing.T) {
	r := newTestRecorder(t, Config{Window: time.Minute, Bucket: time.Second})

	base := time.Now()
	r.now = func() time.Time { return base }
	r.Record(classify("connection refused", nil))

	// Two minutes later the old bucket is outside the window.
	r.now = func() time.Time { return base.Add(2 * time.Minute) }
	r.Record(classify("request timed out", nil))

	report := r.Summary(0)
	if report.Total != 1 {
		t.Errorf("Total = %d after window elapsed, want 1", report.Total)
	}

	r.Prune()
	r.mu.Lock()
	buckets := len(r.buckets)
	r.mu.Unlock()
	if buckets != 1 {
		t.Errorf("bucket count after prune = %d, want 1", buckets)
	}
}

func TestRecorder_PatternDetection(t *testing.T) {
	r := newTestRecorder(t, Config{Window: time.Minute, PatternThreshold: 10})

	opCtx := map[string]string{"backend": "comfy", "endpoint": "render"}
	for i := 0; i < 10; i++ {
		r.Record(classify("connection refused", opCtx))
	}

	alerts := r.DetectPatterns()
	if len(alerts) != 1 {
		t.Fatalf("len(alerts) = %d, want exactly 1", len(alerts))
	}
	a := alerts[0]
	if a.Category != faults.CategoryNetwork {
		t.Errorf("alert category = %s, want network", a.CategoryName)
	}
	if a.Count != 10 {
		t.Errorf("alert count = %d, want 10", a.Count)
	}
	if a.ID == "" || a.Sample == "" {
		t.Error("alert should carry an ID and a sample message")
	}

	// The same systemic issue does not alert again.
	if again := r.DetectPatterns(); len(again) != 0 {
		t.Errorf("repeat DetectPatterns produced %d alerts, want 0", len(again))
	}
}

func TestRecorder_PatternBelowThreshold(t *testing.T) {
	r := newTestRecorder(t, Config{Window: time.Minute, PatternThreshold: 10})

	for i := 0; i < 9; i++ {
		r.Record(classify("connection refused", nil))
	}
	if alerts := r.DetectPatterns(); len(alerts) != 0 {
		t.Errorf("len(alerts) = %d below threshold, want 0", len(alerts))
	}
}

func TestRecorder_PatternDistinguishesContext(t *testing.T) {
	r := newTestRecorder(t, Config{Window: time.Minute, PatternThreshold: 10})

	for i := 0; i < 6; i++ {
		r.Record(classify("connection refused", map[string]string{"backend": "a"}))
	}
	for i := 0; i < 6; i++ {
		r.Record(classify("connection refused", map[string]string{"backend": "b"}))
	}

	// 12 failures total, but no single signature reached 10.
	if alerts := r.DetectPatterns(); len(alerts) != 0 {
		t.Errorf("len(alerts) = %d, want 0: signatures must separate by context", len(alerts))
	}
}

func TestSignature_Deterministic(t *testing.T) {
	a := classify("connection refused", map[string]string{"backend": "comfy", "endpoint": "render"})
	b := classify("connection refused", map[string]string{"endpoint": "render", "backend": "comfy"})
	if Signature(a) != Signature(b) {
		t.Error("signature should not depend on context map order")
	}

	c := classify("request timed out", map[string]string{"backend": "comfy", "endpoint": "render"})
	if Signature(a) == Signature(c) {
		t.Error("different categories should produce different signatures")
	}
}

func TestRecorder_OperationStats(t *testing.T) {
	r := newTestRecorder(t, Config{})

	r.RecordAttempt("render", false)
	r.RecordAttempt("render", false)
	r.RecordAttempt("render", true)
	r.RecordAttempt("upscale", true)

	stats := r.OperationStats()
	if len(stats) != 2 {
		t.Fatalf("len(stats) = %d, want 2", len(stats))
	}
	// Sorted by name.
	if stats[0].Operation != "render" || stats[1].Operation != "upscale" {
		t.Fatalf("stats order = %s,%s, want render,upscale", stats[0].Operation, stats[1].Operation)
	}
	if stats[0].Attempts != 3 || stats[0].Successes != 1 || stats[0].Failures != 2 {
		t.Errorf("render stats = %+v, want attempts=3 successes=1 failures=2", stats[0])
	}
}

func TestRecorder_ConcurrentRecording(t *testing.T) {
	r := newTestRecorder(t, Config{Window: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Record(classify("connection refused", nil))
				r.RecordAttempt("render", j%2 == 0)
			}
		}()
	}
	wg.Wait()

	if got := r.Summary(0).Total; got != 400 {
		t.Errorf("Total = %d, want 400", got)
	}
	stats := r.OperationStats()
	if stats[0].Attempts != 400 {
		t.Errorf("Attempts = %d, want 400", stats[0].Attempts)
	}
}
