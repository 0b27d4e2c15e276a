// Package analytics aggregates classified failures over a sliding time
// window and flags repeating failure patterns.
//
// A Recorder ingests every ErrorInfo the engine produces, bucketing
// counts by (category, severity) and by a context-derived signature.
// Buckets older than the window are pruned, bounding memory. When the
// windowed count of one signature crosses the configured threshold the
// Recorder reports a single pattern alert, signaling a systemic rather
// than transient issue.
//
// The Recorder is the write-heavy shared object of the engine: many
// concurrent calls report into it, a dashboard occasionally reads a
// Summary. All access goes through one mutex.
//
//	rec, _ := analytics.New(analytics.Config{Window: 5 * time.Minute})
//	rec.Record(info)
//	report := rec.Summary(time.Minute)
//	alerts := rec.DetectPatterns()
package analytics
