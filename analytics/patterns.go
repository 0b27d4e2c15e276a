package analytics

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zedarvates/StoryCore-Engine-sub006/faults"
)

// Signature derives the structural identity of a failure: its category
// plus the caller-supplied context, hashed in sorted key order. Two
// failures with the same signature are the same failure happening
// again, regardless of timestamps or instance IDs.
func Signature(info *faults.ErrorInfo) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(info.Category.String())

	if len(info.Context) > 0 {
		keys := make([]string, 0, len(info.Context))
		for k := range info.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = h.WriteString("\x00")
			_, _ = h.WriteString(k)
			_, _ = h.WriteString("\x01")
			_, _ = h.WriteString(info.Context[k])
		}
	}
	return h.Sum64()
}

// DetectPatterns returns one alert for every signature whose windowed
// count reached the threshold. A signature alerts once; it becomes
// eligible again only after its count falls back below the threshold.
func (r *Recorder) DetectPatterns() []PatternAlert {
	now := r.now()
	oldest := r.bucketIndex(now.Add(-r.config.Window))

	type sigTotal struct {
		count  int
		sample sigSample
	}
	totals := make(map[uint64]*sigTotal)

	r.mu.Lock()
	for idx, b := range r.buckets {
		if idx < oldest {
			continue
		}
		for sig, n := range b.signatures {
			t, ok := totals[sig]
			if !ok {
				t = &sigTotal{}
				totals[sig] = t
			}
			t.count += n
			if t.sample.message == "" {
				t.sample = b.samples[sig]
			}
		}
	}

	var alerts []PatternAlert
	for sig, t := range totals {
		if t.count < r.config.PatternThreshold {
			// Signature cooled off; allow it to alert again later.
			delete(r.alerted, sig)
			continue
		}
		if r.alerted[sig] {
			continue
		}
		r.alerted[sig] = true
		alerts = append(alerts, PatternAlert{
			ID:           uuid.NewString(),
			Signature:    sig,
			Category:     t.sample.category,
			CategoryName: t.sample.category.String(),
			Count:        t.count,
			Threshold:    r.config.PatternThreshold,
			Window:       r.config.Window,
			Sample:       t.sample.message,
		})
	}
	r.mu.Unlock()

	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Count > alerts[j].Count })
	return alerts
}
