// Package status exposes a serializable snapshot of the resilience
// engine for external dashboards and probes.
//
// The engine's Coordinator implements Provider; this package only
// shapes and serves the snapshot. Persistence and transport beyond the
// bundled HTTP handlers are the consumer's responsibility.
//
//	mux.Handle("/status", status.SnapshotHandler(coordinator))
//	mux.Handle("/livez", status.LivenessHandler())
//	mux.Handle("/readyz", status.ReadinessHandler(coordinator))
package status
