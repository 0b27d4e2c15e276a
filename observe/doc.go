// Package observe provides telemetry for the resilience engine: an
// OpenTelemetry tracing/metrics bootstrap, a structured JSON logger,
// and middleware that wraps protected operations with all three.
//
// The Coordinator uses this package around every protected call; it is
// not a general-purpose logging framework. Prompts and credentials are
// redacted from log output by field name.
package observe
