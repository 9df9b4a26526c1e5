// Package metrics exposes Prometheus metrics for projection runs, the
// engine's memo cache, nested capital calculations and HTTP requests.
//
// Metrics are registered on an injected *prometheus.Registry so tests and
// the server can each own an isolated registry.
package metrics
