// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// helpers for reconcilers and surfaces.
//
// Metrics are registered on the configured registry (default:
// prometheus.DefaultRegisterer). Every method on *Metrics is a no-op on a nil
// receiver, so callers never need to check whether metrics are enabled.
//
// Metrics collected:
//   - delphi_renders_total: Counter of renders by result (ok, error, resync)
//   - delphi_render_duration_seconds: Histogram of render duration
//   - delphi_ops_applied_total: Counter of applied ops by type
//   - delphi_patch_failures_total: Counter of failed ops by type
//   - delphi_active_surfaces: Gauge of open surfaces
//   - delphi_resyncs_total: Counter of full resyncs after a failed render
//   - delphi_teardowns_total: Counter of teardowns by result
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	r := reconcile.New(host, reconcile.WithMetrics(m))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package telemetry
