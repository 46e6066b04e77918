// Package prometheus exposes goShopAuth metrics through client_golang.
//
// [Exporter] implements prometheus.Collector, so it can be registered in any
// registry. [Exporter.Handler] serves it from a private registry for callers
// that just want a /metrics endpoint. Counters are named goshopauth_*_total
// and the single histogram is goshopauth_authenticate_admin_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
