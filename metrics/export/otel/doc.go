// Package otel binds goShopAuth metrics to an OpenTelemetry Meter.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and,
// per histogram, a bucket gauge keyed by an "le" attribute plus a count gauge.
// One callback reads the engine snapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
