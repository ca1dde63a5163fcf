// Package otel publishes engine metrics through an OpenTelemetry [metric.Meter].
//
// Counters become Int64ObservableCounter instruments. The latency histogram is exposed as
// one cumulative Int64ObservableGauge per bucket plus _count and _sum gauges, since
// pre-aggregated buckets cannot be fed into an OTel histogram. A single callback reads the
// engine snapshot per collection; the caller owns the MeterProvider.
package otel
