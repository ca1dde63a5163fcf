// Package prometheus exposes engine metrics as a [prometheus.Collector].
//
// The collector reads [goSession.Engine.MetricsSnapshot] on every scrape and emits constant
// metrics, so the engine keeps its lock-free counters and nothing is registered globally.
// Series are gosession_*_total counters and the gosession_authorize_latency_seconds
// histogram.
package prometheus
