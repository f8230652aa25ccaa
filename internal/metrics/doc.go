// Package metrics exports the totals of a run as Prometheus gauges. Each run
// owns a private registry; the result is written in the text exposition format
// for the node_exporter textfile collector, so scheduled batch runs can be
// alerted on without a long-lived process.
package metrics
