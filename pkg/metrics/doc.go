// Package metrics exposes the worker's Prometheus metrics.
//
// Each process owns an isolated registry whose collectors carry a constant
// `service` label. Besides the Go and process collectors the package defines
// the worker series:
//
//	llmworker_deliveries_total{outcome}        acked | requeued | rejected | abandoned
//	llmworker_inflight_deliveries              unsettled deliveries across all channels
//	llmworker_completion_attempts_total{provider,result}
//	llmworker_completion_duration_seconds{provider}
//	llmworker_output_backlog                   replies buffered for publishing
//	llmworker_publish_total{result}            confirmed | failed | requeued | lost
//	llmworker_reconnects_total{component}      supervisor | channel | publisher
//	llmworker_http_requests_total{route,status}
//	llmworker_http_request_duration_seconds{route}
//
// Observation methods are nil-safe.
package metrics
