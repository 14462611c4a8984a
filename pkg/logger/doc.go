// Package logger provides structured logging for the worker on top of zap.
//
// Every entry is JSON with an ISO8601 timestamp and the "service" and "pid"
// fields. Call sites pass a message, an optional error and optional field maps:
//
//	log := logger.NewLoggerClient(logger.Config{Level: "info", ServiceName: "llmworker"})
//	log.Info("consumer started", nil, map[string]interface{}{"queue": "llm-requests"})
//	log.Error("publish failed", err, map[string]interface{}{"correlation_id": id})
//
// The *WithContext variants add trace_id and span_id when ctx carries an
// active OpenTelemetry span and tracing is enabled.
//
// Configuration:
//
//	LOG_LEVEL=debug            # debug, info, warning, error
//	LOG_SERVICE_NAME=llmworker
//	LOG_ENABLE_TRACING=true
//
// All methods are safe for concurrent use.
package logger
