// Package tracer provides distributed tracing for the worker using OpenTelemetry.
//
// The package wraps a TracerProvider and exposes helpers for starting spans,
// recording errors and moving W3C trace context through AMQP message headers,
// so that a request arriving over the broker continues the caller's trace and
// the reply carries it onward.
//
// Basic Usage:
//
//	tr, err := tracer.NewClient(cfg, log)
//	ctx := tr.SetCarrierOnContext(ctx, tracer.CarrierFromHeaders(delivery.Headers))
//	ctx, span := tr.StartSpan(ctx, "process-delivery")
//	defer span.End()
//
//	headers := tracer.HeadersFromCarrier(tr.GetCarrier(ctx))
//
// Configuration (environment, prefix TRACER_):
//
//	TRACER_SERVICE_NAME   service.name resource attribute
//	TRACER_APP_ENV        deployment environment
//	TRACER_ENABLE_EXPORT  enable OTLP/HTTP export
//
// FX Integration:
//
//	app := fx.New(
//		logger.FXModule,
//		tracer.FXModule,
//	)
package tracer
