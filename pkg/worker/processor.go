package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
	"github.com/Aleph-Alpha/llmworker/pkg/rabbit"
	"github.com/Aleph-Alpha/llmworker/pkg/tracer"
)

// Processor turns one input delivery into at most one reply and settles the
// delivery. It is safe for concurrent use by all consuming channels.
type Processor struct {
	cfg       Config
	completer Completer
	sink      Sink
	logger    Logger
	metrics   *metrics.Metrics
	tracer    *tracer.Tracer
}

// NewProcessor builds a processor. m and t may be nil.
func NewProcessor(cfg Config, completer Completer, sink Sink, logger Logger, m *metrics.Metrics, t *tracer.Tracer) *Processor {
	return &Processor{
		cfg:       cfg,
		completer: completer,
		sink:      sink,
		logger:    logger,
		metrics:   m,
		tracer:    t,
	}
}

// Handle implements rabbit.Handler.
//
// Permanent failures (missing correlation id, malformed body, unknown
// provider, missing model) are rejected without requeue before any provider
// call. Completion failures are rejected with requeue when transient. A
// canceled ctx abandons the delivery unsettled so the broker redelivers it.
func (p *Processor) Handle(ctx context.Context, d amqp.Delivery) {
	var span trace.Span
	if p.tracer != nil {
		ctx = p.tracer.SetCarrierOnContext(ctx, tracer.CarrierFromHeaders(d.Headers))
		ctx, span = p.tracer.StartSpan(ctx, "process-delivery")
		p.tracer.SetAttributes(span, map[string]interface{}{
			"messaging.system":                 "rabbitmq",
			"messaging.message.correlation_id": d.CorrelationId,
			"messaging.rabbitmq.delivery_tag":  d.DeliveryTag,
			"messaging.rabbitmq.redelivered":   d.Redelivered,
		})
		defer span.End()
	}

	fields := map[string]interface{}{
		"correlation_id": d.CorrelationId,
		"delivery_tag":   d.DeliveryTag,
		"redelivered":    d.Redelivered,
	}

	err := p.process(ctx, d, fields)
	if err != nil && span != nil {
		p.tracer.RecordErrorOnSpan(span, err)
	}

	switch {
	case err == nil:
		p.ack(ctx, d, fields)
	case ctx.Err() != nil:
		p.logger.InfoWithContext(ctx, "processing interrupted by cancellation, leaving message for redelivery", err, fields)
		p.metrics.ObserveDelivery(metrics.OutcomeAbandoned)
	default:
		p.reject(ctx, d, err, fields)
	}
}

func (p *Processor) process(ctx context.Context, d amqp.Delivery, fields map[string]interface{}) error {
	if strings.TrimSpace(d.CorrelationId) == "" {
		return ErrMissingCorrelationID
	}

	msg, err := ParseInputMessage(d.Body)
	if err != nil {
		return err
	}

	provider, ok := llm.ParseProvider(msg.ModelProvider)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, msg.ModelProvider)
	}

	model := strings.TrimSpace(msg.Model)
	if model == "" {
		model = p.completer.DefaultModel(provider)
	}
	if model == "" {
		return fmt.Errorf("%w: %s", ErrMissingModel, provider)
	}

	fields["provider"] = provider.String()
	fields["model"] = model
	fields["reply_to"] = msg.ReplyTo

	p.logger.DebugWithContext(ctx, "processing message", nil, fields)

	text, attempts, err := p.retryCompletion(ctx, provider, model, msg.Prompt, fields)
	if err != nil {
		fields["attempts"] = attempts
		return err
	}

	body, err := BuildResponseBody(text)
	if err != nil {
		return fmt.Errorf("failed to build response body: %w", err)
	}

	var headers map[string]interface{}
	if p.tracer != nil {
		headers = tracer.HeadersFromCarrier(p.tracer.GetCarrier(ctx))
	}

	p.sink.Enqueue(rabbit.NewOutputMessage(d.CorrelationId, msg.ReplyTo, body, headers))
	fields["attempts"] = attempts
	return nil
}

func (p *Processor) ack(ctx context.Context, d amqp.Delivery, fields map[string]interface{}) {
	if err := d.Ack(false); err != nil {
		p.logger.ErrorWithContext(ctx, "failed to ack message", err, fields)
		return
	}
	p.metrics.ObserveDelivery(metrics.OutcomeAcked)
	p.logger.InfoWithContext(ctx, "message processed", nil, fields)
}

func (p *Processor) reject(ctx context.Context, d amqp.Delivery, cause error, fields map[string]interface{}) {
	requeue := IsTransient(cause)
	fields["requeue"] = requeue

	if requeue {
		p.logger.WarnWithContext(ctx, "message processing failed, requeueing", cause, fields)
	} else {
		p.logger.ErrorWithContext(ctx, "message rejected", cause, fields)
	}

	if err := d.Nack(false, requeue); err != nil {
		p.logger.ErrorWithContext(ctx, "failed to nack message", errors.Join(err, cause), fields)
		return
	}

	if requeue {
		p.metrics.ObserveDelivery(metrics.OutcomeRequeued)
	} else {
		p.metrics.ObserveDelivery(metrics.OutcomeRejected)
	}
}
