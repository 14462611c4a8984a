package rabbit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
)

// ConsumingChannel owns one AMQP channel on a shared connection. It
// consumes the input queue with prefetch 1 and hands each delivery to the
// handler, one at a time. Channel-level failures are retried with backoff
// by the channel itself; a lost connection is reported to the caller.
type ConsumingChannel struct {
	index   int
	cfg     ConsumerConfig
	conn    Connection
	handler Handler
	logger  Logger
	metrics *metrics.Metrics

	failures int
	backoff  backoff.BackOff
}

func newConsumingChannel(index int, cfg ConsumerConfig, conn Connection, handler Handler, logger Logger, m *metrics.Metrics) *ConsumingChannel {
	return &ConsumingChannel{
		index:   index,
		cfg:     cfg,
		conn:    conn,
		handler: handler,
		logger:  logger,
		metrics: m,
		backoff: newReconnectBackOff(),
	}
}

// Run consumes until ctx is canceled (returns nil) or the parent connection
// is gone (returns an error wrapping ErrConnectionLost).
func (c *ConsumingChannel) Run(ctx context.Context) error {
	op := func() error {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, ErrConnectionLost) || c.conn.IsClosed() {
			return backoff.Permanent(fmt.Errorf("channel %d: %w", c.index, ErrConnectionLost))
		}

		c.failures++
		c.metrics.IncReconnect("channel")
		return err
	}
	notify := func(err error, delay time.Duration) {
		c.logger.ErrorWithContext(ctx, "consuming channel lost, reopening", err, errorFields(err, map[string]interface{}{
			"queue":    c.cfg.QueueName,
			"channel":  c.index,
			"failures": c.failures,
			"delay":    delay.String(),
		}))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(c.backoff, ctx), notify)
	if ctx.Err() != nil {
		c.logger.InfoWithContext(ctx, "consuming channel stopped due to cancellation", nil, map[string]interface{}{
			"queue":   c.cfg.QueueName,
			"channel": c.index,
		})
		return nil
	}
	return err
}

// session opens the channel, consumes until a reconnect signal, cancellation
// or a closed delivery stream, and closes the channel on return.
func (c *ConsumingChannel) session(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		if c.conn.IsClosed() {
			return ErrConnectionLost
		}
		return fmt.Errorf("open channel: %w", err)
	}
	defer closeQuietly(ctx, c.logger, "consuming channel", ch)

	lost := newSignal()
	go watchChannel(
		ch.NotifyClose(make(chan *amqp.Error, 1)),
		ch.NotifyCancel(make(chan string, 1)),
		lost,
	)

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(c.cfg.QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	tag := fmt.Sprintf("%s-%d-%s", c.cfg.ConsumerTagPrefix, c.index, uuid.NewString())
	deliveries, err := ch.Consume(c.cfg.QueueName, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.failures = 0
	c.backoff.Reset()
	c.logger.InfoWithContext(ctx, "consuming channel started", nil, map[string]interface{}{
		"queue":        c.cfg.QueueName,
		"channel":      c.index,
		"consumer_tag": tag,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lost.Done():
			return lost.Err()
		case d, ok := <-deliveries:
			if !ok {
				if c.conn.IsClosed() {
					return ErrConnectionLost
				}
				select {
				case <-lost.Done():
					return lost.Err()
				default:
					return ErrDeliveryStreamClosed
				}
			}
			if err := c.dispatch(ctx, d); err != nil {
				return err
			}
		}
	}
}

// dispatch runs the handler and turns a panic into a channel reconnect.
func (c *ConsumingChannel) dispatch(ctx context.Context, d amqp.Delivery) (err error) {
	done := c.metrics.DeliveryStarted()
	defer done()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
			c.logger.ErrorWithContext(ctx, "message handler panicked", err, map[string]interface{}{
				"channel":        c.index,
				"correlation_id": d.CorrelationId,
				"delivery_tag":   d.DeliveryTag,
			})
		}
	}()

	c.handler.Handle(ctx, d)
	return nil
}

// watchChannel fires lost on an unsolicited channel close or a broker-side
// consumer cancel. A local close delivers no error and is ignored.
func watchChannel(closed <-chan *amqp.Error, canceled <-chan string, lost *signal) {
	select {
	case amqpErr, ok := <-closed:
		if ok && amqpErr != nil {
			lost.Fire(fmt.Errorf("%w: %w", ErrChannelClosed, amqpErr))
		}
	case tag, ok := <-canceled:
		if ok {
			lost.Fire(fmt.Errorf("%w: %s", ErrConsumerCanceled, tag))
		}
	case <-lost.Done():
	}
}
