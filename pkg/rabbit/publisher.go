package rabbit

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
)

// Publisher buffers replies and publishes them over its own connection
// with publisher confirms. Enqueue never blocks and the buffer is
// unbounded. A reply that cannot be published after MaxAttempts goes to
// the back of the buffer, so nothing is dropped while the process lives.
type Publisher struct {
	cfg     PublisherConfig
	dial    Dialer
	logger  Logger
	metrics *metrics.Metrics

	qmu   sync.Mutex
	queue *list.List

	cmu  sync.Mutex
	conn Connection
	ch   Channel
}

// NewPublisher returns an idle publisher; call Run to start draining.
func NewPublisher(cfg Config, dial Dialer, logger Logger, m *metrics.Metrics) *Publisher {
	p := &Publisher{
		cfg:     cfg.Publisher,
		dial:    dial,
		logger:  logger,
		metrics: m,
		queue:   list.New(),
	}
	if p.cfg.MaxAttempts < 1 {
		p.cfg.MaxAttempts = 1
	}
	if p.cfg.IdleInterval <= 0 {
		p.cfg.IdleInterval = time.Second
	}
	return p
}

// Enqueue appends msg to the buffer.
func (p *Publisher) Enqueue(msg OutputMessage) {
	p.qmu.Lock()
	p.queue.PushBack(msg)
	n := p.queue.Len()
	p.qmu.Unlock()

	p.metrics.SetOutputBacklog(n)
}

// Len returns the number of buffered replies.
func (p *Publisher) Len() int {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	return p.queue.Len()
}

func (p *Publisher) pop() (OutputMessage, bool) {
	p.qmu.Lock()
	defer p.qmu.Unlock()

	front := p.queue.Front()
	if front == nil {
		return OutputMessage{}, false
	}
	p.queue.Remove(front)
	p.metrics.SetOutputBacklog(p.queue.Len())
	return front.Value.(OutputMessage), true
}

func (p *Publisher) pushFront(msg OutputMessage) {
	p.qmu.Lock()
	p.queue.PushFront(msg)
	n := p.queue.Len()
	p.qmu.Unlock()

	p.metrics.SetOutputBacklog(n)
}

func (p *Publisher) drain() []OutputMessage {
	p.qmu.Lock()
	defer p.qmu.Unlock()

	out := make([]OutputMessage, 0, p.queue.Len())
	for e := p.queue.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(OutputMessage))
	}
	p.queue.Init()
	p.metrics.SetOutputBacklog(0)
	return out
}

// Run drains the buffer until ctx is canceled, then makes a best-effort
// flush bounded by ShutdownFlushTimeout and logs every reply left behind.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.InfoWithContext(ctx, "output publisher started", nil, nil)

	for ctx.Err() == nil {
		msg, ok := p.pop()
		if !ok {
			select {
			case <-ctx.Done():
			case <-time.After(p.cfg.IdleInterval):
			}
			continue
		}
		p.deliver(ctx, msg)
	}

	p.shutdown()
	return nil
}

// deliver publishes msg, retrying in place. On cancellation the reply goes
// back to the front of the buffer for the shutdown flush.
func (p *Publisher) deliver(ctx context.Context, msg OutputMessage) {
	attempt := 0
	op := func() error {
		attempt++
		err := p.publish(ctx, msg)
		if err == nil {
			p.metrics.ObservePublish(metrics.PublishConfirmed)
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		p.metrics.ObservePublish(metrics.PublishFailed)
		p.dropConnection(ctx)
		return err
	}
	notify := func(err error, delay time.Duration) {
		p.logger.WarnWithContext(ctx, "failed to publish reply, retrying", err, errorFields(err, map[string]interface{}{
			"correlation_id": msg.CorrelationID,
			"reply_to":       msg.ReplyTo,
			"attempt":        attempt,
			"delay":          delay.String(),
		}))
	}

	policy := backoff.WithContext(newPublishBackOff(p.cfg.RetryBaseDelay, p.cfg.MaxAttempts), ctx)
	err := backoff.RetryNotify(op, policy, notify)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		p.pushFront(msg)
		return
	}

	p.logger.ErrorWithContext(ctx, "reply publish attempts exhausted, re-queueing at tail", err, map[string]interface{}{
		"correlation_id": msg.CorrelationID,
		"reply_to":       msg.ReplyTo,
		"attempts":       attempt,
	})
	p.metrics.ObservePublish(metrics.PublishRequeued)
	p.Enqueue(msg)
}

func (p *Publisher) publish(ctx context.Context, msg OutputMessage) error {
	ch, err := p.ensureConnection(ctx)
	if err != nil {
		return err
	}
	return ch.PublishConfirmed(ctx, "", msg.ReplyTo, true, msg.publishing())
}

// ensureConnection returns the cached channel, dialing a new connection
// when there is none or it has closed.
func (p *Publisher) ensureConnection(ctx context.Context) (Channel, error) {
	p.cmu.Lock()
	defer p.cmu.Unlock()

	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked(ctx)

	conn, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		closeQuietly(ctx, p.logger, "publisher connection", conn)
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		closeQuietly(ctx, p.logger, "publisher channel", ch)
		closeQuietly(ctx, p.logger, "publisher connection", conn)
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	go p.watchReturns(ch.NotifyReturn(make(chan amqp.Return, 16)))

	p.conn, p.ch = conn, ch
	p.metrics.IncReconnect("publisher")
	p.logger.InfoWithContext(ctx, "output publisher connected", nil, nil)
	return ch, nil
}

// watchReturns logs replies the broker could not route, typically because
// the requester's reply queue no longer exists. They are not retried.
func (p *Publisher) watchReturns(returns <-chan amqp.Return) {
	for r := range returns {
		p.logger.WarnWithContext(context.Background(), "reply returned as unroutable", ErrUnroutable, map[string]interface{}{
			"correlation_id": r.CorrelationId,
			"reply_to":       r.RoutingKey,
			"reply_code":     r.ReplyCode,
			"reply_text":     r.ReplyText,
		})
	}
}

func (p *Publisher) dropConnection(ctx context.Context) {
	p.cmu.Lock()
	defer p.cmu.Unlock()
	p.closeLocked(ctx)
}

func (p *Publisher) closeLocked(ctx context.Context) {
	if p.ch != nil {
		closeQuietly(ctx, p.logger, "publisher channel", p.ch)
		p.ch = nil
	}
	if p.conn != nil {
		closeQuietly(ctx, p.logger, "publisher connection", p.conn)
		p.conn = nil
	}
}

// shutdown flushes what it can within ShutdownFlushTimeout and reports the rest as lost.
func (p *Publisher) shutdown() {
	ctx := context.Background()
	defer p.dropConnection(ctx)

	if p.cfg.ShutdownFlushTimeout > 0 {
		flushCtx, cancel := context.WithTimeout(ctx, p.cfg.ShutdownFlushTimeout)
		defer cancel()

		for {
			msg, ok := p.pop()
			if !ok {
				break
			}
			if err := p.publish(flushCtx, msg); err != nil {
				p.pushFront(msg)
				if !errors.Is(err, context.DeadlineExceeded) {
					p.logger.WarnWithContext(ctx, "reply flush failed", err, map[string]interface{}{
						"correlation_id": msg.CorrelationID,
					})
				}
				break
			}
			p.metrics.ObservePublish(metrics.PublishConfirmed)
		}
	}

	lost := p.drain()
	if len(lost) == 0 {
		p.logger.InfoWithContext(ctx, "output publisher stopped", nil, nil)
		return
	}

	ids := make([]string, 0, len(lost))
	for _, m := range lost {
		ids = append(ids, m.CorrelationID)
		p.metrics.ObservePublish(metrics.PublishLost)
	}
	p.logger.ErrorWithContext(ctx, "output publisher stopped with unpublished replies", nil, map[string]interface{}{
		"count":           len(lost),
		"correlation_ids": ids,
	})
}
