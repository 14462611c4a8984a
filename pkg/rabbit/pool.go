package rabbit

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
)

// Pool runs ChannelCount consuming channels on one connection. With a
// prefetch of 1 per channel this bounds in-flight deliveries to exactly
// ChannelCount.
type Pool struct {
	cfg     ConsumerConfig
	handler Handler
	logger  Logger
	metrics *metrics.Metrics

	newChannel func(index int, conn Connection) *ConsumingChannel
}

// NewPool returns a pool dispatching deliveries to handler.
func NewPool(cfg Config, handler Handler, logger Logger, m *metrics.Metrics) *Pool {
	p := &Pool{
		cfg:     cfg.ConsumerConfig,
		handler: handler,
		logger:  logger,
		metrics: m,
	}
	p.newChannel = func(index int, conn Connection) *ConsumingChannel {
		return newConsumingChannel(index, p.cfg, conn, p.handler, p.logger, p.metrics)
	}
	return p
}

// Run starts the channels and blocks until ctx is canceled or one channel
// reports the connection as lost, in which case the others are stopped and
// the loss is returned.
func (p *Pool) Run(ctx context.Context, conn Connection) error {
	count := p.cfg.ChannelCount
	if count < 1 {
		count = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		ch := p.newChannel(i, conn)
		g.Go(func() error {
			return ch.Run(gctx)
		})
	}

	p.logger.InfoWithContext(ctx, "consuming channel pool started", nil, map[string]interface{}{
		"queue":    p.cfg.QueueName,
		"channels": count,
	})
	return g.Wait()
}
