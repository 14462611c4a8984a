package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
)

// Supervisor owns the consuming connection. It dials, runs the channel pool
// and, after an unsolicited close, tears everything down and reconnects
// with exponential backoff. The backoff and the failure counter belong to
// the instance and reset after every successful connect.
type Supervisor struct {
	cfg     ConnectionConfig
	dial    Dialer
	pool    *Pool
	logger  Logger
	metrics *metrics.Metrics

	failures int
	backoff  backoff.BackOff
}

// NewSupervisor builds a supervisor that runs pool on connections from dial.
func NewSupervisor(cfg Config, dial Dialer, pool *Pool, logger Logger, m *metrics.Metrics) *Supervisor {
	return &Supervisor{
		cfg:     cfg.ConnectionConfig,
		dial:    dial,
		pool:    pool,
		logger:  logger,
		metrics: m,
		backoff: newReconnectBackOff(),
	}
}

// Run blocks until ctx is canceled, which is not an error. With automatic
// recovery disabled the first connection loss is returned instead of retried.
func (s *Supervisor) Run(ctx context.Context) error {
	op := func() error {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		s.logger.ErrorWithContext(ctx, "rabbitmq connection lost", err, errorFields(err, map[string]interface{}{
			"host": s.cfg.Host,
		}))
		if !s.cfg.AutomaticRecovery {
			return backoff.Permanent(fmt.Errorf("automatic recovery disabled: %w", err))
		}

		s.failures++
		s.metrics.IncReconnect("supervisor")
		return err
	}
	notify := func(_ error, delay time.Duration) {
		s.logger.InfoWithContext(ctx, "reconnecting to rabbitmq", nil, map[string]interface{}{
			"failures": s.failures,
			"delay":    delay.String(),
		})
	}

	err := backoff.RetryNotify(op, backoff.WithContext(s.backoff, ctx), notify)
	if ctx.Err() != nil {
		s.logger.InfoWithContext(ctx, "connection supervisor stopped due to cancellation", nil, nil)
		return nil
	}
	return err
}

// session runs one connection lifetime and returns why it ended.
func (s *Supervisor) session(ctx context.Context) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer closeQuietly(ctx, s.logger, "connection", conn)

	lost := newSignal()
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		select {
		case amqpErr, ok := <-closed:
			if ok && amqpErr != nil {
				lost.Fire(fmt.Errorf("%w: %w", ErrConnectionLost, amqpErr))
			}
		case <-lost.Done():
		}
	}()

	poolCtx, stopPool := context.WithCancel(ctx)
	defer stopPool()

	poolDone := make(chan error, 1)
	go func() { poolDone <- s.pool.Run(poolCtx, conn) }()

	s.failures = 0
	s.backoff.Reset()
	s.logger.InfoWithContext(ctx, "connected to rabbitmq", nil, map[string]interface{}{
		"host":  s.cfg.Host,
		"vhost": s.cfg.VHost,
	})

	select {
	case <-ctx.Done():
		stopPool()
		<-poolDone
		return ctx.Err()
	case <-lost.Done():
		stopPool()
		<-poolDone
		return lost.Err()
	case err := <-poolDone:
		lost.Fire(nil)
		if err == nil {
			err = ErrConnectionLost
		}
		return err
	}
}
