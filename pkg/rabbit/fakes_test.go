package rabbit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Aleph-Alpha/llmworker/pkg/logger"
)

func newTestLogger(t *testing.T) (*logger.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.NewFromZap(zap.New(core)), logs
}

// recordingBackOff runs the reconnect schedule in milliseconds and keeps
// every interval it hands out.
type recordingBackOff struct {
	mu     sync.Mutex
	next   backoff.BackOff
	delays []time.Duration
}

func newRecordingBackOff() *recordingBackOff {
	return &recordingBackOff{next: newExponentialBackOff(time.Millisecond, 60*time.Millisecond)}
}

func (b *recordingBackOff) NextBackOff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.next.NextBackOff()
	b.delays = append(b.delays, d)
	return d
}

func (b *recordingBackOff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next.Reset()
}

func (b *recordingBackOff) seen() []time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Duration(nil), b.delays...)
}

// fakeConn is an in-memory Connection.
type fakeConn struct {
	mu          sync.Mutex
	closed      bool
	closeNotifs []chan *amqp.Error
	channels    []*fakeChannel
	channelErr  error
	publish     func(ctx context.Context, key string, msg amqp.Publishing) error
	opened      chan *fakeChannel
}

func newFakeConn() *fakeConn {
	return &fakeConn{opened: make(chan *fakeChannel, 64)}
}

func (c *fakeConn) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, amqp.ErrClosed
	}
	if c.channelErr != nil {
		return nil, c.channelErr
	}

	ch := newFakeChannel(c.publish)
	c.channels = append(c.channels, ch)
	c.opened <- ch
	return ch, nil
}

func (c *fakeConn) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(receiver)
		return receiver
	}
	c.closeNotifs = append(c.closeNotifs, receiver)
	return receiver
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() error {
	return c.shutdown(nil)
}

// breakWith simulates an unsolicited close by the broker.
func (c *fakeConn) breakWith(err *amqp.Error) {
	_ = c.shutdown(err)
}

func (c *fakeConn) shutdown(err *amqp.Error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return amqp.ErrClosed
	}
	c.closed = true
	notifs := c.closeNotifs
	c.closeNotifs = nil
	channels := append([]*fakeChannel(nil), c.channels...)
	c.mu.Unlock()

	for _, ch := range channels {
		ch.shutdown(err)
	}
	for _, n := range notifs {
		if err != nil {
			n <- err
		}
		close(n)
	}
	return nil
}

func (c *fakeConn) channelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

// nextChannel waits for the next channel opened on c.
func (c *fakeConn) nextChannel(t *testing.T) *fakeChannel {
	t.Helper()
	select {
	case ch := <-c.opened:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("no channel opened")
		return nil
	}
}

// fakeChannel is an in-memory Channel.
type fakeChannel struct {
	mu           sync.Mutex
	closed       bool
	deliveries   chan amqp.Delivery
	closeNotifs  []chan *amqp.Error
	cancelNotifs []chan string
	returnNotifs []chan amqp.Return

	prefetch    int
	queue       string
	durable     bool
	consumerTag string
	confirm     bool
	consuming   chan struct{}

	publish func(ctx context.Context, key string, msg amqp.Publishing) error
}

func newFakeChannel(publish func(ctx context.Context, key string, msg amqp.Publishing) error) *fakeChannel {
	return &fakeChannel{
		deliveries: make(chan amqp.Delivery, 16),
		consuming:  make(chan struct{}),
		publish:    publish,
	}
}

func (c *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefetch = prefetchCount
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue, c.durable = name, durable
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) Consume(_, consumer string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, amqp.ErrClosed
	}
	c.consumerTag = consumer
	close(c.consuming)
	return c.deliveries, nil
}

func (c *fakeChannel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(receiver)
		return receiver
	}
	c.closeNotifs = append(c.closeNotifs, receiver)
	return receiver
}

func (c *fakeChannel) NotifyCancel(receiver chan string) chan string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(receiver)
		return receiver
	}
	c.cancelNotifs = append(c.cancelNotifs, receiver)
	return receiver
}

func (c *fakeChannel) NotifyReturn(receiver chan amqp.Return) chan amqp.Return {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(receiver)
		return receiver
	}
	c.returnNotifs = append(c.returnNotifs, receiver)
	return receiver
}

func (c *fakeChannel) Confirm(bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = true
	return nil
}

func (c *fakeChannel) PublishConfirmed(ctx context.Context, _, key string, _ bool, msg amqp.Publishing) error {
	if c.IsClosed() {
		return amqp.ErrClosed
	}
	if c.publish == nil {
		return nil
	}
	return c.publish(ctx, key, msg)
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) Close() error {
	c.shutdown(nil)
	return nil
}

// breakWith simulates a broker-side channel close.
func (c *fakeChannel) breakWith(err *amqp.Error) {
	c.shutdown(err)
}

// cancelConsumer simulates a broker-side basic.cancel.
func (c *fakeChannel) cancelConsumer() {
	c.mu.Lock()
	notifs := c.cancelNotifs
	tag := c.consumerTag
	c.mu.Unlock()
	for _, n := range notifs {
		n <- tag
	}
}

func (c *fakeChannel) shutdown(err *amqp.Error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	closeNotifs, cancelNotifs, returnNotifs := c.closeNotifs, c.cancelNotifs, c.returnNotifs
	c.closeNotifs, c.cancelNotifs, c.returnNotifs = nil, nil, nil
	c.mu.Unlock()

	for _, n := range closeNotifs {
		if err != nil {
			n <- err
		}
		close(n)
	}
	for _, n := range cancelNotifs {
		close(n)
	}
	for _, n := range returnNotifs {
		close(n)
	}
	close(c.deliveries)
}

func (c *fakeChannel) waitConsuming(t *testing.T) {
	t.Helper()
	select {
	case <-c.consuming:
	case <-time.After(2 * time.Second):
		t.Fatal("channel never started consuming")
	}
}

func (c *fakeChannel) deliver(body string, ack *fakeAcknowledger) {
	c.deliveries <- amqp.Delivery{
		Acknowledger:  ack,
		DeliveryTag:   1,
		CorrelationId: "corr-" + body,
		Body:          []byte(body),
	}
}

// fakeAcknowledger records how deliveries were settled.
type fakeAcknowledger struct {
	mu      sync.Mutex
	acks    int
	nacks   int
	requeue []bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acks, a.nacks
}

// dialSequence hands out the given connections in order, then errors.
type dialSequence struct {
	mu    sync.Mutex
	conns []*fakeConn
	errs  []error
	calls int
}

func (d *dialSequence) dial(ctx context.Context) (Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.conns) && d.conns[i] != nil {
		return d.conns[i], nil
	}
	return nil, ErrConnectionFailed
}

func (d *dialSequence) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
