package rabbit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishRecorder struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	failures  map[string]int
}

func (r *publishRecorder) publish(_ context.Context, key string, msg amqp.Publishing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failures[msg.CorrelationId] > 0 {
		r.failures[msg.CorrelationId]--
		return errors.New("confirm timeout")
	}
	r.published = append(r.published, msg)
	r.keys = append(r.keys, key)
	return nil
}

func (r *publishRecorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.published))
	for _, p := range r.published {
		out = append(out, p.CorrelationId)
	}
	return out
}

// connFactory dials a fresh fakeConn on every call.
type connFactory struct {
	mu      sync.Mutex
	publish func(ctx context.Context, key string, msg amqp.Publishing) error
	conns   []*fakeConn
}

func (f *connFactory) dial(context.Context) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := newFakeConn()
	c.publish = f.publish
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *connFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func newTestPublisher(t *testing.T, dial Dialer, maxAttempts int) *Publisher {
	t.Helper()
	log, _ := newTestLogger(t)
	return NewPublisher(Config{Publisher: PublisherConfig{
		MaxAttempts:          maxAttempts,
		RetryBaseDelay:       time.Millisecond,
		IdleInterval:         5 * time.Millisecond,
		ShutdownFlushTimeout: time.Second,
	}}, dial, log, nil)
}

func TestPublisherPublishesInOrder(t *testing.T) {
	rec := &publishRecorder{}
	factory := &connFactory{publish: rec.publish}
	p := newTestPublisher(t, factory.dial, 5)

	p.Enqueue(NewOutputMessage("c1", "reply-a", []byte(`{"LlmResponse":1}`), map[string]interface{}{"traceparent": "x"}))
	p.Enqueue(NewOutputMessage("c2", "reply-b", []byte(`{"LlmResponse":2}`), nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.ids()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, waitErr(t, done))

	assert.Equal(t, []string{"c1", "c2"}, rec.ids())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"reply-a", "reply-b"}, rec.keys)
	first := rec.published[0]
	assert.Equal(t, ContentTypeJSON, first.ContentType)
	assert.Equal(t, amqp.Persistent, first.DeliveryMode)
	assert.Equal(t, "x", first.Headers["traceparent"])
	assert.JSONEq(t, `{"LlmResponse":1}`, string(first.Body))

	assert.Equal(t, 1, factory.count(), "a healthy connection is reused")
	factory.conns[0].mu.Lock()
	assert.True(t, factory.conns[0].channels[0].confirm)
	factory.conns[0].mu.Unlock()
}

func TestPublisherRetriesSameMessageInPlace(t *testing.T) {
	rec := &publishRecorder{failures: map[string]int{"c1": 2}}
	factory := &connFactory{publish: rec.publish}
	p := newTestPublisher(t, factory.dial, 5)

	p.Enqueue(NewOutputMessage("c1", "r", nil, nil))
	p.Enqueue(NewOutputMessage("c2", "r", nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.ids()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, waitErr(t, done))

	assert.Equal(t, []string{"c1", "c2"}, rec.ids(), "order preserved across in-place retries")
	assert.Equal(t, 3, factory.count(), "connection is dropped after every failure")
}

func TestPublisherRequeuesAtTailAfterExhaustion(t *testing.T) {
	rec := &publishRecorder{failures: map[string]int{"bad": 2}}
	factory := &connFactory{publish: rec.publish}
	p := newTestPublisher(t, factory.dial, 2)

	p.Enqueue(NewOutputMessage("bad", "r", nil, nil))
	p.Enqueue(NewOutputMessage("good", "r", nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.ids()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, waitErr(t, done))

	assert.Equal(t, []string{"good", "bad"}, rec.ids(), "exhausted reply moves to the tail, never dropped or duplicated")
	assert.Equal(t, 0, p.Len())
}

func TestPublisherFlushesOnShutdown(t *testing.T) {
	rec := &publishRecorder{}
	factory := &connFactory{publish: rec.publish}
	p := newTestPublisher(t, factory.dial, 5)

	for _, id := range []string{"a", "b", "c"} {
		p.Enqueue(NewOutputMessage(id, "r", nil, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))

	assert.Equal(t, []string{"a", "b", "c"}, rec.ids())
	assert.Equal(t, 0, p.Len())
}

func TestPublisherReportsLostRepliesOnShutdown(t *testing.T) {
	failing := func(context.Context, string, amqp.Publishing) error { return errors.New("broker down") }
	factory := &connFactory{publish: failing}

	log, logs := newTestLogger(t)
	p := NewPublisher(Config{Publisher: PublisherConfig{MaxAttempts: 1, ShutdownFlushTimeout: time.Second}}, factory.dial, log, nil)
	p.Enqueue(NewOutputMessage("x", "r", nil, nil))
	p.Enqueue(NewOutputMessage("y", "r", nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))

	entries := logs.FilterMessage("output publisher stopped with unpublished replies").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].ContextMap()["count"])
	assert.Equal(t, 0, p.Len())
}

func TestPublisherEnqueueNeverBlocks(t *testing.T) {
	p := newTestPublisher(t, (&dialSequence{}).dial, 1)

	for i := 0; i < 10000; i++ {
		p.Enqueue(NewOutputMessage("id", "r", nil, nil))
	}
	assert.Equal(t, 10000, p.Len())
}
