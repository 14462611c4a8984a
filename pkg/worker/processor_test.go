package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Aleph-Alpha/llmworker/pkg/llm"
	"github.com/Aleph-Alpha/llmworker/pkg/logger"
	"github.com/Aleph-Alpha/llmworker/pkg/rabbit"
)

// fakeAcknowledger records how a delivery was settled.
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

func (a *fakeAcknowledger) settled() (acks, nacks int, requeue []bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acks, a.nacks, append([]bool(nil), a.requeue...)
}

type harness struct {
	completer *MockCompleter
	sink      *MockSink
	logs      *observer.ObservedLogs
	processor *Processor
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		completer: NewMockCompleter(ctrl),
		sink:      NewMockSink(ctrl),
		logs:      logs,
	}
	h.processor = NewProcessor(cfg, h.completer, h.sink, logger.NewFromZap(zap.New(core)), nil, nil)
	return h
}

func testConfig() Config {
	return Config{MaxAttempts: 5, RetryBaseDelay: time.Millisecond}
}

func delivery(ack amqp.Acknowledger, correlationID, body string) amqp.Delivery {
	return amqp.Delivery{
		Acknowledger:  ack,
		DeliveryTag:   7,
		CorrelationId: correlationID,
		Body:          []byte(body),
	}
}

const validBody = `{"ModelProvider":"openai","Model":"gpt-4o","Prompt":"hello","ReplyTo":"replies"}`

func TestHandleSuccessEnqueuesReplyThenAcks(t *testing.T) {
	h := newHarness(t, testConfig())
	ack := &fakeAcknowledger{}

	var got rabbit.OutputMessage
	gomock.InOrder(
		h.completer.EXPECT().Complete(gomock.Any(), llm.OpenAI, "gpt-4o", "hello").Return(`{"answer": 42,}`, nil),
		h.sink.EXPECT().Enqueue(gomock.Any()).Do(func(msg rabbit.OutputMessage) {
			acks, nacks, _ := ack.settled()
			assert.Zero(t, acks+nacks, "reply must be enqueued before the delivery is settled")
			got = msg
		}),
	)

	h.processor.Handle(context.Background(), delivery(ack, "corr-1", validBody))

	acks, nacks, _ := ack.settled()
	assert.Equal(t, 1, acks)
	assert.Zero(t, nacks)

	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, "replies", got.ReplyTo)
	assert.JSONEq(t, `{"LlmResponse":{"answer":42}}`, string(got.ResponseBody))
}

func TestHandleToleratesTrailingCommasInBody(t *testing.T) {
	h := newHarness(t, testConfig())
	ack := &fakeAcknowledger{}

	h.completer.EXPECT().Complete(gomock.Any(), llm.Claude, "claude-3", "hi").Return("plain text", nil)
	h.sink.EXPECT().Enqueue(gomock.Any()).Do(func(msg rabbit.OutputMessage) {
		assert.JSONEq(t, `{"LlmResponse":"plain text"}`, string(msg.ResponseBody))
	})

	body := `{
		"ModelProvider": "Claude",
		"Model": "claude-3",
		"Prompt": "hi",
		"ReplyTo": "replies",
	}`
	h.processor.Handle(context.Background(), delivery(ack, "corr-2", body))

	acks, _, _ := ack.settled()
	assert.Equal(t, 1, acks)
}

func TestHandleRejectsWithoutProviderCall(t *testing.T) {
	tests := []struct {
		name          string
		correlationID string
		body          string
		defaultModel  *string
	}{
		{name: "missing correlation id", correlationID: "", body: validBody},
		{name: "blank correlation id", correlationID: "   ", body: validBody},
		{name: "not json", correlationID: "c", body: `this is not json`},
		{name: "blank prompt", correlationID: "c", body: `{"ModelProvider":"openai","Prompt":" ","ReplyTo":"r"}`},
		{name: "missing reply to", correlationID: "c", body: `{"ModelProvider":"openai","Prompt":"p"}`},
		{name: "unknown provider", correlationID: "c", body: `{"ModelProvider":"llama","Prompt":"p","ReplyTo":"r"}`},
		{name: "no model and no default", correlationID: "c", body: `{"ModelProvider":"gemini","Prompt":"p","ReplyTo":"r"}`, defaultModel: new(string)},
		{name: "provider named timeout", correlationID: "c", body: `{"ModelProvider":"timeout","Prompt":"p","ReplyTo":"r"}`},
		{name: "provider named rate limit", correlationID: "c", body: `{"ModelProvider":"Rate Limit","Prompt":"p","ReplyTo":"r"}`},
		{name: "bare timeout body", correlationID: "c", body: `timeout`},
		{name: "unquoted timeout value", correlationID: "c", body: `{"Prompt": timeout}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			ack := &fakeAcknowledger{}
			if tt.defaultModel != nil {
				h.completer.EXPECT().DefaultModel(llm.Gemini).Return(*tt.defaultModel)
			}

			h.processor.Handle(context.Background(), delivery(ack, tt.correlationID, tt.body))

			acks, nacks, requeue := ack.settled()
			assert.Zero(t, acks)
			assert.Equal(t, 1, nacks)
			assert.Equal(t, []bool{false}, requeue)
			assert.Equal(t, 1, h.logs.FilterMessage("message rejected").Len())
		})
	}
}

func TestHandleUsesProviderDefaultModel(t *testing.T) {
	h := newHarness(t, testConfig())
	ack := &fakeAcknowledger{}

	h.completer.EXPECT().DefaultModel(llm.Mistral).Return("mistral-small")
	h.completer.EXPECT().Complete(gomock.Any(), llm.Mistral, "mistral-small", "p").Return("ok", nil)
	h.sink.EXPECT().Enqueue(gomock.Any())

	h.processor.Handle(context.Background(), delivery(ack, "c", `{"ModelProvider":"MISTRAL","Prompt":"p","ReplyTo":"r"}`))

	acks, _, _ := ack.settled()
	assert.Equal(t, 1, acks)
}

func TestHandleRetriesTransientFailures(t *testing.T) {
	h := newHarness(t, Config{MaxAttempts: 5, RetryBaseDelay: 10 * time.Millisecond})
	ack := &fakeAcknowledger{}

	transient := &llm.TransportError{Provider: llm.OpenAI, Err: errors.New("connection reset")}
	gomock.InOrder(
		h.completer.EXPECT().Complete(gomock.Any(), llm.OpenAI, "gpt-4o", "hello").Return("", transient).Times(2),
		h.completer.EXPECT().Complete(gomock.Any(), llm.OpenAI, "gpt-4o", "hello").Return("done", nil),
	)
	h.sink.EXPECT().Enqueue(gomock.Any())

	start := time.Now()
	h.processor.Handle(context.Background(), delivery(ack, "c", validBody))

	// 10ms after the first failure, 20ms after the second.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	acks, nacks, _ := ack.settled()
	assert.Equal(t, 1, acks)
	assert.Zero(t, nacks)
	assert.Equal(t, 2, h.logs.FilterMessage("completion attempt failed, retrying").Len())
}

func TestHandleRequeuesAfterRetriesExhausted(t *testing.T) {
	h := newHarness(t, testConfig())
	ack := &fakeAcknowledger{}

	upstream := &llm.UpstreamError{Provider: llm.OpenAI, StatusCode: 503, Body: "overloaded"}
	h.completer.EXPECT().Complete(gomock.Any(), llm.OpenAI, "gpt-4o", "hello").Return("", upstream).Times(5)

	h.processor.Handle(context.Background(), delivery(ack, "c", validBody))

	acks, nacks, requeue := ack.settled()
	assert.Zero(t, acks)
	assert.Equal(t, 1, nacks)
	assert.Equal(t, []bool{true}, requeue)

	entries := h.logs.FilterMessage("message processing failed, requeueing").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "completion retries exhausted")
}

func TestHandleDoesNotRetryPermanentFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	ack := &fakeAcknowledger{}

	notConfigured := llm.ErrProviderNotConfigured
	h.completer.EXPECT().Complete(gomock.Any(), llm.OpenAI, "gpt-4o", "hello").Return("", notConfigured).Times(1)

	h.processor.Handle(context.Background(), delivery(ack, "c", validBody))

	_, nacks, requeue := ack.settled()
	assert.Equal(t, 1, nacks)
	assert.Equal(t, []bool{false}, requeue)
}

func TestHandleAbandonsDeliveryOnCancellation(t *testing.T) {
	h := newHarness(t, Config{MaxAttempts: 5, RetryBaseDelay: time.Hour})
	ack := &fakeAcknowledger{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.completer.EXPECT().Complete(gomock.Any(), llm.OpenAI, "gpt-4o", "hello").
		DoAndReturn(func(context.Context, llm.Provider, string, string) (string, error) {
			cancel()
			return "", &llm.TransportError{Provider: llm.OpenAI, Err: errors.New("interrupted")}
		})

	done := make(chan struct{})
	go func() {
		h.processor.Handle(ctx, delivery(ack, "c", validBody))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Handle did not return after cancellation")
	}

	acks, nacks, _ := ack.settled()
	assert.Zero(t, acks)
	assert.Zero(t, nacks)
	assert.Equal(t, 1, h.logs.FilterMessage("processing interrupted by cancellation, leaving message for redelivery").Len())
}

func TestParseInputMessage(t *testing.T) {
	msg, err := ParseInputMessage([]byte(`{"ModelProvider":"grok","Prompt":"p","ReplyTo":"r","Model":"grok-2",}`))
	require.NoError(t, err)
	assert.Equal(t, InputMessage{ModelProvider: "grok", Model: "grok-2", Prompt: "p", ReplyTo: "r"}, msg)

	_, err = ParseInputMessage([]byte(`{"Prompt":`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestBuildResponseBody(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: `{"a":1}`, want: `{"LlmResponse":{"a":1}}`},
		{text: `[1, 2, 3,]`, want: `{"LlmResponse":[1,2,3]}`},
		{text: `Sure! Here you go.`, want: `{"LlmResponse":"Sure! Here you go."}`},
		{text: ``, want: `{"LlmResponse":""}`},
	}

	for _, tt := range tests {
		body, err := BuildResponseBody(tt.text)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(body), tt.text)
		assert.True(t, json.Valid(body))
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", &llm.TransportError{Provider: llm.Grok, Err: errors.New("eof")}, true},
		{"upstream", &llm.UpstreamError{Provider: llm.Grok, StatusCode: 500}, true},
		{"malformed", &llm.MalformedResponseError{Provider: llm.Grok, Reason: "empty"}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"rate limit text", errors.New("Rate Limit reached"), true},
		{"timeout text", errors.New("upstream TIMEOUT"), true},
		{"wrapped exhausted", errors.Join(ErrRetriesExhausted, &llm.TransportError{Err: errors.New("x")}), true},
		{"not configured", llm.ErrProviderNotConfigured, false},
		{"malformed message", ErrMalformedMessage, false},
		{"unknown provider mentioning timeout", fmt.Errorf("%w: %q", ErrUnknownProvider, "timeout"), false},
		{"malformed message mentioning rate limit", fmt.Errorf("%w: rate limit", ErrMalformedMessage), false},
		{"not configured mentioning timeout", fmt.Errorf("timeout: %w", llm.ErrProviderNotConfigured), false},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
