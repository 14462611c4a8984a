package rabbit

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Logger is the context-aware structured logger used by the broker layer.
type Logger interface {
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Handler processes one delivery and settles it (ack or nack). A handler that
// returns without settling leaves the delivery to be redelivered once the
// channel closes.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, d amqp.Delivery)

// Handle calls f(ctx, d).
func (f HandlerFunc) Handle(ctx context.Context, d amqp.Delivery) { f(ctx, d) }

// Connection is the part of an AMQP connection the supervisor and publisher use.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// Channel is the part of an AMQP channel the consumers and publisher use.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	NotifyCancel(receiver chan string) chan string
	NotifyReturn(receiver chan amqp.Return) chan amqp.Return
	Confirm(noWait bool) error

	// PublishConfirmed publishes msg and, when the channel is in confirm
	// mode, blocks until the broker acknowledges it.
	PublishConfirmed(ctx context.Context, exchange, key string, mandatory bool, msg amqp.Publishing) error

	IsClosed() bool
	Close() error
}

// Dialer opens a new broker connection.
type Dialer func(ctx context.Context) (Connection, error)
