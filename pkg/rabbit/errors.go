package rabbit

import (
	"errors"
	"net"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrConnectionFailed is returned when a connection to RabbitMQ cannot be established
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost is returned when the broker closes the connection unexpectedly
	ErrConnectionLost = errors.New("connection lost")

	// ErrConnectionClosed is returned when the connection was closed by the broker operator
	ErrConnectionClosed = errors.New("connection closed")

	// ErrChannelClosed is returned when a channel is closed by the broker
	ErrChannelClosed = errors.New("channel closed")

	// ErrConsumerCanceled is returned when the broker cancels a consumer, e.g. because its queue was deleted
	ErrConsumerCanceled = errors.New("consumer canceled by broker")

	// ErrDeliveryStreamClosed is returned when the delivery channel closes without a close notification
	ErrDeliveryStreamClosed = errors.New("delivery stream closed")

	// ErrHandlerPanic is returned when the message handler panics
	ErrHandlerPanic = errors.New("message handler panicked")

	// ErrAccessDenied is returned when access is denied to a resource
	ErrAccessDenied = errors.New("access denied")

	// ErrVirtualHostNotFound is returned when the virtual host does not exist
	ErrVirtualHostNotFound = errors.New("virtual host not found")

	// ErrQueueNotFound is returned when a queue or exchange does not exist
	ErrQueueNotFound = errors.New("queue not found")

	// ErrPreconditionFailed is returned when a queue is redeclared with different properties
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrResourceLocked is returned when an exclusive resource is held by another connection
	ErrResourceLocked = errors.New("resource locked")

	// ErrPublishNacked is returned when the broker negatively confirms a publish
	ErrPublishNacked = errors.New("publish not confirmed by broker")

	// ErrUnroutable is returned when the broker cannot route a mandatory publish
	ErrUnroutable = errors.New("message unroutable")

	// ErrMessageTooLarge is returned when a message exceeds the broker's frame limit
	ErrMessageTooLarge = errors.New("message too large")

	// ErrNetworkTimeout is returned for network timeouts
	ErrNetworkTimeout = errors.New("network timeout")

	// ErrNetwork is returned for other network failures
	ErrNetwork = errors.New("network error")
)

// TranslateError maps AMQP and network errors onto the package sentinels.
// Unknown errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return translateAMQPError(amqpErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrNetworkTimeout
		}
		return ErrNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return ErrConnectionFailed
	case strings.Contains(msg, "channel/connection is not open"):
		return ErrChannelClosed
	}
	return err
}

func translateAMQPError(amqpErr *amqp.Error) error {
	switch amqpErr.Code {
	case amqp.ConnectionForced:
		return ErrConnectionClosed
	case amqp.InvalidPath:
		return ErrVirtualHostNotFound
	case amqp.NotFound:
		return ErrQueueNotFound
	case amqp.AccessRefused:
		return ErrAccessDenied
	case amqp.ResourceLocked:
		return ErrResourceLocked
	case amqp.PreconditionFailed:
		return ErrPreconditionFailed
	case amqp.ContentTooLarge:
		return ErrMessageTooLarge
	case amqp.NoRoute:
		return ErrUnroutable
	case amqp.ChannelError:
		return ErrChannelClosed
	}

	if amqpErr.Server {
		return ErrConnectionLost
	}
	return amqpErr
}

// errorFields returns log fields describing err.
func errorFields(err error, fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if err == nil {
		return fields
	}
	if translated := TranslateError(err); translated != err {
		fields["category"] = translated.Error()
	}
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		fields["amqp_code"] = amqpErr.Code
		fields["amqp_reason"] = amqpErr.Reason
	}
	return fields
}
