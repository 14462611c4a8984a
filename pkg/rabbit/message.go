package rabbit

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ContentTypeJSON is the content type of every reply.
const ContentTypeJSON = "application/json"

// OutputMessage is a reply waiting to be published. It is immutable once built.
type OutputMessage struct {
	CorrelationID string
	ReplyTo       string
	ResponseBody  []byte

	headers amqp.Table
}

// NewOutputMessage builds a reply. headers usually carry the trace context.
func NewOutputMessage(correlationID, replyTo string, body []byte, headers map[string]interface{}) OutputMessage {
	return OutputMessage{
		CorrelationID: correlationID,
		ReplyTo:       replyTo,
		ResponseBody:  body,
		headers:       amqp.Table(headers),
	}
}

// Headers returns the AMQP headers sent with the reply.
func (m OutputMessage) Headers() map[string]interface{} {
	return m.headers
}

// publishing converts the reply into an AMQP message for the default exchange.
func (m OutputMessage) publishing() amqp.Publishing {
	return amqp.Publishing{
		Headers:       m.headers,
		ContentType:   ContentTypeJSON,
		DeliveryMode:  amqp.Persistent,
		CorrelationId: m.CorrelationID,
		Timestamp:     time.Now(),
		Body:          m.ResponseBody,
	}
}
