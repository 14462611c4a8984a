package rabbit

import "time"

// Config defines the top-level configuration of the broker layer. The
// embedded sections share the RABBIT_ prefix; publisher settings live
// under RABBIT_PUBLISHER_.
type Config struct {
	ConnectionConfig
	ConsumerConfig

	Publisher PublisherConfig `envconfig:"PUBLISHER"`
}

// ConnectionConfig contains the parameters needed to reach the RabbitMQ
// server, including authentication and TLS settings.
type ConnectionConfig struct {
	// Host is the RabbitMQ server hostname or IP address
	Host string `envconfig:"HOST" default:"localhost"`

	// Port is the RabbitMQ server port (typically 5672 for non-SSL, 5671 for SSL)
	Port uint `envconfig:"PORT" default:"5672"`

	// User is the RabbitMQ username for authentication
	User string `envconfig:"USERNAME" default:"guest"`

	// Password is the RabbitMQ password for authentication
	Password string `envconfig:"PASSWORD" default:"guest"`

	// VHost is the virtual host to open
	VHost string `envconfig:"VHOST" default:"/"`

	// IsSSLEnabled switches the connection to amqps
	IsSSLEnabled bool `envconfig:"SSL_ENABLED" default:"false"`

	// UseCert sends a client certificate for mutual TLS
	UseCert bool `envconfig:"USE_CERT" default:"false"`

	// CACertPath is the CA bundle used to verify the server
	CACertPath string `envconfig:"CA_CERT_PATH"`

	// ClientCertPath and ClientKeyPath locate the client key pair when UseCert is set
	ClientCertPath string `envconfig:"CLIENT_CERT_PATH"`
	ClientKeyPath  string `envconfig:"CLIENT_KEY_PATH"`

	// ServerName must match a CN or SAN in the server's certificate
	ServerName string `envconfig:"SERVER_NAME"`

	// AutomaticRecovery makes the supervisor reconnect after an unsolicited
	// close. When false, the first connection loss stops the worker.
	AutomaticRecovery bool `envconfig:"AUTOMATIC_RECOVERY" default:"true"`

	// Heartbeat is the negotiated AMQP heartbeat interval
	Heartbeat time.Duration `envconfig:"HEARTBEAT" default:"60s"`

	// ConnectionTimeout bounds the TCP and AMQP handshake
	ConnectionTimeout time.Duration `envconfig:"CONNECTION_TIMEOUT" default:"30s"`

	// ConnectionName is reported to the broker as the client-provided name
	ConnectionName string `envconfig:"CONNECTION_NAME" default:"llmworker"`
}

// ConsumerConfig controls the consuming channel pool.
type ConsumerConfig struct {
	// QueueName is the durable input queue
	QueueName string `envconfig:"QUEUE_NAME" default:"llm-requests"`

	// ChannelCount is the number of consuming channels, and therefore the
	// maximum number of deliveries processed at once
	ChannelCount int `envconfig:"CHANNEL_COUNT" default:"10"`

	// ConsumerTagPrefix starts every consumer tag
	ConsumerTagPrefix string `envconfig:"CONSUMER_TAG_PREFIX" default:"llmworker"`
}

// PublisherConfig controls the reply publisher.
type PublisherConfig struct {
	// MaxAttempts is the number of publish attempts of one reply before it
	// is moved to the back of the buffer
	MaxAttempts int `envconfig:"MAX_ATTEMPTS" default:"5"`

	// RetryBaseDelay is the wait after the first failed attempt; it doubles per attempt
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"2s"`

	// IdleInterval is how long the drain loop sleeps when the buffer is empty
	IdleInterval time.Duration `envconfig:"IDLE_INTERVAL" default:"1s"`

	// ShutdownFlushTimeout bounds the best-effort flush on shutdown; 0 disables it
	ShutdownFlushTimeout time.Duration `envconfig:"SHUTDOWN_FLUSH_TIMEOUT" default:"5s"`
}
