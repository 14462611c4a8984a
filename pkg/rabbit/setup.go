package rabbit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpConnection adapts *amqp.Connection to Connection.
type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return amqpChannel{ch}, nil
}

// amqpChannel adapts *amqp.Channel to Channel.
type amqpChannel struct {
	*amqp.Channel
}

func (c amqpChannel) PublishConfirmed(ctx context.Context, exchange, key string, mandatory bool, msg amqp.Publishing) error {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, false, msg)
	if err != nil {
		return err
	}
	// nil when the channel is not in confirm mode
	if dc == nil {
		return nil
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrPublishNacked
	}
	return nil
}

// NewDialer returns a Dialer for cfg. It supports three connection modes:
//   - SSL with client certificates (full TLS authentication)
//   - SSL without client certificates (server authentication only)
//   - Plain AMQP (no SSL/TLS)
func NewDialer(cfg Config) Dialer {
	return func(ctx context.Context) (Connection, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, err := newConnection(cfg.ConnectionConfig)
		if err != nil {
			return nil, err
		}
		return amqpConnection{conn}, nil
	}
}

func connectionURL(cfg ConnectionConfig) string {
	scheme := "amqp"
	if cfg.IsSSLEnabled {
		scheme = "amqps"
	}

	// the virtual host is passed through amqp.Config
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.FormatUint(uint64(cfg.Port), 10)),
	}
	return u.String()
}

func newConnection(cfg ConnectionConfig) (*amqp.Connection, error) {
	amqpCfg := amqp.Config{
		Heartbeat:  cfg.Heartbeat,
		Vhost:      cfg.VHost,
		Properties: amqp.NewConnectionProperties(),
	}
	if cfg.ConnectionTimeout > 0 {
		amqpCfg.Dial = amqp.DefaultDial(cfg.ConnectionTimeout)
	}
	if cfg.ConnectionName != "" {
		amqpCfg.Properties.SetClientConnectionName(cfg.ConnectionName)
	}

	if cfg.IsSSLEnabled {
		tlsConfig, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		amqpCfg.TLSClientConfig = tlsConfig
	}

	conn, err := amqp.DialConfig(connectionURL(cfg), amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return conn, nil
}

func newTLSConfig(cfg ConnectionConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{ServerName: cfg.ServerName}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.UseCert {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

func closeQuietly(ctx context.Context, logger Logger, what string, c interface{ Close() error }) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.DebugWithContext(ctx, "error while closing "+what, err, nil)
	}
}
