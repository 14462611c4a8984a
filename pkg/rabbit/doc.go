// Package rabbit is the broker layer of the worker.
//
// Components:
//
//   - Supervisor owns the consuming connection. After an unsolicited close
//     it stops the pool, closes what is left and reconnects after
//     min(2^(failures-1) s, 60 s). The counter resets on every successful connect.
//   - Pool runs ChannelCount ConsumingChannels on that connection.
//   - ConsumingChannel consumes the durable input queue with prefetch 1 and
//     passes each delivery to the Handler, one at a time. A broker-side
//     channel close, consumer cancel or handler panic reopens only that
//     channel, with its own backoff.
//   - Publisher buffers replies in an unbounded FIFO and publishes them to
//     the default exchange, routing key ReplyTo, with publisher confirms,
//     over a dedicated connection.
//
// Only an unsolicited close (a non-nil *amqp.Error on NotifyClose), a
// consumer cancel or a handler panic count as a loss. Closing locally never
// triggers recovery.
//
// Configuration (environment, prefix RABBIT_):
//
//	RABBIT_HOST, RABBIT_PORT, RABBIT_USERNAME, RABBIT_PASSWORD, RABBIT_VHOST
//	RABBIT_SSL_ENABLED, RABBIT_USE_CERT, RABBIT_CA_CERT_PATH,
//	RABBIT_CLIENT_CERT_PATH, RABBIT_CLIENT_KEY_PATH, RABBIT_SERVER_NAME
//	RABBIT_QUEUE_NAME           input queue (default llm-requests)
//	RABBIT_CHANNEL_COUNT        consuming channels (default 10)
//	RABBIT_AUTOMATIC_RECOVERY   reconnect after loss (default true)
//	RABBIT_HEARTBEAT            default 60s
//	RABBIT_CONNECTION_TIMEOUT   default 30s
//	RABBIT_PUBLISHER_MAX_ATTEMPTS, RABBIT_PUBLISHER_RETRY_BASE_DELAY,
//	RABBIT_PUBLISHER_IDLE_INTERVAL, RABBIT_PUBLISHER_SHUTDOWN_FLUSH_TIMEOUT
//
// FX Integration:
//
//	app := fx.New(
//		rabbit.FXModule,
//		fx.Provide(func() rabbit.Config { return cfg }),
//		fx.Provide(func(p *worker.Processor) rabbit.Handler { return p }),
//	)
package rabbit
