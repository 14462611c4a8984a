package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/Aleph-Alpha/llmworker/pkg/api"
	"github.com/Aleph-Alpha/llmworker/pkg/llm"
	"github.com/Aleph-Alpha/llmworker/pkg/logger"
	"github.com/Aleph-Alpha/llmworker/pkg/metrics"
	"github.com/Aleph-Alpha/llmworker/pkg/rabbit"
	"github.com/Aleph-Alpha/llmworker/pkg/tracer"
	"github.com/Aleph-Alpha/llmworker/pkg/worker"
)

// Config is the root configuration. Each section reads the environment
// under its own prefix, e.g. RABBIT_HOST or LLM_OPENAI_API_KEY.
type Config struct {
	Logger  logger.Config  `envconfig:"LOG"`
	Tracer  tracer.Config  `envconfig:"TRACER"`
	Metrics metrics.Config `envconfig:"METRICS"`
	Rabbit  rabbit.Config  `envconfig:"RABBIT"`
	LLM     llm.Config     `envconfig:"LLM"`
	Worker  worker.Config  `envconfig:"WORKER"`
	HTTP    api.Config     `envconfig:"HTTP"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the application cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Rabbit.Host == "" {
		errs = append(errs, errors.New("RABBIT_HOST must not be empty"))
	}
	if c.Rabbit.QueueName == "" {
		errs = append(errs, errors.New("RABBIT_QUEUE_NAME must not be empty"))
	}
	if c.Rabbit.ChannelCount < 1 {
		errs = append(errs, fmt.Errorf("RABBIT_CHANNEL_COUNT must be at least 1, got %d", c.Rabbit.ChannelCount))
	}
	if c.Rabbit.Publisher.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RABBIT_PUBLISHER_MAX_ATTEMPTS must be at least 1, got %d", c.Rabbit.Publisher.MaxAttempts))
	}
	if c.Rabbit.IsSSLEnabled && c.Rabbit.UseCert && (c.Rabbit.ClientCertPath == "" || c.Rabbit.ClientKeyPath == "") {
		errs = append(errs, errors.New("RABBIT_CLIENT_CERT_PATH and RABBIT_CLIENT_KEY_PATH are required when RABBIT_USE_CERT is set"))
	}
	if c.Worker.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("WORKER_MAX_ATTEMPTS must be at least 1, got %d", c.Worker.MaxAttempts))
	}
	if c.Worker.RetryBaseDelay < 0 {
		errs = append(errs, fmt.Errorf("WORKER_RETRY_BASE_DELAY must not be negative, got %s", c.Worker.RetryBaseDelay))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
