// Package config loads the application configuration from the environment
// with envconfig. Every package owns its own section; this package only
// assembles them under their prefixes (LOG_, TRACER_, METRICS_, RABBIT_,
// LLM_, WORKER_, HTTP_) and validates the result.
package config
