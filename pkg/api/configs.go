package api

import "time"

// Config controls the synchronous HTTP surface.
type Config struct {
	// Address is the listen address of the HTTP server
	Address string `envconfig:"ADDRESS" default:":8080"`

	// Enabled turns the HTTP surface on. The queue worker runs either way.
	Enabled bool `envconfig:"ENABLED" default:"true"`

	// MaxBodyBytes caps the size of request bodies
	MaxBodyBytes int64 `envconfig:"MAX_BODY_BYTES" default:"1048576"`

	// RequestTimeout bounds a single send-message call, provider time included
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"120s"`

	// ReadHeaderTimeout bounds reading request headers
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"10s"`
}
