package storage

import "errors"

// Config holds configuration for the storage provider.
type Config struct {
	// Enabled gates whether the storage component is constructed at all.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:""`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:""`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:""`
	// Region is the location of the buckets (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// DefaultBucket is informational only; the facade always takes an explicit bucket.
	DefaultBucket string `mapstructure:"default_bucket" default:""`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

var (
	ErrMissingEndpoint  = errors.New("storage: endpoint must not be empty")
	ErrMissingAccessKey = errors.New("storage: access key must not be empty")
	ErrMissingSecretKey = errors.New("storage: secret key must not be empty")
)

// Validate reports the first required setting that is missing.
func (c Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return ErrMissingEndpoint
	case c.AccessKey == "":
		return ErrMissingAccessKey
	case c.SecretKey == "":
		return ErrMissingSecretKey
	}
	return nil
}
