package metrics

// Config holds configuration for the Prometheus endpoint.
type Config struct {
	// Enabled toggles request and storage instrumentation.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Path is the route serving the exposition format.
	Path string `mapstructure:"path" default:"/metrics"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace" default:"oss_manager"`
}

// Route returns the metrics path, falling back to /metrics.
func (c Config) Route() string {
	if c.Path == "" {
		return "/metrics"
	}
	return c.Path
}
