package sse

import "time"

// Config holds configuration for SSE connections
type Config struct {
	// KeepAliveInterval is how often to send keep-alive pings to prevent
	// idle-timeout disconnects by proxies in front of the server.
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default SSE configuration.
// 15 seconds stays under the common 30s proxy idle timeout.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 15 * time.Second,
	}
}
