package live

import "github.com/okian/ladder/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithAllowedOrigins restricts which browser origins may connect.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = allowOrigins(origins)
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
