package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// startupTimeout bounds the backend calls a provider makes while
	// opening: migrations, hydration and the session restore.
	startupTimeout = 30 * time.Second
)
