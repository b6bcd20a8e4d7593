// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection command rate limit (sliding window)
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Default window for GET /api/history
	DefaultHistorySeconds = 60

	// Write timeout for broadcast messages
	BroadcastWriteTimeout = 5 * time.Second
)
