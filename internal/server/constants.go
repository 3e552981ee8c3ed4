// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection rate limiting of client messages
	RateLimitMessages = 20          // Max messages per window
	RateLimitWindow   = time.Second // Sliding window duration

	// Outbound queue per client; frames beyond it are dropped
	ClientQueueSize = 8
	WriteTimeout    = 2 * time.Second

	// Broadcast dedup: frames whose dHash is within MaxHashDistance of the
	// last sent frame are skipped
	MaxHashDistance   = 0
	DefaultForceEvery = 30 // frames

	MaxRequestBody = 4 << 10
)
