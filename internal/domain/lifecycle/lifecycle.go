// Package lifecycle holds process-wide timing constants shared by fx hooks.
package lifecycle

import "time"

// DefaultTimeout bounds startup pings and graceful shutdown of each component.
const DefaultTimeout = 10 * time.Second
