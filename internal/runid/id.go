// Package runid provides unique identifiers for conversion runs.
package runid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generate creates a new unique run ID.
// Format: run-<timestamp>-<uuid prefix>
// Example: run-1701432000-a1b2c3d4
func Generate() string {
	timestamp := time.Now().Unix()
	u, err := uuid.NewRandom()
	if err != nil {
		// Fallback to timestamp only if the random source fails
		return fmt.Sprintf("run-%d", timestamp)
	}
	return fmt.Sprintf("run-%d-%s", timestamp, u.String()[:8])
}
