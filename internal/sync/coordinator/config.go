package coordinator

import (
	"math/rand/v2"
	"time"
)

// jitterFraction is the share of the poll interval used as maximum offset
const jitterFraction = 4

// pollingInterval returns base with a random offset of up to ±base/4 so that
// replicas sharing a trigger store do not poll in lockstep
func pollingInterval(base time.Duration) time.Duration {
	jitter := base / jitterFraction
	if jitter <= 0 {
		return base
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	offset := time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	return base + offset
}
