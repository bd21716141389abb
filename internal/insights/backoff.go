package insights

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackOff builds the jittered exponential delay schedule for one
// Execute call: base delay doubling per attempt, ±50% jitter, capped so a
// throttled burst cannot stall a dashboard request for long.
func (c *Client) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryBaseDelay
	bo.RandomizationFactor = 0.5
	bo.Multiplier = 2
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0 // the attempt ceiling bounds the loop, not wall time
	bo.Reset()
	return bo
}
