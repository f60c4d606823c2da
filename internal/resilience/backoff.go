package resilience

import (
	"math/rand"
	"time"
)

// MaxBackoff caps the delay between retries.
const MaxBackoff = 10 * time.Second

// Backoff returns an exponential backoff duration for the provided attempt,
// capped at MaxBackoff. Jitter is expressed as a fraction (e.g. 0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt && d < MaxBackoff; i++ {
		d *= 2
	}
	if d > MaxBackoff {
		d = MaxBackoff
	}
	if jitterPct <= 0 {
		return d
	}
	if jitterPct > 1 {
		jitterPct = 1
	}
	jitter := float64(d) * jitterPct
	delta := (rand.Float64()*2 - 1) * jitter
	return d + time.Duration(delta)
}
