package retry

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Backoff computes the exponential backoff delay for the state's next
// attempt: min(backoff_max, backoff_factor *
// 2^(attempt-1)), plus uniform(0, backoff_jitter) if jitter is configured.
// randFloat01, if nil, defaults to math/rand's global source; tests inject
// a deterministic function.
func (s State) Backoff(randFloat01 func() float64) time.Duration {
	if s.policy.BackoffFactor <= 0 {
		return 0
	}
	if randFloat01 == nil {
		randFloat01 = rand.Float64
	}
	exp := math.Pow(2, float64(s.attempt-1))
	d := time.Duration(s.policy.BackoffFactor * exp * float64(time.Second))
	if s.policy.BackoffMax > 0 && d > s.policy.BackoffMax {
		d = s.policy.BackoffMax
	}
	if s.policy.BackoffJitter > 0 {
		d += time.Duration(randFloat01() * float64(s.policy.BackoffJitter))
	}
	return d
}

// ParseRetryAfter parses a Retry-After header value as either an integer
// number of seconds or an HTTP-date. A value that fails to parse at all is
// reported absent (ok=false, "use backoff instead"). A valid but
// past/non-positive value means "no wait" (ok=true, dur=0), i.e.
// max(retry_after - now, 0).
func ParseRetryAfter(value string, now time.Time) (dur time.Duration, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs <= 0 {
			return 0, true
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d <= 0 {
			return 0, true
		}
		return d, true
	}
	return 0, false
}

// capRetryAfter bounds a parsed Retry-After delay to backoffMax*2, preventing
// unbounded waits. A zero backoffMax means no cap is applied.
func capRetryAfter(d time.Duration, backoffMax time.Duration) time.Duration {
	if backoffMax <= 0 {
		return d
	}
	limit := backoffMax * 2
	if d > limit {
		return limit
	}
	return d
}
