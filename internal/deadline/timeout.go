// Package deadline implements the combined connect/read/total timeout
// model: a Timeout is a policy, a Deadline is the concrete monotonic
// arithmetic derived from it at the start of one attempt. Deadlines are
// never implicitly restarted on retry — the retry controller decides
// whether to build a fresh Timeout for the next attempt.
package deadline

import (
	"time"

	"github.com/benbjohnson/clock"
)

// noDeadline marks a Timeout field as unset.
const noDeadline time.Duration = -1

// Timeout is the user-facing policy: each field is either unset (no bound)
// or a finite, non-negative duration.
type Timeout struct {
	Connect time.Duration // applies to each TCP connect attempt
	Read    time.Duration // applies to each individual socket read after connect
	Total   time.Duration // bounds the entire single-attempt request
}

// Unset constructs a field value meaning "no timeout."
func Unset() time.Duration { return noDeadline }

func isSet(d time.Duration) bool { return d >= 0 }

// DefaultTimeout is the conservative default most callers want: a bounded
// connect phase, unbounded reads, unbounded total.
var DefaultTimeout = Timeout{Connect: 10 * time.Second, Read: noDeadline, Total: noDeadline}

// defaultClock is the time source Start uses when given a nil clock; tests
// pass clock.NewMock() to Start instead to fast-forward without sleeping.
var defaultClock clock.Clock = clock.New()

// Start captures a Deadline at the current time using clk (or the package
// default clock if clk is nil).
func (t Timeout) Start(clk clock.Clock) *Deadline {
	if clk == nil {
		clk = defaultClock
	}
	d := &Deadline{timeout: t, clock: clk, start: clk.Now()}
	if isSet(t.Total) {
		ts := d.start.Add(t.Total)
		d.totalDeadline = &ts
	}
	return d
}

// Deadline is the concrete, monotonic arithmetic derived from a Timeout at
// the moment an attempt begins.
type Deadline struct {
	timeout       Timeout
	clock         clock.Clock
	start         time.Time
	totalDeadline *time.Time
}

// ReadTimeoutError reports a read that hit its deadline. This package only
// computes deadlines; the connection layer returns this error when a read
// under one of them times out.
type ReadTimeoutError struct {
	Phase string // "connect" or "read"
}

func (e *ReadTimeoutError) Error() string {
	return "urllib3: " + e.Phase + " timeout"
}

// TotalRemaining returns the time left under the Total budget, or nil if
// Total is unset. A non-positive remaining value means the next read must
// fail with ReadTimeoutError.
func (d *Deadline) TotalRemaining() *time.Duration {
	if d.totalDeadline == nil {
		return nil
	}
	rem := d.totalDeadline.Sub(d.clock.Now())
	return &rem
}

// ConnectTimeout returns the duration to allow for the next TCP connect
// attempt: min(Connect, total remaining), or whichever of the two is set.
func (d *Deadline) ConnectTimeout() (time.Duration, bool) {
	return d.combine(d.timeout.Connect)
}

// ReadTimeout returns the duration to allow for the next individual socket
// read: min(Read, total remaining), or whichever of the two is set.
func (d *Deadline) ReadTimeout() (time.Duration, bool) {
	return d.combine(d.timeout.Read)
}

func (d *Deadline) combine(phase time.Duration) (time.Duration, bool) {
	rem := d.TotalRemaining()
	switch {
	case !isSet(phase) && rem == nil:
		return 0, false
	case !isSet(phase):
		return clampNonNegative(*rem), true
	case rem == nil:
		return phase, true
	default:
		r := clampNonNegative(*rem)
		if phase < r {
			return phase, true
		}
		return r, true
	}
}

func clampNonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// deadlineFor returns the clock.Now()+dur deadline, or the zero time if !ok.
func (d *Deadline) deadlineFor(dur time.Duration, ok bool) time.Time {
	if !ok {
		return time.Time{}
	}
	return d.clock.Now().Add(dur)
}

// ConnectDeadlineTime returns the absolute deadline for a connect attempt,
// or the zero Time if there is no bound.
func (d *Deadline) ConnectDeadlineTime() time.Time {
	dur, ok := d.ConnectTimeout()
	return d.deadlineFor(dur, ok)
}

// ReadDeadlineTime returns the absolute deadline for the next read, or the
// zero Time if there is no bound.
func (d *Deadline) ReadDeadlineTime() time.Time {
	dur, ok := d.ReadTimeout()
	return d.deadlineFor(dur, ok)
}

// TotalDeadlineTime returns the absolute Total deadline, or the zero Time
// if Total is unset. Used for operations (like writing a request body)
// that have no dedicated phase budget, but which still must respect the
// overall single-attempt bound.
func (d *Deadline) TotalDeadlineTime() time.Time {
	if d.totalDeadline == nil {
		return time.Time{}
	}
	return *d.totalDeadline
}

// Expired reports whether the Total budget has already been exhausted.
func (d *Deadline) Expired() bool {
	rem := d.TotalRemaining()
	return rem != nil && *rem <= 0
}
