package retry

import (
	"time"

	"github.com/pkg/errors"

	"github.com/urllib3/urllib3-go/header"
)

// Action is what the caller should do after a Decide* call.
type Action int

const (
	// ActionReturn means hand the outcome back to the caller as final.
	ActionReturn Action = iota
	// ActionRetry means sleep Decision.Sleep then attempt again using
	// Decision.Next as the new State.
	ActionRetry
	// ActionRedirect is like ActionRetry but for 3xx responses: Decision.Next
	// carries the decremented redirect/total budget and no sleep applies.
	ActionRedirect
	// ActionExhausted means the relevant budget category (or total) would
	// go negative; the caller must raise MaxRetryError.
	ActionExhausted
)

// Decision is the result of evaluating one outcome against a State.
type Decision struct {
	Action Action
	Next   State
	Sleep  time.Duration
}

// ErrBudgetExhausted is a sentinel for callers of this package that want a
// generic error for ActionExhausted; History() on the State captures the
// attempts leading up to it. The root package's MaxRetryError does not use
// it: it wraps the last attempt's error or a summary of the final status.
var ErrBudgetExhausted = errors.New("urllib3: retry budget exhausted")

func (s State) recordError(method, url string, err error) State {
	s.history = append(append([]Event(nil), s.history...), Event{Method: method, URL: url, Error: err})
	return s
}

func (s State) recordStatus(method, url string, status int) State {
	s.history = append(append([]Event(nil), s.history...), Event{Method: method, URL: url, Status: status})
	return s
}

// DecideConnectError evaluates a connect-phase failure.
func (s State) DecideConnectError(method, url string, cause error) Decision {
	if s.connect <= 0 || s.total <= 0 {
		return Decision{Action: ActionExhausted, Next: s.recordError(method, url, cause)}
	}
	next := s
	next.connect--
	next.total--
	next.attempt++
	next = next.recordError(method, url, cause)
	return Decision{Action: ActionRetry, Next: next, Sleep: next.Backoff(nil)}
}

// DecideReadError evaluates a read-phase timeout/protocol error (row 2):
// only retried if method is in AllowedMethods.
func (s State) DecideReadError(method, url string, cause error) Decision {
	if s.read <= 0 || s.total <= 0 || !s.policy.AllowedMethods[method] {
		return Decision{Action: ActionExhausted, Next: s.recordError(method, url, cause)}
	}
	next := s
	next.read--
	next.total--
	next.attempt++
	next = next.recordError(method, url, cause)
	return Decision{Action: ActionRetry, Next: next, Sleep: next.Backoff(nil)}
}

// DecideOtherError evaluates any other I/O failure before the request was
// fully sent (row 3).
func (s State) DecideOtherError(method, url string, cause error) Decision {
	if s.other <= 0 || s.total <= 0 {
		return Decision{Action: ActionExhausted, Next: s.recordError(method, url, cause)}
	}
	next := s
	next.other--
	next.total--
	next.attempt++
	next = next.recordError(method, url, cause)
	return Decision{Action: ActionRetry, Next: next, Sleep: next.Backoff(nil)}
}

// DecideStatus evaluates a response status against status_forcelist (row
// 4). now is the clock used to evaluate a Retry-After HTTP-date.
func (s State) DecideStatus(method, url string, status int, h *header.Bag, now time.Time) Decision {
	if !s.policy.StatusForcelist[status] || !s.policy.AllowedMethods[method] {
		return Decision{Action: ActionReturn, Next: s}
	}
	if s.status <= 0 || s.total <= 0 {
		return Decision{Action: ActionExhausted, Next: s.recordStatus(method, url, status)}
	}
	next := s
	next.status--
	next.total--
	next.attempt++
	next = next.recordStatus(method, url, status)

	sleep := next.Backoff(nil)
	if s.policy.RespectRetryAfterHeader && h != nil {
		if ra := h.Get("Retry-After"); ra != "" {
			if d, ok := ParseRetryAfter(ra, now); ok {
				sleep = capRetryAfter(d, s.policy.BackoffMax)
			}
		}
	}
	return Decision{Action: ActionRetry, Next: next, Sleep: sleep}
}

// DecideRedirect evaluates a 3xx response for redirect eligibility (row 5).
// Returns ActionReturn for anything outside {301,302,303,307,308},
// ActionExhausted when the redirect or total budget is already used up
// (including a Policy with Redirect == 0), and ActionRedirect with the
// decremented budget otherwise.
func (s State) DecideRedirect(method, url string, status int) Decision {
	if !isRedirectStatus(status) {
		return Decision{Action: ActionReturn, Next: s}
	}
	if s.redirect <= 0 || s.total <= 0 {
		return Decision{Action: ActionExhausted, Next: s.recordStatus(method, url, status)}
	}
	next := s
	next.redirect--
	next.total--
	next.attempt++
	next = next.recordStatus(method, url, status)
	return Decision{Action: ActionRedirect, Next: next}
}

func isRedirectStatus(status int) bool {
	switch status {
	case 301, 302, 303, 307, 308:
		return true
	default:
		return false
	}
}
