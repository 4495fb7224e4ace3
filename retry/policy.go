// Package retry implements the retry/redirect decision matrix, exponential
// backoff, Retry-After parsing, and redirect method/header rewriting. A
// Policy is the immutable configuration; a State is the immutable,
// value-producing per-request budget — every transition returns a new
// State rather than mutating the receiver.
package retry

import (
	"net/http"
	"time"
)

// Policy is the fixed configuration for one request's retry behavior.
type Policy struct {
	Total, Connect, Read, Status, Redirect, Other int

	AllowedMethods  map[string]bool
	StatusForcelist map[int]bool

	BackoffFactor float64
	BackoffMax    time.Duration
	BackoffJitter time.Duration

	RespectRetryAfterHeader bool
	RemoveHeadersOnRedirect map[string]bool

	RaiseOnRedirect bool
	RaiseOnStatus   bool
}

// DefaultAllowedMethods is urllib3's classic idempotent-method set.
func DefaultAllowedMethods() map[string]bool {
	return map[string]bool{
		http.MethodGet: true, http.MethodHead: true, http.MethodPut: true,
		http.MethodDelete: true, http.MethodOptions: true, http.MethodTrace: true,
	}
}

// DefaultStatusForcelist is empty: status-based retry is opt-in.
func DefaultStatusForcelist() map[int]bool { return map[int]bool{} }

// DefaultRemoveHeadersOnRedirect strips credentials when the request is
// rewritten to a new host.
func DefaultRemoveHeadersOnRedirect() map[string]bool {
	return map[string]bool{"Authorization": true}
}

// DefaultPolicy mirrors urllib3's out-of-the-box Retry(): 3 total retries,
// 3 each for connect, read and redirect, 0 status and other retries
// (status retries are opt-in via StatusForcelist), no backoff.
func DefaultPolicy() Policy {
	return Policy{
		Total: 3, Connect: 3, Read: 3, Status: 0, Redirect: 3, Other: 0,
		AllowedMethods:          DefaultAllowedMethods(),
		StatusForcelist:         DefaultStatusForcelist(),
		RemoveHeadersOnRedirect: DefaultRemoveHeadersOnRedirect(),
		RespectRetryAfterHeader: true,
		RaiseOnRedirect:         true,
		RaiseOnStatus:           true,
	}
}

// State is the remaining per-request budget, one counter per category plus
// an accumulated history (total always decreases whenever any other
// category does). The zero State for a Policy is New(policy).
type State struct {
	policy Policy

	total, connect, read, status, redirect, other int

	attempt int // 1-indexed count of retries already taken
	history []Event
}

// Event records one retried attempt for MaxRetryError diagnostics.
type Event struct {
	Method string
	URL    string
	Error  error // nil if this attempt instead produced a Response
	Status int   // 0 if this attempt instead produced an Error
}

// New returns the initial State for policy.
func New(policy Policy) State {
	return State{
		policy:   policy,
		total:    policy.Total,
		connect:  policy.Connect,
		read:     policy.Read,
		status:   policy.Status,
		redirect: policy.Redirect,
		other:    policy.Other,
	}
}

// History returns the accumulated retry events, oldest first.
func (s State) History() []Event { return append([]Event(nil), s.history...) }

// Attempt returns the 1-indexed attempt number a just-decided retry will
// be.
func (s State) Attempt() int { return s.attempt }
