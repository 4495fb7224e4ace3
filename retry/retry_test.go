package retry

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urllib3/urllib3-go/header"
)

func TestDecideConnectErrorRetriesThenExhausts(t *testing.T) {
	p := DefaultPolicy()
	p.Connect = 1
	p.Total = 5
	s := New(p)

	d1 := s.DecideConnectError("GET", "http://x/", assertErr("boom"))
	require.Equal(t, ActionRetry, d1.Action)
	assert.Equal(t, 0, d1.Next.connect)
	assert.Equal(t, 1, d1.Next.attempt)

	d2 := d1.Next.DecideConnectError("GET", "http://x/", assertErr("boom again"))
	assert.Equal(t, ActionExhausted, d2.Action)
	assert.Len(t, d2.Next.History(), 2)
}

func TestDecideReadErrorRequiresAllowedMethod(t *testing.T) {
	p := DefaultPolicy()
	s := New(p)
	d := s.DecideReadError("POST", "http://x/", assertErr("timeout"))
	assert.Equal(t, ActionExhausted, d.Action, "POST is not in the default allowed-methods set")

	d2 := s.DecideReadError("GET", "http://x/", assertErr("timeout"))
	assert.Equal(t, ActionRetry, d2.Action)
}

func TestDecideStatusForcelistAndBackoff(t *testing.T) {
	p := DefaultPolicy()
	p.Status = 2
	p.StatusForcelist = map[int]bool{503: true}
	p.BackoffFactor = 1
	p.BackoffMax = 10 * time.Second
	s := New(p)

	d := s.DecideStatus("GET", "http://x/", 503, header.NewBag(), time.Now())
	require.Equal(t, ActionRetry, d.Action)
	assert.Equal(t, 1*time.Second, d.Sleep, "backoff_factor=1, attempt=1 -> 1*2^0=1s")

	d2 := d.Next.DecideStatus("GET", "http://x/", 503, header.NewBag(), time.Now())
	assert.Equal(t, 2*time.Second, d2.Sleep, "attempt=2 -> 1*2^1=2s")
}

func TestDecideStatusRespectsRetryAfterHeader(t *testing.T) {
	p := DefaultPolicy()
	p.Status = 1
	p.StatusForcelist = map[int]bool{429: true}
	p.RespectRetryAfterHeader = true
	s := New(p)

	h := header.NewBag()
	h.Set("Retry-After", "5")
	d := s.DecideStatus("GET", "http://x/", 429, h, time.Now())
	assert.Equal(t, 5*time.Second, d.Sleep)
}

func TestDecideStatusIgnoredOutsideForcelist(t *testing.T) {
	p := DefaultPolicy()
	s := New(p)
	d := s.DecideStatus("GET", "http://x/", 500, header.NewBag(), time.Now())
	assert.Equal(t, ActionReturn, d.Action)
}

func TestParseRetryAfterIntegerSeconds(t *testing.T) {
	d, ok := ParseRetryAfter("120", time.Now())
	require.True(t, ok)
	assert.Equal(t, 120*time.Second, d)
}

func TestParseRetryAfterPastDateMeansNoWait(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour).Format(http.TimeFormat)
	d, ok := ParseRetryAfter(past, now)
	require.True(t, ok, "a valid but past HTTP-date is absent-wait, not invalid")
	assert.Equal(t, time.Duration(0), d)
}

func TestParseRetryAfterInvalidIsAbsent(t *testing.T) {
	_, ok := ParseRetryAfter("not-a-value", time.Now())
	assert.False(t, ok)
}

func TestDecideRedirectBudget(t *testing.T) {
	p := DefaultPolicy()
	p.Redirect = 1
	s := New(p)

	d := s.DecideRedirect("GET", "http://x/", 302)
	require.Equal(t, ActionRedirect, d.Action)
	assert.Equal(t, 0, d.Next.redirect)

	d2 := d.Next.DecideRedirect("GET", "http://x/", 302)
	assert.Equal(t, ActionExhausted, d2.Action)
}

func TestDecideRedirectIgnoresNonRedirectStatus(t *testing.T) {
	s := New(DefaultPolicy())
	d := s.DecideRedirect("GET", "http://x/", 200)
	assert.Equal(t, ActionReturn, d.Action)
}

func TestRewriteForRedirect303AlwaysGET(t *testing.T) {
	m, drop, stripCreds := RewriteForRedirect(303, "POST")
	assert.Equal(t, "GET", m)
	assert.True(t, drop)
	assert.True(t, stripCreds)
}

func TestRewriteForRedirect301PreservesGetHead(t *testing.T) {
	m, drop, stripCreds := RewriteForRedirect(301, "HEAD")
	assert.Equal(t, "HEAD", m)
	assert.False(t, drop)
	assert.False(t, stripCreds)
}

func TestRewriteForRedirect302RewritesPost(t *testing.T) {
	m, drop, stripCreds := RewriteForRedirect(302, "POST")
	assert.Equal(t, "GET", m)
	assert.True(t, drop)
	assert.True(t, stripCreds)
}

func TestRewriteForRedirect307PreservesMethodAndBody(t *testing.T) {
	m, drop, stripCreds := RewriteForRedirect(307, "POST")
	assert.Equal(t, "POST", m)
	assert.False(t, drop)
	assert.False(t, stripCreds)
}

func TestStripHeadersForRedirectOnHostChange(t *testing.T) {
	h := header.NewBag()
	h.Set("Authorization", "Bearer x")
	StripHeadersForRedirect(h, "a.example", "b.example", DefaultRemoveHeadersOnRedirect())
	assert.False(t, h.Contains("Authorization"))
}

func TestStripHeadersForRedirectKeepsOnSameHost(t *testing.T) {
	h := header.NewBag()
	h.Set("Authorization", "Bearer x")
	StripHeadersForRedirect(h, "a.example", "a.example", DefaultRemoveHeadersOnRedirect())
	assert.True(t, h.Contains("Authorization"))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
