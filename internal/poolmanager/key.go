// Package poolmanager implements an LRU map from pool-key to per-origin
// pool, pool-key derivation, and the proxy routing decision.
package poolmanager

import (
	"strconv"
	"strings"

	"github.com/urllib3/urllib3-go/urlutil"
)

// Key is the pool-key tuple: two requests share a pool
// iff their keys compare equal. Every option that changes bytes-on-the-wire
// for a reused connection belongs here; per-request-only options (headers,
// retry policy, redirect policy) must never be added.
type Key struct {
	Scheme string
	Host   string
	Port   int

	ProxyURL           string // "" if no proxy
	ProxyHeadersDigest string // opaque digest of the configured proxy headers, "" if none

	TLSFingerprint     string // "" if plain or default TLS profile
	CABundleID         string
	ClientCertID       string
	SSLMinVersion      string
	SSLMaxVersion      string
	SSLCiphers         string
	VerifyMode         string
	ServerHostOverride string
	SSLContextIdentity string
}

// DeriveKey builds the Key for a request to u, routed through proxy (nil for
// direct). tlsOpts carries the TLS-affecting fields verbatim; it is the
// caller's (client.go's) job to ensure two requests needing different
// wire-level TLS behavior never produce equal Keys.
func DeriveKey(u *urlutil.URL, proxy *urlutil.URL, proxyHeadersDigest string, tlsOpts TLSKeyFields) Key {
	k := Key{
		Scheme:             u.Scheme,
		Host:               u.Host,
		Port:               u.Port,
		ProxyHeadersDigest: proxyHeadersDigest,
		TLSFingerprint:     tlsOpts.Fingerprint,
		CABundleID:         tlsOpts.CABundleID,
		ClientCertID:       tlsOpts.ClientCertID,
		SSLMinVersion:      tlsOpts.MinVersion,
		SSLMaxVersion:      tlsOpts.MaxVersion,
		SSLCiphers:         tlsOpts.Ciphers,
		VerifyMode:         tlsOpts.VerifyMode,
		ServerHostOverride: tlsOpts.ServerHostOverride,
		SSLContextIdentity: tlsOpts.ContextIdentity,
	}
	if proxy != nil {
		k.ProxyURL = proxy.String()
	}
	return k
}

// TLSKeyFields are the TLS-affecting fields of Key, grouped separately so
// callers that never touch TLS (the common case) can pass a zero value.
type TLSKeyFields struct {
	Fingerprint        string
	CABundleID         string
	ClientCertID       string
	MinVersion         string
	MaxVersion         string
	Ciphers            string
	VerifyMode         string
	ServerHostOverride string
	ContextIdentity    string
}

// String renders a stable, human-readable form for logging and diagnostics.
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.Scheme)
	sb.WriteString("://")
	sb.WriteString(k.Host)
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(k.Port))
	if k.ProxyURL != "" {
		sb.WriteString(" via ")
		sb.WriteString(k.ProxyURL)
	}
	if k.ClientCertID != "" {
		sb.WriteString(" cert=")
		sb.WriteString(k.ClientCertID)
	}
	return sb.String()
}
