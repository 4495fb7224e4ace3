package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNormalizesSchemeHostPort(t *testing.T) {
	u, err := Parse("HTTP://Example.COM:80/a/b?q=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "example.com", u.Host)
	assert.Equal(t, 80, u.Port)
	assert.Equal(t, "/a/b", u.Path)
	assert.Equal(t, "q=1", u.Query)
	assert.Equal(t, "frag", u.Fragment)
	assert.True(t, u.IsDefaultPort())
}

func TestParseEmptyPathBecomesSlash(t *testing.T) {
	u, err := Parse("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "/", u.Path)
}

func TestParseRejectsEmptyHost(t *testing.T) {
	_, err := Parse("http:///path")
	require.Error(t, err)
	var iu *InvalidURLError
	assert.ErrorAs(t, err, &iu)
}

func TestParseRejectsUnknownScheme(t *testing.T) {
	_, err := Parse("ftp://example.com/")
	require.Error(t, err)
}

func TestParseRejectsBadPort(t *testing.T) {
	_, err := Parse("http://example.com:99999/")
	require.Error(t, err)
}

func TestRequestTargetDropsFragment(t *testing.T) {
	u, err := Parse("http://example.com/a?b=1#section")
	require.NoError(t, err)
	assert.Equal(t, "/a?b=1", u.RequestTarget())
}

func TestHostHeaderOmitsDefaultPort(t *testing.T) {
	u, err := Parse("https://example.com:443/")
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.HostHeader())

	u2, err := Parse("https://example.com:8443/")
	require.NoError(t, err)
	assert.Equal(t, "example.com:8443", u2.HostHeader())
}

func TestResolveReferenceRelative(t *testing.T) {
	base, err := Parse("https://example.com/a/b")
	require.NoError(t, err)
	next, err := ResolveReference(base, "/home")
	require.NoError(t, err)
	assert.Equal(t, "example.com", next.Host)
	assert.Equal(t, "/home", next.Path)
}

func TestIDNANormalization(t *testing.T) {
	u, err := Parse("http://exämple.com/")
	require.NoError(t, err)
	assert.Equal(t, "xn--exmple-cua.com", u.Host)
}
