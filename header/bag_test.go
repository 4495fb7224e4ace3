package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBagAddPreservesOrderAndCase(t *testing.T) {
	b := NewBag()
	b.Add("x-foo", "1")
	b.Add("X-Bar", "2")
	b.Add("X-FOO", "3")

	assert.Equal(t, []string{"1", "3"}, b.GetAll("X-Foo"))
	assert.Equal(t, []string{"X-Foo", "X-Bar"}, b.Names())
}

func TestBagSetReplaces(t *testing.T) {
	b := NewBag()
	b.Add("Accept", "a")
	b.Add("Accept", "b")
	b.Set("Accept", "c")
	assert.Equal(t, []string{"c"}, b.GetAll("Accept"))
}

func TestBagGetCombinedExcludesSetCookie(t *testing.T) {
	b := NewBag()
	b.Add("Accept-Encoding", "gzip")
	b.Add("Accept-Encoding", "br")
	assert.Equal(t, "gzip, br", b.GetCombined("Accept-Encoding"))

	b.Add("Set-Cookie", "a=1")
	b.Add("Set-Cookie", "b=2")
	assert.Equal(t, "a=1", b.GetCombined("Set-Cookie"))
	assert.Equal(t, []string{"a=1", "b=2"}, b.GetAll("Set-Cookie"))
}

func TestBagPopAndContains(t *testing.T) {
	b := NewBag()
	b.Add("Authorization", "Bearer x")
	assert.True(t, b.Contains("authorization"))
	vs := b.Pop("AUTHORIZATION")
	assert.Equal(t, []string{"Bearer x"}, vs)
	assert.False(t, b.Contains("Authorization"))
	assert.Equal(t, 0, b.Len())
}

func TestBagClone(t *testing.T) {
	b := NewBag()
	b.Add("A", "1")
	c := b.Clone()
	c.Add("A", "2")
	assert.Equal(t, []string{"1"}, b.GetAll("A"))
	assert.Equal(t, []string{"1", "2"}, c.GetAll("A"))
}
