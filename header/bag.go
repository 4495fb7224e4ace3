// Package header implements an insertion-order-preserving, case-insensitive
// multi-valued header container, the wire-level sibling of net/http.Header.
package header

import (
	"net/textproto"
	"strings"
)

// Bag is a case-insensitive, insertion-order-preserving mapping from header
// name to an ordered list of values. The zero value is an empty Bag ready
// to use.
type Bag struct {
	// keys preserves first-seen insertion order of canonical names so
	// iteration and re-serialization is stable.
	keys   []string
	values map[string][]string
}

// NewBag returns an empty Bag.
func NewBag() *Bag {
	return &Bag{values: make(map[string][]string)}
}

func canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

func (b *Bag) ensure() {
	if b.values == nil {
		b.values = make(map[string][]string)
	}
}

// Add appends value to the list for name, preserving any existing values.
func (b *Bag) Add(name, value string) {
	b.ensure()
	name = canonical(name)
	if _, ok := b.values[name]; !ok {
		b.keys = append(b.keys, name)
	}
	b.values[name] = append(b.values[name], value)
}

// Set replaces all existing values for name with the single value.
func (b *Bag) Set(name, value string) {
	b.ensure()
	name = canonical(name)
	if _, ok := b.values[name]; !ok {
		b.keys = append(b.keys, name)
	}
	b.values[name] = []string{value}
}

// Get returns the first value for name, or "" if absent.
func (b *Bag) Get(name string) string {
	vs := b.GetAll(name)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// GetAll returns all values for name in insertion order, or nil if absent.
func (b *Bag) GetAll(name string) []string {
	if b.values == nil {
		return nil
	}
	return b.values[canonical(name)]
}

// Contains reports whether name has at least one value.
func (b *Bag) Contains(name string) bool {
	return len(b.GetAll(name)) > 0
}

// Pop removes and returns all values for name.
func (b *Bag) Pop(name string) []string {
	if b.values == nil {
		return nil
	}
	name = canonical(name)
	vs, ok := b.values[name]
	if !ok {
		return nil
	}
	delete(b.values, name)
	for i, k := range b.keys {
		if k == name {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
	return vs
}

// Del is an alias of Pop that discards the removed values.
func (b *Bag) Del(name string) {
	b.Pop(name)
}

// Names returns the canonical header names in first-insertion order.
func (b *Bag) Names() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// setCookieName is the one header whose multiple values must never be
// joined into a single comma-separated line (RFC 7230 §3.2.2).
const setCookieName = "Set-Cookie"

// GetCombined returns the "logical" value of name: for every header except
// Set-Cookie that is the list-type combination of all values joined by ", ";
// for Set-Cookie it returns only the first value, since combining distinct
// cookies into one string is never correct.
func (b *Bag) GetCombined(name string) string {
	vs := b.GetAll(name)
	if len(vs) == 0 {
		return ""
	}
	if canonical(name) == setCookieName {
		return vs[0]
	}
	return strings.Join(vs, ", ")
}

// Clone returns a deep copy of b.
func (b *Bag) Clone() *Bag {
	if b == nil {
		return NewBag()
	}
	out := NewBag()
	out.keys = append(out.keys, b.keys...)
	for k, vs := range b.values {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out.values[k] = cp
	}
	return out
}

// Each calls fn once per (name, value) pair in insertion order, iterating
// multi-valued headers in the order their values were added. Set-Cookie
// values are still visited individually; GetCombined is the only place the
// no-join rule applies.
func (b *Bag) Each(fn func(name, value string)) {
	for _, name := range b.keys {
		for _, v := range b.values[name] {
			fn(name, v)
		}
	}
}

// Len returns the number of distinct header names.
func (b *Bag) Len() int {
	return len(b.keys)
}
