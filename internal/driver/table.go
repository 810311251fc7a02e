package driver

import (
	"fmt"
	"sort"
)

// Resolver resolves driver symbol names to entry points.
type Resolver interface {
	Lookup(name string) (any, error)
}

// MapResolver resolves symbols from an in-memory map.
// Used by in-process drivers and tests.
type MapResolver map[string]any

// Lookup implements Resolver.
func (m MapResolver) Lookup(name string) (any, error) {
	sym, ok := m[name]
	if !ok || sym == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrSymbolNotFound)
	}
	return sym, nil
}

// Without returns a copy of the resolver with the given names removed.
func (m MapResolver) Without(names ...string) MapResolver {
	out := make(MapResolver, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, name := range names {
		delete(out, name)
	}
	return out
}

// FatalFunc receives unrecoverable binding errors.
// In production it must terminate the process and never return.
type FatalFunc func(err error)

// Entry is one resolved row of the capability table.
type Entry struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Resolved bool   `json:"resolved"`
}

// Table records the outcome of binding each capability.
// It is written once by Bind and read-only afterwards.
type Table struct {
	entries []Entry
	index   map[string]int
}

func newTable() *Table {
	return &Table{index: make(map[string]int)}
}

func (t *Table) add(name string, required, resolved bool) {
	t.index[name] = len(t.entries)
	t.entries = append(t.entries, Entry{Name: name, Required: required, Resolved: resolved})
}

// Entries returns the table rows in binding order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Has reports whether the named capability was resolved.
func (t *Table) Has(name string) bool {
	i, ok := t.index[name]
	return ok && t.entries[i].Resolved
}

// Missing returns the names of unresolved capabilities, sorted.
func (t *Table) Missing() []string {
	var names []string
	for _, e := range t.entries {
		if !e.Resolved {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	return names
}

// binder resolves catalog entries against a Resolver.
type binder struct {
	res      Resolver
	fatal    FatalFunc
	table    *Table
	required map[string]bool
}

// bindFunc resolves name and asserts it to the entry point type T.
//
// A required entry that is missing or mistyped is reported through fatal.
// An optional one yields the zero T (a nil func).
func bindFunc[T any](b *binder, name string) T {
	var zero T
	required := b.required[name]

	sym, err := b.res.Lookup(name)
	if err != nil || sym == nil {
		b.table.add(name, required, false)
		if required {
			b.fatal(&MissingCapabilityError{Name: name, Err: err})
		}
		return zero
	}

	fn, ok := sym.(T)
	if !ok {
		b.table.add(name, required, false)
		if required {
			b.fatal(&MissingCapabilityError{Name: name, Want: fmt.Sprintf("%T", zero)})
		}
		return zero
	}

	b.table.add(name, required, true)
	return fn
}
