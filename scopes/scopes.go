// Package scopes models the set of access scopes granted to a session.
//
// Write scopes imply the matching read scope ("write_products" grants "read_products"), so
// comparisons are made on the expanded set while [Set.String] renders the compressed form.
package scopes

import (
	"sort"
	"strings"
)

// Set is an immutable set of access scopes.
type Set struct {
	compressed map[string]struct{}
	expanded   map[string]struct{}
}

// Parse splits a comma separated scope list. Blank entries are ignored.
func Parse(raw string) Set {
	return New(strings.Split(raw, ",")...)
}

// New builds a Set from individual scope names.
func New(names ...string) Set {
	s := Set{
		compressed: make(map[string]struct{}, len(names)),
		expanded:   make(map[string]struct{}, len(names)*2),
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s.expanded[name] = struct{}{}
		if implied, ok := impliedScope(name); ok {
			s.expanded[implied] = struct{}{}
		}
	}
	for name := range s.expanded {
		if isImpliedByOther(name, s.expanded) {
			continue
		}
		s.compressed[name] = struct{}{}
	}
	return s
}

func impliedScope(name string) (string, bool) {
	unauth := strings.HasPrefix(name, "unauthenticated_")
	base := strings.TrimPrefix(name, "unauthenticated_")
	if !strings.HasPrefix(base, "write_") {
		return "", false
	}
	read := "read_" + strings.TrimPrefix(base, "write_")
	if unauth {
		read = "unauthenticated_" + read
	}
	return read, true
}

func isImpliedByOther(name string, all map[string]struct{}) bool {
	unauth := strings.HasPrefix(name, "unauthenticated_")
	base := strings.TrimPrefix(name, "unauthenticated_")
	if !strings.HasPrefix(base, "read_") {
		return false
	}
	write := "write_" + strings.TrimPrefix(base, "read_")
	if unauth {
		write = "unauthenticated_" + write
	}
	_, ok := all[write]
	return ok
}

// Len returns the number of scopes in the compressed form.
func (s Set) Len() int {
	return len(s.compressed)
}

// Has reports whether every scope in required is granted by s.
func (s Set) Has(required Set) bool {
	for name := range required.expanded {
		if _, ok := s.expanded[name]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether both sets grant exactly the same access.
func (s Set) Equal(other Set) bool {
	return s.Has(other) && other.Has(s)
}

// Names returns the compressed scope names in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.compressed))
	for name := range s.compressed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// String renders the compressed, sorted, comma separated form.
func (s Set) String() string {
	return strings.Join(s.Names(), ",")
}
