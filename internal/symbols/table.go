package symbols

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"lumen/internal/source"
)

// Hints provide optional capacity suggestions for the table arena.
type Hints struct{ Scopes uint }

// Table is the arena of scope records for one program.
type Table struct {
	scopes  []Scope
	Strings *source.Interner
}

// NewTable builds a fresh table. If strings is nil, a fresh interner is allocated.
func NewTable(h Hints, strings *source.Interner) *Table {
	if h.Scopes == 0 {
		h.Scopes = 32
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	t := &Table{
		scopes:  make([]Scope, 1, h.Scopes+1), // index 0 reserved for NoScopeID
		Strings: strings,
	}
	return t
}

// Root allocates a fresh root scope and returns its Environment.
func (t *Table) Root(span source.Span) Environment {
	return Environment{table: t, id: t.newScope(ScopeRoot, NoScopeID, span)}
}

func (t *Table) newScope(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	value, err := safecast.Conv[uint32](len(t.scopes))
	if err != nil {
		panic(fmt.Errorf("scopes arena overflow: %w", err))
	}
	var depth uint32
	if p := t.Get(parent); p != nil {
		depth = p.Depth + 1
	}
	t.scopes = append(t.scopes, newScope(kind, parent, depth, span))
	return ScopeID(value)
}

// Get returns the scope pointer or nil if ID is invalid.
func (t *Table) Get(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(t.scopes) {
		return nil
	}
	return &t.scopes[id]
}

// Len reports the number of allocated scopes.
func (t *Table) Len() int {
	return len(t.scopes) - 1
}

// Encloses reports whether outer is inner or one of its ancestors. It works
// on discarded scopes too.
func (t *Table) Encloses(outer, inner ScopeID) bool {
	for id := inner; id.IsValid(); {
		if id == outer {
			return true
		}
		s := t.Get(id)
		if s == nil {
			return false
		}
		id = s.Parent
	}
	return false
}

// Validate checks structural invariants of the arena. sema runs it after
// checking when tracing at debug level.
func (t *Table) Validate() error {
	var errs []error
	for idx := 1; idx < len(t.scopes); idx++ {
		s := t.scopes[idx]
		if s.Kind == ScopeInvalid {
			errs = append(errs, fmt.Errorf("scope %d has invalid kind", idx))
		}
		if s.Kind == ScopeRoot && s.Parent.IsValid() {
			errs = append(errs, fmt.Errorf("root scope %d has parent %d", idx, s.Parent))
		}
		if s.Parent.IsValid() && int(s.Parent) >= idx {
			errs = append(errs, fmt.Errorf("scope %d has non-preceding parent %d", idx, s.Parent))
		}
		if !s.Closed && s.variables == nil {
			errs = append(errs, fmt.Errorf("scope %d is open without storage", idx))
		}
	}
	return errors.Join(errs...)
}
