// Package sig is the declarative runtime signature table described in
// spec §4.2: a catalog mapping canonical dotted `Viper.*` names (and
// legacy `rt_*` aliases) to parameter/return types, a mod/ref effect
// summary, and per-backend native symbol aliases. It is the single
// source of truth consulted by the verifier (extern call type-checking),
// BasicAA (unknown-callee ModRef), the VM FFI bridge (argument
// marshalling), and native backends (symbol rewriting).
//
// Lookup is backed by github.com/dolthub/swiss, grounded on
// mna-nenuphar's use of the same swiss-table package for its interned
// symbol environment: the catalog is large (the full `Viper.*` surface
// plus aliases) and is queried on the hot call-verification and
// FFI-dispatch paths, so O(1) average lookup matters more here than in
// the rest of this repo's small, one-off maps.
package sig

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/splanck/viper-sub008/internal/il"
)

// Effect summarizes a callee's observable side effects for BasicAA's
// ModRef queries (spec §4.4) and for DCE's side-effect test (spec §4.6).
type Effect struct {
	ReadsGlobals  bool
	WritesGlobals bool
	Pure          bool // no observable effect beyond its return value
	MayTrap       bool

	// TakesOwnership/GivesOwnership describe retain/release obligations
	// the FFI bridge must insert around the call for each Str/Array
	// parameter and the return value respectively (spec §4.8).
	TakesOwnership []bool
	GivesOwnership bool
}

// Entry is one catalog row: a canonical name's full ABI contract.
type Entry struct {
	Name    string
	Sig     il.Signature
	Effect  Effect
	Aliases map[string]string // backend name ("amd64", "arm64", ...) -> native symbol
}

// Table is the runtime signature catalog. The zero value is not usable;
// construct with New or Default.
type Table struct {
	byName *swiss.Map[string, Entry]
	names  map[string]string // alias (rt_* or other) -> canonical name
}

// New builds an empty table.
func New() *Table {
	return &Table{
		byName: swiss.NewMap[string, Entry](64),
		names:  make(map[string]string),
	}
}

// Register adds or replaces an entry under its canonical name, and
// indexes any aliases (e.g. legacy `rt_*` spellings) to resolve to it.
func (t *Table) Register(e Entry, aliases ...string) error {
	if e.Name == "" {
		return fmt.Errorf("sig: entry has empty canonical name")
	}
	t.byName.Put(e.Name, e)
	t.names[e.Name] = e.Name
	for _, a := range aliases {
		t.names[a] = e.Name
	}
	return nil
}

// Resolve maps any accepted spelling (canonical or legacy alias) to its
// canonical Entry.
func (t *Table) Resolve(name string) (Entry, bool) {
	canon, ok := t.names[name]
	if !ok {
		return Entry{}, false
	}
	return t.byName.Get(canon)
}

// Len reports how many canonical entries are registered.
func (t *Table) Len() int { return t.byName.Count() }

// Each calls fn once per canonical entry, in unspecified order, stopping
// early if fn returns false.
func (t *Table) Each(fn func(Entry) bool) {
	t.byName.Iter(func(_ string, e Entry) bool {
		return !fn(e)
	})
}

// NativeSymbol returns the native symbol alias for name on the given
// backend, if the catalog records one.
func (t *Table) NativeSymbol(name, backend string) (string, bool) {
	e, ok := t.Resolve(name)
	if !ok {
		return "", false
	}
	s, ok := e.Aliases[backend]
	return s, ok
}
