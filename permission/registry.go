package permission

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("registry frozen")
	// ErrDuplicateOperation is returned when a name is registered twice.
	ErrDuplicateOperation = errors.New("operation already registered")
	// ErrEmptyOperation is returned for an empty operation name.
	ErrEmptyOperation = errors.New("operation name cannot be empty")
	// ErrInvalidRequirement is returned when a restricted requirement carries
	// an undeclared level.
	ErrInvalidRequirement = errors.New("invalid permission requirement")
)

// Requirement is the permission an operation demands before dispatch.
// The zero value is public.
type Requirement struct {
	level      Level
	restricted bool
}

// Public returns the requirement of operations dispatched without any
// credential or session check.
func Public() Requirement {
	return Requirement{}
}

// Require returns a requirement satisfied by level l or anything stronger.
func Require(l Level) Requirement {
	return Requirement{level: l, restricted: true}
}

// Level returns the minimum level, or false when the requirement is public.
func (r Requirement) Level() (Level, bool) {
	return r.level, r.restricted
}

func (r Requirement) String() string {
	if !r.restricted {
		return "public"
	}
	return r.level.String()
}

// Entry describes one registered operation.
type Entry[H any] struct {
	Name        string
	Requirement Requirement
	Handler     H
}

// Registry maps operation names to their permission requirement and
// handler. It is populated once at startup and frozen before serving;
// lookups on a frozen registry take no lock.
//
//	Docs: docs/permission.md
type Registry[H any] struct {
	mu      sync.Mutex
	entries map[string]Entry[H]
	frozen  atomic.Bool
}

// NewRegistry creates an empty, unfrozen [Registry].
func NewRegistry[H any]() *Registry[H] {
	return &Registry[H]{
		entries: make(map[string]Entry[H]),
	}
}

// Register declares an operation. Must be called before [Registry.Freeze].
func (r *Registry[H]) Register(name string, req Requirement, handler H) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return ErrRegistryFrozen
	}
	if name == "" {
		return ErrEmptyOperation
	}
	if lvl, restricted := req.Level(); restricted && !lvl.Valid() {
		return ErrInvalidRequirement
	}
	if _, exists := r.entries[name]; exists {
		return ErrDuplicateOperation
	}

	r.entries[name] = Entry[H]{Name: name, Requirement: req, Handler: handler}
	return nil
}

// Freeze prevents further registrations.
func (r *Registry[H]) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (r *Registry[H]) Frozen() bool {
	return r.frozen.Load()
}

// Lookup returns the entry registered under name.
func (r *Registry[H]) Lookup(name string) (Entry[H], bool) {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	e, ok := r.entries[name]
	return e, ok
}

// IsKnown reports whether name identifies a registered operation.
func (r *Registry[H]) IsKnown(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Required returns the minimum level for name. ok is false when the
// operation is public or unknown.
func (r *Registry[H]) Required(name string) (Level, bool) {
	e, found := r.Lookup(name)
	if !found {
		return 0, false
	}
	return e.Requirement.Level()
}

// Names returns the registered operation names in lexical order.
func (r *Registry[H]) Names() []string {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered operations.
func (r *Registry[H]) Count() int {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return len(r.entries)
}
