package permission

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry[string]()
	if err := r.Register("session", Public(), "open"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register("new_user", Require(Root), "create"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r.Freeze()

	if !r.IsKnown("session") || r.IsKnown("missing") {
		t.Fatal("IsKnown mismatch")
	}
	if _, ok := r.Required("session"); ok {
		t.Fatal("session should be public")
	}
	if lvl, ok := r.Required("new_user"); !ok || lvl != Root {
		t.Fatalf("Required(new_user) = %v, %v", lvl, ok)
	}
	if _, ok := r.Required("missing"); ok {
		t.Fatal("unknown operation should report no requirement")
	}

	e, ok := r.Lookup("new_user")
	if !ok || e.Handler != "create" || e.Name != "new_user" {
		t.Fatalf("Lookup = %+v, %v", e, ok)
	}
	if names := r.Names(); len(names) != 2 || names[0] != "new_user" || names[1] != "session" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestRegistryRejects(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.Register("", Public(), 0); !errors.Is(err, ErrEmptyOperation) {
		t.Fatalf("expected ErrEmptyOperation, got %v", err)
	}
	if err := r.Register("x", Require(Level(9)), 0); !errors.Is(err, ErrInvalidRequirement) {
		t.Fatalf("expected ErrInvalidRequirement, got %v", err)
	}
	if err := r.Register("x", Public(), 1); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register("x", Require(User), 2); !errors.Is(err, ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}

	r.Freeze()
	if !r.Frozen() {
		t.Fatal("expected frozen registry")
	}
	if err := r.Register("y", Public(), 3); !errors.Is(err, ErrRegistryFrozen) {
		t.Fatalf("expected ErrRegistryFrozen, got %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("Count() = %d", r.Count())
	}
}

func TestRequirementString(t *testing.T) {
	if Public().String() != "public" || Require(Admin).String() != "ADMIN" {
		t.Fatalf("unexpected strings %q %q", Public(), Require(Admin))
	}
	var zero Requirement
	if _, restricted := zero.Level(); restricted {
		t.Fatal("zero requirement must be public")
	}
}

func TestFrozenRegistryConcurrentReads(t *testing.T) {
	r := NewRegistry[int]()
	for i, name := range []string{"a", "b", "c"} {
		if err := r.Register(name, Require(User), i); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	r.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !r.IsKnown("b") {
					t.Error("b missing")
					return
				}
			}
		}()
	}
	wg.Wait()
}
