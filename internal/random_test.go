package internal

import "testing"

func TestNewSessionIDIsUniqueUUID(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		id, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID error: %v", err)
		}
		if !ValidSessionID(id) {
			t.Fatalf("not a canonical uuid: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestValidSessionIDRejects(t *testing.T) {
	for _, s := range []string{"", "abc", "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}", "6ba7b8109dad11d180b400c04fd430c8"} {
		if ValidSessionID(s) {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestNewSecret(t *testing.T) {
	a, err := NewSecret(32)
	if err != nil || len(a) != 32 {
		t.Fatalf("NewSecret = %d bytes, %v", len(a), err)
	}
	b, _ := NewSecret(32)
	if string(a) == string(b) {
		t.Fatal("secrets should differ")
	}
	if _, err := NewSecret(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}
