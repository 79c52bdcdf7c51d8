package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDv7(t *testing.T) {
	gen := UUIDv7()

	a, b := gen(), gen()
	if a == b {
		t.Fatal("consecutive IDs must differ")
	}
	for _, id := range []string{a, b} {
		u, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("parse %q: %v", id, err)
		}
		if u.Version() != 7 {
			t.Errorf("version: got %d, want 7", u.Version())
		}
	}
	// v7 is time-sortable: later generation sorts later.
	if !(a < b) {
		t.Errorf("expected %q < %q", a, b)
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("evt_", Default)
	id := gen()
	if !strings.HasPrefix(id, "evt_") {
		t.Errorf("id %q missing prefix", id)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, "evt_")); err != nil {
		t.Errorf("suffix not a UUID: %v", err)
	}
}

func TestNew(t *testing.T) {
	if _, err := uuid.Parse(New()); err != nil {
		t.Fatal(err)
	}
}
