package memory

import "testing"

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	store.Create("u1", nil)
	if _, ok := store.Get("u1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Remove("u1")
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("expected session removed")
	}

	// Removal races between disconnect and completion; must be a no-op.
	store.Remove("u1")
}
