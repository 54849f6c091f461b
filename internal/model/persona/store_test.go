package persona

import "testing"

func TestResolveFallsBackToDefault(t *testing.T) {
	store := NewMemoryStore(Seed())

	got, ok := Resolve(store, "unknown")
	if !ok {
		t.Fatal("expected a persona")
	}
	if got.ID != DefaultID {
		t.Fatalf("expected %s, got %s", DefaultID, got.ID)
	}
}

func TestResolveEmptyStore(t *testing.T) {
	if _, ok := Resolve(NewMemoryStore(nil), DefaultID); ok {
		t.Fatal("expected no persona from empty store")
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	items := store.List()
	items[0].Name = "mutated"

	if got, _ := store.FindByID(DefaultID); got.Name == "mutated" {
		t.Fatal("List must not expose internal storage")
	}
}
