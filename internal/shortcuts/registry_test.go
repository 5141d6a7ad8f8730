package shortcuts

import "testing"

func TestRegistry(t *testing.T) {
	t.Run("lookup after insert", func(t *testing.T) {
		r := NewRegistry()
		r.Insert("hk_7", "Mute Mic", func(bool) {})

		d, ok := r.Lookup("hk_7")
		if !ok {
			t.Fatal("inserted descriptor not found")
		}
		if d.Description != "Mute Mic" {
			t.Errorf("description = %q, want %q", d.Description, "Mute Mic")
		}
	})

	t.Run("lookup of absent id fails", func(t *testing.T) {
		r := NewRegistry()
		if _, ok := r.Lookup("hk_999"); ok {
			t.Error("lookup on empty registry succeeded")
		}
	})

	t.Run("insert overwrites same id", func(t *testing.T) {
		r := NewRegistry()
		r.Insert("hk_1", "first", nil)
		r.Insert("hk_1", "second", nil)

		if r.Len() != 1 {
			t.Fatalf("Len() = %d, want 1", r.Len())
		}
		d, _ := r.Lookup("hk_1")
		if d.Description != "second" {
			t.Errorf("description = %q, want last writer to win", d.Description)
		}
	})

	t.Run("clear drops everything", func(t *testing.T) {
		r := NewRegistry()
		r.Insert("hk_1", "a", nil)
		r.Insert("hk_2", "b", nil)
		r.Clear()

		if r.Len() != 0 {
			t.Errorf("Len() = %d after Clear, want 0", r.Len())
		}
		if _, ok := r.Lookup("hk_1"); ok {
			t.Error("lookup succeeded after Clear")
		}
	})

	t.Run("snapshot is id sorted", func(t *testing.T) {
		r := NewRegistry()
		r.Insert("hk_2", "b", nil)
		r.Insert("_toggle", "t", nil)
		r.Insert("hk_1", "a", nil)

		snap := r.Snapshot()
		if len(snap) != 3 {
			t.Fatalf("snapshot length = %d, want 3", len(snap))
		}
		for i := 1; i < len(snap); i++ {
			if snap[i-1].ID >= snap[i].ID {
				t.Fatalf("snapshot not sorted: %q before %q", snap[i-1].ID, snap[i].ID)
			}
		}
	})
}
