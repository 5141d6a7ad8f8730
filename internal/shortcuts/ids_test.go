package shortcuts

import "testing"

func TestNumericID(t *testing.T) {
	t.Run("is stable for the same key", func(t *testing.T) {
		if NumericID(42) != NumericID(42) {
			t.Error("same numeric key produced different ids")
		}
	})

	t.Run("is unique per key", func(t *testing.T) {
		seen := make(map[string]uint64)
		for n := uint64(0); n < 1000; n++ {
			id := NumericID(n)
			if prev, ok := seen[id]; ok {
				t.Fatalf("keys %d and %d both derived %q", prev, n, id)
			}
			seen[id] = n
		}
	})

	t.Run("matches expected form", func(t *testing.T) {
		if got := NumericID(42); got != "hk_42" {
			t.Errorf("NumericID(42) = %q, want %q", got, "hk_42")
		}
	})

	t.Run("is path legal", func(t *testing.T) {
		if !ValidID(NumericID(0)) || !ValidID(NumericID(18446744073709551615)) {
			t.Error("numeric id failed the identifier grammar")
		}
	})
}

func TestNameID(t *testing.T) {
	t.Run("is stable for the same name", func(t *testing.T) {
		if NameID("cmd", "Mute Mic") != NameID("cmd", "Mute Mic") {
			t.Error("same name produced different ids")
		}
	})

	t.Run("distinguishes names that collide under substitution", func(t *testing.T) {
		// "A B" and "A_B" would both become "A_B" with a replace-illegal
		// scheme; the hash keeps them apart.
		if NameID("cmd", "A B") == NameID("cmd", "A_B") {
			t.Error("distinct names derived the same id")
		}
	})

	t.Run("handles names with no legal characters", func(t *testing.T) {
		id := NameID("cmd", "日本語 🎥")
		if !ValidID(id) {
			t.Errorf("id %q failed the identifier grammar", id)
		}
	})

	t.Run("handles the empty name", func(t *testing.T) {
		if !ValidID(NameID("cmd", "")) {
			t.Error("empty name derived an illegal id")
		}
	})
}

func TestReserved(t *testing.T) {
	if !Reserved("_reload_config") {
		t.Error("synthetic id not recognized as reserved")
	}
	if Reserved(NumericID(7)) || Reserved(NameID("cmd", "anything")) {
		t.Error("derived id landed in the reserved namespace")
	}
}

func TestValidID(t *testing.T) {
	valid := []string{"hk_0", "_toggle", "A", "cmd_00ff"}
	for _, id := range valid {
		if !ValidID(id) {
			t.Errorf("ValidID(%q) = false, want true", id)
		}
	}

	invalid := []string{"", "0abc", "has space", "has-dash", "héllo"}
	for _, id := range invalid {
		if ValidID(id) {
			t.Errorf("ValidID(%q) = true, want false", id)
		}
	}
}
