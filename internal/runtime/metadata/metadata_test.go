package metadata

import "testing"

func TestCloneDoesNotAlias(t *testing.T) {
	original := Metadata{"a": "1", "b": "2"}
	clone := original.Clone()

	clone["a"] = "changed"
	if original["a"] != "1" {
		t.Fatalf("expected original untouched, got %q", original["a"])
	}
}

func TestWithReturnsNewMap(t *testing.T) {
	original := Metadata{"a": "1"}
	updated := original.With("b", "2")

	if _, ok := original["b"]; ok {
		t.Fatal("expected original to not contain new key")
	}
	if updated["a"] != "1" || updated["b"] != "2" {
		t.Fatalf("unexpected updated metadata: %v", updated)
	}
}

func TestWithAllMergesEntries(t *testing.T) {
	original := Metadata{"a": "1"}
	updated := original.WithAll(Metadata{"b": "2", "c": "3"})

	if len(updated) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(updated))
	}
	if len(original) != 1 {
		t.Fatalf("expected original unchanged, got %v", original)
	}
}

func TestNewFromPairs(t *testing.T) {
	md := New("a", "1", "b", "2")
	if md["a"] != "1" || md["b"] != "2" {
		t.Fatalf("unexpected metadata: %v", md)
	}

	odd := New("a", "1", "dangling")
	if len(odd) != 1 {
		t.Fatalf("expected dangling key to be dropped, got %v", odd)
	}
}

func TestToBusCopies(t *testing.T) {
	original := Metadata{"a": "1"}
	converted := ToBus(original)

	converted["a"] = "changed"
	if original["a"] != "1" {
		t.Fatalf("expected original untouched, got %q", original["a"])
	}

	if got := ToBus(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty bus metadata for nil input, got %v", got)
	}
}
