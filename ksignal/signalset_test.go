package ksignal

import "testing"

func TestSetWithWithoutContains(t *testing.T) {
	var s Set
	if s.Contains(5) {
		t.Fatal("zero set should not contain 5")
	}
	s = s.With(5)
	if !s.Contains(5) {
		t.Fatal("expected 5 to be set")
	}
	s = s.Without(5)
	if s.Contains(5) {
		t.Fatal("expected 5 to be cleared")
	}
}

func TestSetOrAndNot(t *testing.T) {
	a := Set(0).With(1).With(2)
	b := Set(0).With(2).With(3)
	union := a.Or(b)
	for _, n := range []uint8{1, 2, 3} {
		if !union.Contains(n) {
			t.Fatalf("union missing %d", n)
		}
	}
	diff := union.AndNot(b)
	if !diff.Equal(Set(0).With(1)) {
		t.Fatalf("expected diff to be just {1}, got %v", diff)
	}
}

func TestSetEmptyAndEqual(t *testing.T) {
	var s Set
	if !s.Empty() {
		t.Fatal("zero set should be empty")
	}
	s = s.With(31)
	if s.Empty() {
		t.Fatal("set with bit 31 should not be empty")
	}
	if !s.Equal(Set(1) << 31) {
		t.Fatal("expected bit 31 mask")
	}
}
