package bitset

import "testing"

func TestInsertIdempotent(t *testing.T) {
	b := New(0)
	if !b.Insert(5) {
		t.Fatalf("first insert should report new")
	}
	lenAfterFirst := b.Len()
	if b.Insert(5) {
		t.Fatalf("second insert of same value should report not-new")
	}
	if b.Len() != lenAfterFirst {
		t.Fatalf("length changed on duplicate insert: got %d want %d", b.Len(), lenAfterFirst)
	}
}

func TestUnionIntersectSubtract(t *testing.T) {
	a := FromItems(1, 2, 3, 130)
	b := FromItems(2, 3, 4)

	u := Union(a, b)
	want := FromItems(1, 2, 3, 4, 130)
	if !u.Equal(want) {
		t.Fatalf("union mismatch: got %v want %v", u, want)
	}

	i := Intersect(a, b)
	wantI := FromItems(2, 3)
	if !i.Equal(wantI) {
		t.Fatalf("intersect mismatch: got %v want %v", i, wantI)
	}

	c := a.Clone()
	c.Subtract(b)
	wantSub := FromItems(1, 130)
	if !c.Equal(wantSub) {
		t.Fatalf("subtract mismatch: got %v want %v", c, wantSub)
	}
}

func TestIntersectsAny(t *testing.T) {
	a := FromItems(1, 64, 200)
	b := FromItems(5, 200)
	if !a.IntersectsAny(b) {
		t.Fatalf("expected intersection")
	}
	c := FromItems(9, 10)
	if a.IntersectsAny(c) {
		t.Fatalf("expected no intersection")
	}
}

func TestItemsOrdered(t *testing.T) {
	b := FromItems(70, 1, 64, 0)
	items := b.Items()
	want := []uint32{0, 1, 64, 70}
	if len(items) != len(want) {
		t.Fatalf("length mismatch: %v", items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("items mismatch at %d: got %d want %d", i, items[i], want[i])
		}
	}
}

func TestVecMapGetOrInsertWith(t *testing.T) {
	vm := NewVecMap[int]()
	calls := 0
	mk := func() int { calls++; return 42 }
	if v := vm.GetOrInsertWith(3, mk); v != 42 {
		t.Fatalf("got %d want 42", v)
	}
	if v := vm.GetOrInsertWith(3, mk); v != 42 {
		t.Fatalf("got %d want 42", v)
	}
	if calls != 1 {
		t.Fatalf("make should only be called once, got %d calls", calls)
	}
}
