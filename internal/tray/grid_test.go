package tray

import "testing"

func storedAt(locations ...Location) []Tray {
	trays := make([]Tray, 0, len(locations))
	for _, l := range locations {
		trays = append(trays, Tray{Status: StatusStored, Floor: l.Floor, Slot: l.Slot})
	}
	return trays
}

// ─── Building ────────────────────────────────────────────────────────────────

func TestBuildGrid(t *testing.T) {
	trays := []Tray{
		{Status: StatusStored, Floor: 1, Slot: 1},
		{Status: StatusStored, Floor: 3, Slot: 5},
		{Status: StatusOutbound, Floor: 2, Slot: 2}, // no longer occupies
		{Status: StatusRemoved, Floor: 4, Slot: 4},
		{Status: StatusStored, Floor: 99, Slot: 1}, // out of bounds, ignored
	}
	g := BuildGrid(8, 18, trays)

	if !g.Occupied(1, 1) || !g.Occupied(3, 5) {
		t.Error("stored trays should occupy their slots")
	}
	if g.Occupied(2, 2) {
		t.Error("outbound tray should not occupy its slot")
	}
	if g.Occupied(4, 4) {
		t.Error("removed tray should not occupy its slot")
	}
	if got := g.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestOccupiedOutOfBounds(t *testing.T) {
	g := NewGrid(8, 18)

	cases := []Location{{0, 1}, {1, 0}, {9, 1}, {1, 19}, {-1, -1}}
	for _, l := range cases {
		if g.Occupied(l.Floor, l.Slot) {
			t.Errorf("Occupied(%d, %d) should be false out of bounds", l.Floor, l.Slot)
		}
	}
}

// ─── Blocking ────────────────────────────────────────────────────────────────

func TestBlocking(t *testing.T) {
	g := BuildGrid(8, 18, storedAt(
		Location{2, 1},
		Location{2, 3},
		Location{2, 7}, // beyond the target, not blocking
		Location{3, 2}, // other floor, not blocking
	))

	got := g.Blocking(2, 5)
	want := []Location{{2, 1}, {2, 3}}
	if len(got) != len(want) {
		t.Fatalf("Blocking(2, 5) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("blocking[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBlockingClearPath(t *testing.T) {
	g := BuildGrid(8, 18, storedAt(Location{2, 10}))

	if got := g.Blocking(2, 5); got != nil {
		t.Errorf("Blocking(2, 5) = %v, want nil", got)
	}
	// Slot 1 never has anything between it and the aisle.
	if got := g.Blocking(2, 1); got != nil {
		t.Errorf("Blocking(2, 1) = %v, want nil", got)
	}
}

// ─── Slot Allocation ─────────────────────────────────────────────────────────

func TestFindEmptySlotsNearestFloorFirst(t *testing.T) {
	// Fill floors 3 and 5 completely; request from floor 4.
	var full []Location
	for _, f := range []int{3, 5} {
		for s := 1; s <= 18; s++ {
			full = append(full, Location{f, s})
		}
	}
	g := BuildGrid(8, 18, storedAt(full...))

	got, err := g.FindEmptySlots(4, 3)
	if err != nil {
		t.Fatalf("FindEmptySlots: %v", err)
	}

	// Floors 3 and 5 are full; next nearest are 2 and 6, lower first.
	want := []Location{{2, 1}, {2, 2}, {2, 3}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFindEmptySlotsSkipsRequestingFloor(t *testing.T) {
	g := NewGrid(8, 18)

	got, err := g.FindEmptySlots(1, 20)
	if err != nil {
		t.Fatalf("FindEmptySlots: %v", err)
	}
	for _, l := range got {
		if l.Floor == 1 {
			t.Fatalf("allocated on requesting floor: %v", l)
		}
	}
	// Floor 2 is nearest and empty, so it fills first.
	if got[0] != (Location{2, 1}) || got[17] != (Location{2, 18}) {
		t.Errorf("nearest floor should fill first: got %v ... %v", got[0], got[17])
	}
	if got[18] != (Location{3, 1}) {
		t.Errorf("overflow should continue on floor 3: got %v", got[18])
	}
}

func TestFindEmptySlotsInsufficient(t *testing.T) {
	g := NewGrid(2, 2)

	// Only floor 2 is available from floor 1: two slots.
	got, err := g.FindEmptySlots(1, 5)
	if err == nil {
		t.Fatal("expected ErrNoEmptySlots")
	}
	if len(got) != 2 {
		t.Errorf("partial allocation: got %d slots, want 2", len(got))
	}
}

func TestFindEmptySlotsZeroNeeded(t *testing.T) {
	g := NewGrid(8, 18)

	got, err := g.FindEmptySlots(1, 0)
	if err != nil || got != nil {
		t.Errorf("FindEmptySlots(1, 0) = %v, %v; want nil, nil", got, err)
	}
}

// ─── Mutation ────────────────────────────────────────────────────────────────

func TestSetAndClear(t *testing.T) {
	g := NewGrid(8, 18)

	g.Set(4, 9)
	if !g.Occupied(4, 9) {
		t.Error("Set should mark slot occupied")
	}
	g.Clear(4, 9)
	if g.Occupied(4, 9) {
		t.Error("Clear should mark slot empty")
	}

	// Out of bounds is a no-op, not a panic.
	g.Set(0, 0)
	g.Clear(99, 99)
}
