package tray

import (
	"fmt"
	"sort"
)

// Location is a 1-based warehouse position.
type Location struct {
	Floor int `json:"floor"`
	Slot  int `json:"slot"`
}

func (l Location) String() string {
	return fmt.Sprintf("floor %d slot %d", l.Floor, l.Slot)
}

// Grid is a point-in-time occupancy view of the warehouse, derived from
// stored trays. Floors and slots are 1-based; slot 1 sits nearest the
// lift aisle on each floor.
//
// The grid is a snapshot. Rebuild it from the repository after any
// inventory change.
type Grid struct {
	floors int
	slots  int

	// occupied[f][s] is 0-based internally.
	occupied [][]bool
}

// NewGrid creates an empty grid with the given dimensions.
func NewGrid(floors, slots int) *Grid {
	occupied := make([][]bool, floors)
	for i := range occupied {
		occupied[i] = make([]bool, slots)
	}
	return &Grid{floors: floors, slots: slots, occupied: occupied}
}

// BuildGrid creates a grid from the stored trays. Trays outside the
// grid dimensions are ignored rather than panicking; the repository
// constraints should prevent them existing at all.
func BuildGrid(floors, slots int, trays []Tray) *Grid {
	g := NewGrid(floors, slots)
	for _, t := range trays {
		if t.Status != StatusStored {
			continue
		}
		if !g.inBounds(t.Floor, t.Slot) {
			continue
		}
		g.occupied[t.Floor-1][t.Slot-1] = true
	}
	return g
}

// Floors returns the floor count.
func (g *Grid) Floors() int { return g.floors }

// Slots returns the slots per floor.
func (g *Grid) Slots() int { return g.slots }

// Occupied reports whether a stored tray sits at the location.
func (g *Grid) Occupied(floor, slot int) bool {
	if !g.inBounds(floor, slot) {
		return false
	}
	return g.occupied[floor-1][slot-1]
}

// Set marks a location occupied. Out-of-bounds locations are ignored.
func (g *Grid) Set(floor, slot int) {
	if g.inBounds(floor, slot) {
		g.occupied[floor-1][slot-1] = true
	}
}

// Clear marks a location empty. Out-of-bounds locations are ignored.
func (g *Grid) Clear(floor, slot int) {
	if g.inBounds(floor, slot) {
		g.occupied[floor-1][slot-1] = false
	}
}

// Count returns the number of occupied slots.
func (g *Grid) Count() int {
	n := 0
	for _, row := range g.occupied {
		for _, occ := range row {
			if occ {
				n++
			}
		}
	}
	return n
}

// Blocking lists the occupied slots between the lift aisle and the
// target slot on its floor, nearest the aisle first. Those trays must
// be shuffled aside before the target slot can be reached.
func (g *Grid) Blocking(floor, slot int) []Location {
	if !g.inBounds(floor, slot) {
		return nil
	}

	var blocking []Location
	for s := 1; s < slot; s++ {
		if g.occupied[floor-1][s-1] {
			blocking = append(blocking, Location{Floor: floor, Slot: s})
		}
	}
	return blocking
}

// FindEmptySlots allocates up to needed empty slots on floors other
// than fromFloor, nearest floor first. Ties between equally distant
// floors resolve toward the lower floor. Within a floor, slots fill
// from the lift aisle outward.
//
// Returns ErrNoEmptySlots when the warehouse cannot satisfy the
// request; the partial allocation is returned alongside the error so
// callers can report how far they got.
func (g *Grid) FindEmptySlots(fromFloor, needed int) ([]Location, error) {
	if needed <= 0 {
		return nil, nil
	}

	floorOrder := make([]int, 0, g.floors-1)
	for f := 1; f <= g.floors; f++ {
		if f != fromFloor {
			floorOrder = append(floorOrder, f)
		}
	}
	sort.SliceStable(floorOrder, func(i, j int) bool {
		return abs(floorOrder[i]-fromFloor) < abs(floorOrder[j]-fromFloor)
	})

	var empty []Location
	for _, f := range floorOrder {
		for s := 1; s <= g.slots; s++ {
			if g.occupied[f-1][s-1] {
				continue
			}
			empty = append(empty, Location{Floor: f, Slot: s})
			if len(empty) == needed {
				return empty, nil
			}
		}
	}
	return empty, fmt.Errorf("%w: need %d, found %d", ErrNoEmptySlots, needed, len(empty))
}

func (g *Grid) inBounds(floor, slot int) bool {
	return floor >= 1 && floor <= g.floors && slot >= 1 && slot <= g.slots
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
