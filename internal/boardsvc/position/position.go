// Package position computes the sibling renumbering needed to keep a 1-based,
// dense ordering intact when an entity is inserted, moved or removed.
//
// Every operation yields at most one contiguous range shift per scope; callers
// apply the shift(s) first and write the mover's own position last.
package position

import (
	"math"
	"sort"
)

// Unbounded is used as Shift.To for ranges open towards the tail.
const Unbounded = math.MaxInt32

// Shift moves every sibling whose position lies in [From, To] by Delta.
type Shift struct {
	From  int
	To    int
	Delta int
}

// Contains reports whether p lies in [From, To].
func (s Shift) Contains(p int) bool {
	return p >= s.From && p <= s.To
}

// Apply returns p after the shift.
func (s Shift) Apply(p int) int {
	if s.Contains(p) {
		return p + s.Delta
	}
	return p
}

// Empty reports whether the shift touches no position.
func (s Shift) Empty() bool {
	return s.Delta == 0 || s.From > s.To
}

// Append returns the tail position for a scope holding count items.
func Append(count int) int {
	return count + 1
}

// Clamp limits p to [1, max]. A max below 1 yields 1.
func Clamp(p, max int) int {
	if max < 1 {
		max = 1
	}
	if p > max {
		return max
	}
	if p < 1 {
		return 1
	}
	return p
}

// Reorder computes the shift for moving an item from oldPos to newPos inside
// the same scope. ok is false when the move is a no-op.
//
// Moving towards the tail closes the vacated slot: (oldPos, newPos] shifts -1.
// Moving towards the head opens a slot: [newPos, oldPos) shifts +1.
func Reorder(oldPos, newPos int) (s Shift, ok bool) {
	switch {
	case newPos > oldPos:
		return Shift{From: oldPos + 1, To: newPos, Delta: -1}, true
	case newPos < oldPos:
		return Shift{From: newPos, To: oldPos - 1, Delta: 1}, true
	default:
		return Shift{}, false
	}
}

// Remove closes the gap left at p.
func Remove(p int) Shift {
	return Shift{From: p + 1, To: Unbounded, Delta: -1}
}

// Insert opens a slot at p.
func Insert(p int) Shift {
	return Shift{From: p, To: Unbounded, Delta: 1}
}

// Transfer computes the two shifts for moving an item out of one scope at
// oldPos and into another at newPos.
func Transfer(oldPos, newPos int) (source, dest Shift) {
	return Remove(oldPos), Insert(newPos)
}

// Dense reports whether positions is exactly {1..len(positions)}.
func Dense(positions []int) bool {
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)
	for i, p := range sorted {
		if p != i+1 {
			return false
		}
	}
	return true
}
