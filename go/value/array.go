package value

// NewEmptyArray returns an array Value with a fresh, empty backing Array.
func NewEmptyArray() Value { return FromArray(&Array{}) }

// Len reports the number of elements, including holes.
func (a *Array) Len() int { return len(a.items) }

// Slot returns the element pointer at i, and whether i is in bounds.
func (a *Array) Slot(i int) (*Value, bool) {
	if i < 0 || i >= len(a.items) {
		return nil, false
	}
	return a.items[i], true
}

// SetSlot replaces the element at i. Reports false if i is out of bounds.
func (a *Array) SetSlot(i int, v *Value) bool {
	if i < 0 || i >= len(a.items) {
		return false
	}
	a.items[i] = v
	return true
}

// Truncate shortens the array to n elements. n must be <= current length.
func (a *Array) Truncate(n int) {
	a.items = a.items[:n]
}

// ExtendWithHoles grows the array to n elements, filling new slots with the
// sparse-hole sentinel (KindUndefined).
func (a *Array) ExtendWithHoles(n int) {
	for len(a.items) < n {
		hole := Undefined()
		a.items = append(a.items, &hole)
	}
}

// Splice removes deleteCount elements starting at index and inserts the
// given elements in their place, returning the removed elements (for
// mutable-mode undo journaling). index and deleteCount must already be
// clamped to valid bounds by the caller.
func (a *Array) Splice(index, deleteCount int, inserts []*Value) []*Value {
	victims := append([]*Value(nil), a.items[index:index+deleteCount]...)

	tail := append([]*Value(nil), a.items[index+deleteCount:]...)
	a.items = append(a.items[:index], inserts...)
	a.items = append(a.items, tail...)

	return victims
}

// Append adds v to the end of the array.
func (a *Array) Append(v *Value) {
	a.items = append(a.items, v)
}

// Clone returns a shallow copy: a fresh backing slice sharing element
// pointers with the original.
func (a *Array) Clone() *Array {
	return &Array{items: append([]*Value(nil), a.items...)}
}

// Snapshot returns a copy of the current element pointers, for later
// restoration by Restore. Used by the op appliers' undo journals.
func (a *Array) Snapshot() []*Value {
	return append([]*Value(nil), a.items...)
}

// Restore replaces the array's contents with a previously captured
// Snapshot.
func (a *Array) Restore(items []*Value) {
	a.items = items
}
