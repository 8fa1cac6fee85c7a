package value

// This file exposes the narrow, pointer-oriented mutation surface that the
// ops package's draft engine needs to implement copy-on-write traversal. It
// is intentionally more permissive than the Value/Array/Object read API
// above: callers that hold a *Value are expected to already own it (see
// ops.Draft) before calling any setter here.

// Ptr heap-allocates a copy of v and returns a pointer to it.
func Ptr(v Value) *Value {
	vv := v
	return &vv
}

// Deref reads through a Value pointer, substituting Undefined for nil.
func Deref(p *Value) Value {
	if p == nil {
		u := Undefined()
		return u
	}
	return *p
}

// FromObject wraps an *Object as an object Value.
func FromObject(o *Object) Value { return Value{kind: KindObject, obj: o} }

// FromArray wraps an *Array as an array Value.
func FromArray(a *Array) Value { return Value{kind: KindArray, arr: a} }

// ObjectPtr returns the backing *Object of v, or nil if v is not an object.
func (v Value) ObjectPtr() *Object { return v.obj }

// ArrayPtr returns the backing *Array of v, or nil if v is not an array.
func (v Value) ArrayPtr() *Array { return v.arr }

// NewEmptyObject returns an object Value with a fresh, empty backing Object.
func NewEmptyObject() Value {
	return FromObject(&Object{vals: make(map[string]*Value)})
}

// Slot returns the value pointer stored at key, and whether key is present.
func (o *Object) Slot(key string) (*Value, bool) {
	p, ok := o.vals[key]
	return p, ok
}

// SetSlot inserts or replaces the value at key, preserving the position of
// an existing key and appending new keys to the end (insertion order).
func (o *Object) SetSlot(key string, v *Value) {
	if o.vals == nil {
		o.vals = make(map[string]*Value)
	}
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// KeyIndex returns key's position in insertion order, or -1 if key is
// absent. Used to remember a field's position before deleting it, so an
// undo can restore it there rather than appending it at the end.
func (o *Object) KeyIndex(key string) int {
	for i, k := range o.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// InsertSlotAt inserts key at position index in insertion order, shifting
// keys at and after index to the right. For a key not already present, an
// index outside [0, Len()] (negative or too large) appends the key at the
// end; an existing key is only rewritten in place, never moved, matching
// SetSlot.
func (o *Object) InsertSlotAt(index int, key string, v *Value) {
	if o.vals == nil {
		o.vals = make(map[string]*Value)
	}
	if _, exists := o.vals[key]; exists {
		o.vals[key] = v
		return
	}
	if index < 0 || index > len(o.keys) {
		index = len(o.keys)
	}
	o.keys = append(o.keys, "")
	copy(o.keys[index+1:], o.keys[index:])
	o.keys[index] = key
	o.vals[key] = v
}

// DeleteSlot removes key if present, reporting whether it was present.
func (o *Object) DeleteSlot(key string) bool {
	if _, ok := o.vals[key]; !ok {
		return false
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the object's keys in insertion order.
func (o *Object) Keys() []string { return o.keys }

// Len reports the number of fields.
func (o *Object) Len() int { return len(o.keys) }

// Clone returns a shallow copy: a fresh key slice and value map, sharing
// value pointers with the original. Safe for copy-on-write: the clone may
// be mutated freely without affecting the original's observable state,
// because any further descent re-clones shared child pointers in turn.
func (o *Object) Clone() *Object {
	clone := &Object{
		keys: append([]string(nil), o.keys...),
		vals: make(map[string]*Value, len(o.vals)),
	}
	for k, p := range o.vals {
		clone.vals[k] = p
	}
	return clone
}
