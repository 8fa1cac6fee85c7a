// Package ops implements the operation algebra (Set, Delete, Splice,
// AddToSet, DeleteFromSet) and its two appliers: a mutable, in-place
// applier with an undo journal, and an immutable, copy-on-write applier
// built on a Draft context. Both share the same path-resolution and
// container-kind rules, so a given Op behaves identically under either.
package ops

import (
	"github.com/docreplica/synclog/go/value"
)

// Kind discriminates the five Op variants.
type Kind int

const (
	Set Kind = iota
	Delete
	Splice
	AddToSet
	DeleteFromSet
)

func (k Kind) String() string {
	switch k {
	case Set:
		return "Set"
	case Delete:
		return "Delete"
	case Splice:
		return "Splice"
	case AddToSet:
		return "AddToSet"
	case DeleteFromSet:
		return "DeleteFromSet"
	default:
		return "Unknown"
	}
}

// KeyKind discriminates the three forms a Set/Delete key may take.
type KeyKind int

const (
	KeyField KeyKind = iota
	KeyIndex
	KeyLength
)

// Key addresses a single slot within a container: an object field, an array
// index, or the literal "length" pseudo-field of an array.
type Key struct {
	Kind  KeyKind
	Field string
	Index int
}

// FieldKey builds an object-field Key.
func FieldKey(name string) Key { return Key{Kind: KeyField, Field: name} }

// IndexKey builds an array-index Key.
func IndexKey(i int) Key { return Key{Kind: KeyIndex, Index: i} }

// LengthKey builds the array "length" pseudo-Key.
func LengthKey() Key { return Key{Kind: KeyLength} }

// Op is one element of the operation algebra. Only the fields relevant to
// Kind are meaningful; see the field-by-field table in spec.md §3.
type Op struct {
	Kind Kind

	// Path addresses the container the op applies to: for Set/Delete, the
	// object or array holding Key; for Splice/AddToSet/DeleteFromSet, the
	// array itself.
	Path value.Path

	// Set/Delete.
	Key Key

	// Set (the value to assign), AddToSet/DeleteFromSet (the value to
	// add/remove).
	Value value.Value

	// Splice. Index and DeleteCount are preserved exactly as given — even
	// when negative or out of range — so the same Op replays identically
	// on every peer; clamping happens only at application time.
	Index       int
	DeleteCount int
	Inserts     []value.Value
}

// SetOp builds a Set operation.
func SetOp(path value.Path, key Key, v value.Value) Op {
	return Op{Kind: Set, Path: path, Key: key, Value: v}
}

// DeleteOp builds a Delete operation.
func DeleteOp(path value.Path, key Key) Op {
	return Op{Kind: Delete, Path: path, Key: key}
}

// SpliceOp builds a Splice operation.
func SpliceOp(path value.Path, index, deleteCount int, inserts ...value.Value) Op {
	return Op{Kind: Splice, Path: path, Index: index, DeleteCount: deleteCount, Inserts: inserts}
}

// AddToSetOp builds an AddToSet operation.
func AddToSetOp(path value.Path, v value.Value) Op {
	return Op{Kind: AddToSet, Path: path, Value: v}
}

// DeleteFromSetOp builds a DeleteFromSet operation.
func DeleteFromSetOp(path value.Path, v value.Value) Op {
	return Op{Kind: DeleteFromSet, Path: path, Value: v}
}
