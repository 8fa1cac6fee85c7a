package ops

import "github.com/docreplica/synclog/go/value"

// Mutable applies ops directly against a live document tree, in place. It
// suits callers whose prior value is referenced by nothing else, where
// copy-on-write's structural sharing buys nothing. The engine's state
// calculator does not use it; it applies transactions through
// ApplyTxImmutable.
type Mutable struct {
	root *value.Value
	undo undoStack
}

// NewMutable wraps root for in-place mutation. root is mutated directly;
// callers that still need the pre-mutation value must clone it first.
func NewMutable(root *value.Value) *Mutable {
	return &Mutable{root: root}
}

// Root returns the current document value.
func (m *Mutable) Root() value.Value { return value.Deref(m.root) }

// navigate walks path from root without cloning, returning the container
// the final segment addresses. Error cases mirror Draft.resolveContainer
// exactly, so a given Op is rejected identically by either applier.
func navigate(root *value.Value, path value.Path) (*value.Value, error) {
	cur := root
	for _, seg := range path {
		switch cur.Kind() {
		case value.KindObject:
			if seg.IsIndex() {
				return nil, Rejectf("expected object field, found array index %d", seg.Idx())
			}
			child, ok := cur.ObjectPtr().Slot(seg.Key())
			if !ok {
				return nil, Rejectf("missing property %q", seg.Key())
			}
			if child.Kind() != value.KindObject && child.Kind() != value.KindArray {
				return nil, Rejectf("cannot traverse through %s value at %q", child.Kind(), seg.Key())
			}
			cur = child

		case value.KindArray:
			if !seg.IsIndex() {
				return nil, Rejectf("expected array index, found field %q", seg.Key())
			}
			arr := cur.ArrayPtr()
			child, ok := arr.Slot(seg.Idx())
			if !ok {
				return nil, Rejectf("array index %d out of bounds (len %d)", seg.Idx(), arr.Len())
			}
			if child.Kind() != value.KindObject && child.Kind() != value.KindArray {
				return nil, Rejectf("cannot traverse through %s value at index %d", child.Kind(), seg.Idx())
			}
			cur = child

		default:
			return nil, Rejectf("cannot traverse through %s value", cur.Kind())
		}
	}
	return cur, nil
}

// Apply performs a single op against the live tree, with no undo boundary
// of its own.
func (m *Mutable) Apply(op Op) error {
	container, err := navigate(m.root, op.Path)
	if err != nil {
		return err
	}
	return applyToContainer(container, op, &m.undo)
}

// ApplyTx applies every op in txOps atomically against the live tree: on
// failure or validator rejection, every mutation this call made is undone
// and the tree is left exactly as it was before the call.
func (m *Mutable) ApplyTx(txOps []Op, validate func(value.Value) bool) error {
	mark := m.undo.mark()
	for _, op := range txOps {
		if err := m.Apply(op); err != nil {
			m.undo.finish(mark, false)
			return err
		}
	}
	if validate != nil && !validate(m.Root()) {
		m.undo.finish(mark, false)
		return Rejectf("validator rejected candidate state")
	}
	m.undo.finish(mark, true)
	return nil
}

// ApplyMutable applies a single transaction in place against root, rolling
// back on failure so root is left untouched.
func ApplyMutable(root *value.Value, txOps []Op, validate func(value.Value) bool) error {
	return NewMutable(root).ApplyTx(txOps, validate)
}
