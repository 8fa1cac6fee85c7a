package ops

import "github.com/docreplica/synclog/go/value"

// Draft is a copy-on-write working context over a document tree. Every
// container it descends through is cloned on first touch and the clone
// replaces the original in its parent slot; containers never touched by any
// op keep their original pointer identity, so Root() shares structure with
// the base value wherever nothing changed.
//
// A Draft may be reused across several transactions (ApplyTxsImmutable):
// a container cloned while applying transaction N stays owned, so
// transaction N+1 mutates it in place instead of cloning again. Each
// transaction still gets its own undo boundary, so a failing transaction
// never corrupts state committed by an earlier one in the same batch.
type Draft struct {
	root  *value.Value
	owned map[*value.Value]bool
	undo  undoStack
}

// NewDraft starts a Draft over base. base itself is never mutated; Draft
// clones containers lazily as ops touch them.
func NewDraft(base value.Value) *Draft {
	root := value.Ptr(base)
	return &Draft{root: root, owned: make(map[*value.Value]bool)}
}

// Root returns the Draft's current value, reflecting every op applied so
// far.
func (d *Draft) Root() value.Value { return value.Deref(d.root) }

func cloneContainer(v *value.Value) *value.Value {
	switch v.Kind() {
	case value.KindObject:
		return value.Ptr(value.FromObject(v.ObjectPtr().Clone()))
	case value.KindArray:
		return value.Ptr(value.FromArray(v.ArrayPtr().Clone()))
	default:
		return value.Ptr(*v)
	}
}

// ownRoot returns an owned pointer for the Draft's root, cloning and
// rewiring d.root if this is the first time the root itself is touched.
func (d *Draft) ownRoot() *value.Value {
	if d.owned[d.root] {
		return d.root
	}
	prev := d.root
	owned := cloneContainer(prev)
	d.owned[owned] = true
	d.root = owned
	d.undo.push(func() { d.root = prev })
	return owned
}

// ownChildObject returns an owned pointer for the value stored at key
// within obj, cloning and rewiring obj's slot if child is not yet owned by
// this Draft.
func (d *Draft) ownChildObject(obj *value.Object, key string, child *value.Value) *value.Value {
	if d.owned[child] {
		return child
	}
	owned := cloneContainer(child)
	d.owned[owned] = true
	obj.SetSlot(key, owned)
	d.undo.push(func() { obj.SetSlot(key, child) })
	return owned
}

// ownChildArray is ownChildObject's array-slot counterpart.
func (d *Draft) ownChildArray(arr *value.Array, index int, child *value.Value) *value.Value {
	if d.owned[child] {
		return child
	}
	owned := cloneContainer(child)
	d.owned[owned] = true
	arr.SetSlot(index, owned)
	d.undo.push(func() { arr.SetSlot(index, child) })
	return owned
}

// resolveContainer walks path from the Draft's root, cloning and owning
// every container it passes through, and returns the (now owned) container
// the final segment addresses. An empty path returns the owned root.
func (d *Draft) resolveContainer(path value.Path) (*value.Value, error) {
	cur := d.ownRoot()
	for _, seg := range path {
		switch cur.Kind() {
		case value.KindObject:
			if seg.IsIndex() {
				return nil, Rejectf("expected object field, found array index %d", seg.Idx())
			}
			obj := cur.ObjectPtr()
			child, ok := obj.Slot(seg.Key())
			if !ok {
				return nil, Rejectf("missing property %q", seg.Key())
			}
			if child.Kind() != value.KindObject && child.Kind() != value.KindArray {
				return nil, Rejectf("cannot traverse through %s value at %q", child.Kind(), seg.Key())
			}
			cur = d.ownChildObject(obj, seg.Key(), child)

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
			cur = d.ownChildArray(arr, seg.Idx(), child)

		default:
			return nil, Rejectf("cannot traverse through %s value", cur.Kind())
		}
	}
	return cur, nil
}

// Apply performs a single op against the Draft, without any undo boundary
// of its own; callers that need all-or-nothing semantics across several ops
// should use ApplyTx.
func (d *Draft) Apply(op Op) error {
	container, err := d.resolveContainer(op.Path)
	if err != nil {
		return err
	}
	return applyToContainer(container, op, &d.undo)
}

// ApplyTx applies every op in txOps atomically: if any op fails, or
// validate rejects the resulting root, every mutation performed by this
// call is rolled back and the Draft is left exactly as it was.
func (d *Draft) ApplyTx(txOps []Op, validate func(value.Value) bool) error {
	mark := d.undo.mark()
	for _, op := range txOps {
		if err := d.Apply(op); err != nil {
			d.undo.finish(mark, false)
			return err
		}
	}
	if validate != nil && !validate(d.Root()) {
		d.undo.finish(mark, false)
		return Rejectf("validator rejected candidate state")
	}
	d.undo.finish(mark, true)
	return nil
}

// ApplyTxImmutable applies a single transaction's ops to base and returns
// the resulting value. On failure it returns base unchanged, by reference:
// SameReference(base, result) holds when no op in txOps could be applied.
func ApplyTxImmutable(base value.Value, txOps []Op, validate func(value.Value) bool) (value.Value, error) {
	d := NewDraft(base)
	if err := d.ApplyTx(txOps, validate); err != nil {
		return base, err
	}
	return d.Root(), nil
}

// ApplyTxsImmutable applies each transaction in txs, in order, to base using
// a single shared Draft. A transaction that fails contributes nothing and
// does not affect transactions after it. If no transaction succeeds, the
// returned value is base's own reference (reference-equal, per invariant).
// applied reports, per transaction, whether it succeeded.
func ApplyTxsImmutable(base value.Value, txs [][]Op, validate func(value.Value) bool) (result value.Value, applied []bool) {
	d := NewDraft(base)
	applied = make([]bool, len(txs))
	anySucceeded := false
	for i, txOps := range txs {
		if err := d.ApplyTx(txOps, validate); err == nil {
			applied[i] = true
			anySucceeded = true
		}
	}
	if !anySucceeded {
		return base, applied
	}
	return d.Root(), applied
}
