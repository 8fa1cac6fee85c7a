package ops

import "github.com/docreplica/synclog/go/value"

// applyToContainer performs the terminal effect of op against container,
// which both appliers guarantee is already safe to mutate in place: a
// private Draft clone for the immutable applier, or the live document tree
// for the mutable applier. Every mutation pushes its inverse onto u so the
// caller's transaction boundary can be rolled back on later failure.
func applyToContainer(container *value.Value, op Op, u *undoStack) error {
	switch op.Kind {
	case Set:
		return applySet(container, op, u)
	case Delete:
		return applyDelete(container, op, u)
	case Splice:
		return applySplice(container, op, u)
	case AddToSet:
		return applyAddToSet(container, op, u)
	case DeleteFromSet:
		return applyDeleteFromSet(container, op, u)
	default:
		return Rejectf("unknown op kind %v", op.Kind)
	}
}

func applySet(container *value.Value, op Op, u *undoStack) error {
	switch op.Key.Kind {
	case KeyField:
		if container.Kind() != value.KindObject {
			return Rejectf("Set field %q on non-object container", op.Key.Field)
		}
		obj := container.ObjectPtr()
		old, existed := obj.Slot(op.Key.Field)
		obj.SetSlot(op.Key.Field, value.Ptr(op.Value))
		u.push(func() {
			if existed {
				obj.SetSlot(op.Key.Field, old)
			} else {
				obj.DeleteSlot(op.Key.Field)
			}
		})
		return nil

	case KeyIndex:
		if container.Kind() != value.KindArray {
			return Rejectf("Set index %d on non-array container", op.Key.Index)
		}
		arr := container.ArrayPtr()
		old, ok := arr.Slot(op.Key.Index)
		if !ok {
			return Rejectf("Set index %d out of bounds (len %d)", op.Key.Index, arr.Len())
		}
		arr.SetSlot(op.Key.Index, value.Ptr(op.Value))
		u.push(func() { arr.SetSlot(op.Key.Index, old) })
		return nil

	case KeyLength:
		if container.Kind() != value.KindArray {
			return Rejectf("Set length on non-array container")
		}
		if op.Value.Kind() != value.KindNumber {
			return Rejectf("Set length requires a numeric value")
		}
		n := int(op.Value.Number())
		if n < 0 {
			return Rejectf("Set length requires a non-negative value")
		}
		arr := container.ArrayPtr()
		if n == arr.Len() {
			return nil
		}
		snapshot := arr.Snapshot()
		if n < arr.Len() {
			arr.Truncate(n)
		} else {
			arr.ExtendWithHoles(n)
		}
		u.push(func() { arr.Restore(snapshot) })
		return nil

	default:
		return Rejectf("unknown key kind %v", op.Key.Kind)
	}
}

func applyDelete(container *value.Value, op Op, u *undoStack) error {
	switch op.Key.Kind {
	case KeyField:
		if container.Kind() != value.KindObject {
			return Rejectf("Delete field %q on non-object container", op.Key.Field)
		}
		obj := container.ObjectPtr()
		old, existed := obj.Slot(op.Key.Field)
		if !existed {
			return nil
		}
		idx := obj.KeyIndex(op.Key.Field)
		obj.DeleteSlot(op.Key.Field)
		u.push(func() { obj.InsertSlotAt(idx, op.Key.Field, old) })
		return nil

	case KeyIndex:
		if container.Kind() != value.KindArray {
			return Rejectf("Delete index %d on non-array container", op.Key.Index)
		}
		arr := container.ArrayPtr()
		old, ok := arr.Slot(op.Key.Index)
		if !ok {
			return Rejectf("Delete index %d out of bounds (len %d)", op.Key.Index, arr.Len())
		}
		hole := value.Undefined()
		arr.SetSlot(op.Key.Index, &hole)
		u.push(func() { arr.SetSlot(op.Key.Index, old) })
		return nil

	default:
		return Rejectf("Delete requires a field or index key")
	}
}

func applySplice(container *value.Value, op Op, u *undoStack) error {
	if container.Kind() != value.KindArray {
		return Rejectf("Splice on non-array container")
	}
	arr := container.ArrayPtr()
	index, deleteCount := clampSplice(arr.Len(), op.Index, op.DeleteCount)

	inserts := make([]*value.Value, len(op.Inserts))
	for i := range op.Inserts {
		inserts[i] = value.Ptr(op.Inserts[i])
	}

	victims := arr.Splice(index, deleteCount, inserts)
	u.push(func() { arr.Splice(index, len(inserts), victims) })
	return nil
}

// clampSplice normalizes a possibly negative or out-of-range (index,
// deleteCount) pair to valid bounds for an array of the given length,
// mirroring Array.prototype.splice semantics.
func clampSplice(length, index, deleteCount int) (int, int) {
	if index < 0 {
		index += length
		if index < 0 {
			index = 0
		}
	}
	if index > length {
		index = length
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if index+deleteCount > length {
		deleteCount = length - index
	}
	return index, deleteCount
}

func applyAddToSet(container *value.Value, op Op, u *undoStack) error {
	if container.Kind() != value.KindArray {
		return Rejectf("AddToSet on non-array container")
	}
	arr := container.ArrayPtr()
	for i := 0; i < arr.Len(); i++ {
		p, _ := arr.Slot(i)
		if value.Equal(value.Deref(p), op.Value) {
			return nil
		}
	}
	arr.Append(value.Ptr(op.Value))
	u.push(func() { arr.Truncate(arr.Len() - 1) })
	return nil
}

func applyDeleteFromSet(container *value.Value, op Op, u *undoStack) error {
	if container.Kind() != value.KindArray {
		return Rejectf("DeleteFromSet on non-array container")
	}
	arr := container.ArrayPtr()
	kept := make([]*value.Value, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		p, _ := arr.Slot(i)
		if !value.Equal(value.Deref(p), op.Value) {
			kept = append(kept, p)
		}
	}
	if len(kept) == arr.Len() {
		return nil
	}
	victims := arr.Splice(0, arr.Len(), kept)
	u.push(func() { arr.Splice(0, len(kept), victims) })
	return nil
}
