// Package reconcile computes the minimal Op sequence that transforms a
// current document value into a target value, for callers that want to
// converge the replicated state to an externally supplied shape (e.g. a
// one-off correction or a migration) without hand-authoring ops.
package reconcile

import (
	"github.com/docreplica/synclog/go/ops"
	"github.com/docreplica/synclog/go/value"
)

// Compute returns the ops that, applied in order to current, produce a
// value structurally equal to target. It returns (nil, nil) when current
// and target are already equal. It returns a *ops.FatalUsageError when
// current and target have incompatible root kinds — reconciliation cannot
// change what kind of value the document root is, since every Op addresses
// a slot inside a container, never the root itself.
func Compute(current, target value.Value) ([]ops.Op, error) {
	if value.Equal(current, target) {
		return nil, nil
	}
	if !sameRootFamily(current, target) {
		return nil, ops.Fatalf("reconcile", "root kind mismatch: %s vs %s", current.Kind(), target.Kind())
	}
	if current.Kind() != value.KindObject && current.Kind() != value.KindArray {
		return nil, ops.Fatalf("reconcile", "root value differs but root kind %s is not addressable", current.Kind())
	}

	var out []ops.Op
	diffContainer(nil, current, target, &out)
	return out, nil
}

func sameRootFamily(a, b value.Value) bool {
	return family(a.Kind()) == family(b.Kind())
}

func family(k value.Kind) string {
	switch k {
	case value.KindObject:
		return "object"
	case value.KindArray:
		return "array"
	default:
		return "scalar"
	}
}

// diffContainer appends the ops needed to turn current into target, given
// that both live at path and have already been checked to share the same
// (object or array) kind.
func diffContainer(path value.Path, current, target value.Value, out *[]ops.Op) {
	if current.Kind() == value.KindObject {
		diffObject(path, current, target, out)
	} else {
		diffArray(path, current, target, out)
	}
}

// childPath returns a new Path with seg appended, never aliasing path's
// backing array (diffObject reuses path across sibling keys).
func childPath(path value.Path, seg value.Segment) value.Path {
	out := make(value.Path, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

func diffObject(path value.Path, current, target value.Value, out *[]ops.Op) {
	for _, key := range current.Keys() {
		if !target.Has(key) {
			*out = append(*out, ops.DeleteOp(path, ops.FieldKey(key)))
		}
	}
	for _, key := range target.Keys() {
		tv, _ := target.Get(key)
		cv, present := current.Get(key)
		if !present {
			*out = append(*out, ops.SetOp(path, ops.FieldKey(key), tv))
			continue
		}
		if value.Equal(cv, tv) {
			continue
		}
		if cv.Kind() == tv.Kind() && (cv.Kind() == value.KindObject || cv.Kind() == value.KindArray) {
			diffContainer(childPath(path, value.FieldSeg(key)), cv, tv, out)
			continue
		}
		*out = append(*out, ops.SetOp(path, ops.FieldKey(key), tv))
	}
}

// diffArray finds the longest common prefix between current and target and
// replaces everything after it with a single Splice, rather than trying to
// minimize the edit distance over the whole array: a Splice already
// expresses an arbitrary-length replace/insert/delete in one op, and going
// further (e.g. LCS-based diffing) would only pay off for arrays that are
// reordered without being prefix-stable, which reconciliation callers don't
// produce in practice.
func diffArray(path value.Path, current, target value.Value, out *[]ops.Op) {
	n, m := current.Len(), target.Len()
	prefix := 0
	for prefix < n && prefix < m && value.Equal(current.At(prefix), target.At(prefix)) {
		prefix++
	}
	if prefix == n && prefix == m {
		return
	}
	inserts := make([]value.Value, 0, m-prefix)
	for j := prefix; j < m; j++ {
		inserts = append(inserts, target.At(j))
	}
	*out = append(*out, ops.SpliceOp(path, prefix, n-prefix, inserts...))
}
