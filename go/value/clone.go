package value

// DeepClone recursively copies v so that no container in the result is
// shared with v. Used when a caller needs an owned value safe to hand to
// the mutable applier, which mutates in place.
func DeepClone(v Value) Value {
	switch v.kind {
	case KindArray:
		items := make([]*Value, len(v.arr.items))
		for i, p := range v.arr.items {
			cloned := DeepClone(Deref(p))
			items[i] = &cloned
		}
		return FromArray(&Array{items: items})
	case KindObject:
		o := &Object{
			keys: append([]string(nil), v.obj.keys...),
			vals: make(map[string]*Value, len(v.obj.vals)),
		}
		for _, k := range v.obj.keys {
			cloned := DeepClone(Deref(v.obj.vals[k]))
			o.vals[k] = &cloned
		}
		return FromObject(o)
	default:
		return v
	}
}
