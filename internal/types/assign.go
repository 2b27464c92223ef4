package types

// IsNumeric reports number, int and float.
func (in *Interner) IsNumeric(id TypeID) bool {
	switch in.KindOf(id) {
	case KindNumber, KindInt, KindFloat:
		return true
	}
	return false
}

// Assignable reports whether a value of type src may be stored where dst is
// expected. NoTypeID on either side is accepted so one unknown type does not
// cascade into further errors.
func (in *Interner) Assignable(dst, src TypeID) bool {
	if dst == src || dst == NoTypeID || src == NoTypeID {
		return true
	}
	dt, ok1 := in.Lookup(dst)
	st, ok2 := in.Lookup(src)
	if !ok1 || !ok2 {
		return false
	}
	switch dt.Kind {
	case KindNumber:
		return st.Kind == KindInt || st.Kind == KindFloat
	case KindFloat:
		return st.Kind == KindInt
	case KindOptional:
		switch st.Kind {
		case KindNull:
			return true
		case KindOptional:
			return in.Assignable(dt.Elem, st.Elem)
		default:
			return in.Assignable(dt.Elem, src)
		}
	case KindList:
		return st.Kind == KindList && in.Assignable(dt.Elem, st.Elem)
	case KindMap:
		return st.Kind == KindMap && in.Assignable(dt.Elem, st.Elem) && in.Assignable(dt.Value, st.Value)
	case KindTuple:
		if st.Kind != KindTuple {
			return false
		}
		d, _ := in.TupleInfo(dst)
		s, _ := in.TupleInfo(src)
		return in.allAssignable(d.Elems, s.Elems)
	case KindGeneric:
		if st.Kind != KindGeneric || dt.Name != st.Name {
			return false
		}
		d, _ := in.GenericInfo(dst)
		s, _ := in.GenericInfo(src)
		return in.allAssignable(d.Args, s.Args)
	case KindFn:
		if st.Kind != KindFn {
			return false
		}
		d, _ := in.FnInfo(dst)
		s, _ := in.FnInfo(src)
		return d.Result == s.Result && in.allAssignable(s.Params, d.Params)
	}
	return false
}

func (in *Interner) allAssignable(dst, src []TypeID) bool {
	if len(dst) != len(src) {
		return false
	}
	for i := range dst {
		if !in.Assignable(dst[i], src[i]) {
			return false
		}
	}
	return true
}

// Join returns the narrowest type both a and b are assignable to: used for
// list/map literal elements and if-expression style merges.
func (in *Interner) Join(a, b TypeID) (TypeID, bool) {
	switch {
	case a == NoTypeID:
		return b, true
	case b == NoTypeID:
		return a, true
	case in.Assignable(a, b) && (in.IsComplete(a) || !in.IsComplete(b)):
		return a, true
	case in.Assignable(b, a):
		return b, true
	case in.Assignable(a, b):
		return a, true
	case in.IsNumeric(a) && in.IsNumeric(b):
		return in.builtins.Number, true
	case in.KindOf(a) == KindNull:
		return in.Optional(b), true
	case in.KindOf(b) == KindNull:
		return in.Optional(a), true
	}
	return NoTypeID, false
}

// IsComplete reports whether id contains no unknown element slots.
func (in *Interner) IsComplete(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindList, KindOptional:
		return in.IsComplete(tt.Elem)
	case KindMap:
		return in.IsComplete(tt.Elem) && in.IsComplete(tt.Value)
	}
	return true
}
