package value

import (
	"reflect"
	"strings"
)

// Equals returns true if two values are equal under Liquid's type-aware
// rules. Numbers compare numerically, strings ordinally; the blank and empty
// keywords compare equal to their coercion partners; everything else is
// unequal across kinds rather than an error. Nil equals nil.
func (v Value) Equals(other Value) bool {
	// blank/empty keyword coercion works from either side
	if _, ok := v.data.(blankType); ok {
		return isBlank(other)
	}
	if _, ok := other.data.(blankType); ok {
		return isBlank(v)
	}
	if _, ok := v.data.(emptyType); ok {
		return isEmpty(other)
	}
	if _, ok := other.data.(emptyType); ok {
		return isEmpty(v)
	}

	if v.IsNil() || other.IsNil() {
		return v.IsNil() && other.IsNil()
	}

	switch d := v.data.(type) {
	case bool:
		b, ok := other.data.(bool)
		return ok && d == b
	case string:
		s, ok := other.AsString()
		return ok && d == s
	case []Value:
		s, ok := other.AsSlice()
		if !ok || len(d) != len(s) {
			return false
		}
		for i := range d {
			if !d[i].Equals(s[i]) {
				return false
			}
		}
		return true
	}

	if v.Kind() == KindNumber && other.Kind() == KindNumber {
		a, _ := v.ToNumber()
		b, _ := other.ToNumber()
		return a.Equal(b)
	}

	if t1, ok := v.AsTime(); ok {
		t2, ok := other.AsTime()
		return ok && t1.Equal(t2)
	}

	if o1, ok := v.data.(objectValue); ok {
		o2, ok := other.data.(objectValue)
		return ok && sameRef(o1.ref, o2.ref)
	}

	return false
}

// isBlank reports whether the value coerces equal to the blank keyword:
// nil, false, blank itself, and empty or whitespace-only strings.
func isBlank(v Value) bool {
	switch d := v.data.(type) {
	case nilType, nil, blankType:
		return true
	case bool:
		return !d
	case string:
		return strings.TrimSpace(d) == ""
	default:
		return false
	}
}

// isEmpty reports whether the value coerces equal to the empty keyword:
// empty itself, empty strings, and empty arrays.
func isEmpty(v Value) bool {
	switch d := v.data.(type) {
	case emptyType:
		return true
	case string:
		return d == ""
	case []Value:
		return len(d) == 0
	default:
		return false
	}
}

// sameRef compares two host references for identity without panicking on
// uncomparable dynamic types.
func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		switch va.Kind() {
		case reflect.Map, reflect.Slice, reflect.Func:
			return va.Pointer() == vb.Pointer()
		}
		return false
	}
	return a == b
}

// Compare orders two values. Ordering is defined only when both operands
// resolve to numbers; the false result signals an undefined comparison,
// which callers surface as Nil rather than a failure.
func (v Value) Compare(other Value) (int, bool) {
	a, ok := v.ToNumber()
	if !ok {
		return 0, false
	}
	b, ok := other.ToNumber()
	if !ok {
		return 0, false
	}
	return a.Cmp(b), true
}

// Contains dispatches on the receiver's kind: array membership, string
// substring, or object key presence. Unsupported kinds report false.
func (v Value) Contains(other Value) bool {
	switch d := v.data.(type) {
	case string:
		return strings.Contains(d, other.ToString())
	case []Value:
		for _, item := range d {
			if item.Equals(other) {
				return true
			}
		}
	case objectValue:
		if s, ok := other.AsString(); ok && d.acc != nil {
			_, found := d.acc.Access(d.ref, s)
			return found
		}
	}
	return false
}

// StartsWith reports whether a string value starts with another string.
// Defined only for string operands; anything else is false.
func (v Value) StartsWith(other Value) bool {
	s, ok := v.AsString()
	if !ok {
		return false
	}
	prefix, ok := other.AsString()
	if !ok {
		return false
	}
	return strings.HasPrefix(s, prefix)
}

// EndsWith reports whether a string value ends with another string.
// Defined only for string operands; anything else is false.
func (v Value) EndsWith(other Value) bool {
	s, ok := v.AsString()
	if !ok {
		return false
	}
	suffix, ok := other.AsString()
	if !ok {
		return false
	}
	return strings.HasSuffix(s, suffix)
}
