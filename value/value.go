// Package value provides the dynamic value type for the template engine.
//
// The value package implements Fluid's Liquid value system, which allows
// templates to work with values of different types (strings, numbers,
// arrays, objects, dates, functions) without compile-time type information.
//
// # Core Concepts
//
// The Value type is the central type in this package. It can hold any of the
// Liquid value kinds and provides methods for type checking, conversion, and
// operations. Values are created from Go primitives using constructor
// functions like FromInt, FromString, FromSlice, etc.
//
// # Type System
//
// Fluid supports the following value kinds:
//   - Nil: a missing or null value
//   - Blank: the `blank` keyword; compares equal to blank-ish values
//   - Empty: the `empty` keyword; compares equal to empty collections
//   - Boolean: true/false
//   - Number: decimal numbers (shopspring/decimal under the hood)
//   - String: UTF-8 text
//   - Array: ordered sequences
//   - Object: a host object paired with a member accessor
//   - DateTime: a point in time
//   - Function: a callable (macros, host functions)
//
// # Conversion Rules
//
// All conversions are total: ToBoolean, ToNumber, and ToString never fail.
// ToNumber additionally reports whether the value was numeric; non-numeric
// values compare unequal under ordering rather than producing an error.
//
// # Example Usage
//
//	name := value.FromString("World")
//	count := value.FromInt(42)
//	items := value.FromSlice([]value.Value{name, count})
//
//	if name.Kind() == value.KindString {
//	    s, _ := name.AsString()
//	    fmt.Println(s)
//	}
package value

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind describes the type of a Value.
type Kind int

const (
	// KindNil represents a missing or null value. Unresolvable variables and
	// members resolve to Nil rather than failing.
	KindNil Kind = iota

	// KindBlank represents the `blank` keyword. Blank compares equal to nil,
	// false, and strings that are empty or whitespace-only.
	KindBlank

	// KindEmpty represents the `empty` keyword. Empty compares equal to
	// empty strings, arrays, and objects.
	KindEmpty

	// KindBoolean represents a boolean value.
	KindBoolean

	// KindNumber represents a decimal number.
	KindNumber

	// KindString represents a text string.
	KindString

	// KindArray represents an ordered sequence.
	KindArray

	// KindObject represents a host object paired with a member accessor.
	KindObject

	// KindDateTime represents a point in time.
	KindDateTime

	// KindFunction represents a callable value.
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBlank:
		return "blank"
	case KindEmpty:
		return "empty"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindDateTime:
		return "date"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// MemberAccessor resolves a named member on a host object. Implementations
// live outside the core (typically a reflection- or table-based strategy
// configured once at setup); the value package only consumes the capability.
type MemberAccessor interface {
	Access(obj any, name string) (Value, bool)
}

// Function is a callable value. Macros and host functions implement it.
type Function interface {
	// Invoke calls the function with positional and named arguments.
	Invoke(args []Value, named map[string]Value) (Value, error)
}

// FunctionFunc adapts an ordinary func to the Function interface.
type FunctionFunc func(args []Value, named map[string]Value) (Value, error)

func (f FunctionFunc) Invoke(args []Value, named map[string]Value) (Value, error) {
	return f(args, named)
}

// Value represents a dynamically typed value in the template engine.
//
// Value is immutable for primitive kinds; arrays are referenced, so changes
// to the underlying slice are visible through the Value.
type Value struct {
	data any
}

// internal marker types for the keyword values
type nilType struct{}
type blankType struct{}
type emptyType struct{}

// objectValue pairs a host object reference with the accessor that resolves
// its members.
type objectValue struct {
	ref any
	acc MemberAccessor
}

// Nil returns the nil value.
func Nil() Value {
	return Value{data: nilType{}}
}

// Blank returns the `blank` keyword value.
func Blank() Value {
	return Value{data: blankType{}}
}

// Empty returns the `empty` keyword value.
func Empty() Value {
	return Value{data: emptyType{}}
}

// True returns the boolean true value.
func True() Value {
	return Value{data: true}
}

// False returns the boolean false value.
func False() Value {
	return Value{data: false}
}

// FromBool creates a Value from a boolean.
func FromBool(v bool) Value {
	return Value{data: v}
}

// FromNumber creates a Value from a decimal.
func FromNumber(d decimal.Decimal) Value {
	return Value{data: d}
}

// FromInt creates a numeric Value from an int64.
func FromInt(v int64) Value {
	return Value{data: decimal.NewFromInt(v)}
}

// FromFloat creates a numeric Value from a float64.
func FromFloat(v float64) Value {
	return Value{data: decimal.NewFromFloat(v)}
}

// FromString creates a Value from a string.
func FromString(v string) Value {
	return Value{data: v}
}

// FromSlice creates an array Value from a slice of Values.
func FromSlice(v []Value) Value {
	return Value{data: v}
}

// FromTime creates a DateTime Value.
func FromTime(t time.Time) Value {
	return Value{data: t}
}

// FromFunction creates a callable Value.
func FromFunction(f Function) Value {
	return Value{data: f}
}

// FromObject creates an object Value from a host object and the accessor
// used to resolve its members. A nil accessor makes every member Nil.
func FromObject(ref any, acc MemberAccessor) Value {
	return Value{data: objectValue{ref: ref, acc: acc}}
}

// FromAny converts a Go value to a Value. Unrecognized types are wrapped as
// objects resolved through the supplied accessor.
func FromAny(v any, acc MemberAccessor) Value {
	switch d := v.(type) {
	case nil:
		return Nil()
	case Value:
		return d
	case bool:
		return FromBool(d)
	case int:
		return FromInt(int64(d))
	case int32:
		return FromInt(int64(d))
	case int64:
		return FromInt(d)
	case uint:
		return FromInt(int64(d))
	case uint64:
		return FromInt(int64(d))
	case float32:
		return FromFloat(float64(d))
	case float64:
		return FromFloat(d)
	case decimal.Decimal:
		return FromNumber(d)
	case string:
		return FromString(d)
	case time.Time:
		return FromTime(d)
	case Function:
		return FromFunction(d)
	case []Value:
		return FromSlice(d)
	case []any:
		items := make([]Value, len(d))
		for i, item := range d {
			items[i] = FromAny(item, acc)
		}
		return FromSlice(items)
	case []string:
		items := make([]Value, len(d))
		for i, item := range d {
			items[i] = FromString(item)
		}
		return FromSlice(items)
	case []int:
		items := make([]Value, len(d))
		for i, item := range d {
			items[i] = FromInt(int64(item))
		}
		return FromSlice(items)
	case map[string]Value:
		return FromObject(d, mapAccessor{})
	case map[string]any:
		return FromObject(d, anyMapAccessor{next: acc})
	default:
		return FromObject(v, acc)
	}
}

// mapAccessor resolves members of map[string]Value hosts.
type mapAccessor struct{}

func (mapAccessor) Access(obj any, name string) (Value, bool) {
	m, ok := obj.(map[string]Value)
	if !ok {
		return Nil(), false
	}
	if v, ok := m[name]; ok {
		return v, true
	}
	// second chance: case-insensitive
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return Nil(), false
}

// anyMapAccessor resolves members of map[string]any hosts, converting the
// results recursively.
type anyMapAccessor struct {
	next MemberAccessor
}

func (a anyMapAccessor) Access(obj any, name string) (Value, bool) {
	m, ok := obj.(map[string]any)
	if !ok {
		return Nil(), false
	}
	if v, ok := m[name]; ok {
		return FromAny(v, a.next), true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return FromAny(v, a.next), true
		}
	}
	return Nil(), false
}

// Kind returns the kind of value.
func (v Value) Kind() Kind {
	switch v.data.(type) {
	case nilType, nil:
		return KindNil
	case blankType:
		return KindBlank
	case emptyType:
		return KindEmpty
	case bool:
		return KindBoolean
	case decimal.Decimal:
		return KindNumber
	case string:
		return KindString
	case []Value:
		return KindArray
	case objectValue:
		return KindObject
	case time.Time:
		return KindDateTime
	case Function:
		return KindFunction
	default:
		return KindObject
	}
}

// IsNil returns true if the value is nil.
func (v Value) IsNil() bool {
	_, ok := v.data.(nilType)
	return ok || v.data == nil
}

// ToBoolean returns the truthiness of the value. Only nil, blank, and false
// are falsy; empty strings, zero, and empty arrays are truthy, following
// Liquid semantics.
func (v Value) ToBoolean() bool {
	switch d := v.data.(type) {
	case nilType, nil, blankType:
		return false
	case bool:
		return d
	default:
		return true
	}
}

// ToNumber converts the value to a decimal. The second result reports
// whether the value was numeric; non-numeric values yield zero and false
// (the NaN-equivalent), never an error.
func (v Value) ToNumber() (decimal.Decimal, bool) {
	switch d := v.data.(type) {
	case decimal.Decimal:
		return d, true
	case string:
		n, err := decimal.NewFromString(strings.TrimSpace(d))
		if err != nil {
			return decimal.Zero, false
		}
		return n, true
	default:
		return decimal.Zero, false
	}
}

// ToString converts the value to its rendered text form.
func (v Value) ToString() string {
	switch d := v.data.(type) {
	case nilType, nil, blankType, emptyType:
		return ""
	case bool:
		if d {
			return "true"
		}
		return "false"
	case decimal.Decimal:
		return d.String()
	case string:
		return d
	case []Value:
		var sb strings.Builder
		for _, item := range d {
			sb.WriteString(item.ToString())
		}
		return sb.String()
	case time.Time:
		return formatTime(d, defaultDateLayout)
	case objectValue:
		if s, ok := d.ref.(interface{ String() string }); ok {
			return s.String()
		}
		return ""
	case Function:
		return ""
	default:
		return ""
	}
}

// AsString returns the string if the value is one.
func (v Value) AsString() (string, bool) {
	s, ok := v.data.(string)
	return s, ok
}

// AsSlice returns the element slice if the value is an array.
func (v Value) AsSlice() ([]Value, bool) {
	s, ok := v.data.([]Value)
	return s, ok
}

// AsTime returns the time if the value is a date.
func (v Value) AsTime() (time.Time, bool) {
	t, ok := v.data.(time.Time)
	return t, ok
}

// AsFunction returns the callable if the value is one.
func (v Value) AsFunction() (Function, bool) {
	f, ok := v.data.(Function)
	return f, ok
}

// AsObject returns the host reference and accessor if the value is an object.
func (v Value) AsObject() (any, MemberAccessor, bool) {
	o, ok := v.data.(objectValue)
	if !ok {
		return nil, nil, false
	}
	return o.ref, o.acc, true
}

// Length returns the number of elements the value holds: runes for strings,
// elements for arrays. Other kinds report zero.
func (v Value) Length() int {
	switch d := v.data.(type) {
	case string:
		return len([]rune(d))
	case []Value:
		return len(d)
	default:
		return 0
	}
}

// Member resolves a named member of the value. Arrays and strings expose the
// built-in size/first/last members; objects defer to their accessor, with
// the fallback accessor consulted when the object carries none. Unresolvable
// members are Nil, never an error.
func (v Value) Member(name string, fallback MemberAccessor) Value {
	switch d := v.data.(type) {
	case string:
		if name == "size" {
			return FromInt(int64(len([]rune(d))))
		}
	case []Value:
		switch name {
		case "size":
			return FromInt(int64(len(d)))
		case "first":
			if len(d) > 0 {
				return d[0]
			}
		case "last":
			if len(d) > 0 {
				return d[len(d)-1]
			}
		}
	case objectValue:
		acc := d.acc
		if acc == nil {
			acc = fallback
		}
		if acc != nil {
			if val, ok := acc.Access(d.ref, name); ok {
				return val
			}
		}
	}
	return Nil()
}

// Index resolves an indexer access. Arrays take integer indexes (negative
// counts from the end); objects treat string keys as member names.
func (v Value) Index(key Value, fallback MemberAccessor) Value {
	switch d := v.data.(type) {
	case []Value:
		if n, ok := key.ToNumber(); ok {
			idx := n.IntPart()
			if idx < 0 {
				idx += int64(len(d))
			}
			if idx >= 0 && idx < int64(len(d)) {
				return d[idx]
			}
		}
	case objectValue:
		if s, ok := key.AsString(); ok {
			return v.Member(s, fallback)
		}
	}
	return Nil()
}

// Iterate returns the sequence a for-loop visits: the elements of an array,
// nothing for nil-like values, and the value itself for scalars.
func (v Value) Iterate() []Value {
	switch v.data.(type) {
	case []Value:
		return v.data.([]Value)
	case nilType, nil, blankType, emptyType:
		return nil
	default:
		return []Value{v}
	}
}
