package value

import (
	"testing"
	"time"
)

func TestToBoolean(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want bool
	}{
		{"nil is falsy", Nil(), false},
		{"blank is falsy", Blank(), false},
		{"false is falsy", False(), false},
		{"true is truthy", True(), true},
		{"zero is truthy", FromInt(0), true},
		{"empty string is truthy", FromString(""), true},
		{"empty array is truthy", FromSlice(nil), true},
		{"empty keyword is truthy", Empty(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.val.ToBoolean(); got != tt.want {
				t.Errorf("ToBoolean() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want string
	}{
		{"nil", Nil(), ""},
		{"blank", Blank(), ""},
		{"empty", Empty(), ""},
		{"true", True(), "true"},
		{"false", False(), "false"},
		{"integer", FromInt(42), "42"},
		{"decimal", FromFloat(1.5), "1.5"},
		{"string", FromString("hi"), "hi"},
		{"array concatenates", FromSlice([]Value{FromString("a"), FromInt(1)}), "a1"},
		{"function", FromFunction(FunctionFunc(func([]Value, map[string]Value) (Value, error) { return Nil(), nil })), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.val.ToString(); got != tt.want {
				t.Errorf("ToString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToStringDate(t *testing.T) {
	d := time.Date(2023, 5, 17, 9, 30, 0, 0, time.UTC)
	if got := FromTime(d).ToString(); got != "2023-05-17 09:30:00 +0000" {
		t.Errorf("ToString() = %q", got)
	}
}

func TestToNumber(t *testing.T) {
	n, ok := FromString(" 12.5 ").ToNumber()
	if !ok || n.String() != "12.5" {
		t.Errorf("numeric string should convert, got %v %v", n, ok)
	}
	if _, ok := FromString("abc").ToNumber(); ok {
		t.Error("non-numeric string should not convert")
	}
	if _, ok := Nil().ToNumber(); ok {
		t.Error("nil should not convert")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		val  Value
		want Kind
	}{
		{Nil(), KindNil},
		{Blank(), KindBlank},
		{Empty(), KindEmpty},
		{True(), KindBoolean},
		{FromInt(1), KindNumber},
		{FromString("x"), KindString},
		{FromSlice(nil), KindArray},
		{FromTime(time.Now()), KindDateTime},
		{FromObject(struct{}{}, nil), KindObject},
	}
	for _, tt := range tests {
		if got := tt.val.Kind(); got != tt.want {
			t.Errorf("Kind() = %v, want %v", got, tt.want)
		}
	}
}

func TestMemberBuiltins(t *testing.T) {
	arr := FromSlice([]Value{FromInt(10), FromInt(20), FromInt(30)})
	if got := arr.Member("size", nil); !got.Equals(FromInt(3)) {
		t.Errorf("size = %v", got.ToString())
	}
	if got := arr.Member("first", nil); !got.Equals(FromInt(10)) {
		t.Errorf("first = %v", got.ToString())
	}
	if got := arr.Member("last", nil); !got.Equals(FromInt(30)) {
		t.Errorf("last = %v", got.ToString())
	}
	if got := FromString("héllo").Member("size", nil); !got.Equals(FromInt(5)) {
		t.Errorf("string size = %v, want rune count", got.ToString())
	}
	if got := arr.Member("missing", nil); !got.IsNil() {
		t.Errorf("missing member should be nil, got %v", got.Kind())
	}
}

func TestIndex(t *testing.T) {
	arr := FromSlice([]Value{FromString("a"), FromString("b"), FromString("c")})
	if got := arr.Index(FromInt(1), nil); !got.Equals(FromString("b")) {
		t.Errorf("arr[1] = %q", got.ToString())
	}
	if got := arr.Index(FromInt(-1), nil); !got.Equals(FromString("c")) {
		t.Errorf("arr[-1] = %q, want last element", got.ToString())
	}
	if got := arr.Index(FromInt(5), nil); !got.IsNil() {
		t.Errorf("out of range should be nil, got %v", got.Kind())
	}

	obj := FromAny(map[string]any{"name": "ok"}, nil)
	if got := obj.Index(FromString("name"), nil); !got.Equals(FromString("ok")) {
		t.Errorf("obj[name] = %q", got.ToString())
	}
}

func TestIterate(t *testing.T) {
	arr := FromSlice([]Value{FromInt(1), FromInt(2)})
	if got := arr.Iterate(); len(got) != 2 {
		t.Errorf("array iterates its elements, got %d", len(got))
	}
	if got := Nil().Iterate(); len(got) != 0 {
		t.Errorf("nil iterates nothing, got %d", len(got))
	}
	if got := FromString("x").Iterate(); len(got) != 1 || !got[0].Equals(FromString("x")) {
		t.Errorf("scalar iterates as a single item, got %v", got)
	}
}

func TestFromAny(t *testing.T) {
	if got := FromAny(nil, nil); !got.IsNil() {
		t.Error("nil should convert to Nil")
	}
	if got := FromAny(7, nil); !got.Equals(FromInt(7)) {
		t.Error("int should convert to number")
	}
	if got := FromAny([]string{"a", "b"}, nil); got.Length() != 2 {
		t.Error("[]string should convert to array")
	}
	obj := FromAny(map[string]any{"Count": 3}, nil)
	if got := obj.Member("count", nil); !got.Equals(FromInt(3)) {
		t.Errorf("map member lookup should be case-insensitive, got %v", got.Kind())
	}
}
