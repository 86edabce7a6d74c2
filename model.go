package fluid

import (
	"reflect"
	"strings"
	"sync"

	"github.com/kaqq/fluid/value"
)

// ReflectionMemberAccessStrategy is the default member-access strategy. It
// resolves exported struct fields and map keys by case-insensitive name,
// caching the per-type field tables so reflection happens once per type.
type ReflectionMemberAccessStrategy struct {
	mu     sync.RWMutex
	fields map[reflect.Type]map[string][]int
}

// NewReflectionMemberAccessStrategy creates the default strategy.
func NewReflectionMemberAccessStrategy() *ReflectionMemberAccessStrategy {
	return &ReflectionMemberAccessStrategy{
		fields: make(map[reflect.Type]map[string][]int),
	}
}

// Access resolves name on obj, returning the member as a Value. Lookups are
// case-insensitive. Missing members report false; they never fail.
func (s *ReflectionMemberAccessStrategy) Access(obj any, name string) (value.Value, bool) {
	if obj == nil {
		return value.Nil(), false
	}
	if m, ok := obj.(map[string]any); ok {
		if v, ok := m[name]; ok {
			return value.FromAny(v, s), true
		}
		for k, v := range m {
			if strings.EqualFold(k, name) {
				return value.FromAny(v, s), true
			}
		}
		return value.Nil(), false
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return value.Nil(), false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return value.Nil(), false
	}

	idx, ok := s.fieldIndex(rv.Type(), name)
	if !ok {
		return value.Nil(), false
	}
	return value.FromAny(rv.FieldByIndex(idx).Interface(), s), true
}

func (s *ReflectionMemberAccessStrategy) fieldIndex(t reflect.Type, name string) ([]int, bool) {
	s.mu.RLock()
	table, ok := s.fields[t]
	s.mu.RUnlock()
	if !ok {
		table = make(map[string][]int)
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() {
				table[strings.ToLower(f.Name)] = f.Index
			}
		}
		s.mu.Lock()
		s.fields[t] = table
		s.mu.Unlock()
	}
	idx, ok := table[strings.ToLower(name)]
	return idx, ok
}

// ModelType is a static type description the lowering compiler specializes
// against. It maps property names to typed getters so compiled member
// chains bypass dynamic lookup and variant wrapping while the owner type of
// each step is known. Descriptions are built once at configuration time.
type ModelType struct {
	name  string
	props map[string]*ModelProperty
}

// ModelProperty is one statically described property: a host-typed getter
// plus the property's own type description when it is known (nil means the
// chain leaves the described type graph at this step).
type ModelProperty struct {
	Name string
	Type *ModelType
	Get  func(owner any) any
}

// NewModelType creates an empty type description.
func NewModelType(name string) *ModelType {
	return &ModelType{name: name, props: make(map[string]*ModelProperty)}
}

// Name returns the description's display name.
func (t *ModelType) Name() string { return t.name }

// AddProperty registers a property. propType may be nil when the property's
// value has no static description of its own.
func (t *ModelType) AddProperty(name string, get func(owner any) any, propType *ModelType) *ModelType {
	t.props[strings.ToLower(name)] = &ModelProperty{Name: name, Type: propType, Get: get}
	return t
}

// Property resolves a property by case-insensitive name.
func (t *ModelType) Property(name string) (*ModelProperty, bool) {
	p, ok := t.props[strings.ToLower(name)]
	return p, ok
}

// DescribeModel builds a ModelType for a struct type via one-time
// reflection, including nested struct properties. The resulting table is
// consumed by the compiler without further reflection.
func DescribeModel(sample any) *ModelType {
	t := reflect.TypeOf(sample)
	return describeType(t, make(map[reflect.Type]*ModelType))
}

func describeType(t reflect.Type, seen map[reflect.Type]*ModelType) *ModelType {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	if mt, ok := seen[t]; ok {
		return mt
	}
	mt := NewModelType(t.Name())
	seen[t] = mt
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		idx := f.Index
		get := func(owner any) any {
			rv := reflect.ValueOf(owner)
			for rv.Kind() == reflect.Ptr {
				if rv.IsNil() {
					return nil
				}
				rv = rv.Elem()
			}
			return rv.FieldByIndex(idx).Interface()
		}
		mt.AddProperty(f.Name, get, describeType(f.Type, seen))
	}
	return mt
}
