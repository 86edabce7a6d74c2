package fluid

import (
	"golang.org/x/text/language"

	"github.com/kaqq/fluid/ast"
	"github.com/kaqq/fluid/value"
)

// DefaultMaxSteps bounds a render when no explicit ceiling is configured.
const DefaultMaxSteps = 1 << 20

// FilterFunc is the signature for filter functions. Filters receive the
// piped input value, the materialized arguments, and the rendering context.
type FilterFunc func(input value.Value, args FilterArguments, ctx *TemplateContext) (value.Value, error)

// FilterArguments carries a filter invocation's ordered and named argument
// values.
type FilterArguments struct {
	Positional []value.Value
	Named      map[string]value.Value
}

// At returns the positional argument at index i, or Nil when absent.
func (a FilterArguments) At(i int) value.Value {
	if i < 0 || i >= len(a.Positional) {
		return value.Nil()
	}
	return a.Positional[i]
}

// Get returns the named argument, or Nil when absent.
func (a FilterArguments) Get(name string) value.Value {
	if v, ok := a.Named[name]; ok {
		return v
	}
	return value.Nil()
}

// MemberAccessStrategy resolves a case-insensitive member name on a host
// object. Implementations are registered once at configuration time and are
// read-only during rendering; the core never reflects on its own.
type MemberAccessStrategy = value.MemberAccessor

// TemplateOptions holds the global render configuration: trimming policy,
// culture, the step ceiling, the filter registry, and the member-access
// strategy. Options are set up before any render begins and must not be
// mutated while renders are running.
type TemplateOptions struct {
	Trimming     ast.TrimmingPolicy
	Culture      language.Tag
	MaxSteps     uint64
	MemberAccess MemberAccessStrategy

	filters map[string]FilterFunc
}

// NewTemplateOptions creates options with the default filters, the invariant
// culture, and the default member-access strategy registered.
func NewTemplateOptions() *TemplateOptions {
	opts := &TemplateOptions{
		Culture:      language.Und,
		MaxSteps:     DefaultMaxSteps,
		MemberAccess: NewReflectionMemberAccessStrategy(),
		filters:      make(map[string]FilterFunc),
	}
	registerDefaultFilters(opts)
	return opts
}

// EmptyTemplateOptions creates options with no filters registered.
func EmptyTemplateOptions() *TemplateOptions {
	return &TemplateOptions{
		Culture:      language.Und,
		MaxSteps:     DefaultMaxSteps,
		MemberAccess: NewReflectionMemberAccessStrategy(),
		filters:      make(map[string]FilterFunc),
	}
}

// AddFilter registers a filter function. Call before rendering begins; the
// registry is read-only during renders.
func (o *TemplateOptions) AddFilter(name string, f FilterFunc) {
	o.filters[name] = f
}

// getFilter returns a filter by name.
func (o *TemplateOptions) getFilter(name string) (FilterFunc, bool) {
	f, ok := o.filters[name]
	return f, ok
}
