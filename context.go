package fluid

import (
	"github.com/kaqq/fluid/value"
)

// TemplateContext holds the per-render mutable state: the scope stack, the
// caller-supplied model, the step counter, and the render options. One
// context serves exactly one render and is discarded afterwards; separate
// renders of the same template use separate contexts.
type TemplateContext struct {
	scopes  []map[string]value.Value
	model   any
	options *TemplateOptions
	steps   *stepLimiter
}

// NewTemplateContext creates a context for one render. A nil options uses
// the defaults.
func NewTemplateContext(options *TemplateOptions) *TemplateContext {
	if options == nil {
		options = NewTemplateOptions()
	}
	return &TemplateContext{
		scopes:  []map[string]value.Value{make(map[string]value.Value)},
		options: options,
		steps:   newStepLimiter(options.MaxSteps),
	}
}

// SetModel attaches the caller-supplied model object. Identifiers that no
// scope binds resolve against it through the member-access strategy.
func (c *TemplateContext) SetModel(model any) {
	c.model = model
}

// Options returns the render options.
func (c *TemplateContext) Options() *TemplateOptions {
	return c.options
}

// Model returns the attached model object.
func (c *TemplateContext) Model() any {
	return c.model
}

// EnterScope pushes a new binding frame. Pair with ReleaseScope, deferred,
// so the frame is popped even when the body exits through a control signal
// or failure.
func (c *TemplateContext) EnterScope() {
	c.scopes = append(c.scopes, make(map[string]value.Value))
}

// ReleaseScope pops the innermost frame unconditionally. The root frame is
// never popped.
func (c *TemplateContext) ReleaseScope() {
	if len(c.scopes) > 1 {
		c.scopes = c.scopes[:len(c.scopes)-1]
	}
}

// SetValue binds a name in the innermost frame.
func (c *TemplateContext) SetValue(name string, val value.Value) {
	c.scopes[len(c.scopes)-1][name] = val
}

// GetValue resolves a name: scope frames innermost to outermost, then the
// model through the member-access strategy, then Nil. Unresolvable names are
// never an error.
func (c *TemplateContext) GetValue(name string) value.Value {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v
		}
	}
	if c.model != nil && c.options.MemberAccess != nil {
		if v, ok := c.options.MemberAccess.Access(c.model, name); ok {
			return v
		}
	}
	return value.Nil()
}

// IncrementSteps consumes one unit of the render budget. Checked at every
// statement and output boundary; crossing the ceiling aborts the render.
func (c *TemplateContext) IncrementSteps() error {
	return c.steps.consume()
}

// StepsTaken reports how many steps the render has consumed so far.
func (c *TemplateContext) StepsTaken() uint64 {
	return c.steps.taken()
}
