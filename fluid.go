// Package fluid provides the execution layer of a Liquid template engine
// for Go: a dynamic value model, a tree-walking interpreter, and an
// optional lowering compiler that specializes a template tree into native
// closures.
//
// # Quick Start
//
// Basic usage, rendering a template tree against a model:
//
//	opts := fluid.NewTemplateOptions()
//	ctx := fluid.NewTemplateContext(opts)
//	ctx.SetModel(map[string]any{"name": "World"})
//	err := fluid.Render(tmpl, ctx, os.Stdout, fluid.HTMLEncoder{})
//
// # Value System
//
// The value.Value type represents dynamically-typed template values:
//
//	str := value.FromString("hello")
//	num := value.FromInt(42)
//	list := value.FromSlice([]value.Value{str, num})
//
//	if str.Kind() == value.KindString {
//	    if s, ok := str.AsString(); ok {
//	        fmt.Println(s)
//	    }
//	}
//
// Truthiness follows Liquid rules: only nil, blank, and false are falsy.
// Comparisons are lenient; incomparable operands yield nil rather than an
// error.
//
// # Custom Filters
//
// Filters transform piped values:
//
//	opts.AddFilter("shout", func(input value.Value, args fluid.FilterArguments, ctx *fluid.TemplateContext) (value.Value, error) {
//	    return value.FromString(strings.ToUpper(input.ToString()) + "!"), nil
//	})
//	// In template: {{ name | shout }}
//
// # Compilation
//
// Compile lowers a tree once into a reusable executable form. Rendering a
// compiled template byte-for-byte matches interpreting the same tree:
//
//	compiled, err := fluid.Compile(tmpl, modelType, opts)
//	if err == nil {
//	    err = compiled.Render(ctx, os.Stdout, fluid.HTMLEncoder{})
//	}
//
// A template using a construct the compiler cannot lower fails with
// ErrUnsupportedConstruct; callers fall back to Render.
//
// # Error Handling
//
// Engine errors carry a kind:
//
//	if fluid.IsKind(err, fluid.ErrStepsExceeded) {
//	    // the render hit its step ceiling
//	}
package fluid

// Version is the current version of the engine.
const Version = "0.1.0"
