package fluid

import (
	"fmt"
	"io"
	"strings"

	"github.com/kaqq/fluid/ast"
	"github.com/kaqq/fluid/value"
)

// Compile lowers a template tree once into a specialized executable form:
// a tree of native closures equivalent to the interpreter's behavior for
// that tree. Literals, trimmed text, and literal-only argument bundles are
// resolved at compile time; member chains rooted in the supplied model
// description use direct typed access instead of dynamic lookup. model may
// be nil, which disables the fast path. The options must be the ones the
// rendering contexts will carry: filters and trimming are resolved during
// lowering.
//
// Any AST shape the compiler does not recognize fails the lowering step with
// ErrUnsupportedConstruct naming the construct; callers may fall back to
// Render for that template.
func Compile(tmpl *ast.Template, model *ModelType, opts *TemplateOptions) (*CompiledTemplate, error) {
	if opts == nil {
		opts = NewTemplateOptions()
	}
	c := &compiler{
		opts:   opts,
		model:  model,
		macros: make(map[string]*macroRoutine),
	}
	body, err := c.compileStatements(tmpl.Statements)
	if err != nil {
		return nil, err
	}
	return &CompiledTemplate{body: body}, nil
}

// CompiledTemplate is the lowered executable form of one template. It is
// read-only and side-effect-free across renders; concurrent renders on
// separate contexts are safe.
type CompiledTemplate struct {
	body []stmtRoutine
}

// Render executes the compiled template, semantically equivalent to
// fluid.Render for the same tree. The sink is flushed on normal completion.
func (t *CompiledTemplate) Render(ctx *TemplateContext, w io.Writer, enc Encoder) error {
	if enc == nil {
		enc = NullEncoder{}
	}
	for _, st := range t.body {
		if err := st(ctx, w, enc); err != nil {
			if err == errBreak || err == errContinue {
				break
			}
			return err
		}
	}
	return flushSink(w)
}

// stmtRoutine is one lowered statement.
type stmtRoutine func(ctx *TemplateContext, w io.Writer, enc Encoder) error

// exprRoutine is one lowered expression.
type exprRoutine func(ctx *TemplateContext) (value.Value, error)

// compiler holds the state of one lowering pass. Names fall into three
// classes: value-typed locals tracked here (loop variables, macro
// parameters, shadowing model properties and macros), model-typed roots
// resolved through compileModelChain, and static constants carried as
// compiledExpr.constant.
type compiler struct {
	opts   *TemplateOptions
	model  *ModelType
	macros map[string]*macroRoutine
	locals []map[string]struct{}
}

func (c *compiler) pushScope() {
	c.locals = append(c.locals, make(map[string]struct{}))
}

func (c *compiler) popScope() {
	c.locals = c.locals[:len(c.locals)-1]
}

func (c *compiler) declare(name string) {
	c.locals[len(c.locals)-1][name] = struct{}{}
}

func (c *compiler) isLocal(name string) bool {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if _, ok := c.locals[i][name]; ok {
			return true
		}
	}
	return false
}

func (c *compiler) compileStatements(stmts []ast.Statement) ([]stmtRoutine, error) {
	out := make([]stmtRoutine, 0, len(stmts))
	for _, stmt := range stmts {
		st, err := c.compileStatement(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (c *compiler) compileStatement(stmt ast.Statement) (stmtRoutine, error) {
	switch st := stmt.(type) {
	case *ast.Text:
		// whitespace resolved once during lowering
		text := st.Resolved(c.opts.Trimming)
		return func(ctx *TemplateContext, w io.Writer, enc Encoder) error {
			if err := ctx.IncrementSteps(); err != nil {
				return err
			}
			return enc.Encode(w, text)
		}, nil

	case *ast.Output:
		expr, err := c.compileExpression(st.Expr)
		if err != nil {
			return nil, err
		}
		culture := c.opts.Culture
		return func(ctx *TemplateContext, w io.Writer, enc Encoder) error {
			if err := ctx.IncrementSteps(); err != nil {
				return err
			}
			val, err := expr.run(ctx)
			if err != nil {
				return err
			}
			return val.WriteTo(w, enc, culture)
		}, nil

	case *ast.For:
		return c.compileFor(st)

	case *ast.If:
		return c.compileIf(st)

	case *ast.Macro:
		routine, err := c.compileMacro(st)
		if err != nil {
			return nil, err
		}
		c.macros[st.Identifier] = routine
		// the routine is extracted at compile time, but it only becomes
		// callable once the declaration statement executes, matching the
		// interpreter's binding order
		name := st.Identifier
		return func(ctx *TemplateContext, w io.Writer, enc Encoder) error {
			if err := ctx.IncrementSteps(); err != nil {
				return err
			}
			ctx.SetValue(name, value.FromFunction(&compiledMacroFunction{
				routine: routine,
				ctx:     ctx,
			}))
			return nil
		}, nil

	case *ast.Break:
		return func(ctx *TemplateContext, w io.Writer, enc Encoder) error {
			if err := ctx.IncrementSteps(); err != nil {
				return err
			}
			return errBreak
		}, nil

	case *ast.Continue:
		return func(ctx *TemplateContext, w io.Writer, enc Encoder) error {
			if err := ctx.IncrementSteps(); err != nil {
				return err
			}
			return errContinue
		}, nil

	default:
		return nil, NewError(ErrUnsupportedConstruct, fmt.Sprintf("cannot lower statement %T", stmt))
	}
}

func (c *compiler) compileFor(loop *ast.For) (stmtRoutine, error) {
	source, err := c.compileExpression(loop.Source)
	if err != nil {
		return nil, err
	}

	c.pushScope()
	c.declare(loop.Identifier)
	c.declare("forloop")
	body, err := c.compileStatements(loop.Body)
	c.popScope()
	if err != nil {
		return nil, err
	}

	name := loop.Identifier
	return func(ctx *TemplateContext, w io.Writer, enc Encoder) error {
		if err := ctx.IncrementSteps(); err != nil {
			return err
		}
		val, err := source.run(ctx)
		if err != nil {
			return err
		}
		items := val.Iterate()
		if len(items) == 0 {
			return nil
		}

		ctx.EnterScope()
		defer ctx.ReleaseScope()

	iteration:
		for i, item := range items {
			ctx.SetValue(name, item)
			ctx.SetValue("forloop", forloopValue(i, len(items)))
			for _, st := range body {
				err := st(ctx, w, enc)
				if err == errContinue {
					continue iteration
				}
				if err == errBreak {
					return nil
				}
				if err != nil {
					return err
				}
			}
		}
		return nil
	}, nil
}

func (c *compiler) compileIf(cond *ast.If) (stmtRoutine, error) {
	type arm struct {
		cond compiledExpr
		body []stmtRoutine
	}

	arms := make([]arm, 0, len(cond.ElseIfs)+1)

	condExpr, err := c.compileExpression(cond.Condition)
	if err != nil {
		return nil, err
	}
	body, err := c.compileStatements(cond.Body)
	if err != nil {
		return nil, err
	}
	arms = append(arms, arm{cond: condExpr, body: body})

	for _, elseif := range cond.ElseIfs {
		armCond, err := c.compileExpression(elseif.Condition)
		if err != nil {
			return nil, err
		}
		armBody, err := c.compileStatements(elseif.Body)
		if err != nil {
			return nil, err
		}
		arms = append(arms, arm{cond: armCond, body: armBody})
	}

	elseBody, err := c.compileStatements(cond.Else)
	if err != nil {
		return nil, err
	}

	return func(ctx *TemplateContext, w io.Writer, enc Encoder) error {
		if err := ctx.IncrementSteps(); err != nil {
			return err
		}
		for _, arm := range arms {
			val, err := arm.cond.run(ctx)
			if err != nil {
				return err
			}
			if val.ToBoolean() {
				return runBody(arm.body, ctx, w, enc)
			}
		}
		return runBody(elseBody, ctx, w, enc)
	}, nil
}

// runBody executes a lowered statement list, passing control signals
// through unchanged so the nearest loop catches them.
func runBody(body []stmtRoutine, ctx *TemplateContext, w io.Writer, enc Encoder) error {
	for _, st := range body {
		if err := st(ctx, w, enc); err != nil {
			return err
		}
	}
	return nil
}

// macroRoutine is an independently callable lowered macro: parameter
// binding prologue, private buffer, scope-release epilogue.
type macroRoutine struct {
	params []compiledParam
	body   []stmtRoutine
}

type compiledParam struct {
	name string
	def  *compiledExpr // nil when the parameter has no default
}

func (c *compiler) compileMacro(m *ast.Macro) (*macroRoutine, error) {
	params := make([]compiledParam, len(m.Params))
	c.pushScope()
	defer c.popScope()
	for i, p := range m.Params {
		cp := compiledParam{name: p.Name}
		if p.Default != nil {
			def, err := c.compileExpression(p.Default)
			if err != nil {
				return nil, err
			}
			cp.def = &def
		}
		params[i] = cp
		c.declare(p.Name)
	}
	body, err := c.compileStatements(m.Body)
	if err != nil {
		return nil, err
	}
	return &macroRoutine{params: params, body: body}, nil
}

func (m *macroRoutine) invoke(ctx *TemplateContext, args []value.Value, named map[string]value.Value) (value.Value, error) {
	ctx.EnterScope()
	defer ctx.ReleaseScope()

	for i, param := range m.params {
		var bound value.Value
		switch {
		case hasNamed(named, param.name):
			bound = named[param.name]
		case i < len(args):
			bound = args[i]
		case param.def != nil:
			var err error
			bound, err = param.def.run(ctx)
			if err != nil {
				return value.Nil(), err
			}
		default:
			bound = value.Nil()
		}
		ctx.SetValue(param.name, bound)
	}

	var buf strings.Builder
	for _, st := range m.body {
		if err := st(ctx, &buf, NullEncoder{}); err != nil {
			if err == errBreak || err == errContinue {
				break
			}
			return value.Nil(), err
		}
	}
	return value.FromString(buf.String()), nil
}

func hasNamed(named map[string]value.Value, name string) bool {
	_, ok := named[name]
	return ok
}

// compiledMacroFunction exposes an extracted macro routine as a callable
// value once its declaration has executed.
type compiledMacroFunction struct {
	routine *macroRoutine
	ctx     *TemplateContext
}

func (m *compiledMacroFunction) Invoke(args []value.Value, named map[string]value.Value) (value.Value, error) {
	return m.routine.invoke(m.ctx, args, named)
}

// compiledExpr is one lowered expression. constant is non-nil when the
// expression derives transitively from literals; such expressions are
// evaluated once during lowering and belong to the static symbol class.
type compiledExpr struct {
	run      exprRoutine
	constant *value.Value
}

func constExpr(v value.Value) compiledExpr {
	return compiledExpr{
		run:      func(*TemplateContext) (value.Value, error) { return v, nil },
		constant: &v,
	}
}

func (c *compiler) compileExpression(expr ast.Expression) (compiledExpr, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		// literal caching: evaluated once, not on every render
		return constExpr(e.Value), nil

	case *ast.Range:
		return c.compileRange(e)

	case *ast.Member:
		return c.compileMember(e)

	case *ast.Filter:
		return c.compileFilter(e)

	case *ast.Binary:
		return c.compileBinary(e)

	default:
		return compiledExpr{}, NewError(ErrUnsupportedConstruct, fmt.Sprintf("cannot lower expression %T", expr))
	}
}

func (c *compiler) compileRange(rng *ast.Range) (compiledExpr, error) {
	from, err := c.compileExpression(rng.From)
	if err != nil {
		return compiledExpr{}, err
	}
	to, err := c.compileExpression(rng.To)
	if err != nil {
		return compiledExpr{}, err
	}

	if from.constant != nil && to.constant != nil {
		f, _ := from.constant.ToNumber()
		t, _ := to.constant.ToNumber()
		folded, err := makeRange(f.IntPart(), t.IntPart())
		if err != nil {
			// out-of-bounds ranges fail at render time, as interpreted
			return compiledExpr{run: func(*TemplateContext) (value.Value, error) {
				return value.Nil(), err
			}}, nil
		}
		return constExpr(folded), nil
	}

	return compiledExpr{run: func(ctx *TemplateContext) (value.Value, error) {
		fromVal, err := from.run(ctx)
		if err != nil {
			return value.Nil(), err
		}
		toVal, err := to.run(ctx)
		if err != nil {
			return value.Nil(), err
		}
		f, _ := fromVal.ToNumber()
		t, _ := toVal.ToNumber()
		return makeRange(f.IntPart(), t.IntPart())
	}}, nil
}

func (c *compiler) compileBinary(b *ast.Binary) (compiledExpr, error) {
	left, err := c.compileExpression(b.Left)
	if err != nil {
		return compiledExpr{}, err
	}
	right, err := c.compileExpression(b.Right)
	if err != nil {
		return compiledExpr{}, err
	}

	if b.Op == ast.OpAnd || b.Op == ast.OpOr {
		isAnd := b.Op == ast.OpAnd
		if left.constant != nil && right.constant != nil {
			lv, rv := *left.constant, *right.constant
			if isAnd {
				return constExpr(value.FromBool(lv.ToBoolean() && rv.ToBoolean())), nil
			}
			return constExpr(value.FromBool(lv.ToBoolean() || rv.ToBoolean())), nil
		}
		return compiledExpr{run: func(ctx *TemplateContext) (value.Value, error) {
			lv, err := left.run(ctx)
			if err != nil {
				return value.Nil(), err
			}
			if isAnd && !lv.ToBoolean() {
				return value.False(), nil
			}
			if !isAnd && lv.ToBoolean() {
				return value.True(), nil
			}
			rv, err := right.run(ctx)
			if err != nil {
				return value.Nil(), err
			}
			return value.FromBool(rv.ToBoolean()), nil
		}}, nil
	}

	if left.constant != nil && right.constant != nil {
		return constExpr(evalBinaryOp(b, *left.constant, *right.constant)), nil
	}

	return compiledExpr{run: func(ctx *TemplateContext) (value.Value, error) {
		lv, err := left.run(ctx)
		if err != nil {
			return value.Nil(), err
		}
		rv, err := right.run(ctx)
		if err != nil {
			return value.Nil(), err
		}
		return evalBinaryOp(b, lv, rv), nil
	}}, nil
}

func (c *compiler) compileFilter(f *ast.Filter) (compiledExpr, error) {
	input, err := c.compileExpression(f.Input)
	if err != nil {
		return compiledExpr{}, err
	}

	filterFn, known := c.opts.getFilter(f.Name)
	if !known {
		// unknown filters pass the input through unchanged
		return input, nil
	}

	args, err := c.compileCallArgs(f.Args)
	if err != nil {
		return compiledExpr{}, err
	}

	if args.static {
		// call-argument staging: the materialized bundle is hoisted to a
		// one-time-initialized constant shared across renders
		bundle := FilterArguments{Positional: args.staticPos, Named: args.staticNamed}
		return compiledExpr{run: func(ctx *TemplateContext) (value.Value, error) {
			in, err := input.run(ctx)
			if err != nil {
				return value.Nil(), err
			}
			return filterFn(in, bundle, ctx)
		}}, nil
	}

	return compiledExpr{run: func(ctx *TemplateContext) (value.Value, error) {
		in, err := input.run(ctx)
		if err != nil {
			return value.Nil(), err
		}
		positional, named, err := args.build(ctx)
		if err != nil {
			return value.Nil(), err
		}
		return filterFn(in, FilterArguments{Positional: positional, Named: named}, ctx)
	}}, nil
}

// compiledArgs is a lowered call-argument list. static marks bundles whose
// every expression is a literal; those are built once during lowering.
type compiledArgs struct {
	static      bool
	staticPos   []value.Value
	staticNamed map[string]value.Value
	build       func(ctx *TemplateContext) ([]value.Value, map[string]value.Value, error)
}

func (c *compiler) compileCallArgs(callArgs []ast.CallArg) (compiledArgs, error) {
	type namedExpr struct {
		name string
		expr compiledExpr
	}
	var positional []compiledExpr
	var named []namedExpr
	static := true
	for _, arg := range callArgs {
		expr, err := c.compileExpression(arg.Value)
		if err != nil {
			return compiledArgs{}, err
		}
		if expr.constant == nil {
			static = false
		}
		if arg.Name != "" {
			named = append(named, namedExpr{name: arg.Name, expr: expr})
		} else {
			positional = append(positional, expr)
		}
	}

	if static {
		var pos []value.Value
		var nm map[string]value.Value
		for _, expr := range positional {
			pos = append(pos, *expr.constant)
		}
		for _, ne := range named {
			if nm == nil {
				nm = make(map[string]value.Value)
			}
			nm[ne.name] = *ne.expr.constant
		}
		return compiledArgs{
			static:      true,
			staticPos:   pos,
			staticNamed: nm,
			build: func(*TemplateContext) ([]value.Value, map[string]value.Value, error) {
				return pos, nm, nil
			},
		}, nil
	}

	return compiledArgs{build: func(ctx *TemplateContext) ([]value.Value, map[string]value.Value, error) {
		var pos []value.Value
		var nm map[string]value.Value
		for _, expr := range positional {
			v, err := expr.run(ctx)
			if err != nil {
				return nil, nil, err
			}
			pos = append(pos, v)
		}
		for _, ne := range named {
			v, err := ne.expr.run(ctx)
			if err != nil {
				return nil, nil, err
			}
			if nm == nil {
				nm = make(map[string]value.Value)
			}
			nm[ne.name] = v
		}
		return pos, nm, nil
	}}, nil
}

func (c *compiler) compileMember(m *ast.Member) (compiledExpr, error) {
	// calls to an extracted macro run its lowered routine directly
	if _, ok := c.macros[m.Name]; ok && !c.isLocal(m.Name) {
		if len(m.Segments) > 0 {
			if call, ok := m.Segments[0].(*ast.CallSegment); ok {
				return c.compileMacroCall(m.Name, call, m.Segments[1:])
			}
		}
	}

	// fast path: root identifier bound to the statically known model type
	if c.model != nil && !c.isLocal(m.Name) {
		if prop, ok := c.model.Property(m.Name); ok {
			return c.compileModelChain(prop, m.Segments)
		}
	}

	// dynamic fallback: same lookup contract as the interpreter
	segments, err := c.compileSegments(m.Segments)
	if err != nil {
		return compiledExpr{}, err
	}
	name := m.Name
	strategy := c.opts.MemberAccess
	return compiledExpr{run: func(ctx *TemplateContext) (value.Value, error) {
		return runSegments(ctx, ctx.GetValue(name), segments, strategy)
	}}, nil
}

func (c *compiler) compileMacroCall(name string, call *ast.CallSegment, rest []ast.MemberSegment) (compiledExpr, error) {
	args, err := c.compileCallArgs(call.Args)
	if err != nil {
		return compiledExpr{}, err
	}
	segments, err := c.compileSegments(rest)
	if err != nil {
		return compiledExpr{}, err
	}
	// the dynamic contract applies while the declaration has not executed,
	// e.g. a macro declared in a branch that was never taken
	fallback := append([]compiledSegment{{call: &args}}, segments...)
	strategy := c.opts.MemberAccess
	return compiledExpr{run: func(ctx *TemplateContext) (value.Value, error) {
		bound := ctx.GetValue(name)
		if fn, ok := bound.AsFunction(); ok {
			if mw, ok := fn.(*compiledMacroFunction); ok {
				positional, named, err := args.build(ctx)
				if err != nil {
					return value.Nil(), err
				}
				val, err := mw.routine.invoke(ctx, positional, named)
				if err != nil {
					return value.Nil(), err
				}
				return runSegments(ctx, val, segments, strategy)
			}
		}
		return runSegments(ctx, bound, fallback, strategy)
	}}, nil
}

// compileModelChain lowers a member chain rooted in the model description.
// Identifier segments stay on host types, without variant wrapping, for as
// long as each step's owner type is known; the first unknown step wraps the
// host value once and continues with the dynamic contract.
func (c *compiler) compileModelChain(root *ModelProperty, segments []ast.MemberSegment) (compiledExpr, error) {
	getters := []func(any) any{root.Get}
	owner := root.Type

	consumed := 0
	for _, seg := range segments {
		ident, ok := seg.(*ast.IdentifierSegment)
		if !ok || owner == nil {
			break
		}
		prop, ok := owner.Property(ident.Name)
		if !ok {
			break
		}
		getters = append(getters, prop.Get)
		owner = prop.Type
		consumed++
	}

	rest, err := c.compileSegments(segments[consumed:])
	if err != nil {
		return compiledExpr{}, err
	}
	strategy := c.opts.MemberAccess
	return compiledExpr{run: func(ctx *TemplateContext) (value.Value, error) {
		host := ctx.Model()
		for _, get := range getters {
			if host == nil {
				break
			}
			host = get(host)
		}
		val := value.FromAny(host, strategy)
		return runSegments(ctx, val, rest, strategy)
	}}, nil
}

// compiledSegment is one lowered member segment of the dynamic contract.
type compiledSegment struct {
	ident string        // identifier segment when non-empty
	index *compiledExpr // indexer segment when non-nil
	call  *compiledArgs // call segment when non-nil
}

func (c *compiler) compileSegments(segments []ast.MemberSegment) ([]compiledSegment, error) {
	out := make([]compiledSegment, 0, len(segments))
	for _, seg := range segments {
		switch s := seg.(type) {
		case *ast.IdentifierSegment:
			out = append(out, compiledSegment{ident: s.Name})
		case *ast.IndexerSegment:
			idx, err := c.compileExpression(s.Index)
			if err != nil {
				return nil, err
			}
			out = append(out, compiledSegment{index: &idx})
		case *ast.CallSegment:
			args, err := c.compileCallArgs(s.Args)
			if err != nil {
				return nil, err
			}
			out = append(out, compiledSegment{call: &args})
		default:
			return nil, NewError(ErrUnsupportedConstruct, fmt.Sprintf("cannot lower member segment %T", seg))
		}
	}
	return out, nil
}

// runSegments applies lowered segments with the interpreter's dynamic
// contract: member lookup, runtime indexer evaluation, runtime function
// invocation.
func runSegments(ctx *TemplateContext, val value.Value, segments []compiledSegment, strategy MemberAccessStrategy) (value.Value, error) {
	for _, seg := range segments {
		switch {
		case seg.index != nil:
			idx, err := seg.index.run(ctx)
			if err != nil {
				return value.Nil(), err
			}
			val = val.Index(idx, strategy)
		case seg.call != nil:
			positional, named, err := seg.call.build(ctx)
			if err != nil {
				return value.Nil(), err
			}
			fn, ok := val.AsFunction()
			if !ok {
				val = value.Nil()
				continue
			}
			val, err = fn.Invoke(positional, named)
			if err != nil {
				return value.Nil(), err
			}
		default:
			val = val.Member(seg.ident, strategy)
		}
	}
	return val, nil
}
