package fluid

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kaqq/fluid/ast"
	"github.com/kaqq/fluid/value"
)

// sentinel errors for loop control
var (
	errBreak    = errors.New("break")
	errContinue = errors.New("continue")
)

// Render walks the template tree against the context and writes the output
// through the encoder into w. The sink is flushed on normal completion.
// Statements execute strictly in sequence; the only cancellation mechanism
// is the context's step ceiling.
func Render(tmpl *ast.Template, ctx *TemplateContext, w io.Writer, enc Encoder) error {
	if enc == nil {
		enc = NullEncoder{}
	}
	r := &renderer{ctx: ctx, out: w, enc: enc}
	for _, stmt := range tmpl.Statements {
		if err := r.renderStatement(stmt); err != nil {
			if err == errBreak || err == errContinue {
				// control signals outside a loop terminate quietly
				break
			}
			return err
		}
	}
	return flushSink(w)
}

// renderer is the tree-walking evaluator for one render.
type renderer struct {
	ctx *TemplateContext
	out io.Writer
	enc Encoder
}

func (r *renderer) renderStatements(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		if err := r.renderStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderStatement(stmt ast.Statement) error {
	if err := r.ctx.IncrementSteps(); err != nil {
		return err
	}

	switch st := stmt.(type) {
	case *ast.Text:
		return r.enc.Encode(r.out, st.Resolved(r.ctx.options.Trimming))

	case *ast.Output:
		val, err := r.evalExpression(st.Expr)
		if err != nil {
			return err
		}
		return val.WriteTo(r.out, r.enc, r.ctx.options.Culture)

	case *ast.For:
		return r.renderFor(st)

	case *ast.If:
		return r.renderIf(st)

	case *ast.Macro:
		r.ctx.SetValue(st.Identifier, value.FromFunction(&macroFunction{
			macro: st,
			ctx:   r.ctx,
		}))
		return nil

	case *ast.Break:
		return errBreak

	case *ast.Continue:
		return errContinue

	default:
		return NewError(ErrInternal, fmt.Sprintf("unknown statement type %T", stmt))
	}
}

func (r *renderer) renderFor(loop *ast.For) error {
	source, err := r.evalExpression(loop.Source)
	if err != nil {
		return err
	}

	items := source.Iterate()
	if len(items) == 0 {
		return nil
	}

	r.ctx.EnterScope()
	defer r.ctx.ReleaseScope()

	for i, item := range items {
		r.ctx.SetValue(loop.Identifier, item)
		r.ctx.SetValue("forloop", forloopValue(i, len(items)))

		err := r.renderStatements(loop.Body)
		if err == errContinue {
			continue
		}
		if err == errBreak {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// forloopValue builds the per-iteration forloop helper object.
func forloopValue(i, length int) value.Value {
	return value.FromAny(map[string]value.Value{
		"index":   value.FromInt(int64(i + 1)),
		"index0":  value.FromInt(int64(i)),
		"rindex":  value.FromInt(int64(length - i)),
		"rindex0": value.FromInt(int64(length - i - 1)),
		"first":   value.FromBool(i == 0),
		"last":    value.FromBool(i == length-1),
		"length":  value.FromInt(int64(length)),
	}, nil)
}

func (r *renderer) renderIf(cond *ast.If) error {
	val, err := r.evalExpression(cond.Condition)
	if err != nil {
		return err
	}
	if val.ToBoolean() {
		return r.renderStatements(cond.Body)
	}
	for _, arm := range cond.ElseIfs {
		val, err := r.evalExpression(arm.Condition)
		if err != nil {
			return err
		}
		if val.ToBoolean() {
			return r.renderStatements(arm.Body)
		}
	}
	return r.renderStatements(cond.Else)
}

// macroFunction wraps a macro statement as a callable value. Invocation
// isolates a child scope, binds declared parameters from the caller's
// positional and named arguments (falling back to declared defaults),
// renders the body into a private buffer, and returns the buffer content as
// a string. The scope is released even when the body exits via a control
// signal or failure.
type macroFunction struct {
	macro *ast.Macro
	ctx   *TemplateContext
}

func (m *macroFunction) Invoke(args []value.Value, named map[string]value.Value) (value.Value, error) {
	m.ctx.EnterScope()
	defer m.ctx.ReleaseScope()

	sub := &renderer{ctx: m.ctx, out: &strings.Builder{}, enc: NullEncoder{}}
	buf := sub.out.(*strings.Builder)

	for i, param := range m.macro.Params {
		bound, err := bindMacroParam(sub, param, i, args, named)
		if err != nil {
			return value.Nil(), err
		}
		m.ctx.SetValue(param.Name, bound)
	}

	if err := sub.renderStatements(m.macro.Body); err != nil {
		// break/continue escaping the body just end it
		if err != errBreak && err != errContinue {
			return value.Nil(), err
		}
	}
	return value.FromString(buf.String()), nil
}

// bindMacroParam resolves one macro parameter: named argument, then
// positional, then the declared default, then Nil.
func bindMacroParam(r *renderer, param ast.MacroParam, i int, args []value.Value, named map[string]value.Value) (value.Value, error) {
	if v, ok := named[param.Name]; ok {
		return v, nil
	}
	if i < len(args) {
		return args[i], nil
	}
	if param.Default != nil {
		return r.evalExpression(param.Default)
	}
	return value.Nil(), nil
}

func (r *renderer) evalExpression(expr ast.Expression) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value, nil

	case *ast.Range:
		return r.evalRange(e)

	case *ast.Member:
		return r.evalMember(e)

	case *ast.Filter:
		return r.evalFilter(e)

	case *ast.Binary:
		return r.evalBinary(e)

	default:
		return value.Nil(), NewError(ErrInternal, fmt.Sprintf("unknown expression type %T", expr))
	}
}

func (r *renderer) evalRange(rng *ast.Range) (value.Value, error) {
	fromVal, err := r.evalExpression(rng.From)
	if err != nil {
		return value.Nil(), err
	}
	toVal, err := r.evalExpression(rng.To)
	if err != nil {
		return value.Nil(), err
	}
	from, _ := fromVal.ToNumber()
	to, _ := toVal.ToNumber()
	return makeRange(from.IntPart(), to.IntPart())
}

// maxRangeElements bounds how many elements a range may materialize so a
// single range expression cannot sidestep the step ceiling.
const maxRangeElements = 100000

// makeRange materializes the inclusive integer sequence of a range
// expression. A descending range is empty.
func makeRange(from, to int64) (value.Value, error) {
	if to < from {
		return value.FromSlice(nil), nil
	}
	// unsigned subtraction stays exact even when to-from overflows int64
	if uint64(to)-uint64(from) >= maxRangeElements {
		return value.Nil(), NewError(ErrInvalidOperation, "range has too many elements")
	}
	items := make([]value.Value, 0, to-from+1)
	for i := from; i <= to; i++ {
		items = append(items, value.FromInt(i))
	}
	return value.FromSlice(items), nil
}

func (r *renderer) evalMember(m *ast.Member) (value.Value, error) {
	val := r.ctx.GetValue(m.Name)
	return r.evalSegments(val, m.Segments)
}

// evalSegments applies member segments dynamically: identifier lookup,
// runtime indexer evaluation, and runtime function invocation. This is the
// dynamic-lookup contract the compiler falls back to as well.
func (r *renderer) evalSegments(val value.Value, segments []ast.MemberSegment) (value.Value, error) {
	strategy := r.ctx.options.MemberAccess
	for _, seg := range segments {
		switch s := seg.(type) {
		case *ast.IdentifierSegment:
			val = val.Member(s.Name, strategy)

		case *ast.IndexerSegment:
			idx, err := r.evalExpression(s.Index)
			if err != nil {
				return value.Nil(), err
			}
			val = val.Index(idx, strategy)

		case *ast.CallSegment:
			args, named, err := r.evalCallArgs(s.Args)
			if err != nil {
				return value.Nil(), err
			}
			fn, ok := val.AsFunction()
			if !ok {
				val = value.Nil()
				continue
			}
			val, err = fn.Invoke(args, named)
			if err != nil {
				return value.Nil(), err
			}

		default:
			return value.Nil(), NewError(ErrInternal, fmt.Sprintf("invalid member segment %T", seg))
		}
	}
	return val, nil
}

func (r *renderer) evalCallArgs(callArgs []ast.CallArg) ([]value.Value, map[string]value.Value, error) {
	var args []value.Value
	var named map[string]value.Value
	for _, arg := range callArgs {
		v, err := r.evalExpression(arg.Value)
		if err != nil {
			return nil, nil, err
		}
		if arg.Name != "" {
			if named == nil {
				named = make(map[string]value.Value)
			}
			named[arg.Name] = v
		} else {
			args = append(args, v)
		}
	}
	return args, named, nil
}

func (r *renderer) evalFilter(f *ast.Filter) (value.Value, error) {
	input, err := r.evalExpression(f.Input)
	if err != nil {
		return value.Nil(), err
	}

	filterFn, ok := r.ctx.options.getFilter(f.Name)
	if !ok {
		// unknown filters pass the input through unchanged
		return input, nil
	}

	positional, named, err := r.evalCallArgs(f.Args)
	if err != nil {
		return value.Nil(), err
	}
	return filterFn(input, FilterArguments{Positional: positional, Named: named}, r.ctx)
}

func (r *renderer) evalBinary(b *ast.Binary) (value.Value, error) {
	// and/or short-circuit
	if b.Op == ast.OpAnd || b.Op == ast.OpOr {
		left, err := r.evalExpression(b.Left)
		if err != nil {
			return value.Nil(), err
		}
		if b.Op == ast.OpAnd && !left.ToBoolean() {
			return value.False(), nil
		}
		if b.Op == ast.OpOr && left.ToBoolean() {
			return value.True(), nil
		}
		right, err := r.evalExpression(b.Right)
		if err != nil {
			return value.Nil(), err
		}
		return value.FromBool(right.ToBoolean()), nil
	}

	left, err := r.evalExpression(b.Left)
	if err != nil {
		return value.Nil(), err
	}
	right, err := r.evalExpression(b.Right)
	if err != nil {
		return value.Nil(), err
	}
	return evalBinaryOp(b, left, right), nil
}

// evalBinaryOp applies a non-short-circuit binary operator. Type mismatches
// resolve to Nil or false per the language's leniency contract, never an
// error.
func evalBinaryOp(b *ast.Binary, left, right value.Value) value.Value {
	switch b.Op {
	case ast.OpEqual:
		return value.FromBool(left.Equals(right))
	case ast.OpNotEqual:
		return value.FromBool(!left.Equals(right))
	case ast.OpContains:
		return value.FromBool(left.Contains(right))
	case ast.OpStartsWith:
		return value.FromBool(left.StartsWith(right))
	case ast.OpEndsWith:
		return value.FromBool(left.EndsWith(right))
	case ast.OpLowerThan:
		cmp, ok := left.Compare(right)
		if !ok {
			return value.Nil()
		}
		if b.Strict {
			return value.FromBool(cmp < 0)
		}
		return value.FromBool(cmp <= 0)
	case ast.OpGreaterThan:
		cmp, ok := left.Compare(right)
		if !ok {
			return value.Nil()
		}
		if b.Strict {
			return value.FromBool(cmp > 0)
		}
		return value.FromBool(cmp >= 0)
	default:
		return value.Nil()
	}
}
