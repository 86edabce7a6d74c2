package fluid

import (
	"math"
	"strings"
	"testing"

	"github.com/kaqq/fluid/ast"
	"github.com/kaqq/fluid/value"
)

func compileString(t *testing.T, compiled *CompiledTemplate, ctx *TemplateContext, enc Encoder) string {
	t.Helper()
	var sb strings.Builder
	if err := compiled.Render(ctx, &sb, enc); err != nil {
		t.Fatalf("compiled render failed: %v", err)
	}
	return sb.String()
}

// TestCompiledParity renders a set of templates through both execution
// modes and requires byte-identical output.
func TestCompiledParity(t *testing.T) {
	model := map[string]any{
		"name":  "ada",
		"items": []string{"a", "b", "c"},
		"n":     2,
	}

	greet := &ast.Macro{
		Identifier: "greet",
		Params:     []ast.MacroParam{{Name: "who", Default: lit("world")}},
		Body:       []ast.Statement{txt("hi "), out(mem("who"))},
	}

	tests := []struct {
		name string
		tmpl *ast.Template
	}{
		{"text and output", tpl(txt("x="), out(mem("name")), out(mem("missing")))},
		{"literal folding", tpl(out(lit("a")), out(lit(42)), out(&ast.Range{From: lit(1), To: lit(3)}))},
		{"loop with forloop", tpl(&ast.For{
			Identifier: "it",
			Source:     mem("items"),
			Body: []ast.Statement{
				out(mem("forloop", ident("index"))),
				txt(":"),
				out(mem("it")),
				txt(" "),
			},
		})},
		{"conditional chain", tpl(&ast.If{
			Condition: &ast.Binary{Op: ast.OpEqual, Left: mem("n"), Right: lit(1)},
			Body:      []ast.Statement{txt("one")},
			ElseIfs: []ast.ElseIf{{
				Condition: &ast.Binary{Op: ast.OpEqual, Left: mem("n"), Right: lit(2)},
				Body:      []ast.Statement{txt("two")},
			}},
			Else: []ast.Statement{txt("many")},
		})},
		{"break through conditional", tpl(&ast.For{
			Identifier: "it",
			Source:     mem("items"),
			Body: []ast.Statement{
				&ast.If{
					Condition: &ast.Binary{Op: ast.OpEqual, Left: mem("it"), Right: lit("b")},
					Body:      []ast.Statement{&ast.Break{}},
				},
				out(mem("it")),
			},
		})},
		{"filters", tpl(
			out(&ast.Filter{Input: mem("name"), Name: "upcase"}),
			out(&ast.Filter{Input: mem("name"), Name: "append", Args: []ast.CallArg{pos(lit("!"))}}),
			out(&ast.Filter{Input: mem("name"), Name: "unknown"}),
		)},
		{"macro call", tpl(
			greet,
			out(mem("greet", &ast.CallSegment{Args: []ast.CallArg{pos(lit("bo"))}})),
			txt("/"),
			out(mem("greet", &ast.CallSegment{})),
		)},
		{"indexer", tpl(out(mem("items", &ast.IndexerSegment{Index: mem("n")})))},
		{"uncalled macro name renders empty", tpl(greet, txt("["), out(mem("greet")), txt("]"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewTemplateOptions()

			ictx := NewTemplateContext(opts)
			ictx.SetModel(model)
			want := renderString(t, tt.tmpl, ictx, HTMLEncoder{})

			compiled, err := Compile(tt.tmpl, nil, opts)
			if err != nil {
				t.Fatalf("Compile() failed: %v", err)
			}
			cctx := NewTemplateContext(opts)
			cctx.SetModel(model)
			got := compileString(t, compiled, cctx, HTMLEncoder{})

			if got != want {
				t.Errorf("compiled output %q, interpreter output %q", got, want)
			}
		})
	}
}

func TestCompiledReuseAcrossRenders(t *testing.T) {
	opts := NewTemplateOptions()
	compiled, err := Compile(tpl(txt("n="), out(mem("n"))), nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	for i, model := range []map[string]any{{"n": 1}, {"n": 2}} {
		ctx := NewTemplateContext(opts)
		ctx.SetModel(model)
		want := "n=" + []string{"1", "2"}[i]
		if got := compileString(t, compiled, ctx, nil); got != want {
			t.Errorf("render %d = %q, want %q", i, got, want)
		}
	}
}

// TestCompiledStaticArgumentBundle verifies literal-only filter arguments
// are materialized once: renders observe the same backing array.
func TestCompiledStaticArgumentBundle(t *testing.T) {
	opts := NewTemplateOptions()
	var seen []*value.Value
	opts.AddFilter("probe", func(input value.Value, args FilterArguments, ctx *TemplateContext) (value.Value, error) {
		seen = append(seen, &args.Positional[0])
		return input, nil
	})

	expr := &ast.Filter{Input: lit("x"), Name: "probe", Args: []ast.CallArg{pos(lit("a")), pos(lit("b"))}}
	compiled, err := Compile(tpl(out(expr)), nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		compileString(t, compiled, NewTemplateContext(opts), nil)
	}
	if len(seen) != 2 {
		t.Fatalf("probe ran %d times, want 2", len(seen))
	}
	if seen[0] != seen[1] {
		t.Error("literal argument bundle should be shared across renders")
	}
}

func TestCompiledDynamicArgumentBundle(t *testing.T) {
	opts := NewTemplateOptions()
	var seen []*value.Value
	opts.AddFilter("probe", func(input value.Value, args FilterArguments, ctx *TemplateContext) (value.Value, error) {
		seen = append(seen, &args.Positional[0])
		return input, nil
	})

	// one non-literal argument disables staging for the whole bundle
	expr := &ast.Filter{Input: lit("x"), Name: "probe", Args: []ast.CallArg{pos(mem("n"))}}
	compiled, err := Compile(tpl(out(expr)), nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		ctx := NewTemplateContext(opts)
		ctx.SetModel(map[string]any{"n": i})
		compileString(t, compiled, ctx, nil)
	}
	if len(seen) != 2 || seen[0] == seen[1] {
		t.Error("dynamic argument bundles should be rebuilt per evaluation")
	}
}

func TestCompiledRangeTooLarge(t *testing.T) {
	opts := NewTemplateOptions()

	// lowering succeeds; the out-of-bounds range surfaces at render time,
	// as it does when interpreted
	compiled, err := Compile(tpl(
		out(&ast.Range{From: lit(int64(-5)), To: lit(int64(math.MaxInt64))}),
	), nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	var sb strings.Builder
	err = compiled.Render(NewTemplateContext(opts), &sb, nil)
	if !IsKind(err, ErrInvalidOperation) {
		t.Fatalf("want ErrInvalidOperation, got %v", err)
	}

	// same bound through a non-constant operand
	compiled, err = Compile(tpl(
		out(&ast.Range{From: lit(0), To: mem("n")}),
	), nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	ctx := NewTemplateContext(opts)
	ctx.SetModel(map[string]any{"n": int64(math.MaxInt64)})
	err = compiled.Render(ctx, &sb, nil)
	if !IsKind(err, ErrInvalidOperation) {
		t.Fatalf("want ErrInvalidOperation, got %v", err)
	}
}

func TestCompiledMacroDeclarationMustExecute(t *testing.T) {
	// a macro declared in a branch that is never taken stays uncallable,
	// matching the interpreter's binding order
	tmpl := tpl(
		&ast.If{
			Condition: lit(false),
			Body: []ast.Statement{&ast.Macro{
				Identifier: "m",
				Body:       []ast.Statement{txt("X")},
			}},
		},
		txt("["),
		out(mem("m", &ast.CallSegment{})),
		txt("]"),
	)

	opts := NewTemplateOptions()
	want := renderString(t, tmpl, NewTemplateContext(opts), nil)
	if want != "[]" {
		t.Fatalf("interpreter output %q, want %q", want, "[]")
	}

	compiled, err := Compile(tmpl, nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if got := compileString(t, compiled, NewTemplateContext(opts), nil); got != want {
		t.Errorf("compiled output %q, interpreter output %q", got, want)
	}
}

func TestCompiledMacroRebinding(t *testing.T) {
	// the second declaration shadows the first once it executes
	tmpl := tpl(
		&ast.Macro{Identifier: "m", Body: []ast.Statement{txt("one")}},
		out(mem("m", &ast.CallSegment{})),
		&ast.Macro{Identifier: "m", Body: []ast.Statement{txt("two")}},
		out(mem("m", &ast.CallSegment{})),
	)
	opts := NewTemplateOptions()
	want := renderString(t, tmpl, NewTemplateContext(opts), nil)

	compiled, err := Compile(tmpl, nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	got := compileString(t, compiled, NewTemplateContext(opts), nil)
	if got != want || got != "onetwo" {
		t.Errorf("compiled %q, interpreter %q, want %q", got, want, "onetwo")
	}
}

type unknownStmt struct {
	ast.Statement
}

func TestCompileUnsupportedConstruct(t *testing.T) {
	_, err := Compile(tpl(&unknownStmt{}), nil, nil)
	if !IsKind(err, ErrUnsupportedConstruct) {
		t.Fatalf("want ErrUnsupportedConstruct, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknownStmt") {
		t.Errorf("error should name the construct, got %q", err.Error())
	}
}

type testAddress struct {
	City string
}

type testUser struct {
	Name    string
	Address testAddress
}

func TestCompiledModelFastPath(t *testing.T) {
	modelType := DescribeModel(testUser{})
	opts := NewTemplateOptions()
	compiled, err := Compile(tpl(
		out(mem("name")),
		txt(" in "),
		out(mem("address", ident("city"))),
	), modelType, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	ctx := NewTemplateContext(opts)
	ctx.SetModel(&testUser{Name: "ada", Address: testAddress{City: "london"}})
	if got := compileString(t, compiled, ctx, nil); got != "ada in london" {
		t.Errorf("got %q", got)
	}
}

func TestCompiledLoopVariableShadowsModel(t *testing.T) {
	modelType := DescribeModel(testUser{})
	opts := NewTemplateOptions()

	// inside the loop "name" is the loop variable; outside it is the
	// model property again
	compiled, err := Compile(tpl(
		&ast.For{
			Identifier: "name",
			Source:     &ast.Range{From: lit(1), To: lit(2)},
			Body:       []ast.Statement{out(mem("name"))},
		},
		txt(" "),
		out(mem("name")),
	), modelType, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	ctx := NewTemplateContext(opts)
	ctx.SetModel(&testUser{Name: "ada"})
	if got := compileString(t, compiled, ctx, nil); got != "12 ada" {
		t.Errorf("got %q", got)
	}
}

func TestCompiledTrimmingResolvedAtCompileTime(t *testing.T) {
	opts := NewTemplateOptions()
	opts.Trimming = ast.TrimmingPolicy{TagLeft: true, TagRight: true, Greedy: true}
	compiled, err := Compile(tpl(
		&ast.Text{Raw: "  a  ", Left: ast.AdjacentTag, Right: ast.AdjacentTag},
	), nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if got := compileString(t, compiled, NewTemplateContext(opts), nil); got != "a" {
		t.Errorf("got %q", got)
	}
}

func TestCompiledStepCeiling(t *testing.T) {
	opts := NewTemplateOptions()
	opts.MaxSteps = 10
	compiled, err := Compile(tpl(&ast.For{
		Identifier: "i",
		Source:     &ast.Range{From: lit(1), To: lit(100)},
		Body:       []ast.Statement{txt("x")},
	}), nil, opts)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	var sb strings.Builder
	err = compiled.Render(NewTemplateContext(opts), &sb, nil)
	if !IsKind(err, ErrStepsExceeded) {
		t.Fatalf("want ErrStepsExceeded, got %v", err)
	}
}
