package generation

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"vmbridge/internal/binding"
	"vmbridge/internal/declaration"
)

const calcSource = `class Calc = "io.example.Calc";

impl Calc {
	pub fn ping();

	fn add(a: i32, b: i32) -> i32 {
		return a + b, nil
	}
}
`

func newTestGenerator(t *testing.T, out string) *Generator {
	t.Helper()
	return NewGenerator(Options{PackageName: "calc", OutputPath: out})
}

func register(t *testing.T, g *Generator, name, src string) {
	t.Helper()
	f, err := declaration.ParseFile(name, src)
	require.NoError(t, err)
	require.NoError(t, g.RegisterFile(f))
}

// calcTypes declares the native types the calc declarations bind.
const calcTypes = `package calc

type Calc struct{}

type Point struct{ X, Y float64 }
`

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

// typeCheck compiles sources as one package against the real bridge package.
func typeCheck(t *testing.T, sources ...string) {
	t.Helper()
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedTypes | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, DefaultBridgeImport, "errors", "strings")
	require.NoError(t, err)
	require.Zero(t, packages.PrintErrors(pkgs))

	loaded := make(map[string]*types.Package)
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		loaded[p.PkgPath] = p.Types
	})

	fset := token.NewFileSet()
	files := make([]*ast.File, 0, len(sources))
	for i, src := range sources {
		f, err := parser.ParseFile(fset, fmt.Sprintf("src%d.go", i), src, 0)
		require.NoError(t, err, src)
		files = append(files, f)
	}

	conf := types.Config{Importer: importerFunc(func(path string) (*types.Package, error) {
		if pkg := loaded[path]; pkg != nil {
			return pkg, nil
		}
		return nil, fmt.Errorf("package %s is not loaded", path)
	})}
	_, err = conf.Check("calc", fset, files, nil)
	require.NoError(t, err, strings.Join(sources, "\n"))
}

func TestRenderFile(t *testing.T) {
	g := newTestGenerator(t, "out")
	register(t, g, "calc.vmb", calcSource)

	outputs, err := g.Render()
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	src := string(outputs[filepath.Join("out", "calc_vmb.go")])
	assert.True(t, strings.HasPrefix(src, "// "+Header+"\n"), src)
	assert.Contains(t, src, "package calc")
	assert.Contains(t, src, `"vmbridge/bridge"`)
	assert.Contains(t, src, `const classNameCalc = "io.example.Calc"`)
	assert.Contains(t, src, "func (Calc) BoundaryClass() string {\n\treturn classNameCalc\n}")
	assert.Contains(t, src, "func (Calc) Ping() error {")
	assert.Contains(t, src, "func (Calc) add(a int32, b int32) (int32, error) {")
	assert.Contains(t, src, "func vmbBridge_Calc_add(vmbArgs ...bridge.Value) (bridge.Value, error) {")
	assert.Contains(t, src, "func init() {\n\tbridge.Export(\"io.example.Calc.add\", vmbBridge_Calc_add)\n}")
}

func TestRenderWithoutInbound(t *testing.T) {
	g := newTestGenerator(t, "")
	register(t, g, "calc.vmb", `class Calc = "io.example.Calc"; impl Calc { fn ping(); }`)

	outputs, err := g.Render()
	require.NoError(t, err)
	src := string(outputs["calc_vmb.go"])
	assert.NotContains(t, src, "func init()")
	assert.NotContains(t, src, "vmbBridge_")
}

func TestRenderClassesAcrossFiles(t *testing.T) {
	g := newTestGenerator(t, "")
	register(t, g, "types.vmb", `class Point = "io.example.Point";`)
	register(t, g, "geo.vmb", `
class Point = "io.example.Point";
class Geo = "io.example.Geo";
impl Geo { fn norm(p: Point) -> f64; }
`)

	outputs, err := g.Render()
	require.NoError(t, err)

	types := string(outputs["types_vmb.go"])
	geo := string(outputs["geo_vmb.go"])
	assert.Contains(t, types, "const classNamePoint")
	assert.NotContains(t, geo, "const classNamePoint")
	assert.Contains(t, geo, "const classNameGeo")
	assert.Contains(t, geo, "bridge.FromNative(p, classNamePoint)")
}

func TestRegisterConflictingClass(t *testing.T) {
	g := newTestGenerator(t, "")
	register(t, g, "a.vmb", `class Calc = "io.a.Calc";`)

	f, err := declaration.ParseFile("b.vmb", `class Calc = "io.b.Calc";`)
	require.NoError(t, err)
	err = g.RegisterFile(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.vmb:1:1")
}

func TestRegisterPrimitiveClass(t *testing.T) {
	g := newTestGenerator(t, "")
	f, err := declaration.ParseFile("a.vmb", `class String = "io.x.S";`)
	require.NoError(t, err)

	err = g.RegisterFile(f)
	var pe *declaration.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "a.vmb:1:1: cannot bind primitive type String to a class", err.Error())
	assert.Empty(t, g.Registry.Bindings())
}

func TestRenderNameClashes(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		msg   string
	}{
		{
			name: "method in two groups",
			files: map[string]string{"a.vmb": `class Calc = "io.example.Calc";
impl Calc { fn a(); }
impl Calc { fn a(); }`},
			msg: "method Calc.a clashes with the declaration at a.vmb:2:",
		},
		{
			name: "method across files",
			files: map[string]string{
				"a.vmb": `class Calc = "io.example.Calc"; impl Calc { fn a() { return nil } }`,
				"b.vmb": `impl Calc { fn a() { return nil } }`,
			},
			msg: "method Calc.a clashes",
		},
		{
			name: "bridge function",
			files: map[string]string{"a.vmb": `class A_b = "io.x.Ab";
class A = "io.x.A";
impl A_b { fn c() { return nil } }
impl A { fn b_c() { return nil } }`},
			msg: "bridge function vmbBridge_A_b_c clashes",
		},
		{
			name: "entry point",
			files: map[string]string{"a.vmb": `class A = "io.x.Same";
class B = "io.x.Same";
impl A { fn f() { return nil } }
impl B { fn f() { return nil } }`},
			msg: "entry point io.x.Same.f clashes",
		},
		{
			name:  "boundary class method",
			files: map[string]string{"a.vmb": `class Calc = "io.x.Calc"; impl Calc { pub fn boundaryClass(); }`},
			msg:   "method Calc.BoundaryClass clashes with the declaration at a.vmb:1:1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, "")
			for _, name := range []string{"a.vmb", "b.vmb"} {
				if src, ok := tt.files[name]; ok {
					register(t, g, name, src)
				}
			}

			_, err := g.Render()
			require.Error(t, err)
			var pe *declaration.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRenderEmptyInboundBodiesCompile(t *testing.T) {
	g := newTestGenerator(t, "")
	register(t, g, "noop.vmb", `class Calc = "io.example.Calc"; impl Calc { fn noop() {} fn five() -> i32 {} }`)

	outputs, err := g.Render()
	require.NoError(t, err)
	src := string(outputs["noop_vmb.go"])
	assert.Contains(t, src, "func (Calc) noop() error {\n\treturn nil\n}")
	typeCheck(t, src, calcTypes)
}

func TestRegisterMalformedClass(t *testing.T) {
	g := newTestGenerator(t, "")
	f, err := declaration.ParseFile("a.vmb", `class Calc = "io..Calc";`)
	require.NoError(t, err)

	err = g.RegisterFile(f)
	var nfe *binding.NameFormatError
	require.True(t, errors.As(err, &nfe))
}

func TestGenerateWritesNothingOnError(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, dir)
	register(t, g, "calc.vmb", calcSource)
	register(t, g, "broken.vmb", `impl Ghost { fn ping(); }`)

	_, err := g.Generate()
	require.Error(t, err)
	var ue *binding.UnresolvedBindingError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, err.Error(), "broken.vmb")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gen")
	g := newTestGenerator(t, dir)
	register(t, g, "calc.vmb", calcSource)
	register(t, g, "empty.vmb", "")

	written, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "calc_vmb.go"),
		filepath.Join(dir, "empty_vmb.go"),
	}, written)

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "vmbBridge_Calc_add")
}

func TestSaveReplacesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calc_vmb.go")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	g := newTestGenerator(t, dir)
	written, err := g.Save(map[string][]byte{path: []byte("package calc\n")})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package calc\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveFailureLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, dir)
	_, err := g.Save(map[string][]byte{filepath.Join(dir, "missing", "calc_vmb.go"): []byte("x")})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRenderDuplicateOutput(t *testing.T) {
	g := newTestGenerator(t, "")
	register(t, g, filepath.Join("a", "calc.vmb"), "")
	register(t, g, filepath.Join("b", "calc.vmb"), "")

	_, err := g.Render()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one input")
}

func TestRenderDeterministic(t *testing.T) {
	run := func() []byte {
		g := newTestGenerator(t, "")
		register(t, g, "calc.vmb", calcSource)
		outputs, err := g.Render()
		require.NoError(t, err)
		return outputs["calc_vmb.go"]
	}
	assert.Equal(t, run(), run())
}

func TestOutputName(t *testing.T) {
	g := NewGenerator(Options{OutputPath: "gen", Suffix: ".gen.go"})
	assert.Equal(t, filepath.Join("gen", "calc.gen.go"), g.OutputName(filepath.Join("defs", "calc.vmb")))
	assert.Equal(t, filepath.Join("gen", "notes.txt.gen.go"), g.OutputName("notes.txt"))
}

func TestRenderResolvesBodyImports(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "examples", "calc", "calc.vmb"))
	require.NoError(t, err)

	g := NewGenerator(Options{PackageName: "calc", FixImports: true})
	register(t, g, "calc.vmb", string(src))
	outputs, err := g.Render()
	require.NoError(t, err)

	out := string(outputs["calc_vmb.go"])
	assert.Contains(t, out, `"errors"`)
	assert.Contains(t, out, `"strings"`)
	assert.Contains(t, out, `"vmbridge/bridge"`)
	assert.Contains(t, out, "func (Calc) Shout(msg string) (string, error) {")
	assert.Contains(t, out, "return bridge.ToNative[Point](vmbHandle, vmbResult)")
	assert.Contains(t, out, `bridge.Export("io.example.Calc.shout", vmbBridge_Calc_shout)`)
	typeCheck(t, out, calcTypes)
}
