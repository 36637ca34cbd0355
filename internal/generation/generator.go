package generation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"

	"vmbridge/internal/binding"
	"vmbridge/internal/declaration"
	"vmbridge/internal/marshal"
)

// Header is the first line of every generated file.
const Header = "Code generated by vmbridge. DO NOT EDIT."

// DefaultSuffix replaces the declaration file extension in output names.
const DefaultSuffix = "_vmb.go"

type Options struct {
	PackageName  string
	OutputPath   string
	BridgeImport string
	Suffix       string
	// FixImports runs the rendered source through goimports so packages
	// referenced only by inbound bodies get imported.
	FixImports bool
	Logger     *slog.Logger
}

type Generator struct {
	Files       []*declaration.File
	Registry    *binding.Registry
	PackageName string
	OutputPath  string

	suffix     string
	fixImports bool
	emitter    Emitter
	// owners maps a bound type to the input file that declared its class.
	owners map[string]string
	logger *slog.Logger
}

func NewGenerator(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Generator{
		Registry:    binding.NewRegistry(),
		PackageName: opts.PackageName,
		OutputPath:  opts.OutputPath,
		suffix:      suffix,
		fixImports:  opts.FixImports,
		emitter:     Emitter{BridgeImport: opts.BridgeImport},
		owners:      make(map[string]string),
		logger:      logger,
	}
}

// RegisterFile binds the classes declared in f and queues it for rendering.
// All files must be registered before Render so groups can use classes
// declared anywhere in the package.
func (generator *Generator) RegisterFile(f *declaration.File) error {
	for _, class := range f.Classes {
		if marshal.IsPrimitive(class.TypeID) {
			return &declaration.ParseError{
				File:    f.Name,
				Pos:     class.Pos,
				Message: fmt.Sprintf("cannot bind primitive type %s to a class", class.TypeID),
			}
		}
		if _, err := generator.Registry.Bind(class.TypeID, class.QualifiedName); err != nil {
			return fmt.Errorf("%s:%s: %w", f.Name, class.Pos, err)
		}
		if _, ok := generator.owners[class.TypeID]; !ok {
			generator.owners[class.TypeID] = f.Name
		}
	}
	generator.Files = append(generator.Files, f)
	return nil
}

// OutputName is the path of the file generated for the given input.
func (generator *Generator) OutputName(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), declaration.Extension)
	return filepath.Join(generator.OutputPath, base+generator.suffix)
}

// Render generates every registered file in memory. It fails on the first
// build-time error, so callers never see a partial result.
func (generator *Generator) Render() (map[string][]byte, error) {
	if err := generator.checkNames(); err != nil {
		return nil, err
	}

	outputs := make(map[string][]byte, len(generator.Files))
	for _, f := range generator.Files {
		name := generator.OutputName(f.Name)
		if _, ok := outputs[name]; ok {
			return nil, fmt.Errorf("%s: output %s is produced by more than one input", f.Name, name)
		}

		src, err := generator.renderFile(name, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		outputs[name] = src
	}
	return outputs, nil
}

// Generate renders all registered files and writes them to OutputPath.
func (generator *Generator) Generate() ([]string, error) {
	outputs, err := generator.Render()
	if err != nil {
		return nil, err
	}
	return generator.Save(outputs)
}

// checkNames rejects declarations in different groups that would generate
// the same method, bridge function or export entry.
func (generator *Generator) checkNames() error {
	methods := make(map[string]string)
	for _, f := range generator.Files {
		for _, class := range f.Classes {
			if generator.owners[class.TypeID] == f.Name {
				methods[class.TypeID+".BoundaryClass"] = f.Name + ":" + class.Pos.String()
			}
		}
	}
	bridges := make(map[string]string)
	entries := make(map[string]string)

	for _, f := range generator.Files {
		for _, group := range f.Groups {
			b, unbound := generator.Registry.Lookup(group.TypeID)
			for i := range group.Decls {
				decl := &group.Decls[i]
				where := f.Name + ":" + decl.Pos.String()
				claim := func(seen map[string]string, key, what string) error {
					if first, ok := seen[key]; ok {
						return &declaration.ParseError{
							File:    f.Name,
							Pos:     decl.Pos,
							Message: fmt.Sprintf("%s %s clashes with the declaration at %s", what, key, first),
						}
					}
					seen[key] = where
					return nil
				}

				if err := claim(methods, group.TypeID+"."+decl.GoName(), "method"); err != nil {
					return err
				}
				if decl.Direction() != declaration.Inbound {
					continue
				}
				if err := claim(bridges, bridgeFuncName(group.TypeID, decl.Name), "bridge function"); err != nil {
					return err
				}
				if unbound != nil {
					continue
				}
				if err := claim(entries, b.QualifiedName+binding.Separator+decl.Name, "entry point"); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Save writes rendered outputs, returning the written paths in order. Each
// file is written to a temporary file and renamed into place, so a failed
// write never leaves a truncated output behind.
func (generator *Generator) Save(outputs map[string][]byte) ([]string, error) {
	if generator.OutputPath != "" {
		err := os.MkdirAll(generator.OutputPath, os.ModePerm)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
	}

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writeFile(name, outputs[name]); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		generator.logger.Info("wrote bindings", "path", name)
	}
	return names, nil
}

func writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}

func (generator *Generator) renderFile(name string, f *declaration.File) ([]byte, error) {
	file := jen.NewFile(generator.PackageName)
	file.HeaderComment(Header)
	file.ImportName(generator.emitter.bridgeImport(), "bridge")

	for _, class := range f.Classes {
		if generator.owners[class.TypeID] != f.Name {
			continue
		}
		b, err := generator.Registry.Lookup(class.TypeID)
		if err != nil {
			return nil, err
		}
		generator.generateClass(b, file)
	}

	var exports []Definition
	for _, group := range f.Groups {
		defs, err := generator.emitter.Generate(group, generator.Registry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", group.Pos, err)
		}
		for _, def := range defs.Frontends {
			file.Add(def.Code).Line()
		}
		for _, def := range defs.Bridges {
			file.Add(def.Code).Line()
		}
		exports = append(exports, defs.Bridges...)

		generator.logger.Debug("generated group",
			"type", group.TypeID,
			"frontends", len(defs.Frontends),
			"bridges", len(defs.Bridges))
	}

	if len(exports) > 0 {
		file.Func().Id("init").Params().BlockFunc(func(g *jen.Group) {
			for _, def := range exports {
				g.Add(generator.emitter.qual("Export")).Call(jen.Lit(def.Entry), jen.Id(def.Name))
			}
		})
	}

	var buf bytes.Buffer
	if err := file.Render(&buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if !generator.fixImports {
		return buf.Bytes(), nil
	}

	src, err := imports.Process(name, buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve imports: %w", err)
	}
	return src, nil
}

func (generator *Generator) generateClass(b binding.ClassBinding, file *jen.File) {
	file.Commentf("%s is the foreign class bound to %s.", b.Symbol, b.TypeID)
	file.Const().Id(b.Symbol).Op("=").Lit(b.QualifiedName)
	file.Line()
	file.Comment("BoundaryClass implements bridge.Classed.")
	file.Func().Params(jen.Id(b.TypeID)).Id("BoundaryClass").Params().String().Block(
		jen.Return(jen.Id(b.Symbol)),
	).Line()
}
