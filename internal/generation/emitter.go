package generation

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"vmbridge/internal/binding"
	"vmbridge/internal/declaration"
	"vmbridge/internal/marshal"
)

// DefaultBridgeImport is the import path of the runtime bridge package.
const DefaultBridgeImport = "vmbridge/bridge"

// Names of locals introduced by generated code. They all start with
// declaration.ReservedPrefix so they cannot collide with parameters.
const (
	varArgs   = "vmbArgs"
	varHandle = "vmbHandle"
	varErr    = "vmbErr"
	varRecv   = "vmbRecv"
	varResult = "vmbResult"
	varZero   = "vmbZero"
)

// Definition is one generated function.
type Definition struct {
	// Name is the Go name of the function or method.
	Name string
	// Entry is the foreign entry point name; set for bridge definitions only.
	Entry     string
	Direction declaration.Direction
	Code      *jen.Statement
}

// Definitions is the output for one function group.
type Definitions struct {
	TypeID    string
	Binding   binding.ClassBinding
	Bridges   []Definition
	Frontends []Definition
}

// Emitter turns function groups into jennifer code.
type Emitter struct {
	BridgeImport string
}

// Generate emits the definitions of group with the default bridge import.
func Generate(group *declaration.FunctionGroup, reg *binding.Registry) (*Definitions, error) {
	return Emitter{BridgeImport: DefaultBridgeImport}.Generate(group, reg)
}

// Generate emits a bridge definition for every inbound declaration and a
// frontend definition for every declaration, in declaration order.
func (e Emitter) Generate(group *declaration.FunctionGroup, reg *binding.Registry) (*Definitions, error) {
	if len(group.Decls) == 0 {
		return &Definitions{TypeID: group.TypeID}, nil
	}
	b, err := reg.Lookup(group.TypeID)
	if err != nil {
		return nil, fmt.Errorf("impl %s: %w", group.TypeID, err)
	}

	defs := &Definitions{TypeID: group.TypeID, Binding: b}
	for i := range group.Decls {
		decl := &group.Decls[i]
		sig, err := resolveSignature(decl, reg)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", group.TypeID, decl.Name, err)
		}

		if decl.Direction() == declaration.Inbound {
			entry := b.QualifiedName + binding.Separator + decl.Name
			defs.Bridges = append(defs.Bridges, Definition{
				Name:      bridgeFuncName(group.TypeID, decl.Name),
				Entry:     entry,
				Direction: declaration.Inbound,
				Code:      e.bridge(group.TypeID, entry, decl, sig),
			})
		}
		defs.Frontends = append(defs.Frontends, Definition{
			Name:      decl.GoName(),
			Direction: decl.Direction(),
			Code:      e.frontend(group.TypeID, b, decl, sig),
		})
	}
	return defs, nil
}

// signature is a declaration with every type resolved to a marshal rule.
type signature struct {
	params []marshal.Rule
	result marshal.Rule
}

func resolveSignature(decl *declaration.FunctionDeclaration, reg *binding.Registry) (signature, error) {
	sig := signature{result: marshal.Unit()}
	for _, p := range decl.Params {
		rule, err := marshal.Lookup(p.Type.Name(), reg)
		if err != nil {
			return sig, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		sig.params = append(sig.params, rule)
	}
	if decl.Return != nil {
		rule, err := marshal.Lookup(decl.Return.Name(), reg)
		if err != nil {
			return sig, fmt.Errorf("return type: %w", err)
		}
		sig.result = rule
	}
	return sig, nil
}

func bridgeFuncName(typeID, name string) string {
	return declaration.ReservedPrefix + "Bridge_" + typeID + "_" + name
}

// frontend emits the native-callable method for decl.
func (e Emitter) frontend(typeID string, b binding.ClassBinding, decl *declaration.FunctionDeclaration, sig signature) *jen.Statement {
	s := jen.Null()
	for _, line := range decl.Doc {
		s.Comment(line).Line()
	}

	s.Func().Params(jen.Id(typeID)).Id(decl.GoName()).ParamsFunc(func(g *jen.Group) {
		for i, p := range decl.Params {
			g.Id(p.Name).Id(sig.params[i].GoType)
		}
	})
	if sig.result.Unit {
		s.Error()
	} else {
		s.Params(jen.Id(sig.result.GoType), jen.Error())
	}

	if decl.Body != nil {
		return s.BlockFunc(func(g *jen.Group) {
			for _, stmt := range decl.Body.Statements {
				g.Op(stmt)
			}
			if len(decl.Body.Statements) == 0 {
				noopBody(g, sig)
			}
		})
	}
	return s.BlockFunc(func(g *jen.Group) {
		e.outboundBody(g, b, decl, sig)
	})
}

// noopBody completes an empty inbound body: it returns the zero value of the
// result and no error.
func noopBody(g *jen.Group, sig signature) {
	if sig.result.Unit {
		g.Return(jen.Nil())
		return
	}
	g.Var().Id(varZero).Id(sig.result.GoType)
	g.Return(jen.Id(varZero), jen.Nil())
}

// outboundBody converts the arguments, calls the foreign static function
// and converts its result back.
func (e Emitter) outboundBody(g *jen.Group, b binding.ClassBinding, decl *declaration.FunctionDeclaration, sig signature) {
	fail := func(err jen.Code) *jen.Statement {
		if sig.result.Unit {
			return jen.Return(err)
		}
		return jen.Return(jen.Id(varZero), err)
	}
	unify := e.qual("Unify").Call(jen.Id(varErr))

	if !sig.result.Unit {
		g.Var().Id(varZero).Id(sig.result.GoType)
	}
	g.List(jen.Id(varHandle), jen.Id(varErr)).Op(":=").Add(e.qual("Attach")).Call()
	g.If(jen.Id(varErr).Op("!=").Nil()).Block(fail(unify))
	g.Defer().Id(varHandle).Dot("Release").Call()

	args := make([]jen.Code, 0, len(decl.Params))
	for i, p := range decl.Params {
		arg := fmt.Sprintf("%sArg%d", declaration.ReservedPrefix, i)
		g.List(jen.Id(arg), jen.Id(varErr)).Op(":=").Add(e.qual("FromNative")).Call(
			jen.Id(p.Name), classHint(sig.params[i]))
		g.If(jen.Id(varErr).Op("!=").Nil()).Block(fail(unify))
		args = append(args, jen.Id(arg))
	}

	argList := jen.Nil()
	if len(args) > 0 {
		argList = jen.Index().Add(e.qual("Value")).Values(args...)
	}
	invoke := jen.Id(varHandle).Dot("InvokeStatic").Call(jen.Id(b.Symbol), jen.Lit(decl.Name), argList)

	if sig.result.Unit {
		g.If(jen.List(jen.Id("_"), jen.Id(varErr)).Op(":=").Add(invoke), jen.Id(varErr).Op("!=").Nil()).Block(fail(unify))
		g.Return(jen.Nil())
		return
	}

	g.List(jen.Id(varResult), jen.Id(varErr)).Op(":=").Add(invoke)
	g.If(jen.Id(varErr).Op("!=").Nil()).Block(fail(unify))
	g.Return(e.qual("ToNative").Types(jen.Id(sig.result.GoType)).Call(jen.Id(varHandle), jen.Id(varResult)))
}

// bridge emits the foreign entry point for an inbound decl: decode the
// arguments, call the frontend, encode the result.
func (e Emitter) bridge(typeID, entry string, decl *declaration.FunctionDeclaration, sig signature) *jen.Statement {
	name := bridgeFuncName(typeID, decl.Name)
	fail := func(err jen.Code) *jen.Statement {
		return jen.Return(e.qual("Nil"), err)
	}

	return jen.Commentf("%s is the foreign entry point %s.", name, entry).Line().
		Func().Id(name).Params(jen.Id(varArgs).Op("...").Add(e.qual("Value"))).
		Params(e.qual("Value"), jen.Error()).
		BlockFunc(func(g *jen.Group) {
			g.If(
				jen.Id(varErr).Op(":=").Add(e.qual("CheckArity")).Call(jen.Lit(entry), jen.Id(varArgs), jen.Lit(len(decl.Params))),
				jen.Id(varErr).Op("!=").Nil(),
			).Block(fail(jen.Id(varErr)))
			g.List(jen.Id(varHandle), jen.Id(varErr)).Op(":=").Add(e.qual("Attach")).Call()
			g.If(jen.Id(varErr).Op("!=").Nil()).Block(fail(e.qual("Unify").Call(jen.Id(varErr))))
			g.Defer().Id(varHandle).Dot("Release").Call()
			g.Var().Id(varRecv).Id(typeID)

			args := make([]jen.Code, 0, len(decl.Params))
			for i, p := range decl.Params {
				g.List(jen.Id(p.Name), jen.Id(varErr)).Op(":=").
					Add(e.qual("ToNative")).Types(jen.Id(sig.params[i].GoType)).
					Call(jen.Id(varHandle), jen.Id(varArgs).Index(jen.Lit(i)))
				g.If(jen.Id(varErr).Op("!=").Nil()).Block(fail(jen.Id(varErr)))
				args = append(args, jen.Id(p.Name))
			}

			call := jen.Id(varRecv).Dot(decl.GoName()).Call(args...)
			callee := e.qual("Callee").Call(jen.Id(varErr))
			if sig.result.Unit {
				g.If(jen.Id(varErr).Op(":=").Add(call), jen.Id(varErr).Op("!=").Nil()).Block(fail(callee))
				g.Return(e.qual("Nil"), jen.Nil())
				return
			}
			g.List(jen.Id(varResult), jen.Id(varErr)).Op(":=").Add(call)
			g.If(jen.Id(varErr).Op("!=").Nil()).Block(fail(callee))
			g.Return(e.qual("FromNative").Call(jen.Id(varResult), classHint(sig.result)))
		})
}

func classHint(rule marshal.Rule) jen.Code {
	if hint := rule.ClassHint(); hint != "" {
		return jen.Id(hint)
	}
	return jen.Lit("")
}

func (e Emitter) qual(name string) *jen.Statement {
	return jen.Qual(e.bridgeImport(), name)
}

func (e Emitter) bridgeImport() string {
	if e.BridgeImport == "" {
		return DefaultBridgeImport
	}
	return e.BridgeImport
}
