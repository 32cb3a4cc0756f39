package config

import (
	"math"
	"strconv"

	"github.com/wippyai/wasm-typegen/bytecode"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/pipeline"
	"github.com/wippyai/wasm-typegen/wasm"
)

// Builders converts every type into a pipeline builder, in manifest order.
func (m *Manifest) Builders() ([]*pipeline.Builder, error) {
	seen := make(map[string]bool, len(m.Types))
	builders := make([]*pipeline.Builder, 0, len(m.Types))
	for i := range m.Types {
		tc := &m.Types[i]
		if tc.Name == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path("type", strconv.Itoa(i)).Detail("type name is empty").Build()
		}
		if seen[tc.Name] {
			return nil, errors.Duplicate(errors.PhaseConfig, "type", tc.Name)
		}
		seen[tc.Name] = true

		b, err := tc.Builder()
		if err != nil {
			return nil, err
		}
		builders = append(builders, b)
	}
	return builders, nil
}

// Builder converts tc into a pipeline builder.
func (tc *TypeConfig) Builder() (*pipeline.Builder, error) {
	typ, err := tc.describe()
	if err != nil {
		return nil, err
	}
	c := &stepCompiler{typ: typ}
	b := pipeline.NewBuilder(tc.Name)

	for _, f := range typ.Fields {
		b.DefineField(f)
	}
	for i, ic := range tc.Imports {
		fn := ic.Func
		if fn == "" {
			fn = ic.Name
		}
		b.ImportMethod(typ.Methods[i], ic.Module, fn)
	}
	for i, mc := range tc.Methods {
		m := typ.Methods[len(tc.Imports)+i]
		body, err := c.compile(m, mc.Steps, "method", mc.Name)
		if err != nil {
			return nil, err
		}
		b.DefineMethod(m, body)
	}
	if tc.Initializer != nil {
		m := &description.Method{Name: description.TypeInitializerName}
		if m.Locals, err = valTypes(tc.Initializer.Locals, tc.Name, "initializer", "locals"); err != nil {
			return nil, err
		}
		body, err := c.compile(m, tc.Initializer.Steps, "initializer")
		if err != nil {
			return nil, err
		}
		b.DefineTypeInitializer(body, m.Locals...)
	}
	for i, cc := range tc.Contributions {
		if cc.Contributor == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Type(tc.Name).Path("contribution", strconv.Itoa(i)).Detail("contributor is empty").Build()
		}
		body, err := c.compile(description.TypeInitializer(typ), cc.Steps, "contribution", cc.Contributor)
		if err != nil {
			return nil, err
		}
		b.Contribute(cc.Contributor, body)
	}
	return b, nil
}

// describe builds the description steps are compiled against. Imports
// precede methods in Methods.
func (tc *TypeConfig) describe() (*description.Type, error) {
	typ := &description.Type{Name: tc.Name}

	for _, fc := range tc.Fields {
		vt, err := valType(fc.Type, tc.Name, "field", fc.Name)
		if err != nil {
			return nil, err
		}
		f := &description.Field{Name: fc.Name, Type: vt, Mutable: fc.Mutable, Exported: fc.Export}
		if fc.Init != nil {
			c, err := constant(vt, fc.Init, tc.Name, "field", fc.Name, "init")
			if err != nil {
				return nil, err
			}
			f.Init = c.Bits
		}
		typ.Fields = append(typ.Fields, f)
	}

	for _, ic := range tc.Imports {
		if ic.Module == "" {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Type(tc.Name).Path("import", ic.Name).Detail("import module is empty").Build()
		}
		m := &description.Method{Name: ic.Name}
		var err error
		if m.Params, err = valTypes(ic.Params, tc.Name, "import", ic.Name, "params"); err != nil {
			return nil, err
		}
		if m.Results, err = valTypes(ic.Results, tc.Name, "import", ic.Name, "results"); err != nil {
			return nil, err
		}
		typ.Methods = append(typ.Methods, m)
	}

	for _, mc := range tc.Methods {
		if mc.Name == description.TypeInitializerName {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Type(tc.Name).Path("method", mc.Name).Detail("use [type.initializer] for the type initializer").Build()
		}
		m := &description.Method{Name: mc.Name, Exported: mc.Export}
		var err error
		if m.Params, err = valTypes(mc.Params, tc.Name, "method", mc.Name, "params"); err != nil {
			return nil, err
		}
		if m.Results, err = valTypes(mc.Results, tc.Name, "method", mc.Name, "results"); err != nil {
			return nil, err
		}
		if m.Locals, err = valTypes(mc.Locals, tc.Name, "method", mc.Name, "locals"); err != nil {
			return nil, err
		}
		typ.Methods = append(typ.Methods, m)
	}
	return typ, nil
}

type stepCompiler struct {
	typ *description.Type
}

// compile turns steps into one code block for m. Effect steps become
// FieldAssignment and StaticCall blocks; trailing push steps become a
// single Return.
func (c *stepCompiler) compile(m *description.Method, steps []StepConfig, path ...string) (bytecode.Appender, error) {
	var blocks []bytecode.Appender
	var results []bytecode.Operand

	for i, s := range steps {
		at := append(append([]string(nil), path...), "steps", strconv.Itoa(i))
		switch s.Op {
		case OpSet:
			f, ok := c.typ.Field(s.Field)
			if !ok {
				return nil, c.notFound("field", s.Field, at)
			}
			v, err := c.operand(OperandConfig{Value: s.Value, Type: s.Type}, f.Type, at)
			if err != nil {
				return nil, err
			}
			if len(results) > 0 {
				return nil, c.misplaced(at)
			}
			blocks = append(blocks, bytecode.FieldAssignment{Field: s.Field, Value: v})

		case OpCall:
			callee, ok := c.typ.Method(s.Method)
			if !ok {
				return nil, c.notFound("method", s.Method, at)
			}
			if len(s.Args) != len(callee.Params) {
				return nil, errors.New(errors.PhaseConfig, errors.KindTypeMismatch).
					Type(c.typ.Name).Path(at...).
					Detail("%d arguments for %s, want %d", len(s.Args), callee.Name, len(callee.Params)).Build()
			}
			args := make([]bytecode.Operand, len(s.Args))
			for j, a := range s.Args {
				op, err := c.operand(a, callee.Params[j], append(at, "args", strconv.Itoa(j)))
				if err != nil {
					return nil, err
				}
				args[j] = op
			}
			if len(results) > 0 {
				return nil, c.misplaced(at)
			}
			blocks = append(blocks, bytecode.StaticCall{Method: s.Method, Args: args})

		case OpConst:
			vt, err := valType(s.Type, append([]string{c.typ.Name}, at...)...)
			if err != nil {
				return nil, err
			}
			k, err := constant(vt, s.Value, append([]string{c.typ.Name}, at...)...)
			if err != nil {
				return nil, err
			}
			results = append(results, k)

		case OpGet:
			if _, ok := c.typ.Field(s.Field); !ok {
				return nil, c.notFound("field", s.Field, at)
			}
			results = append(results, bytecode.FieldRead{Field: s.Field})

		default:
			return nil, errors.New(errors.PhaseConfig, errors.KindUnsupported).
				Type(c.typ.Name).Path(at...).Value(s.Op).Detail("unknown op %q", s.Op).Build()
		}
	}

	if len(results) > 0 || len(m.Results) > 0 {
		if len(results) != len(m.Results) {
			return nil, errors.New(errors.PhaseConfig, errors.KindTypeMismatch).
				Type(c.typ.Name).Method(m.Name).Path(path...).
				Detail("%d result values, want %d", len(results), len(m.Results)).Build()
		}
		blocks = append(blocks, bytecode.Return{Values: results})
	}
	if len(blocks) == 1 {
		return blocks[0], nil
	}
	return bytecode.NewCompound(blocks...), nil
}

// operand resolves a call argument or assigned value. A constant takes its
// type from the destination unless one is given.
func (c *stepCompiler) operand(oc OperandConfig, want wasm.ValType, at []string) (bytecode.Operand, error) {
	if oc.Field != "" {
		f, ok := c.typ.Field(oc.Field)
		if !ok {
			return nil, c.notFound("field", oc.Field, at)
		}
		if f.Type != want {
			return nil, errors.TypeMismatch(errors.PhaseConfig, at, f.Type.String(), want.String()).WithType(c.typ.Name)
		}
		return bytecode.FieldRead{Field: oc.Field}, nil
	}
	vt := want
	if oc.Type != "" {
		var err error
		if vt, err = valType(oc.Type, append([]string{c.typ.Name}, at...)...); err != nil {
			return nil, err
		}
		if vt != want {
			return nil, errors.TypeMismatch(errors.PhaseConfig, at, vt.String(), want.String()).WithType(c.typ.Name)
		}
	}
	return constant(vt, oc.Value, append([]string{c.typ.Name}, at...)...)
}

func (c *stepCompiler) notFound(what, name string, at []string) error {
	err := errors.NotFound(errors.PhaseConfig, what, name).WithType(c.typ.Name)
	err.Path = at
	return err
}

func (c *stepCompiler) misplaced(at []string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Type(c.typ.Name).Path(at...).Detail("effect step after a push step").Build()
}

// valType parses a value type name. path[0] is the type name.
func valType(name string, path ...string) (wasm.ValType, error) {
	vt, ok := wasm.ParseValType(name)
	if !ok {
		return 0, errors.New(errors.PhaseConfig, errors.KindUnsupported).
			Type(path[0]).Path(path[1:]...).Value(name).Detail("value type %q", name).Build()
	}
	return vt, nil
}

func valTypes(names []string, path ...string) ([]wasm.ValType, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]wasm.ValType, len(names))
	for i, name := range names {
		vt, err := valType(name, append(path, strconv.Itoa(i))...)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

// constant converts a decoded TOML value to a constant of type vt. TOML
// integers decode as int64 and floats as float64.
func constant(vt wasm.ValType, v any, path ...string) (bytecode.Constant, error) {
	bad := func(detail string, args ...any) error {
		return errors.New(errors.PhaseConfig, errors.KindTypeMismatch).
			Type(path[0]).Path(path[1:]...).Value(v).Detail(detail, args...).Build()
	}
	switch x := v.(type) {
	case nil:
		return bytecode.Constant{}, bad("missing value")
	case int64:
		switch vt {
		case wasm.ValI32:
			if x < math.MinInt32 || x > math.MaxUint32 {
				return bytecode.Constant{}, bad("%d out of range for i32", x)
			}
			return bytecode.I32(int32(x)), nil
		case wasm.ValI64:
			return bytecode.I64(x), nil
		case wasm.ValF32:
			return bytecode.F32(float32(x)), nil
		default:
			return bytecode.F64(float64(x)), nil
		}
	case float64:
		switch vt {
		case wasm.ValF32:
			return bytecode.F32(float32(x)), nil
		case wasm.ValF64:
			return bytecode.F64(x), nil
		}
		return bytecode.Constant{}, bad("float %v for %s", x, vt)
	}
	return bytecode.Constant{}, bad("%s value of Go type %T", vt, v)
}
