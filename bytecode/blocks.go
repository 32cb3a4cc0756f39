package bytecode

import (
	"github.com/wippyai/wasm-typegen/codegen"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/wasm"
)

// Operand pushes exactly one value and reports its type.
type Operand interface {
	Push(e *codegen.Emitter, ctx *Context) (wasm.ValType, error)
}

// FieldRead pushes the current value of a field.
type FieldRead struct {
	Field string
}

// Push implements Operand.
func (r FieldRead) Push(e *codegen.Emitter, ctx *Context) (wasm.ValType, error) {
	f, idx, err := ctx.Field(r.Field)
	if err != nil {
		return 0, err
	}
	e.GlobalGet(idx)
	return f.Type, nil
}

// FieldAssignment stores a value into a mutable field.
type FieldAssignment struct {
	Value Operand
	Field string
}

// Apply implements Appender.
func (a FieldAssignment) Apply(e *codegen.Emitter, ctx *Context, m *description.Method) (Size, error) {
	f, idx, err := ctx.Field(a.Field)
	if err != nil {
		return Size{}, err
	}
	if !f.Mutable {
		return Size{}, errors.New(errors.PhaseEmit, errors.KindInvalidInput).
			Type(ctx.Type().Name).Method(m.Name).Path(f.Name).
			Detail("field is immutable").Build()
	}
	got, err := a.Value.Push(e, ctx)
	if err != nil {
		return Size{}, err
	}
	if got != f.Type {
		return Size{}, errors.TypeMismatch(errors.PhaseEmit, []string{f.Name}, got.String(), f.Type.String()).
			WithType(ctx.Type().Name).WithMethod(m.Name)
	}
	e.GlobalSet(idx)
	return Size{MaxStack: 1, MaxLocals: len(m.Params)}, nil
}

// StaticCall calls a method of the type with the given arguments and drops
// whatever it returns.
type StaticCall struct {
	Method string
	Args   []Operand
}

// Apply implements Appender.
func (c StaticCall) Apply(e *codegen.Emitter, ctx *Context, m *description.Method) (Size, error) {
	callee, idx, err := ctx.Method(c.Method)
	if err != nil {
		return Size{}, err
	}
	if len(c.Args) != len(callee.Params) {
		return Size{}, errors.New(errors.PhaseEmit, errors.KindTypeMismatch).
			Type(ctx.Type().Name).Method(m.Name).Path(callee.Name).
			Detail("%d arguments, want %d", len(c.Args), len(callee.Params)).Build()
	}

	var stack StackSize
	for i, arg := range c.Args {
		got, err := arg.Push(e, ctx)
		if err != nil {
			return Size{}, err
		}
		if want := callee.Params[i]; got != want {
			return Size{}, errors.TypeMismatch(errors.PhaseEmit, []string{callee.Name, "arg"}, got.String(), want.String()).
				WithType(ctx.Type().Name).WithMethod(m.Name)
		}
		stack = stack.Aggregate(PushOne)
	}

	e.Call(idx)
	net := len(callee.Results) - len(callee.Params)
	stack = stack.Aggregate(StackSize{Impact: net, Peak: net})
	for range callee.Results {
		e.Drop()
		stack = stack.Aggregate(PopOne)
	}
	return Size{MaxStack: stack.Peak, MaxLocals: len(m.Params)}, nil
}

// Return leaves the method's results on the stack. It must be the last
// block of a body.
type Return struct {
	Values []Operand
}

// Apply implements Appender.
func (r Return) Apply(e *codegen.Emitter, ctx *Context, m *description.Method) (Size, error) {
	if len(r.Values) != len(m.Results) {
		return Size{}, errors.New(errors.PhaseEmit, errors.KindTypeMismatch).
			Type(ctx.Type().Name).Method(m.Name).
			Detail("%d result values, want %d", len(r.Values), len(m.Results)).Build()
	}
	var stack StackSize
	for i, v := range r.Values {
		got, err := v.Push(e, ctx)
		if err != nil {
			return Size{}, err
		}
		if got != m.Results[i] {
			return Size{}, errors.TypeMismatch(errors.PhaseEmit, []string{"result"}, got.String(), m.Results[i].String()).
				WithType(ctx.Type().Name).WithMethod(m.Name)
		}
		stack = stack.Aggregate(PushOne)
	}
	return Size{MaxStack: stack.Peak, MaxLocals: len(m.Params)}, nil
}

// Raw emits through an arbitrary function and reports a fixed footprint.
// It is the escape hatch for code the other blocks cannot express.
type Raw struct {
	Emit func(e *codegen.Emitter, ctx *Context) error
	Size Size
}

// Apply implements Appender.
func (r Raw) Apply(e *codegen.Emitter, ctx *Context, m *description.Method) (Size, error) {
	if r.Emit != nil {
		if err := r.Emit(e, ctx); err != nil {
			return Size{}, err
		}
	}
	return r.Size.Merge(Size{MaxLocals: len(m.Params)}), nil
}
