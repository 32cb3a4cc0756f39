// Package pool decides how each method of a type is written. A MethodPool
// maps a method description to a Record; a Record either carries a body,
// is bound to a host import, or is not implemented at all.
package pool

import (
	stderrors "errors"

	"github.com/wippyai/wasm-typegen/bytecode"
	"github.com/wippyai/wasm-typegen/codegen"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/output"
)

// Sort classifies a record.
type Sort int

const (
	// Skipped records write nothing.
	Skipped Sort = iota
	// Defined records are declared without a body.
	Defined
	// Implemented records carry a body.
	Implemented
)

func (s Sort) String() string {
	switch s {
	case Skipped:
		return "skipped"
	case Defined:
		return "defined"
	case Implemented:
		return "implemented"
	}
	return "unknown"
}

// IsDefined reports whether the method is declared in the output.
func (s Sort) IsDefined() bool {
	return s != Skipped
}

// IsImplemented reports whether the method has a body.
func (s Sort) IsImplemented() bool {
	return s == Implemented
}

// Record is the pool's decision for one method.
type Record interface {
	Sort() Sort
	Method() *description.Method
	// Prepend returns a record whose body runs a before this record's
	// body. Records without a body cannot be prepended to and panic.
	Prepend(a bytecode.Appender) Record
	// Apply writes the record through w.
	Apply(w *output.Writer, ctx *bytecode.Context) error
}

// MethodPool looks up the record of a method.
type MethodPool interface {
	Target(m *description.Method) Record
}

// WithBody is an implemented method.
type WithBody struct {
	method   *description.Method
	appender bytecode.Appender
}

// NewWithBody creates a record that writes m with the body a.
func NewWithBody(m *description.Method, a bytecode.Appender) *WithBody {
	return &WithBody{method: m, appender: a}
}

func (r *WithBody) Sort() Sort { return Implemented }
func (r *WithBody) Method() *description.Method { return r.method }

// Appender returns the body.
func (r *WithBody) Appender() bytecode.Appender { return r.appender }

// Prepend implements Record. The resulting footprint is the maximum of
// both bodies since the compound merges them.
func (r *WithBody) Prepend(a bytecode.Appender) Record {
	return &WithBody{method: r.method, appender: bytecode.NewCompound(a, r.appender)}
}

// Apply emits the body and hands it to the writer.
func (r *WithBody) Apply(w *output.Writer, ctx *bytecode.Context) error {
	e := codegen.GetEmitter()
	defer codegen.PutEmitter(e)

	size, err := r.appender.Apply(e, ctx, r.method)
	if err != nil {
		return attribute(err, w.Type().Name, r.method.Name)
	}
	return w.WriteMethod(r.method, size, e.Bytes())
}

func attribute(err error, typ, method string) error {
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Method != "" {
		return err
	}
	if e.Type == "" {
		return e.WithType(typ).WithMethod(method)
	}
	return e.WithMethod(method)
}

// WithoutBody is a method bound to a host import. The writer declares the
// import up front, so applying it writes nothing further.
type WithoutBody struct {
	method *description.Method
}

// NewWithoutBody creates a record for the imported method m.
func NewWithoutBody(m *description.Method) *WithoutBody {
	return &WithoutBody{method: m}
}

func (r *WithoutBody) Sort() Sort { return Defined }
func (r *WithoutBody) Method() *description.Method { return r.method }

// Prepend panics: an imported function has no body to run code before.
func (r *WithoutBody) Prepend(bytecode.Appender) Record {
	panic("pool: cannot prepend code to method without body " + r.method.Name)
}

// Apply implements Record.
func (r *WithoutBody) Apply(w *output.Writer, _ *bytecode.Context) error {
	if _, err := w.FuncIndex(r.method.Name); err != nil {
		return err
	}
	return nil
}

// NotImplemented is a method the pool has no body for. For the type
// initializer this is the normal case: nothing is written unless code is
// prepended.
type NotImplemented struct {
	method *description.Method
}

// NewNotImplemented creates a skipped record for m.
func NewNotImplemented(m *description.Method) *NotImplemented {
	return &NotImplemented{method: m}
}

func (r *NotImplemented) Sort() Sort { return Skipped }
func (r *NotImplemented) Method() *description.Method { return r.method }

// Prepend implements Record. The prepended code becomes the whole body.
func (r *NotImplemented) Prepend(a bytecode.Appender) Record {
	return &WithBody{method: r.method, appender: a}
}

// Apply writes nothing.
func (r *NotImplemented) Apply(*output.Writer, *bytecode.Context) error {
	return nil
}

// Default is the pool built from a type's registered method bodies.
type Default struct {
	bodies map[string]bytecode.Appender
}

// NewDefault creates a pool over bodies, keyed by method name.
func NewDefault(bodies map[string]bytecode.Appender) *Default {
	return &Default{bodies: bodies}
}

// Target implements MethodPool. Imports map to WithoutBody, registered
// bodies to WithBody and anything else to NotImplemented.
func (p *Default) Target(m *description.Method) Record {
	if m.IsImported() {
		return NewWithoutBody(m)
	}
	if a, ok := p.bodies[m.Name]; ok && a != nil {
		return NewWithBody(m, a)
	}
	return NewNotImplemented(m)
}
