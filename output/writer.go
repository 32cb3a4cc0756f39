// Package output is the per-method write path. A Writer turns a type
// description plus the bodies written for its methods into a WebAssembly
// module.
//
// Declarations are fixed when the Writer is created: host imports take the
// lowest function indices, fields become globals and ordinary methods are
// declared in order. The type initializer is declared only when a body is
// written for it; it takes the last function index and becomes the start
// function.
package output

import (
	"math"

	"github.com/wippyai/wasm-typegen/bytecode"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/wasm"
)

// Limits bounds what a single method may declare. Zero means unlimited.
type Limits struct {
	MaxStack    int
	MaxLocals   int
	MaxCodeSize int
}

// DefaultLimits returns the limits used when none are configured. MaxLocals
// matches the common engine limit of 50000 locals per function.
func DefaultLimits() Limits {
	return Limits{
		MaxStack:    1024,
		MaxLocals:   50000,
		MaxCodeSize: 1 << 20,
	}
}

// footprint returns the largest footprint l allows.
func (l Limits) footprint() bytecode.Size {
	bound := bytecode.Size{MaxStack: l.MaxStack, MaxLocals: l.MaxLocals}
	if bound.MaxStack <= 0 {
		bound.MaxStack = math.MaxInt
	}
	if bound.MaxLocals <= 0 {
		bound.MaxLocals = math.MaxInt
	}
	return bound
}

// Writer accumulates one generated module.
type Writer struct {
	module     wasm.Module
	typ        *description.Type
	globals    map[string]uint32
	funcs      map[string]uint32
	bodies     []*wasm.FuncBody
	footprints []Footprint
	limits     Limits
	start      bool
}

var _ bytecode.Resolver = (*Writer)(nil)

// NewWriter declares every import, field and ordinary method of typ.
func NewWriter(typ *description.Type, limits Limits) (*Writer, error) {
	w := &Writer{
		typ:     typ,
		limits:  limits,
		globals: make(map[string]uint32, len(typ.Fields)),
		funcs:   make(map[string]uint32, len(typ.Methods)),
	}

	var idx uint32
	for _, m := range typ.Methods {
		if !m.IsImported() {
			continue
		}
		if m.IsTypeInitializer() {
			return nil, errors.InvalidInput(errors.PhaseWrite, "type initializer cannot be imported").
				WithType(typ.Name).WithMethod(m.Name)
		}
		if err := w.declare(m.Name, idx); err != nil {
			return nil, err
		}
		w.module.Imports = append(w.module.Imports, wasm.Import{
			Module: m.Import.Module,
			Name:   m.Import.Name,
			Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: w.module.AddType(m.Signature())},
		})
		idx++
	}

	for i, f := range typ.Fields {
		if _, dup := w.globals[f.Name]; dup {
			return nil, errors.Duplicate(errors.PhaseWrite, "field", f.Name).WithType(typ.Name)
		}
		w.globals[f.Name] = uint32(i)
		w.module.Globals = append(w.module.Globals, wasm.Global{
			Type: wasm.GlobalType{ValType: f.Type, Mutable: f.Mutable},
			Init: bytecode.Constant{Type: f.Type, Bits: f.Init}.InitExpr(),
		})
		if f.Exported {
			w.module.Exports = append(w.module.Exports, wasm.Export{Name: f.Name, Kind: wasm.KindGlobal, Idx: uint32(i)})
		}
	}

	for _, m := range typ.Methods {
		if m.IsImported() || m.IsTypeInitializer() {
			continue
		}
		if err := w.declare(m.Name, idx); err != nil {
			return nil, err
		}
		w.module.Funcs = append(w.module.Funcs, w.module.AddType(m.Signature()))
		w.bodies = append(w.bodies, nil)
		idx++
	}

	for _, m := range typ.Methods {
		if m.Exported && !m.IsTypeInitializer() {
			w.module.Exports = append(w.module.Exports, wasm.Export{Name: m.Name, Kind: wasm.KindFunc, Idx: w.funcs[m.Name]})
		}
	}
	return w, nil
}

func (w *Writer) declare(name string, idx uint32) error {
	if _, dup := w.funcs[name]; dup {
		return errors.Duplicate(errors.PhaseWrite, "method", name).WithType(w.typ.Name)
	}
	w.funcs[name] = idx
	return nil
}

// Type returns the type being written.
func (w *Writer) Type() *description.Type {
	return w.typ
}

// Limits returns the configured limits.
func (w *Writer) Limits() Limits {
	return w.limits
}

// GlobalIndex implements bytecode.Resolver.
func (w *Writer) GlobalIndex(field string) (uint32, error) {
	idx, ok := w.globals[field]
	if !ok {
		return 0, errors.NotFound(errors.PhaseWrite, "field", field).WithType(w.typ.Name)
	}
	return idx, nil
}

// FuncIndex implements bytecode.Resolver. The type initializer has no
// callable index.
func (w *Writer) FuncIndex(method string) (uint32, error) {
	idx, ok := w.funcs[method]
	if !ok {
		return 0, errors.NotFound(errors.PhaseWrite, "method", method).WithType(w.typ.Name)
	}
	return idx, nil
}

// HasStart reports whether a type initializer body has been written.
func (w *Writer) HasStart() bool {
	return w.start
}

// WriteMethod records the body of m. code is the emitted instruction
// sequence without the closing end, and size is its reported footprint.
// The footprint is raised to cover m's parameters and declared locals
// before limits are checked, so every declared local is emitted.
func (w *Writer) WriteMethod(m *description.Method, size bytecode.Size, code []byte) error {
	if m.IsImported() {
		return errors.New(errors.PhaseWrite, errors.KindInvalidInput).
			Type(w.typ.Name).Method(m.Name).Detail("imported method cannot have a body").Build()
	}

	size = size.Merge(bytecode.Size{MaxLocals: len(m.Params) + len(m.Locals)})
	if err := w.checkLimits(m, size, len(code)); err != nil {
		return err
	}

	body := &wasm.FuncBody{
		Locals: groupLocals(m, size.MaxLocals),
		Code:   make([]byte, 0, len(code)+1),
	}
	body.Code = append(append(body.Code, code...), wasm.OpEnd)

	var funcIdx uint32
	if m.IsTypeInitializer() {
		if w.start {
			return errors.Duplicate(errors.PhaseWrite, "method body", m.Name).WithType(w.typ.Name)
		}
		funcIdx = uint32(w.module.NumImportedFuncs() + len(w.bodies))
		w.module.Funcs = append(w.module.Funcs, w.module.AddType(wasm.FuncType{}))
		w.bodies = append(w.bodies, body)
		w.module.Start = &funcIdx
		w.start = true
	} else {
		idx, ok := w.funcs[m.Name]
		if !ok {
			return errors.NotFound(errors.PhaseWrite, "method", m.Name).WithType(w.typ.Name)
		}
		local := int(idx) - w.module.NumImportedFuncs()
		if w.bodies[local] != nil {
			return errors.Duplicate(errors.PhaseWrite, "method body", m.Name).WithType(w.typ.Name)
		}
		w.bodies[local] = body
		funcIdx = idx
	}

	w.footprints = append(w.footprints, Footprint{
		FuncIdx:   funcIdx,
		MaxStack:  uint32(size.MaxStack),
		MaxLocals: uint32(size.MaxLocals),
	})
	return nil
}

func (w *Writer) checkLimits(m *description.Method, size bytecode.Size, codeLen int) error {
	var err *errors.Error
	if bound := w.limits.footprint(); !bound.Covers(size) {
		if size.MaxStack > bound.MaxStack {
			err = errors.LimitExceeded(errors.PhaseWrite, "max stack", size.MaxStack, w.limits.MaxStack)
		} else {
			err = errors.LimitExceeded(errors.PhaseWrite, "max locals", size.MaxLocals, w.limits.MaxLocals)
		}
	} else if w.limits.MaxCodeSize > 0 && codeLen+1 > w.limits.MaxCodeSize {
		err = errors.LimitExceeded(errors.PhaseWrite, "code size", codeLen+1, w.limits.MaxCodeSize)
	} else {
		return nil
	}
	return err.WithType(w.typ.Name).WithMethod(m.Name)
}

// groupLocals declares the slots between m's parameters and maxLocals as
// runs of equal type.
func groupLocals(m *description.Method, maxLocals int) []wasm.LocalEntry {
	var entries []wasm.LocalEntry
	for i := len(m.Params); i < maxLocals; i++ {
		vt := m.LocalType(i)
		if n := len(entries); n > 0 && entries[n-1].ValType == vt {
			entries[n-1].Count++
			continue
		}
		entries = append(entries, wasm.LocalEntry{Count: 1, ValType: vt})
	}
	return entries
}

// Module assembles the written module. Every declared method must have
// received a body.
func (w *Writer) Module() (*wasm.Module, error) {
	m := w.module
	m.Code = make([]wasm.FuncBody, len(w.bodies))
	for i, body := range w.bodies {
		if body == nil {
			name := w.methodAt(uint32(m.NumImportedFuncs() + i))
			return nil, errors.New(errors.PhaseEncode, errors.KindNotFound).
				Type(w.typ.Name).Method(name).Detail("method declared without a body").Build()
		}
		m.Code[i] = *body
	}
	if len(w.footprints) > 0 {
		m.CustomSections = append(append([]wasm.CustomSection(nil), m.CustomSections...), wasm.CustomSection{
			Name: FootprintSection,
			Data: EncodeFootprints(w.footprints),
		})
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidModule, err, "validate module").WithType(w.typ.Name)
	}
	return &m, nil
}

func (w *Writer) methodAt(idx uint32) string {
	for name, i := range w.funcs {
		if i == idx {
			return name
		}
	}
	return ""
}

// Encode assembles the module and returns its binary encoding.
func (w *Writer) Encode() ([]byte, error) {
	m, err := w.Module()
	if err != nil {
		return nil, err
	}
	return m.Encode(), nil
}
