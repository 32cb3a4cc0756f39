// Package description models the types, fields and methods a generated
// module is built from.
//
// A Type maps to one WebAssembly module. Fields become globals, methods
// become functions (imported when Import is set) and the latent type
// initializer method becomes the module's start function.
package description

import (
	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/wasm"
)

// TypeInitializerName is the name of the synthetic type initializer method.
const TypeInitializerName = "<clinit>"

// Type describes a generated type.
type Type struct {
	Name    string
	Fields  []*Field
	Methods []*Method
}

// Field describes a global slot of a type.
type Field struct {
	Name     string
	Type     wasm.ValType
	Init     int64 // initial value; floats are stored as their bit pattern
	Mutable  bool
	Exported bool
}

// Method describes a function of a type.
type Method struct {
	Import   *ImportRef
	Name     string
	Params   []wasm.ValType
	Results  []wasm.ValType
	Locals   []wasm.ValType // types of local slots beyond Params; unlisted slots are i32
	Exported bool
}

// ImportRef names the host function a method without body is bound to.
type ImportRef struct {
	Module string
	Name   string
}

// TypeInitializer returns the type initializer method of t: the declared
// one if t has it, otherwise a latent method with the signature [] -> [].
func TypeInitializer(t *Type) *Method {
	if m, ok := t.Method(TypeInitializerName); ok {
		return m
	}
	return &Method{Name: TypeInitializerName}
}

// IsTypeInitializer reports whether m is the type initializer.
func (m *Method) IsTypeInitializer() bool {
	return m.Name == TypeInitializerName
}

// IsImported reports whether m is bound to a host function.
func (m *Method) IsImported() bool {
	return m.Import != nil
}

// Signature returns m's wasm function type.
func (m *Method) Signature() wasm.FuncType {
	return wasm.FuncType{Params: m.Params, Results: m.Results}
}

// LocalType returns the type of local slot idx, counting params first.
func (m *Method) LocalType(idx int) wasm.ValType {
	if idx < len(m.Params) {
		return m.Params[idx]
	}
	idx -= len(m.Params)
	if idx < len(m.Locals) {
		return m.Locals[idx]
	}
	return wasm.ValI32
}

// Field returns the field named name.
func (t *Type) Field(name string) (*Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Method returns the method named name.
func (t *Type) Method(name string) (*Method, bool) {
	for _, m := range t.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Validate checks names are unique and the type initializer, if declared,
// has the start function signature.
func (t *Type) Validate() error {
	if t.Name == "" {
		return errors.InvalidInput(errors.PhaseDescribe, "type name is empty")
	}

	fields := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "" {
			return errors.InvalidInput(errors.PhaseDescribe, "field name is empty").WithType(t.Name)
		}
		if fields[f.Name] {
			return errors.Duplicate(errors.PhaseDescribe, "field", f.Name).WithType(t.Name)
		}
		fields[f.Name] = true
		if f.Type.String() == "unknown" {
			return errors.New(errors.PhaseDescribe, errors.KindUnsupported).
				Type(t.Name).Path(f.Name).Detail("value type 0x%02x", byte(f.Type)).Build()
		}
	}

	methods := make(map[string]bool, len(t.Methods))
	for _, m := range t.Methods {
		if m.Name == "" {
			return errors.InvalidInput(errors.PhaseDescribe, "method name is empty").WithType(t.Name)
		}
		if methods[m.Name] {
			return errors.Duplicate(errors.PhaseDescribe, "method", m.Name).WithType(t.Name)
		}
		methods[m.Name] = true
		if m.IsTypeInitializer() {
			if len(m.Params) != 0 || len(m.Results) != 0 {
				return errors.New(errors.PhaseDescribe, errors.KindTypeMismatch).
					Type(t.Name).Method(m.Name).Detail("type initializer must have signature [] -> []").Build()
			}
			if m.IsImported() || m.Exported {
				return errors.New(errors.PhaseDescribe, errors.KindInvalidInput).
					Type(t.Name).Method(m.Name).Detail("type initializer cannot be imported or exported").Build()
			}
		}
	}
	return nil
}
