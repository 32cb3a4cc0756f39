package description

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/wasm"
)

func TestTypeInitializer(t *testing.T) {
	typ := &Type{Name: "counter"}

	latent := TypeInitializer(typ)
	if !latent.IsTypeInitializer() {
		t.Fatal("latent method is not a type initializer")
	}
	if len(latent.Params) != 0 || len(latent.Results) != 0 || latent.Exported {
		t.Errorf("latent = %+v, want [] -> [] unexported", latent)
	}

	declared := &Method{Name: TypeInitializerName, Locals: []wasm.ValType{wasm.ValI64}}
	typ.Methods = append(typ.Methods, declared)
	if got := TypeInitializer(typ); got != declared {
		t.Error("declared type initializer should be returned")
	}
}

func TestMethod_LocalType(t *testing.T) {
	m := &Method{
		Params: []wasm.ValType{wasm.ValF64},
		Locals: []wasm.ValType{wasm.ValI64},
	}
	tests := []struct {
		idx  int
		want wasm.ValType
	}{
		{0, wasm.ValF64},
		{1, wasm.ValI64},
		{2, wasm.ValI32},
	}
	for _, tt := range tests {
		if got := m.LocalType(tt.idx); got != tt.want {
			t.Errorf("LocalType(%d) = %v, want %v", tt.idx, got, tt.want)
		}
	}
}

func TestType_Validate(t *testing.T) {
	tests := []struct {
		typ  *Type
		name string
		kind errors.Kind
	}{
		{
			name: "valid",
			typ: &Type{
				Name:    "counter",
				Fields:  []*Field{{Name: "count", Type: wasm.ValI32, Mutable: true}},
				Methods: []*Method{{Name: "get", Results: []wasm.ValType{wasm.ValI32}}},
			},
		},
		{name: "empty name", typ: &Type{}, kind: errors.KindInvalidInput},
		{
			name: "duplicate field",
			typ:  &Type{Name: "t", Fields: []*Field{{Name: "a", Type: wasm.ValI32}, {Name: "a", Type: wasm.ValI32}}},
			kind: errors.KindDuplicate,
		},
		{
			name: "bad field type",
			typ:  &Type{Name: "t", Fields: []*Field{{Name: "a", Type: 0x01}}},
			kind: errors.KindUnsupported,
		},
		{
			name: "duplicate method",
			typ:  &Type{Name: "t", Methods: []*Method{{Name: "m"}, {Name: "m"}}},
			kind: errors.KindDuplicate,
		},
		{
			name: "initializer with params",
			typ:  &Type{Name: "t", Methods: []*Method{{Name: TypeInitializerName, Params: []wasm.ValType{wasm.ValI32}}}},
			kind: errors.KindTypeMismatch,
		},
		{
			name: "exported initializer",
			typ:  &Type{Name: "t", Methods: []*Method{{Name: TypeInitializerName, Exported: true}}},
			kind: errors.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate()
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("error = %v, want *errors.Error", err)
			}
			if e.Kind != tt.kind || e.Phase != errors.PhaseDescribe {
				t.Errorf("error = %v, want kind %s in describe phase", err, tt.kind)
			}
		})
	}
}
