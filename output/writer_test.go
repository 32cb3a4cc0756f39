package output

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-typegen/bytecode"
	"github.com/wippyai/wasm-typegen/codegen"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/wasm"
)

func counterType() *description.Type {
	return &description.Type{
		Name: "counter",
		Fields: []*description.Field{
			{Name: "count", Type: wasm.ValI32, Mutable: true, Exported: true},
			{Name: "scale", Type: wasm.ValF64, Init: 0x3FF0000000000000},
		},
		Methods: []*description.Method{
			{Name: "get", Results: []wasm.ValType{wasm.ValI32}, Exported: true},
			{Name: "log", Params: []wasm.ValType{wasm.ValI32}, Import: &description.ImportRef{Module: "env", Name: "log"}},
		},
	}
}

func TestNewWriter_Declarations(t *testing.T) {
	w, err := NewWriter(counterType(), DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}

	// imports come first regardless of declaration order
	if idx, _ := w.FuncIndex("log"); idx != 0 {
		t.Errorf("log index = %d, want 0", idx)
	}
	if idx, _ := w.FuncIndex("get"); idx != 1 {
		t.Errorf("get index = %d, want 1", idx)
	}
	if idx, _ := w.GlobalIndex("scale"); idx != 1 {
		t.Errorf("scale index = %d, want 1", idx)
	}
	if _, err := w.FuncIndex(description.TypeInitializerName); err == nil {
		t.Error("type initializer must not be resolvable")
	}
	if _, err := w.GlobalIndex("nope"); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseWrite, Kind: errors.KindNotFound}) {
		t.Errorf("GlobalIndex(nope) err = %v", err)
	}
}

func TestWriter_Module(t *testing.T) {
	typ := counterType()
	w, err := NewWriter(typ, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}

	get, _ := typ.Method("get")
	code := codegen.NewEmitter().GlobalGet(0).Bytes()
	if err := w.WriteMethod(get, bytecode.Size{MaxStack: 1}, code); err != nil {
		t.Fatal(err)
	}

	m, err := w.Module()
	if err != nil {
		t.Fatal(err)
	}
	if m.Start != nil {
		t.Error("module without initializer must have no start")
	}
	if len(m.Code) != 1 || !bytes.Equal(m.Code[0].Code, []byte{wasm.OpGlobalGet, 0, wasm.OpEnd}) {
		t.Errorf("code = %+v", m.Code)
	}
	if len(m.Exports) != 2 {
		t.Errorf("exports = %+v, want count and get", m.Exports)
	}
	if !bytes.Equal(m.Globals[1].Init, bytecode.F64(1).InitExpr()) {
		t.Errorf("scale init = %x", m.Globals[1].Init)
	}

	parsed, err := wasm.ParseModule(m.Encode())
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	fps, err := ReadFootprints(parsed)
	if err != nil {
		t.Fatal(err)
	}
	if fp, ok := Lookup(fps, 1); !ok || fp.MaxStack != 1 {
		t.Errorf("footprint of get = %+v, %v", fp, ok)
	}
}

func TestWriter_TypeInitializerBecomesStart(t *testing.T) {
	typ := counterType()
	w, err := NewWriter(typ, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	get, _ := typ.Method("get")
	if err := w.WriteMethod(get, bytecode.Size{MaxStack: 1}, codegen.NewEmitter().I32Const(0).Bytes()); err != nil {
		t.Fatal(err)
	}

	init := description.TypeInitializer(typ)
	code := codegen.NewEmitter().I32Const(5).GlobalSet(0).Bytes()
	if err := w.WriteMethod(init, bytecode.Size{MaxStack: 1}, code); err != nil {
		t.Fatal(err)
	}
	if !w.HasStart() {
		t.Error("HasStart = false after writing initializer")
	}
	if err := w.WriteMethod(init, bytecode.Size{}, nil); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseWrite, Kind: errors.KindDuplicate}) {
		t.Errorf("second initializer err = %v, want duplicate", err)
	}

	m, err := w.Module()
	if err != nil {
		t.Fatal(err)
	}
	if m.Start == nil || *m.Start != 2 {
		t.Fatalf("start = %v, want 2", m.Start)
	}
	if ft := m.GetFuncType(2); ft == nil || len(ft.Params)+len(ft.Results) != 0 {
		t.Errorf("start type = %+v", ft)
	}
}

func TestWriter_Locals(t *testing.T) {
	typ := &description.Type{
		Name: "t",
		Methods: []*description.Method{{
			Name:   "f",
			Params: []wasm.ValType{wasm.ValI32},
			Locals: []wasm.ValType{wasm.ValI64, wasm.ValI64, wasm.ValF32},
		}},
	}
	w, err := NewWriter(typ, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteMethod(typ.Methods[0], bytecode.Size{MaxLocals: 6}, nil); err != nil {
		t.Fatal(err)
	}
	m, err := w.Module()
	if err != nil {
		t.Fatal(err)
	}

	want := []wasm.LocalEntry{
		{Count: 2, ValType: wasm.ValI64},
		{Count: 1, ValType: wasm.ValF32},
		{Count: 2, ValType: wasm.ValI32},
	}
	got := m.Code[0].Locals
	if len(got) != len(want) {
		t.Fatalf("locals = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("locals[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWriter_DeclaredLocals(t *testing.T) {
	typ := &description.Type{
		Name: "t",
		Methods: []*description.Method{{
			Name:   "f",
			Params: []wasm.ValType{wasm.ValI32},
			Locals: []wasm.ValType{wasm.ValI64, wasm.ValF64},
		}},
	}
	clinit := &description.Method{Name: description.TypeInitializerName, Locals: []wasm.ValType{wasm.ValI64}}

	w, err := NewWriter(typ, DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteMethod(typ.Methods[0], bytecode.Zero, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteMethod(clinit, bytecode.Zero, nil); err != nil {
		t.Fatal(err)
	}
	m, err := w.Module()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		want []wasm.LocalEntry
		idx  int
	}{
		{idx: 0, want: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI64}, {Count: 1, ValType: wasm.ValF64}}},
		{idx: 1, want: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI64}}},
	}
	for _, tt := range tests {
		got := m.Code[tt.idx].Locals
		if len(got) != len(tt.want) {
			t.Fatalf("func %d locals = %+v, want %+v", tt.idx, got, tt.want)
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("func %d locals[%d] = %+v, want %+v", tt.idx, i, got[i], tt.want[i])
			}
		}
	}

	fps, err := ReadFootprints(m)
	if err != nil {
		t.Fatal(err)
	}
	if fp, ok := Lookup(fps, 0); !ok || fp.MaxLocals != 3 {
		t.Errorf("footprint of f = %+v, want max_locals 3", fp)
	}
}

func TestWriter_Limits(t *testing.T) {
	typ := &description.Type{Name: "t", Methods: []*description.Method{{Name: "f", Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}}}}
	tests := []struct {
		name   string
		method *description.Method
		limits Limits
		size   bytecode.Size
		code   []byte
	}{
		{name: "stack", limits: Limits{MaxStack: 2}, size: bytecode.Size{MaxStack: 3}},
		{name: "locals", limits: Limits{MaxLocals: 4}, size: bytecode.Size{MaxLocals: 5}},
		{name: "params count as locals", limits: Limits{MaxLocals: 1}},
		{name: "declared locals count", limits: Limits{MaxLocals: 3}, method: &description.Method{Name: "f", Params: []wasm.ValType{wasm.ValI32}, Locals: []wasm.ValType{wasm.ValI64, wasm.ValI64, wasm.ValI64}}},
		{name: "code size", limits: Limits{MaxCodeSize: 2}, code: []byte{wasm.OpNop, wasm.OpNop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWriter(typ, tt.limits)
			if err != nil {
				t.Fatal(err)
			}
			m := typ.Methods[0]
			if tt.method != nil {
				m = tt.method
			}
			err = w.WriteMethod(m, tt.size, tt.code)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindLimitExceeded || e.Phase != errors.PhaseWrite {
				t.Fatalf("err = %v, want limit_exceeded in write phase", err)
			}
			if e.Type != "t" || e.Method != "f" {
				t.Errorf("error not attributed: %v", err)
			}
		})
	}
}

func TestWriter_Errors(t *testing.T) {
	t.Run("missing body", func(t *testing.T) {
		w, err := NewWriter(counterType(), DefaultLimits())
		if err != nil {
			t.Fatal(err)
		}
		_, err = w.Module()
		var e *errors.Error
		if !stderrors.As(err, &e) || e.Phase != errors.PhaseEncode || e.Method != "get" {
			t.Errorf("err = %v, want missing body of get", err)
		}
	})

	t.Run("body for import", func(t *testing.T) {
		typ := counterType()
		w, _ := NewWriter(typ, DefaultLimits())
		log, _ := typ.Method("log")
		if err := w.WriteMethod(log, bytecode.Size{}, nil); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseWrite, Kind: errors.KindInvalidInput}) {
			t.Errorf("err = %v, want invalid input", err)
		}
	})

	t.Run("undeclared method", func(t *testing.T) {
		w, _ := NewWriter(counterType(), DefaultLimits())
		if err := w.WriteMethod(&description.Method{Name: "ghost"}, bytecode.Size{}, nil); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseWrite, Kind: errors.KindNotFound}) {
			t.Errorf("err = %v, want not found", err)
		}
	})

	t.Run("duplicate method", func(t *testing.T) {
		typ := &description.Type{Name: "t", Methods: []*description.Method{{Name: "f"}, {Name: "f"}}}
		if _, err := NewWriter(typ, DefaultLimits()); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseWrite, Kind: errors.KindDuplicate}) {
			t.Errorf("err = %v, want duplicate", err)
		}
	})
}

func TestFootprints(t *testing.T) {
	fps := []Footprint{{FuncIdx: 0, MaxStack: 2}, {FuncIdx: 300, MaxStack: 1, MaxLocals: 129}}
	got, err := DecodeFootprints(EncodeFootprints(fps))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != fps[1] {
		t.Errorf("decoded = %+v, want %+v", got, fps)
	}

	if _, err := DecodeFootprints([]byte{0x02, 0x00}); err == nil {
		t.Error("expected error for truncated section")
	}
	if _, err := DecodeFootprints(append(EncodeFootprints(nil), 0x00)); err == nil {
		t.Error("expected error for trailing bytes")
	}
	if fps, err := ReadFootprints(&wasm.Module{}); err != nil || fps != nil {
		t.Errorf("ReadFootprints(empty) = %v, %v", fps, err)
	}
}
