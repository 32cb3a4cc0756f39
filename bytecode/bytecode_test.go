package bytecode

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-typegen/codegen"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/wasm"
)

type indexResolver struct {
	globals map[string]uint32
	funcs   map[string]uint32
}

func (r indexResolver) GlobalIndex(name string) (uint32, error) {
	if idx, ok := r.globals[name]; ok {
		return idx, nil
	}
	return 0, errors.NotFound(errors.PhaseEmit, "global", name)
}

func (r indexResolver) FuncIndex(name string) (uint32, error) {
	if idx, ok := r.funcs[name]; ok {
		return idx, nil
	}
	return 0, errors.NotFound(errors.PhaseEmit, "function", name)
}

func testContext() *Context {
	typ := &description.Type{
		Name: "counter",
		Fields: []*description.Field{
			{Name: "count", Type: wasm.ValI32, Mutable: true},
			{Name: "total", Type: wasm.ValI64, Mutable: true},
			{Name: "limit", Type: wasm.ValI32},
		},
		Methods: []*description.Method{
			{Name: "log", Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Import: &description.ImportRef{Module: "env", Name: "log"}},
			{Name: "next", Results: []wasm.ValType{wasm.ValI32}},
		},
	}
	r := indexResolver{
		globals: map[string]uint32{"count": 0, "total": 1, "limit": 2},
		funcs:   map[string]uint32{"log": 0, "next": 1},
	}
	return NewContext(typ, r, nil)
}

func clinit() *description.Method {
	return &description.Method{Name: description.TypeInitializerName}
}

func TestSize_Merge(t *testing.T) {
	tests := []struct {
		a, b, want Size
	}{
		{Size{}, Size{}, Size{}},
		{Size{1, 0}, Size{2, 0}, Size{2, 0}},
		{Size{3, 1}, Size{1, 4}, Size{3, 4}},
	}
	for _, tt := range tests {
		if got := tt.a.Merge(tt.b); got != tt.want {
			t.Errorf("%v.Merge(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := tt.b.Merge(tt.a); got != tt.want {
			t.Errorf("Merge is not commutative for %v, %v", tt.a, tt.b)
		}
	}
}

func TestStackSize_Aggregate(t *testing.T) {
	s := PushOne.Aggregate(PushOne).Aggregate(PopOne).Aggregate(PushOne)
	if s.Impact != 2 || s.Peak != 2 {
		t.Errorf("push push pop push = %+v, want impact 2 peak 2", s)
	}
	s = PushOne.Aggregate(PopOne).Aggregate(PushOne).Aggregate(PopOne)
	if s.Impact != 0 || s.Peak != 1 {
		t.Errorf("push pop push pop = %+v, want impact 0 peak 1", s)
	}
}

func marker(v int32, size Size, log *[]int32) Appender {
	return AppenderFunc(func(e *codegen.Emitter, _ *Context, _ *description.Method) (Size, error) {
		*log = append(*log, v)
		e.I32Const(v).Drop()
		return size, nil
	})
}

func TestCompound_Order(t *testing.T) {
	var log []int32
	c := NewCompound(marker(1, Size{}, &log), marker(2, Size{}, &log), marker(3, Size{}, &log))

	e := codegen.NewEmitter()
	if _, err := c.Apply(e, testContext(), clinit()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i, v := range []int32{1, 2, 3} {
		if log[i] != v {
			t.Errorf("applied[%d] = %d, want %d", i, log[i], v)
		}
	}
	want := codegen.NewEmitter().I32Const(1).Drop().I32Const(2).Drop().I32Const(3).Drop()
	if !bytes.Equal(e.Bytes(), want.Bytes()) {
		t.Errorf("bytes = %x, want %x", e.Bytes(), want.Bytes())
	}
}

func TestCompound_Flatten(t *testing.T) {
	var log []int32
	a, b, c := marker(1, Size{}, &log), marker(2, Size{}, &log), marker(3, Size{}, &log)

	nested := NewCompound(NewCompound(a, b), nil, NewCompound(c))
	if nested.Len() != 3 {
		t.Fatalf("Len = %d, want 3", nested.Len())
	}
	if _, err := nested.Apply(codegen.NewEmitter(), testContext(), clinit()); err != nil {
		t.Fatal(err)
	}
	if len(log) != 3 || log[0] != 1 || log[1] != 2 || log[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", log)
	}

	parts := nested.Appenders()
	parts[0] = nil
	if nested.Appenders()[0] == nil {
		t.Error("Appenders must return a copy")
	}
}

func TestCompound_Footprint(t *testing.T) {
	var log []int32
	sizes := []Size{{1, 0}, {4, 1}, {2, 3}}
	var parts []Appender
	for i, s := range sizes {
		parts = append(parts, marker(int32(i), s, &log))
	}

	got, err := NewCompound(parts...).Apply(codegen.NewEmitter(), testContext(), clinit())
	if err != nil {
		t.Fatal(err)
	}
	if got != (Size{4, 3}) {
		t.Errorf("size = %v, want {4 3}", got)
	}
	for _, s := range sizes {
		if !got.Covers(s) {
			t.Errorf("compound size %v does not cover part %v", got, s)
		}
	}
}

func TestCompound_StopsAtError(t *testing.T) {
	var log []int32
	boom := stderrors.New("boom")
	failing := AppenderFunc(func(*codegen.Emitter, *Context, *description.Method) (Size, error) {
		return Size{}, boom
	})

	c := NewCompound(marker(1, Size{}, &log), failing, marker(2, Size{}, &log))
	if _, err := c.Apply(codegen.NewEmitter(), testContext(), clinit()); !stderrors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(log) != 1 {
		t.Errorf("applied %v, want only the block before the failure", log)
	}
}

func TestFieldAssignment(t *testing.T) {
	ctx := testContext()

	e := codegen.NewEmitter()
	size, err := FieldAssignment{Field: "total", Value: I64(7)}.Apply(e, ctx, clinit())
	if err != nil {
		t.Fatal(err)
	}
	if size != (Size{MaxStack: 1}) {
		t.Errorf("size = %v, want {1 0}", size)
	}
	want := codegen.NewEmitter().I64Const(7).GlobalSet(1)
	if !bytes.Equal(e.Bytes(), want.Bytes()) {
		t.Errorf("bytes = %x, want %x", e.Bytes(), want.Bytes())
	}
}

func TestFieldAssignment_Errors(t *testing.T) {
	tests := []struct {
		block FieldAssignment
		name  string
		kind  errors.Kind
	}{
		{name: "unknown field", block: FieldAssignment{Field: "nope", Value: I32(1)}, kind: errors.KindNotFound},
		{name: "immutable field", block: FieldAssignment{Field: "limit", Value: I32(1)}, kind: errors.KindInvalidInput},
		{name: "wrong type", block: FieldAssignment{Field: "count", Value: F64(1)}, kind: errors.KindTypeMismatch},
		{name: "bad operand", block: FieldAssignment{Field: "count", Value: FieldRead{Field: "nope"}}, kind: errors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.block.Apply(codegen.NewEmitter(), testContext(), clinit())
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEmit, Kind: tt.kind}) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestStaticCall(t *testing.T) {
	ctx := testContext()

	e := codegen.NewEmitter()
	call := StaticCall{Method: "log", Args: []Operand{FieldRead{Field: "count"}, I32(2)}}
	size, err := call.Apply(e, ctx, clinit())
	if err != nil {
		t.Fatal(err)
	}
	if size != (Size{MaxStack: 2}) {
		t.Errorf("size = %v, want {2 0}", size)
	}
	want := codegen.NewEmitter().GlobalGet(0).I32Const(2).Call(0)
	if !bytes.Equal(e.Bytes(), want.Bytes()) {
		t.Errorf("bytes = %x, want %x", e.Bytes(), want.Bytes())
	}
}

func TestStaticCall_DropsResults(t *testing.T) {
	e := codegen.NewEmitter()
	size, err := StaticCall{Method: "next"}.Apply(e, testContext(), clinit())
	if err != nil {
		t.Fatal(err)
	}
	if size.MaxStack != 1 {
		t.Errorf("MaxStack = %d, want 1", size.MaxStack)
	}
	want := codegen.NewEmitter().Call(1).Drop()
	if !bytes.Equal(e.Bytes(), want.Bytes()) {
		t.Errorf("bytes = %x, want %x", e.Bytes(), want.Bytes())
	}
}

func TestStaticCall_Errors(t *testing.T) {
	tests := []struct {
		call StaticCall
		name string
		kind errors.Kind
	}{
		{name: "unknown method", call: StaticCall{Method: "nope"}, kind: errors.KindNotFound},
		{name: "type initializer", call: StaticCall{Method: description.TypeInitializerName}, kind: errors.KindNotFound},
		{name: "arity", call: StaticCall{Method: "log", Args: []Operand{I32(1)}}, kind: errors.KindTypeMismatch},
		{name: "arg type", call: StaticCall{Method: "log", Args: []Operand{I32(1), I64(2)}}, kind: errors.KindTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.call.Apply(codegen.NewEmitter(), testContext(), clinit())
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEmit, Kind: tt.kind}) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestReturn(t *testing.T) {
	ctx := testContext()
	m := &description.Method{Name: "pair", Results: []wasm.ValType{wasm.ValI32, wasm.ValI64}}

	e := codegen.NewEmitter()
	size, err := Return{Values: []Operand{FieldRead{Field: "count"}, I64(4)}}.Apply(e, ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	if size.MaxStack != 2 {
		t.Errorf("MaxStack = %d, want 2", size.MaxStack)
	}
	want := codegen.NewEmitter().GlobalGet(0).I64Const(4)
	if !bytes.Equal(e.Bytes(), want.Bytes()) {
		t.Errorf("bytes = %x, want %x", e.Bytes(), want.Bytes())
	}

	if _, err := (Return{Values: []Operand{I32(1)}}).Apply(codegen.NewEmitter(), ctx, m); err == nil {
		t.Error("expected arity error")
	}
	if _, err := (Return{Values: []Operand{I32(1), I32(2)}}).Apply(codegen.NewEmitter(), ctx, m); err == nil {
		t.Error("expected type error")
	}
}

func TestRaw(t *testing.T) {
	m := &description.Method{Name: "add", Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}}
	r := Raw{
		Size: Size{MaxStack: 2},
		Emit: func(e *codegen.Emitter, _ *Context) error {
			e.LocalGet(0).LocalGet(1).I32Add().Drop()
			return nil
		},
	}
	e := codegen.NewEmitter()
	size, err := r.Apply(e, testContext(), m)
	if err != nil {
		t.Fatal(err)
	}
	if size != (Size{MaxStack: 2, MaxLocals: 2}) {
		t.Errorf("size = %v, want {2 2}", size)
	}
	if e.Len() != 6 {
		t.Errorf("len = %d, want 6", e.Len())
	}
}

func TestConstant(t *testing.T) {
	tests := []struct {
		c    Constant
		emit func(e *codegen.Emitter)
		str  string
	}{
		{I32(-3), func(e *codegen.Emitter) { e.I32Const(-3) }, "i32 -3"},
		{I64(1 << 33), func(e *codegen.Emitter) { e.I64Const(1 << 33) }, "i64 8589934592"},
		{F32(0.5), func(e *codegen.Emitter) { e.F32Const(0.5) }, "f32 0.5"},
		{F64(-1.25), func(e *codegen.Emitter) { e.F64Const(-1.25) }, "f64 -1.25"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			got := tt.c.Emit(codegen.NewEmitter()).Bytes()
			want := codegen.NewEmitter()
			tt.emit(want)
			if !bytes.Equal(got, want.Bytes()) {
				t.Errorf("Emit = %x, want %x", got, want.Bytes())
			}
			if s := tt.c.String(); s != tt.str {
				t.Errorf("String = %q, want %q", s, tt.str)
			}
			expr := tt.c.InitExpr()
			if expr[len(expr)-1] != wasm.OpEnd {
				t.Errorf("InitExpr not terminated by end: %x", expr)
			}
		})
	}
}
