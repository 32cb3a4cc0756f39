package bytecode

import (
	"fmt"
	"math"

	"github.com/wippyai/wasm-typegen/codegen"
	"github.com/wippyai/wasm-typegen/wasm"
)

// Constant is a typed immediate value. Floats are held as their IEEE bit
// pattern so that every Constant is comparable.
type Constant struct {
	Bits int64
	Type wasm.ValType
}

func I32(v int32) Constant { return Constant{Type: wasm.ValI32, Bits: int64(v)} }
func I64(v int64) Constant { return Constant{Type: wasm.ValI64, Bits: v} }
func F32(v float32) Constant { return Constant{Type: wasm.ValF32, Bits: int64(math.Float32bits(v))} }
func F64(v float64) Constant { return Constant{Type: wasm.ValF64, Bits: int64(math.Float64bits(v))} }

// Emit writes the matching const instruction.
func (c Constant) Emit(e *codegen.Emitter) *codegen.Emitter {
	switch c.Type {
	case wasm.ValI64:
		return e.I64Const(c.Bits)
	case wasm.ValF32:
		return e.F32Const(math.Float32frombits(uint32(c.Bits)))
	case wasm.ValF64:
		return e.F64Const(math.Float64frombits(uint64(c.Bits)))
	default:
		return e.I32Const(int32(c.Bits))
	}
}

// InitExpr returns c as a constant expression terminated by end, the form
// global initializers take.
func (c Constant) InitExpr() []byte {
	e := codegen.NewEmitterWithCapacity(11)
	return c.Emit(e).End().Bytes()
}

// Push implements Operand.
func (c Constant) Push(e *codegen.Emitter, _ *Context) (wasm.ValType, error) {
	c.Emit(e)
	return c.Type, nil
}

func (c Constant) String() string {
	switch c.Type {
	case wasm.ValI32:
		return fmt.Sprintf("i32 %d", int32(c.Bits))
	case wasm.ValI64:
		return fmt.Sprintf("i64 %d", c.Bits)
	case wasm.ValF32:
		return fmt.Sprintf("f32 %g", math.Float32frombits(uint32(c.Bits)))
	case wasm.ValF64:
		return fmt.Sprintf("f64 %g", math.Float64frombits(uint64(c.Bits)))
	}
	return fmt.Sprintf("%s %d", c.Type, c.Bits)
}
