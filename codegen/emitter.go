// Package codegen provides the WebAssembly bytecode emitter that code
// blocks write into.
//
// An Emitter is a growable byte buffer with one chaining method per
// instruction. It does not track stack depth; each code block reports its
// own footprint.
package codegen

import (
	"bytes"
	"sync"

	"github.com/wippyai/wasm-typegen/wasm"
)

// BlockType is the signature annotation of block, loop and if.
type BlockType int32

// Block types.
const (
	BlockVoid BlockType = BlockType(wasm.BlockTypeVoid)
	BlockI32  BlockType = BlockType(wasm.BlockTypeI32)
	BlockI64  BlockType = BlockType(wasm.BlockTypeI64)
	BlockF32  BlockType = BlockType(wasm.BlockTypeF32)
	BlockF64  BlockType = BlockType(wasm.BlockTypeF64)
)

// Emitter accumulates instruction bytes.
type Emitter struct {
	buf bytes.Buffer
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// NewEmitterWithCapacity creates an emitter with at least n bytes preallocated.
func NewEmitterWithCapacity(n int) *Emitter {
	e := &Emitter{}
	e.buf.Grow(n)
	return e
}

var emitterPool = sync.Pool{
	New: func() any { return NewEmitter() },
}

// GetEmitter takes a reset emitter from the pool.
func GetEmitter() *Emitter {
	return emitterPool.Get().(*Emitter)
}

// GetEmitterWithCapacity takes a pooled emitter with room for n bytes.
func GetEmitterWithCapacity(n int) *Emitter {
	e := GetEmitter()
	e.buf.Grow(n)
	return e
}

// PutEmitter resets e and returns it to the pool. Bytes previously
// returned by e must not be used afterwards.
func PutEmitter(e *Emitter) {
	if e == nil {
		return
	}
	e.Reset()
	emitterPool.Put(e)
}

// Bytes returns the emitted bytes. The slice aliases the buffer.
func (e *Emitter) Bytes() []byte {
	return e.buf.Bytes()
}

// Copy returns an independent copy of the emitted bytes.
func (e *Emitter) Copy() []byte {
	return append([]byte(nil), e.buf.Bytes()...)
}

// Len returns the number of emitted bytes.
func (e *Emitter) Len() int {
	return e.buf.Len()
}

// Reset discards all emitted bytes.
func (e *Emitter) Reset() {
	e.buf.Reset()
}

// Raw appends pre-encoded bytes.
func (e *Emitter) Raw(b []byte) *Emitter {
	e.buf.Write(b)
	return e
}

// EmitRawOpcode appends a single opcode without immediates.
func (e *Emitter) EmitRawOpcode(op byte) *Emitter {
	e.buf.WriteByte(op)
	return e
}

// EmitInstr appends a decoded instruction.
func (e *Emitter) EmitInstr(instr wasm.Instruction) *Emitter {
	wasm.EncodeInstructionTo(&e.buf, &instr)
	return e
}

// EmitInstrs appends decoded instructions in order.
func (e *Emitter) EmitInstrs(instrs []wasm.Instruction) *Emitter {
	for i := range instrs {
		wasm.EncodeInstructionTo(&e.buf, &instrs[i])
	}
	return e
}

func (e *Emitter) op(op byte) *Emitter {
	e.buf.WriteByte(op)
	return e
}

func (e *Emitter) opU32(op byte, v uint32) *Emitter {
	e.buf.WriteByte(op)
	wasm.WriteLEB128u(&e.buf, v)
	return e
}

// Control flow

func (e *Emitter) Block(bt BlockType) *Emitter {
	e.buf.WriteByte(wasm.OpBlock)
	wasm.WriteLEB128s(&e.buf, int32(bt))
	return e
}

func (e *Emitter) Loop(bt BlockType) *Emitter {
	e.buf.WriteByte(wasm.OpLoop)
	wasm.WriteLEB128s(&e.buf, int32(bt))
	return e
}

func (e *Emitter) If(bt BlockType) *Emitter {
	e.buf.WriteByte(wasm.OpIf)
	wasm.WriteLEB128s(&e.buf, int32(bt))
	return e
}

func (e *Emitter) Else() *Emitter { return e.op(wasm.OpElse) }
func (e *Emitter) End() *Emitter { return e.op(wasm.OpEnd) }
func (e *Emitter) Br(l uint32) *Emitter { return e.opU32(wasm.OpBr, l) }
func (e *Emitter) BrIf(l uint32) *Emitter { return e.opU32(wasm.OpBrIf, l) }
func (e *Emitter) Return() *Emitter { return e.op(wasm.OpReturn) }
func (e *Emitter) Nop() *Emitter { return e.op(wasm.OpNop) }
func (e *Emitter) Unreachable() *Emitter { return e.op(wasm.OpUnreachable) }

// Call emits a direct call to funcIdx.
func (e *Emitter) Call(funcIdx uint32) *Emitter { return e.opU32(wasm.OpCall, funcIdx) }

// Parametric

func (e *Emitter) Drop() *Emitter { return e.op(wasm.OpDrop) }
func (e *Emitter) Select() *Emitter { return e.op(wasm.OpSelect) }

// Variables

func (e *Emitter) LocalGet(idx uint32) *Emitter { return e.opU32(wasm.OpLocalGet, idx) }
func (e *Emitter) LocalSet(idx uint32) *Emitter { return e.opU32(wasm.OpLocalSet, idx) }
func (e *Emitter) LocalTee(idx uint32) *Emitter { return e.opU32(wasm.OpLocalTee, idx) }
func (e *Emitter) GlobalGet(idx uint32) *Emitter { return e.opU32(wasm.OpGlobalGet, idx) }
func (e *Emitter) GlobalSet(idx uint32) *Emitter { return e.opU32(wasm.OpGlobalSet, idx) }

// Constants

func (e *Emitter) I32Const(v int32) *Emitter {
	e.buf.WriteByte(wasm.OpI32Const)
	wasm.WriteLEB128s(&e.buf, v)
	return e
}

func (e *Emitter) I64Const(v int64) *Emitter {
	e.buf.WriteByte(wasm.OpI64Const)
	wasm.WriteLEB128s64(&e.buf, v)
	return e
}

func (e *Emitter) F32Const(v float32) *Emitter {
	e.buf.WriteByte(wasm.OpF32Const)
	wasm.WriteFloat32(&e.buf, v)
	return e
}

func (e *Emitter) F64Const(v float64) *Emitter {
	e.buf.WriteByte(wasm.OpF64Const)
	wasm.WriteFloat64(&e.buf, v)
	return e
}

// Integer arithmetic and comparison

func (e *Emitter) I32Eqz() *Emitter { return e.op(wasm.OpI32Eqz) }
func (e *Emitter) I32Eq() *Emitter { return e.op(wasm.OpI32Eq) }
func (e *Emitter) I32Ne() *Emitter { return e.op(wasm.OpI32Ne) }
func (e *Emitter) I32LtS() *Emitter { return e.op(wasm.OpI32LtS) }
func (e *Emitter) I32GtS() *Emitter { return e.op(wasm.OpI32GtS) }
func (e *Emitter) I32Add() *Emitter { return e.op(wasm.OpI32Add) }
func (e *Emitter) I32Sub() *Emitter { return e.op(wasm.OpI32Sub) }
func (e *Emitter) I32Mul() *Emitter { return e.op(wasm.OpI32Mul) }
func (e *Emitter) I32And() *Emitter { return e.op(wasm.OpI32And) }
func (e *Emitter) I32Or() *Emitter { return e.op(wasm.OpI32Or) }
func (e *Emitter) I32Xor() *Emitter { return e.op(wasm.OpI32Xor) }
func (e *Emitter) I64Eqz() *Emitter { return e.op(wasm.OpI64Eqz) }
func (e *Emitter) I64Add() *Emitter { return e.op(wasm.OpI64Add) }
func (e *Emitter) I64Sub() *Emitter { return e.op(wasm.OpI64Sub) }
func (e *Emitter) I64Mul() *Emitter { return e.op(wasm.OpI64Mul) }
