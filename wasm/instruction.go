package wasm

import (
	"bytes"
	"fmt"
)

// Instruction is a decoded WebAssembly instruction.
type Instruction struct {
	Imm    interface{}
	Opcode byte
}

// BlockImm holds the block type for block, loop and if.
type BlockImm struct {
	Type int32 // -64=void, -1=i32, -2=i64, -3=f32, -4=f64, >=0=type index
}

// BranchImm holds the label index for br and br_if.
type BranchImm struct {
	LabelIdx uint32
}

// CallImm holds the function index for call.
type CallImm struct {
	FuncIdx uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// I32Imm holds the constant value for i32.const.
type I32Imm struct {
	Value int32
}

// I64Imm holds the constant value for i64.const.
type I64Imm struct {
	Value int64
}

// F32Imm holds the constant value for f32.const.
type F32Imm struct {
	Value float32
}

// F64Imm holds the constant value for f64.const.
type F64Imm struct {
	Value float64
}

// GetCallTarget returns the call target if this is a call instruction
func (i Instruction) GetCallTarget() (uint32, bool) {
	if i.Opcode == OpCall {
		if imm, ok := i.Imm.(CallImm); ok {
			return imm.FuncIdx, true
		}
	}
	return 0, false
}

var opcodeNames = map[byte]string{
	OpUnreachable: "unreachable",
	OpNop:         "nop",
	OpBlock:       "block",
	OpLoop:        "loop",
	OpIf:          "if",
	OpElse:        "else",
	OpEnd:         "end",
	OpBr:          "br",
	OpBrIf:        "br_if",
	OpReturn:      "return",
	OpCall:        "call",
	OpDrop:        "drop",
	OpSelect:      "select",
	OpLocalGet:    "local.get",
	OpLocalSet:    "local.set",
	OpLocalTee:    "local.tee",
	OpGlobalGet:   "global.get",
	OpGlobalSet:   "global.set",
	OpI32Const:    "i32.const",
	OpI64Const:    "i64.const",
	OpF32Const:    "f32.const",
	OpF64Const:    "f64.const",
	OpI32Eqz:      "i32.eqz",
	OpI32Eq:       "i32.eq",
	OpI32Ne:       "i32.ne",
	OpI32LtS:      "i32.lt_s",
	OpI32GtS:      "i32.gt_s",
	OpI32Add:      "i32.add",
	OpI32Sub:      "i32.sub",
	OpI32Mul:      "i32.mul",
	OpI32And:      "i32.and",
	OpI32Or:       "i32.or",
	OpI32Xor:      "i32.xor",
	OpI64Eqz:      "i64.eqz",
	OpI64Add:      "i64.add",
	OpI64Sub:      "i64.sub",
	OpI64Mul:      "i64.mul",
}

// OpcodeName returns the text-format mnemonic for op.
func OpcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", op)
}

// String renders the instruction in text format, e.g. "global.set 2".
func (i Instruction) String() string {
	name := OpcodeName(i.Opcode)
	switch imm := i.Imm.(type) {
	case BlockImm:
		if imm.Type == BlockTypeVoid {
			return name
		}
		if imm.Type < 0 {
			return fmt.Sprintf("%s (result %s)", name, ValType(byte(imm.Type&0x7f)))
		}
		return fmt.Sprintf("%s (type %d)", name, imm.Type)
	case BranchImm:
		return fmt.Sprintf("%s %d", name, imm.LabelIdx)
	case CallImm:
		return fmt.Sprintf("%s %d", name, imm.FuncIdx)
	case LocalImm:
		return fmt.Sprintf("%s %d", name, imm.LocalIdx)
	case GlobalImm:
		return fmt.Sprintf("%s %d", name, imm.GlobalIdx)
	case I32Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	case I64Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	case F32Imm:
		return fmt.Sprintf("%s %g", name, imm.Value)
	case F64Imm:
		return fmt.Sprintf("%s %g", name, imm.Value)
	}
	return name
}

// DecodeInstructions decodes a sequence of instructions from raw bytes.
// Opcodes outside the supported subset are rejected.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := bytes.NewReader(code)
	instrs := make([]Instruction, 0, len(code)/2)

	for r.Len() > 0 {
		op, err := r.ReadByte()
		if err != nil {
			break
		}

		instr := Instruction{Opcode: op}

		switch op {
		case OpBlock, OpLoop, OpIf:
			bt, err := ReadLEB128s(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = BlockImm{Type: bt}

		case OpBr, OpBrIf:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = BranchImm{LabelIdx: idx}

		case OpCall:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = CallImm{FuncIdx: idx}

		case OpLocalGet, OpLocalSet, OpLocalTee:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = LocalImm{LocalIdx: idx}

		case OpGlobalGet, OpGlobalSet:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = GlobalImm{GlobalIdx: idx}

		case OpI32Const:
			v, err := ReadLEB128s(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = I32Imm{Value: v}

		case OpI64Const:
			v, err := ReadLEB128s64(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = I64Imm{Value: v}

		case OpF32Const:
			v, err := ReadFloat32(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = F32Imm{Value: v}

		case OpF64Const:
			v, err := ReadFloat64(r)
			if err != nil {
				return nil, err
			}
			instr.Imm = F64Imm{Value: v}

		default:
			if _, ok := opcodeNames[op]; !ok {
				return nil, fmt.Errorf("unsupported opcode 0x%02x at offset %d", op, len(code)-r.Len()-1)
			}
		}

		instrs = append(instrs, instr)
	}

	return instrs, nil
}

// EncodeInstructionTo appends the encoding of instr to buf.
func EncodeInstructionTo(buf *bytes.Buffer, instr *Instruction) {
	buf.WriteByte(instr.Opcode)
	switch imm := instr.Imm.(type) {
	case BlockImm:
		WriteLEB128s(buf, imm.Type)
	case BranchImm:
		WriteLEB128u(buf, imm.LabelIdx)
	case CallImm:
		WriteLEB128u(buf, imm.FuncIdx)
	case LocalImm:
		WriteLEB128u(buf, imm.LocalIdx)
	case GlobalImm:
		WriteLEB128u(buf, imm.GlobalIdx)
	case I32Imm:
		WriteLEB128s(buf, imm.Value)
	case I64Imm:
		WriteLEB128s64(buf, imm.Value)
	case F32Imm:
		WriteFloat32(buf, imm.Value)
	case F64Imm:
		WriteFloat64(buf, imm.Value)
	}
}

// EncodeInstructions encodes instrs to bytecode.
func EncodeInstructions(instrs []Instruction) []byte {
	var buf bytes.Buffer
	for i := range instrs {
		EncodeInstructionTo(&buf, &instrs[i])
	}
	return buf.Bytes()
}
