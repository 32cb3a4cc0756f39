package wasm

import (
	"errors"
	"fmt"

	"github.com/wippyai/wasm-typegen/wasm/internal/binary"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

type sectionParser struct {
	parse func(r *binary.Reader, m *Module) error
	name  string
}

var sectionParsers = map[byte]sectionParser{
	SectionCustom:   {name: "custom section", parse: parseCustomSection},
	SectionType:     {name: "type section", parse: parseTypeSection},
	SectionImport:   {name: "import section", parse: parseImportSection},
	SectionFunction: {name: "function section", parse: parseFunctionSection},
	SectionGlobal:   {name: "global section", parse: parseGlobalSection},
	SectionExport:   {name: "export section", parse: parseExportSection},
	SectionStart:    {name: "start section", parse: parseStartSection},
	SectionCode:     {name: "code section", parse: parseCodeSection},
}

// ParseModule parses a WebAssembly binary module. Only the sections that
// Encode produces are accepted.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(data)
	if err := readHeader(r); err != nil {
		return nil, err
	}

	m := &Module{}
	var last byte
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, r.WrapError("section header", err)
		}
		p, ok := sectionParsers[id]
		if !ok {
			return nil, fmt.Errorf("unsupported section ID: 0x%02x", id)
		}
		if id != SectionCustom {
			if id <= last {
				return nil, fmt.Errorf("%s appears out of order", p.name)
			}
			last = id
		}

		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError(p.name, err)
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, r.WrapError(p.name, err)
		}
		sr := binary.NewReader(payload)
		if err := p.parse(sr, m); err != nil {
			return nil, sr.WrapError(p.name, err)
		}
	}
	return m, nil
}

func readHeader(r *binary.Reader) error {
	magic, err := r.ReadU32LE()
	if err != nil {
		return r.WrapError("header", err)
	}
	if magic != Magic {
		return ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return r.WrapError("header", err)
	}
	if version != Version {
		return ErrInvalidVersion
	}
	return nil
}

func parseCustomSection(r *binary.Reader, m *Module) error {
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	m.CustomSections = append(m.CustomSections, CustomSection{
		Name: name,
		Data: append([]byte(nil), r.ReadRemaining()...),
	})
	return nil
}

func parseTypeSection(r *binary.Reader, m *Module) error {
	return r.Vec(func(int) error {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			return fmt.Errorf("unsupported type form 0x%02x", form)
		}
		var ft FuncType
		if ft.Params, err = readValTypes(r); err != nil {
			return err
		}
		if ft.Results, err = readValTypes(r); err != nil {
			return err
		}
		m.Types = append(m.Types, ft)
		return nil
	})
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	var out []ValType
	err := r.Vec(func(int) error {
		b, err := r.ReadByte()
		out = append(out, ValType(b))
		return err
	})
	return out, err
}

func parseImportSection(r *binary.Reader, m *Module) error {
	return r.Vec(func(int) error {
		var imp Import
		var err error
		if imp.Module, err = r.ReadName(); err != nil {
			return err
		}
		if imp.Name, err = r.ReadName(); err != nil {
			return err
		}
		if imp.Desc.Kind, err = r.ReadByte(); err != nil {
			return err
		}
		switch imp.Desc.Kind {
		case KindFunc:
			if imp.Desc.TypeIdx, err = r.ReadU32(); err != nil {
				return err
			}
		case KindGlobal:
			gt, err := readGlobalType(r)
			if err != nil {
				return err
			}
			imp.Desc.Global = &gt
		default:
			return fmt.Errorf("unsupported import kind: %d", imp.Desc.Kind)
		}
		m.Imports = append(m.Imports, imp)
		return nil
	})
}

func parseFunctionSection(r *binary.Reader, m *Module) error {
	return r.Vec(func(int) error {
		typeIdx, err := r.ReadU32()
		m.Funcs = append(m.Funcs, typeIdx)
		return err
	})
}

func parseGlobalSection(r *binary.Reader, m *Module) error {
	return r.Vec(func(int) error {
		gt, err := readGlobalType(r)
		if err != nil {
			return err
		}
		init, err := readInitExpr(r)
		if err != nil {
			return err
		}
		m.Globals = append(m.Globals, Global{Type: gt, Init: init})
		return nil
	})
}

func parseExportSection(r *binary.Reader, m *Module) error {
	return r.Vec(func(int) error {
		var exp Export
		var err error
		if exp.Name, err = r.ReadName(); err != nil {
			return err
		}
		if exp.Kind, err = r.ReadByte(); err != nil {
			return err
		}
		if exp.Kind > KindGlobal {
			return fmt.Errorf("invalid export kind: 0x%02x", exp.Kind)
		}
		if exp.Idx, err = r.ReadU32(); err != nil {
			return err
		}
		m.Exports = append(m.Exports, exp)
		return nil
	})
}

func parseStartSection(r *binary.Reader, m *Module) error {
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Start = &idx
	return nil
}

func parseCodeSection(r *binary.Reader, m *Module) error {
	return r.Vec(func(int) error {
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		data, err := r.ReadBytes(int(size))
		if err != nil {
			return err
		}

		br := binary.NewReader(data)
		var body FuncBody
		err = br.Vec(func(int) error {
			n, err := br.ReadU32()
			if err != nil {
				return err
			}
			t, err := br.ReadByte()
			body.Locals = append(body.Locals, LocalEntry{Count: n, ValType: ValType(t)})
			return err
		})
		if err != nil {
			return err
		}
		body.Code = append([]byte(nil), br.ReadRemaining()...)
		m.Code = append(m.Code, body)
		return nil
	})
}

func readGlobalType(r *binary.Reader) (GlobalType, error) {
	vt, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, err
	}
	return GlobalType{ValType: ValType(vt), Mutable: mut != 0}, nil
}

// readInitExpr returns a constant expression up to and including its end.
func readInitExpr(r *binary.Reader) ([]byte, error) {
	start := r.Position()
	for {
		op, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch op {
		case OpEnd:
			return r.Since(start), nil
		case OpI32Const, OpI64Const, OpGlobalGet:
			if _, err := r.ReadS64(); err != nil {
				return nil, err
			}
		case OpF32Const:
			err = r.Skip(4)
		case OpF64Const:
			err = r.Skip(8)
		default:
			return nil, fmt.Errorf("unsupported opcode 0x%02x in constant expression", op)
		}
		if err != nil {
			return nil, err
		}
	}
}
