package wasm

import (
	"github.com/wippyai/wasm-typegen/wasm/internal/binary"
)

// Encode encodes the module to WebAssembly binary format. Sections are
// written in their canonical order and empty ones are omitted; custom
// sections trail.
func (m *Module) Encode() []byte {
	out := binary.NewWriter()
	out.WriteU32LE(Magic)
	out.WriteU32LE(Version)

	sections := []struct {
		write func(w *binary.Writer)
		n     int
		id    byte
	}{
		{id: SectionType, n: len(m.Types), write: m.encodeTypes},
		{id: SectionImport, n: len(m.Imports), write: m.encodeImports},
		{id: SectionFunction, n: len(m.Funcs), write: func(w *binary.Writer) {
			w.Vec(len(m.Funcs), func(i int) { w.WriteU32(m.Funcs[i]) })
		}},
		{id: SectionGlobal, n: len(m.Globals), write: func(w *binary.Writer) {
			w.Vec(len(m.Globals), func(i int) {
				writeGlobalType(w, m.Globals[i].Type)
				w.WriteBytes(m.Globals[i].Init)
			})
		}},
		{id: SectionExport, n: len(m.Exports), write: func(w *binary.Writer) {
			w.Vec(len(m.Exports), func(i int) {
				exp := m.Exports[i]
				w.WriteName(exp.Name)
				w.Byte(exp.Kind)
				w.WriteU32(exp.Idx)
			})
		}},
		{id: SectionStart, n: boolCount(m.Start != nil), write: func(w *binary.Writer) { w.WriteU32(*m.Start) }},
		{id: SectionCode, n: len(m.Code), write: m.encodeCode},
	}
	for _, s := range sections {
		if s.n == 0 {
			continue
		}
		body := binary.NewWriter()
		s.write(body)
		out.Section(s.id, body)
	}

	for _, cs := range m.CustomSections {
		body := binary.NewWriter()
		body.WriteName(cs.Name)
		body.WriteBytes(cs.Data)
		out.Section(SectionCustom, body)
	}
	return out.Bytes()
}

func (m *Module) encodeTypes(w *binary.Writer) {
	w.Vec(len(m.Types), func(i int) {
		w.Byte(FuncTypeByte)
		writeValTypes(w, m.Types[i].Params)
		writeValTypes(w, m.Types[i].Results)
	})
}

func (m *Module) encodeImports(w *binary.Writer) {
	w.Vec(len(m.Imports), func(i int) {
		imp := m.Imports[i]
		w.WriteName(imp.Module)
		w.WriteName(imp.Name)
		w.Byte(imp.Desc.Kind)
		switch {
		case imp.Desc.Kind == KindFunc:
			w.WriteU32(imp.Desc.TypeIdx)
		case imp.Desc.Kind == KindGlobal && imp.Desc.Global != nil:
			writeGlobalType(w, *imp.Desc.Global)
		}
	})
}

// encodeCode writes each body prefixed by its byte size.
func (m *Module) encodeCode(w *binary.Writer) {
	w.Vec(len(m.Code), func(i int) {
		body := m.Code[i]
		fn := binary.NewWriter()
		fn.Vec(len(body.Locals), func(j int) {
			fn.WriteU32(body.Locals[j].Count)
			fn.Byte(byte(body.Locals[j].ValType))
		})
		fn.WriteBytes(body.Code)
		w.WriteU32(uint32(fn.Len()))
		w.WriteBytes(fn.Bytes())
	})
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.Vec(len(types), func(i int) { w.Byte(byte(types[i])) })
}

func writeGlobalType(w *binary.Writer, g GlobalType) {
	w.Byte(byte(g.ValType))
	w.Byte(byte(boolCount(g.Mutable)))
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
