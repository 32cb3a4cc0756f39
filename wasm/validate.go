package wasm

import (
	"strconv"

	"github.com/wippyai/wasm-typegen/errors"
)

// Validate checks index bounds, export names, the start signature and that
// every declared function has a body.
func (m *Module) Validate() error {
	invalid := func(section string, idx int, format string, args ...any) error {
		return errors.New(errors.PhaseEncode, errors.KindInvalidModule).
			Path(section, strconv.Itoa(idx)).Detail(format, args...).Build()
	}

	types := uint32(len(m.Types))
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= types {
			return invalid("import", i, "%s.%s references invalid type index %d", imp.Module, imp.Name, imp.Desc.TypeIdx)
		}
	}
	for i, typeIdx := range m.Funcs {
		if typeIdx >= types {
			return invalid("func", i, "invalid type index %d", typeIdx)
		}
	}
	if len(m.Code) != len(m.Funcs) {
		return invalid("code", len(m.Code), "code section has %d entries but function section has %d", len(m.Code), len(m.Funcs))
	}

	bounds := map[byte]uint32{
		KindFunc:   uint32(m.NumFuncs()),
		KindGlobal: uint32(m.NumImportedGlobals() + len(m.Globals)),
	}
	names := make(map[string]struct{}, len(m.Exports))
	for i, exp := range m.Exports {
		if _, dup := names[exp.Name]; dup {
			return invalid("export", i, "duplicate export %q", exp.Name)
		}
		names[exp.Name] = struct{}{}
		if n, ok := bounds[exp.Kind]; ok && exp.Idx >= n {
			what := "function"
			if exp.Kind == KindGlobal {
				what = "global"
			}
			return invalid("export", i, "%s references invalid %s index %d", exp.Name, what, exp.Idx)
		}
	}

	if m.Start == nil {
		return nil
	}
	start := int(*m.Start)
	if n := bounds[KindFunc]; *m.Start >= n {
		return invalid("start", start, "start function index %d exceeds function count %d", start, n)
	}
	if ft := m.GetFuncType(*m.Start); ft == nil || len(ft.Params) != 0 || len(ft.Results) != 0 {
		return invalid("start", start, "start function must have signature [] -> []")
	}
	return nil
}

// ParseModuleValidate parses a binary and validates the result.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
