package wasm

// Module is the subset of a WebAssembly core module that generated types
// use: functions, globals, imports, exports and a start function.
type Module struct {
	Types          []FuncType
	Imports        []Import
	Funcs          []uint32 // Type indices for declared functions
	Globals        []Global
	Exports        []Export
	Start          *uint32
	Code           []FuncBody
	CustomSections []CustomSection
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ValType is a WebAssembly value type. See constants.go.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// ParseValType maps a text name ("i32", "i64", "f32", "f64") to its ValType.
func ParseValType(name string) (ValType, bool) {
	switch name {
	case "i32":
		return ValI32, true
	case "i64":
		return ValI64, true
	case "f32":
		return ValF32, true
	case "f64":
		return ValF64, true
	}
	return 0, false
}

// Import is an imported item. Only function and global imports are encoded.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ImportDesc describes an imported item; Kind is KindFunc or KindGlobal.
type ImportDesc struct {
	Global  *GlobalType
	TypeIdx uint32
	Kind    byte
}

// GlobalType describes a global's type and mutability.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// Global is a module-defined global with its constant init expression.
type Global struct {
	Type GlobalType
	Init []byte // Raw init expression bytes including end
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody is a function's local declarations and bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // Raw code bytes including end opcode
}

// LocalEntry declares Count locals of the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// NumLocals returns the total number of declared locals.
func (b FuncBody) NumLocals() uint32 {
	var n uint32
	for _, l := range b.Locals {
		n += l.Count
	}
	return n
}

// CustomSection holds a named custom section's payload.
type CustomSection struct {
	Name string
	Data []byte
}

// NumImportedFuncs returns the number of imported functions
func (m *Module) NumImportedFuncs() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			count++
		}
	}
	return count
}

// NumImportedGlobals returns the number of imported globals
func (m *Module) NumImportedGlobals() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindGlobal {
			count++
		}
	}
	return count
}

// NumFuncs returns the size of the function index space.
func (m *Module) NumFuncs() int {
	return m.NumImportedFuncs() + len(m.Funcs)
}

// GetFuncType returns the type of a function by its index, or nil when the
// index is out of range.
func (m *Module) GetFuncType(funcIdx uint32) *FuncType {
	numImported := uint32(m.NumImportedFuncs())
	if funcIdx < numImported {
		for _, imp := range m.Imports {
			if imp.Desc.Kind != KindFunc {
				continue
			}
			if funcIdx == 0 {
				return m.typeAt(imp.Desc.TypeIdx)
			}
			funcIdx--
		}
		return nil
	}
	localIdx := funcIdx - numImported
	if int(localIdx) >= len(m.Funcs) {
		return nil
	}
	return m.typeAt(m.Funcs[localIdx])
}

func (m *Module) typeAt(idx uint32) *FuncType {
	if int(idx) >= len(m.Types) {
		return nil
	}
	return &m.Types[idx]
}

// Body returns the code of the function at funcIdx, or nil for imports
// and out-of-range indices.
func (m *Module) Body(funcIdx uint32) *FuncBody {
	numImported := uint32(m.NumImportedFuncs())
	if funcIdx < numImported {
		return nil
	}
	localIdx := funcIdx - numImported
	if int(localIdx) >= len(m.Code) {
		return nil
	}
	return &m.Code[localIdx]
}

// CustomSection returns the first custom section with the given name.
func (m *Module) CustomSection(name string) (CustomSection, bool) {
	for _, cs := range m.CustomSections {
		if cs.Name == name {
			return cs, true
		}
	}
	return CustomSection{}, false
}

// AddType adds a function type and returns its index, reusing existing if equal
func (m *Module) AddType(ft FuncType) uint32 {
	for i, t := range m.Types {
		if typesEqual(t, ft) {
			return uint32(i)
		}
	}
	idx := uint32(len(m.Types))
	m.Types = append(m.Types, ft)
	return idx
}

func typesEqual(a, b FuncType) bool {
	if len(a.Params) != len(b.Params) || len(a.Results) != len(b.Results) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Results {
		if a.Results[i] != b.Results[i] {
			return false
		}
	}
	return true
}
