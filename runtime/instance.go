package runtime

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/wasm"
)

type Instance struct {
	rt     wazero.Runtime
	mod    api.Module
	module *wasm.Module
	log    *callLog
}

// GlobalValue is the current value of an exported global.
type GlobalValue struct {
	Name string
	Bits uint64
	Type wasm.ValType
}

func (g GlobalValue) Value() any {
	switch g.Type {
	case wasm.ValI32:
		return int32(uint32(g.Bits))
	case wasm.ValI64:
		return int64(g.Bits)
	case wasm.ValF32:
		return math.Float32frombits(uint32(g.Bits))
	case wasm.ValF64:
		return math.Float64frombits(g.Bits)
	}
	return g.Bits
}

func (g GlobalValue) String() string {
	return fmt.Sprintf("%s: %s = %v", g.Name, g.Type, g.Value())
}

// Calls returns the host calls made so far, oldest first.
func (i *Instance) Calls() []HostCall {
	return i.log.snapshot()
}

// Module returns the parsed module the instance was created from.
func (i *Instance) Module() *wasm.Module {
	return i.module
}

// Global returns the exported global name.
func (i *Instance) Global(name string) (GlobalValue, bool) {
	for _, exp := range i.module.Exports {
		if exp.Kind == wasm.KindGlobal && exp.Name == name {
			return i.global(exp), true
		}
	}
	return GlobalValue{}, false
}

// Globals returns every exported global in export order.
func (i *Instance) Globals() []GlobalValue {
	var out []GlobalValue
	for _, exp := range i.module.Exports {
		if exp.Kind == wasm.KindGlobal {
			out = append(out, i.global(exp))
		}
	}
	return out
}

func (i *Instance) global(exp wasm.Export) GlobalValue {
	g := GlobalValue{Name: exp.Name}
	if local := int(exp.Idx) - i.module.NumImportedGlobals(); local >= 0 && local < len(i.module.Globals) {
		g.Type = i.module.Globals[local].Type.ValType
	}
	if eg := i.mod.ExportedGlobal(exp.Name); eg != nil {
		g.Bits = eg.Get()
	}
	return g
}

// Call invokes an exported function with raw values.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "exported function", name)
	}
	return fn.Call(ctx, args...)
}

func (i *Instance) Close(ctx context.Context) error {
	return i.rt.Close(ctx)
}
