package runtime

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/wasm"
)

type Runtime struct {
	cache wazero.CompilationCache
	hosts *HostRegistry
	log   *zap.Logger
}

// New creates a runtime. The context is kept for symmetry with Close.
func New(_ context.Context) *Runtime {
	return &Runtime{
		cache: wazero.NewCompilationCache(),
		hosts: NewHostRegistry(),
		log:   zap.NewNop(),
	}
}

// WithLogger sets the logger host calls are reported to.
func (r *Runtime) WithLogger(log *zap.Logger) *Runtime {
	if log != nil {
		r.log = log
	}
	return r
}

// Close releases compiled code. All instances must be closed first.
func (r *Runtime) Close(ctx context.Context) error {
	return r.cache.Close(ctx)
}

func (r *Runtime) RegisterFunc(module, name string, fn HostFunc) error {
	return r.hosts.RegisterFunc(module, name, fn)
}

func (r *Runtime) Hosts() *HostRegistry {
	return r.hosts
}

func (r *Runtime) newWazero(ctx context.Context) wazero.Runtime {
	cfg := wazero.NewRuntimeConfig().
		WithCompilationCache(r.cache).
		WithCloseOnContextDone(true)
	return wazero.NewRuntimeWithConfig(ctx, cfg)
}

// Compile checks that wazero accepts bin without instantiating it.
func (r *Runtime) Compile(ctx context.Context, bin []byte) error {
	rt := r.newWazero(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		return errors.Wrap(errors.PhaseVerify, errors.KindInvalidModule, err, "compile module")
	}
	return compiled.Close(ctx)
}

// Instantiate binds the imports of bin and instantiates it under name,
// which runs its start function.
func (r *Runtime) Instantiate(ctx context.Context, name string, bin []byte) (*Instance, error) {
	parsed, err := wasm.ParseModule(bin)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidModule, err, "parse module")
	}

	rt := r.newWazero(ctx)
	inst := &Instance{rt: rt, module: parsed, log: &callLog{}}

	if err := r.bindImports(ctx, rt, parsed, inst.log); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseVerify, errors.KindInvalidModule, err, "compile module")
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidModule).
			Type(name).Cause(err).Detail("instantiate module").Build()
	}
	inst.mod = mod
	return inst, nil
}

// bindImports instantiates one host module per imported module name.
func (r *Runtime) bindImports(ctx context.Context, rt wazero.Runtime, m *wasm.Module, log *callLog) error {
	byModule := make(map[string][]wasm.Import)
	for _, imp := range m.Imports {
		if imp.Desc.Kind != wasm.KindFunc {
			return errors.Unsupported(errors.PhaseRuntime, "non-function import "+imp.Module+"."+imp.Name)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp)
	}

	names := make([]string, 0, len(byModule))
	for name := range byModule {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, modName := range names {
		builder := rt.NewHostModuleBuilder(modName)
		for _, imp := range byModule[modName] {
			ft := m.Types[imp.Desc.TypeIdx]
			builder = builder.NewFunctionBuilder().
				WithGoModuleFunction(r.hostFunc(imp.Module, imp.Name, ft, log), valueTypes(ft.Params), valueTypes(ft.Results)).
				Export(imp.Name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Wrap(errors.PhaseRuntime, errors.KindInvalidModule, err, "bind host module "+modName)
		}
	}
	return nil
}

func (r *Runtime) hostFunc(module, name string, ft wasm.FuncType, log *callLog) api.GoModuleFunc {
	fn, bound := r.hosts.Lookup(module, name)
	nParams, nResults := len(ft.Params), len(ft.Results)

	return func(ctx context.Context, mod api.Module, stack []uint64) {
		args := append([]uint64(nil), stack[:nParams]...)
		log.add(HostCall{Module: module, Name: name, Args: args})
		r.log.Debug("host call", zap.String("module", module), zap.String("name", name), zap.Uint64s("args", args))

		var results []uint64
		if bound {
			results = fn(ctx, mod, args)
		}
		for i := 0; i < nResults; i++ {
			if i < len(results) {
				stack[i] = results[i]
			} else {
				stack[i] = 0
			}
		}
	}
}

// valueTypes converts wasm value types. Both use the binary encoding.
func valueTypes(vts []wasm.ValType) []api.ValueType {
	out := make([]api.ValueType, len(vts))
	for i, vt := range vts {
		out[i] = api.ValueType(vt)
	}
	return out
}
