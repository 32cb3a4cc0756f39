package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-typegen/errors"
)

// HostFunc handles a call to an imported function. args holds the raw
// parameter values; the returned slice must have one value per result.
// mod is the calling module, so a handler can read its exported globals.
type HostFunc func(ctx context.Context, mod api.Module, args []uint64) []uint64

// HostCall is one recorded call into the host.
type HostCall struct {
	Module string
	Name   string
	Args   []uint64
}

// HostRegistry holds host function handlers by import module and name.
type HostRegistry struct {
	funcs map[string]map[string]HostFunc
	mu    sync.RWMutex
}

func NewHostRegistry() *HostRegistry {
	return &HostRegistry{
		funcs: make(map[string]map[string]HostFunc),
	}
}

// RegisterFunc binds fn to the import module.name.
func (r *HostRegistry) RegisterFunc(module, name string, fn HostFunc) error {
	if module == "" {
		return errors.InvalidInput(errors.PhaseRuntime, "import module cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseRuntime, "function name cannot be empty")
	}
	if fn == nil {
		return errors.InvalidInput(errors.PhaseRuntime, "handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.funcs[module] == nil {
		r.funcs[module] = make(map[string]HostFunc)
	}
	r.funcs[module][name] = fn
	return nil
}

// Lookup returns the handler bound to module.name.
func (r *HostRegistry) Lookup(module, name string) (HostFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[module][name]
	return fn, ok
}

// callLog records host calls of one instance.
type callLog struct {
	calls []HostCall
	mu    sync.Mutex
}

func (l *callLog) add(c HostCall) {
	l.mu.Lock()
	l.calls = append(l.calls, c)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []HostCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]HostCall(nil), l.calls...)
}
