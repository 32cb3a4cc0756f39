package bytecode

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/errors"
)

// Resolver maps names of the instrumented type to wasm indices. The output
// writer implements it once every declaration is fixed.
type Resolver interface {
	GlobalIndex(field string) (uint32, error)
	FuncIndex(method string) (uint32, error)
}

// Context is the emission context shared by every code block of one type.
type Context struct {
	resolver Resolver
	typ      *description.Type
	log      *zap.Logger
}

// NewContext creates a context for typ. A nil logger is replaced by a no-op.
func NewContext(typ *description.Type, r Resolver, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{resolver: r, typ: typ, log: log}
}

// Type returns the instrumented type.
func (c *Context) Type() *description.Type {
	return c.typ
}

// Logger returns the context logger.
func (c *Context) Logger() *zap.Logger {
	return c.log
}

// Field resolves a field to its description and global index.
func (c *Context) Field(name string) (*description.Field, uint32, error) {
	f, ok := c.typ.Field(name)
	if !ok {
		return nil, 0, errors.NotFound(errors.PhaseEmit, "field", name).WithType(c.typ.Name)
	}
	idx, err := c.resolver.GlobalIndex(name)
	if err != nil {
		return nil, 0, err
	}
	return f, idx, nil
}

// Method resolves a callable method to its description and function index.
// The type initializer is never callable.
func (c *Context) Method(name string) (*description.Method, uint32, error) {
	m, ok := c.typ.Method(name)
	if !ok || m.IsTypeInitializer() {
		return nil, 0, errors.NotFound(errors.PhaseEmit, "method", name).WithType(c.typ.Name)
	}
	idx, err := c.resolver.FuncIndex(name)
	if err != nil {
		return nil, 0, err
	}
	return m, idx, nil
}
