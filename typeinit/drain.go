package typeinit

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-typegen/bytecode"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/output"
	"github.com/wippyai/wasm-typegen/pool"
)

// Drain writes a type's initializer once all contributions are in.
type Drain interface {
	Apply(w *output.Writer, init Initializer, ctx *bytecode.Context) error
}

// DefaultDrain looks up the type initializer in the method pool, wraps it
// with the accumulated code and writes it through the ordinary write path.
// Errors from the write path are returned unchanged.
type DefaultDrain struct {
	Type *description.Type
	Pool pool.MethodPool
}

// Apply implements Drain.
func (d DefaultDrain) Apply(w *output.Writer, init Initializer, ctx *bytecode.Context) error {
	record := init.Wrap(d.Pool.Target(description.TypeInitializer(d.Type)))
	ctx.Logger().Debug("drain type initializer",
		zap.String("type", d.Type.Name),
		zap.Bool("contributed", init.IsDefined()),
		zap.Stringer("sort", record.Sort()))
	return record.Apply(w, ctx)
}

var _ Drain = DefaultDrain{}
var _ bytecode.Appender = Initializer{}
