package bytecode

import (
	"github.com/wippyai/wasm-typegen/codegen"
	"github.com/wippyai/wasm-typegen/description"
)

// Appender is a code block: it emits instructions into a method body and
// reports the footprint they need. Appenders are stateless and may be
// applied any number of times, from any goroutine.
type Appender interface {
	Apply(e *codegen.Emitter, ctx *Context, m *description.Method) (Size, error)
}

// AppenderFunc adapts a function to the Appender interface.
type AppenderFunc func(e *codegen.Emitter, ctx *Context, m *description.Method) (Size, error)

// Apply calls f.
func (f AppenderFunc) Apply(e *codegen.Emitter, ctx *Context, m *description.Method) (Size, error) {
	return f(e, ctx, m)
}

// Compound applies a fixed sequence of appenders in order. Nested
// compounds are flattened when the compound is built, which keeps the
// footprint computation a single scan and does not change ordering.
type Compound struct {
	appenders []Appender
}

// NewCompound builds a compound of the given appenders. Nil entries are
// skipped.
func NewCompound(appenders ...Appender) *Compound {
	c := &Compound{appenders: make([]Appender, 0, len(appenders))}
	for _, a := range appenders {
		switch a := a.(type) {
		case nil:
		case *Compound:
			c.appenders = append(c.appenders, a.appenders...)
		default:
			c.appenders = append(c.appenders, a)
		}
	}
	return c
}

// Appenders returns the flattened sequence.
func (c *Compound) Appenders() []Appender {
	return append([]Appender(nil), c.appenders...)
}

// Len returns the number of flattened appenders.
func (c *Compound) Len() int {
	return len(c.appenders)
}

// Apply runs every appender in order and merges their footprints. It stops
// at the first error.
func (c *Compound) Apply(e *codegen.Emitter, ctx *Context, m *description.Method) (Size, error) {
	var size Size
	for _, a := range c.appenders {
		s, err := a.Apply(e, ctx, m)
		if err != nil {
			return Size{}, err
		}
		size = size.Merge(s)
	}
	return size, nil
}
