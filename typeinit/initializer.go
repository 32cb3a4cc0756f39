// Package typeinit accumulates the code contributed to a type's
// initializer and folds it into the written type.
//
// An Initializer is an immutable value. The zero value, None, holds no
// code. Expand returns a new value whose block runs everything contributed
// so far followed by the new block, so contributors never need to know
// whether an initializer already exists:
//
//	init := typeinit.None
//	init = init.Expand(registerHandlers)
//	init = init.Expand(seedTables)
//
// When the type is finalized a Drain wraps the method pool's record for the
// type initializer with the accumulated code and writes it.
package typeinit

import (
	"github.com/wippyai/wasm-typegen/bytecode"
	"github.com/wippyai/wasm-typegen/codegen"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/pool"
)

// Initializer is the code contributed to a type initializer so far.
type Initializer struct {
	block bytecode.Appender
}

// None is the initializer of a type nobody has contributed to.
var None Initializer

// New returns the initializer holding only a. It is None.Expand(a).
func New(a bytecode.Appender) Initializer {
	return None.Expand(a)
}

// IsDefined reports whether any code has been contributed.
func (i Initializer) IsDefined() bool {
	return i.block != nil
}

// Block returns the accumulated code block, or nil for None.
func (i Initializer) Block() bytecode.Appender {
	return i.block
}

// Expand returns an initializer that runs i's code and then a. The receiver
// is not modified. A nil block panics.
func (i Initializer) Expand(a bytecode.Appender) Initializer {
	if a == nil {
		panic("typeinit: expand with nil block")
	}
	if i.block == nil {
		return Initializer{block: a}
	}
	return Initializer{block: bytecode.NewCompound(i.block, a)}
}

// Wrap returns record with i's code prepended. For None the record is
// returned unchanged.
func (i Initializer) Wrap(record pool.Record) pool.Record {
	if i.block == nil {
		return record
	}
	return record.Prepend(i.block)
}

// Apply lets an initializer be used as a code block. None emits nothing and
// needs nothing.
func (i Initializer) Apply(e *codegen.Emitter, ctx *bytecode.Context, m *description.Method) (bytecode.Size, error) {
	if i.block == nil {
		return bytecode.Zero, nil
	}
	return i.block.Apply(e, ctx, m)
}
