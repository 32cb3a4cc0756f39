// Package pipeline builds generated types. A Builder collects one type's
// declarations, method bodies and initializer contributions; Make runs
// them through the method pool, the initializer drain and the writer. A
// Compiler makes many types in parallel.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-typegen/bytecode"
	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/output"
	"github.com/wippyai/wasm-typegen/pool"
	"github.com/wippyai/wasm-typegen/typeinit"
	"github.com/wippyai/wasm-typegen/wasm"
)

// Builder accumulates one type. It is not safe for concurrent use; each
// type is built by one goroutine.
type Builder struct {
	typ          *description.Type
	bodies       map[string]bytecode.Appender
	init         typeinit.Initializer
	contributors []string
	err          error
}

// Artifact is a made type.
type Artifact struct {
	Module     *wasm.Module
	Name       string
	Binary     []byte
	Footprints []output.Footprint
}

// Options configures Make.
type Options struct {
	Logger *zap.Logger
	Limits output.Limits
}

// NewBuilder starts a type called name.
func NewBuilder(name string) *Builder {
	return &Builder{
		typ:    &description.Type{Name: name},
		bodies: make(map[string]bytecode.Appender),
	}
}

// Name returns the type name.
func (b *Builder) Name() string {
	return b.typ.Name
}

// Type returns the description built so far.
func (b *Builder) Type() *description.Type {
	return b.typ
}

// Initializer returns the contributions made so far.
func (b *Builder) Initializer() typeinit.Initializer {
	return b.init
}

// Contributors returns contributor names in registration order.
func (b *Builder) Contributors() []string {
	return append([]string(nil), b.contributors...)
}

// DefineField adds a field.
func (b *Builder) DefineField(f *description.Field) *Builder {
	b.typ.Fields = append(b.typ.Fields, f)
	return b
}

// ImportMethod declares a method bound to the host function module.name.
func (b *Builder) ImportMethod(m *description.Method, module, name string) *Builder {
	m.Import = &description.ImportRef{Module: module, Name: name}
	b.typ.Methods = append(b.typ.Methods, m)
	return b
}

// DefineMethod adds a method with a body. A nil body declares the method
// without implementing it, which Make reports.
func (b *Builder) DefineMethod(m *description.Method, body bytecode.Appender) *Builder {
	b.typ.Methods = append(b.typ.Methods, m)
	if body != nil {
		b.bodies[m.Name] = body
	}
	return b
}

// DefineTypeInitializer gives the type its own initializer body. Code
// contributed through Contribute runs before it.
func (b *Builder) DefineTypeInitializer(body bytecode.Appender, locals ...wasm.ValType) *Builder {
	if _, ok := b.typ.Method(description.TypeInitializerName); ok {
		b.fail(errors.Duplicate(errors.PhaseDescribe, "method", description.TypeInitializerName).WithType(b.typ.Name))
		return b
	}
	return b.DefineMethod(&description.Method{Name: description.TypeInitializerName, Locals: locals}, body)
}

// Contribute appends block to the type initializer on behalf of the named
// contributor.
func (b *Builder) Contribute(contributor string, block bytecode.Appender) *Builder {
	if block == nil {
		b.fail(errors.InvalidInput(errors.PhaseDescribe, "nil contribution from "+contributor).WithType(b.typ.Name))
		return b
	}
	b.init = b.init.Expand(block)
	b.contributors = append(b.contributors, contributor)
	Logger().Debug("initializer contribution",
		zap.String("type", b.typ.Name),
		zap.String("contributor", contributor),
		zap.Int("contributions", len(b.contributors)))
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Make writes the type: every ordinary method through its pool record, then
// the type initializer through the drain.
func (b *Builder) Make(opts Options) (*Artifact, error) {
	if b.err != nil {
		return nil, b.err
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	log = log.With(zap.String("type", b.typ.Name))

	if err := b.typ.Validate(); err != nil {
		return nil, err
	}
	w, err := output.NewWriter(b.typ, opts.Limits)
	if err != nil {
		return nil, err
	}
	ctx := bytecode.NewContext(b.typ, w, log)
	methods := pool.NewDefault(b.bodies)

	for _, m := range b.typ.Methods {
		if m.IsTypeInitializer() {
			continue
		}
		record := methods.Target(m)
		if err := record.Apply(w, ctx); err != nil {
			return nil, err
		}
		log.Debug("method written", zap.String("method", m.Name), zap.Stringer("sort", record.Sort()))
	}

	drain := typeinit.DefaultDrain{Type: b.typ, Pool: methods}
	if err := drain.Apply(w, b.init, ctx); err != nil {
		return nil, err
	}

	mod, err := w.Module()
	if err != nil {
		return nil, err
	}
	fps, err := output.ReadFootprints(mod)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidModule, err, "read footprints").WithType(b.typ.Name)
	}

	art := &Artifact{Name: b.typ.Name, Module: mod, Binary: mod.Encode(), Footprints: fps}
	fields := []zap.Field{zap.Int("bytes", len(art.Binary)), zap.Bool("start", mod.Start != nil)}
	if fp, ok := art.StartFootprint(); ok {
		fields = append(fields, zap.Uint32("max_stack", fp.MaxStack), zap.Uint32("max_locals", fp.MaxLocals))
	}
	log.Info("type made", fields...)
	return art, nil
}

// StartFootprint returns the footprint of the type initializer, if one was
// written.
func (a *Artifact) StartFootprint() (output.Footprint, bool) {
	if a.Module.Start == nil {
		return output.Footprint{}, false
	}
	return output.Lookup(a.Footprints, *a.Module.Start)
}
