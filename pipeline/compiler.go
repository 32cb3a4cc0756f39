package pipeline

import (
	"context"
	stderrors "errors"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/output"
	wasmrt "github.com/wippyai/wasm-typegen/runtime"
)

// Compiler makes many types in parallel. Each builder, and the initializer
// it carries, is owned by a single goroutine.
type Compiler struct {
	Logger *zap.Logger
	Limits output.Limits
	// Jobs bounds the number of types made at once. Zero means GOMAXPROCS.
	Jobs int
	// Verify compiles every artifact with wazero before returning it.
	Verify bool
}

// Compile makes every builder. Artifacts are returned in builder order.
// The first failure cancels the remaining work.
func (c *Compiler) Compile(ctx context.Context, builders []*Builder) ([]*Artifact, error) {
	log := c.Logger
	if log == nil {
		log = Logger()
	}
	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var verifier *wasmrt.Runtime
	if c.Verify {
		verifier = wasmrt.New(ctx)
		defer verifier.Close(ctx)
	}

	artifacts := make([]*Artifact, len(builders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, b := range builders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Wrap(errors.PhaseWrite, errors.KindCanceled, err, "compile canceled").WithType(b.Name())
			}
			art, err := b.Make(Options{Limits: c.Limits, Logger: log})
			if err != nil {
				return err
			}
			if verifier != nil {
				if err := verifier.Compile(gctx, art.Binary); err != nil {
					return withType(err, art.Name)
				}
			}
			artifacts[i] = art
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("compile finished", zap.Int("types", len(artifacts)), zap.Int("jobs", jobs))
	return artifacts, nil
}

// withType attributes an unattributed *errors.Error anywhere in err's chain
// to the type name.
func withType(err error, name string) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Type == "" {
		return e.WithType(name)
	}
	return err
}
