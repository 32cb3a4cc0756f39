package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-typegen/errors"
	"github.com/wippyai/wasm-typegen/pipeline"
	"github.com/wippyai/wasm-typegen/runtime"
	"github.com/wippyai/wasm-typegen/wasm"
)

func TestLoad(t *testing.T) {
	m, err := Load("testdata/counter.toml")
	require.NoError(t, err)

	require.Len(t, m.Types, 2)
	assert.Equal(t, 16, m.Limits.OutputLimits().MaxStack)

	counter, ok := m.Type("counter")
	require.True(t, ok)
	assert.Len(t, counter.Contributions, 2)
	assert.Equal(t, "defaults", counter.Contributions[0].Contributor)
	_, ok = m.Type("missing")
	assert.False(t, ok)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load("testdata/nope.toml")
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindNotFound})
}

func TestBuilders_EndToEnd(t *testing.T) {
	m, err := Load("testdata/counter.toml")
	require.NoError(t, err)
	builders, err := m.Builders()
	require.NoError(t, err)

	c := &pipeline.Compiler{Limits: m.Limits.OutputLimits(), Verify: true}
	arts, err := c.Compile(context.Background(), builders)
	require.NoError(t, err)
	require.Len(t, arts, 2)

	assert.Nil(t, arts[1].Module.Start, "type without initializer code has no start")

	fp, ok := arts[0].StartFootprint()
	require.True(t, ok)
	assert.Equal(t, uint32(2), fp.MaxStack)

	ctx := context.Background()
	rt := runtime.New(ctx)
	defer rt.Close(ctx)
	inst, err := rt.Instantiate(ctx, "counter", arts[0].Binary)
	require.NoError(t, err)
	defer inst.Close(ctx)

	calls := inst.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []uint64{7, 2}, calls[0].Args, "contributions run in order")
	assert.Equal(t, []uint64{7, 100}, calls[1].Args, "own initializer runs last")

	count, _ := inst.Global("count")
	assert.Equal(t, int32(7), count.Value())
	scale, _ := inst.Global("scale")
	assert.Equal(t, 1.5, scale.Value())

	res, err := inst.Call(ctx, "get")
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, res)
}

func TestBuilders_DeclaredLocals(t *testing.T) {
	src := `
[[type]]
name = "t"

  [[type.field]]
  name = "n"
  type = "i32"
  mutable = true

  [[type.method]]
  name = "f"
  locals = ["i64", "f64"]

  [type.initializer]
  locals = ["i64"]
  steps = [{ op = "set", field = "n", value = 1 }]

  [[type.contribution]]
  contributor = "c"
  steps = [{ op = "set", field = "n", value = 2 }]
`
	m, err := Parse([]byte(src))
	require.NoError(t, err)
	builders, err := m.Builders()
	require.NoError(t, err)

	art, err := builders[0].Make(pipeline.Options{Limits: m.Limits.OutputLimits()})
	require.NoError(t, err)
	require.Len(t, art.Module.Code, 2)

	assert.Equal(t, []wasm.LocalEntry{
		{Count: 1, ValType: wasm.ValI64},
		{Count: 1, ValType: wasm.ValF64},
	}, art.Module.Code[0].Locals)
	assert.Equal(t, []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI64}}, art.Module.Code[1].Locals)

	fp, ok := art.StartFootprint()
	require.True(t, ok)
	assert.Equal(t, uint32(1), fp.MaxLocals)

	ctx := context.Background()
	rt := runtime.New(ctx)
	defer rt.Close(ctx)
	assert.NoError(t, rt.Compile(ctx, art.Binary))
}

func TestLimits_Defaults(t *testing.T) {
	var l LimitsConfig
	got := l.OutputLimits()
	assert.Equal(t, 1024, got.MaxStack)
	assert.Equal(t, 50000, got.MaxLocals)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		kind errors.Kind
	}{
		{
			name: "syntax",
			toml: `[[type]`,
			kind: errors.KindInvalidInput,
		},
		{
			name: "unknown key",
			toml: "[[type]]\nname = \"t\"\ncolour = \"red\"\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "empty type name",
			toml: "[[type]]\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "duplicate type",
			toml: "[[type]]\nname = \"t\"\n[[type]]\nname = \"t\"\n",
			kind: errors.KindDuplicate,
		},
		{
			name: "bad value type",
			toml: "[[type]]\nname = \"t\"\n[[type.field]]\nname = \"f\"\ntype = \"i8\"\n",
			kind: errors.KindUnsupported,
		},
		{
			name: "float for int field",
			toml: "[[type]]\nname = \"t\"\n[[type.field]]\nname = \"f\"\ntype = \"i32\"\ninit = 1.5\n",
			kind: errors.KindTypeMismatch,
		},
		{
			name: "i32 out of range",
			toml: "[[type]]\nname = \"t\"\n[[type.field]]\nname = \"f\"\ntype = \"i32\"\ninit = 9999999999\n",
			kind: errors.KindTypeMismatch,
		},
		{
			name: "unknown op",
			toml: "[[type]]\nname = \"t\"\n[[type.contribution]]\ncontributor = \"c\"\nsteps = [{ op = \"jump\" }]\n",
			kind: errors.KindUnsupported,
		},
		{
			name: "unknown field",
			toml: "[[type]]\nname = \"t\"\n[[type.contribution]]\ncontributor = \"c\"\nsteps = [{ op = \"set\", field = \"x\", value = 1 }]\n",
			kind: errors.KindNotFound,
		},
		{
			name: "unknown method",
			toml: "[[type]]\nname = \"t\"\n[[type.contribution]]\ncontributor = \"c\"\nsteps = [{ op = \"call\", method = \"m\" }]\n",
			kind: errors.KindNotFound,
		},
		{
			name: "missing contributor",
			toml: "[[type]]\nname = \"t\"\n[[type.contribution]]\nsteps = []\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "argument count",
			toml: "[[type]]\nname = \"t\"\n[[type.import]]\nname = \"f\"\nmodule = \"env\"\nparams = [\"i32\"]\n[[type.contribution]]\ncontributor = \"c\"\nsteps = [{ op = \"call\", method = \"f\" }]\n",
			kind: errors.KindTypeMismatch,
		},
		{
			name: "missing result",
			toml: "[[type]]\nname = \"t\"\n[[type.method]]\nname = \"m\"\nresults = [\"i32\"]\n",
			kind: errors.KindTypeMismatch,
		},
		{
			name: "push in initializer",
			toml: "[[type]]\nname = \"t\"\n[[type.contribution]]\ncontributor = \"c\"\nsteps = [{ op = \"const\", type = \"i32\", value = 1 }]\n",
			kind: errors.KindTypeMismatch,
		},
		{
			name: "effect after push",
			toml: "[[type]]\nname = \"t\"\n[[type.field]]\nname = \"f\"\ntype = \"i32\"\nmutable = true\n[[type.method]]\nname = \"m\"\nresults = [\"i32\"]\nsteps = [{ op = \"get\", field = \"f\" }, { op = \"set\", field = \"f\", value = 1 }]\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "import without module",
			toml: "[[type]]\nname = \"t\"\n[[type.import]]\nname = \"f\"\n",
			kind: errors.KindInvalidInput,
		},
		{
			name: "clinit as method",
			toml: "[[type]]\nname = \"t\"\n[[type.method]]\nname = \"<clinit>\"\n",
			kind: errors.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.toml))
			require.Error(t, err)
			assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: tt.kind})
		})
	}
}

func TestParse_ArgumentTypeFromField(t *testing.T) {
	src := `
[[type]]
name = "t"

  [[type.field]]
  name = "wide"
  type = "i64"

  [[type.import]]
  name = "f"
  module = "env"
  params = ["i32"]

  [[type.contribution]]
  contributor = "c"
  steps = [{ op = "call", method = "f", args = [{ field = "wide" }] }]
`
	_, err := Parse([]byte(src))
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindTypeMismatch})
}
