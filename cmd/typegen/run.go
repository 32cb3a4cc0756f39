package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-typegen/runtime"
)

var runCmd = &cobra.Command{
	Use:   "run <file.wasm>",
	Short: "Instantiate a generated type and print its state",
	Long:  "Instantiate a generated module, which runs its type initializer, then print the host calls it made and its exported globals.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecution,
}

var (
	callColor   = color.New(color.FgCyan)
	globalColor = color.New(color.FgGreen, color.Bold)
	valueColor  = color.New(color.FgYellow)
)

func runExecution(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))

	ctx := cmd.Context()
	rt := runtime.New(ctx).WithLogger(logger())
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, name, data)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	for _, c := range []*color.Color{callColor, globalColor, valueColor} {
		if useColor(cmd) {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	out := cmd.OutOrStdout()
	calls := inst.Calls()
	fmt.Fprintf(out, "%d host call(s)\n", len(calls))
	for i, c := range calls {
		fmt.Fprintf(out, "  %d. %s(%s)\n", i+1, callColor.Sprintf("%s.%s", c.Module, c.Name), formatArgs(c.Args))
	}

	globals := inst.Globals()
	fmt.Fprintf(out, "%d exported global(s)\n", len(globals))
	for _, g := range globals {
		fmt.Fprintf(out, "  %s: %s = %s\n", globalColor.Sprint(g.Name), g.Type, valueColor.Sprint(g.Value()))
	}
	return nil
}

func formatArgs(args []uint64) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, ", ")
}
