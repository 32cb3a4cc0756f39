package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-typegen/description"
	"github.com/wippyai/wasm-typegen/output"
	"github.com/wippyai/wasm-typegen/wasm"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.wasm>",
	Short: "Describe the layout of a generated type",
	Long:  "Print the functions, globals and recorded footprints of a generated module and disassemble its type initializer.",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectExecution,
}

func inspectExecution(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	m, err := wasm.ParseModule(data)
	if err != nil {
		return err
	}
	report, err := describeModule(m, newStyles(useColor(cmd)))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report)
	return nil
}

// describeModule renders a human readable summary of m.
func describeModule(m *wasm.Module, st styles) (string, error) {
	fps, err := output.ReadFootprints(m)
	if err != nil {
		return "", err
	}
	names := funcNames(m)

	var b strings.Builder
	b.WriteString(st.heading.Render("functions"))
	b.WriteString("\n")
	for idx := 0; idx < m.NumFuncs(); idx++ {
		ft := m.GetFuncType(uint32(idx))
		fmt.Fprintf(&b, "  %3d %s%s", idx, st.fn.Render(names[idx]), st.typ.Render(signature(ft)))
		if body := m.Body(uint32(idx)); body != nil {
			fmt.Fprintf(&b, "  locals=%d", body.NumLocals())
		}
		if fp, ok := output.Lookup(fps, uint32(idx)); ok {
			fmt.Fprintf(&b, "  max_stack=%d max_locals=%d", fp.MaxStack, fp.MaxLocals)
		}
		b.WriteString("\n")
	}

	b.WriteString(st.heading.Render("globals"))
	b.WriteString("\n")
	globalNames := exportNames(m, wasm.KindGlobal)
	for i, g := range m.Globals {
		idx := uint32(m.NumImportedGlobals() + i)
		name, ok := globalNames[idx]
		if !ok {
			name = fmt.Sprintf("global %d", idx)
		}
		mut := "const"
		if g.Type.Mutable {
			mut = "mut"
		}
		fmt.Fprintf(&b, "  %3d %s %s %s\n", idx, name, mut, st.typ.Render(g.Type.ValType.String()))
	}

	if m.Start == nil {
		b.WriteString(st.help.Render("no type initializer"))
		b.WriteString("\n")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "%s %d\n", st.heading.Render("start"), *m.Start)
	listing, err := disassemble(m, *m.Start, names)
	if err != nil {
		return "", err
	}
	for _, line := range listing {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// disassemble lists the instructions of the defined function funcIdx.
// Calls are annotated with the callee's name when names covers it.
func disassemble(m *wasm.Module, funcIdx uint32, names []string) ([]string, error) {
	body := m.Body(funcIdx)
	if body == nil {
		return nil, fmt.Errorf("function %d has no body", funcIdx)
	}
	instrs, err := wasm.DecodeInstructions(body.Code)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(instrs))
	for i, in := range instrs {
		lines[i] = in.String()
		if target, ok := in.GetCallTarget(); ok && int(target) < len(names) {
			lines[i] += " ;; " + names[target]
		}
	}
	return lines, nil
}

func funcNames(m *wasm.Module) []string {
	names := make([]string, m.NumFuncs())
	exported := exportNames(m, wasm.KindFunc)
	idx := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == wasm.KindFunc {
			names[idx] = imp.Module + "." + imp.Name
			idx++
		}
	}
	for ; idx < len(names); idx++ {
		switch name, ok := exported[uint32(idx)]; {
		case ok:
			names[idx] = name
		case m.Start != nil && *m.Start == uint32(idx):
			names[idx] = description.TypeInitializerName
		default:
			names[idx] = fmt.Sprintf("func %d", idx)
		}
	}
	return names
}

func exportNames(m *wasm.Module, kind byte) map[uint32]string {
	out := make(map[uint32]string)
	for _, exp := range m.Exports {
		if exp.Kind == kind {
			out[exp.Idx] = exp.Name
		}
	}
	return out
}

func signature(ft *wasm.FuncType) string {
	if ft == nil {
		return "(?)"
	}
	return "(" + joinTypes(ft.Params) + ") -> (" + joinTypes(ft.Results) + ")"
}

func joinTypes(vts []wasm.ValType) string {
	parts := make([]string, len(vts))
	for i, vt := range vts {
		parts[i] = vt.String()
	}
	return strings.Join(parts, ", ")
}
