package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-typegen/config"
	"github.com/wippyai/wasm-typegen/pipeline"
	"github.com/wippyai/wasm-typegen/runtime"
)

var exploreCmd = &cobra.Command{
	Use:   "explore <manifest>",
	Short: "Browse the types of a manifest interactively",
	Long:  "Compile and run every type of a manifest, then browse initializer listings, host calls and field values in a terminal UI.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(newExploreModel(args[0], newStyles(useColor(cmd))), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

// typeView is everything shown for one compiled type.
type typeView struct {
	err          error
	name         string
	footprint    string
	contributors []string
	listing      []string
	calls        []string
	globals      []string
	size         int
}

type exploreModel struct {
	err      error
	st       styles
	filename string
	types    []typeView
	filter   textinput.Model
	selected int
	loaded   bool
	detail   bool
}

type loadedMsg struct {
	err   error
	types []typeView
}

func newExploreModel(filename string, st styles) *exploreModel {
	ti := textinput.New()
	ti.Placeholder = "filter types"
	ti.Prompt = "/ "
	ti.Width = 40
	ti.Focus()
	return &exploreModel{filename: filename, st: st, filter: ti}
}

func (m *exploreModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load)
}

func (m *exploreModel) load() tea.Msg {
	types, err := loadTypes(context.Background(), m.filename)
	return loadedMsg{types: types, err: err}
}

// loadTypes compiles every type of the manifest at path and runs each one
// in a fresh instance.
func loadTypes(ctx context.Context, path string) ([]typeView, error) {
	manifest, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	builders, err := manifest.Builders()
	if err != nil {
		return nil, err
	}

	rt := runtime.New(ctx).WithLogger(logger())
	defer rt.Close(ctx)

	views := make([]typeView, 0, len(builders))
	for _, b := range builders {
		v := typeView{name: b.Name(), contributors: b.Contributors()}
		art, err := b.Make(pipeline.Options{Logger: logger(), Limits: manifest.Limits.OutputLimits()})
		if err != nil {
			v.err = err
			views = append(views, v)
			continue
		}
		v.size = len(art.Binary)
		if fp, ok := art.StartFootprint(); ok {
			v.footprint = fmt.Sprintf("max_stack=%d max_locals=%d", fp.MaxStack, fp.MaxLocals)
			v.listing, v.err = disassemble(art.Module, *art.Module.Start, funcNames(art.Module))
		}
		if v.err == nil {
			v.err = runType(ctx, rt, art, &v)
		}
		views = append(views, v)
	}
	return views, nil
}

func runType(ctx context.Context, rt *runtime.Runtime, art *pipeline.Artifact, v *typeView) error {
	inst, err := rt.Instantiate(ctx, art.Name, art.Binary)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)
	for _, c := range inst.Calls() {
		v.calls = append(v.calls, fmt.Sprintf("%s.%s(%s)", c.Module, c.Name, formatArgs(c.Args)))
	}
	for _, g := range inst.Globals() {
		v.globals = append(v.globals, g.String())
	}
	return nil
}

// visible returns the indices of types matching the filter.
func (m *exploreModel) visible() []int {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	var out []int
	for i, t := range m.types {
		if q == "" || strings.Contains(strings.ToLower(t.name), q) {
			out = append(out, i)
		}
	}
	return out
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.detail || !m.loaded || m.err != nil {
				return m, tea.Quit
			}
		case "up":
			if !m.detail && m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down":
			if !m.detail && m.selected < len(m.visible())-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			m.clamp()
			if !m.detail && len(m.visible()) > 0 {
				m.detail = true
			}
			return m, nil
		case "esc":
			m.detail = false
			return m, nil
		}

	case loadedMsg:
		m.loaded = true
		m.err = msg.err
		m.types = msg.types
		return m, nil
	}

	if m.detail {
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.clamp()
	return m, cmd
}

// clamp keeps the selection inside the filtered list.
func (m *exploreModel) clamp() {
	if n := len(m.visible()); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

func (m *exploreModel) View() string {
	if m.err != nil {
		return m.st.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Compiling " + m.filename + "..."
	}

	var b strings.Builder
	b.WriteString(m.st.title.Render("typegen"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	m.clamp()
	visible := m.visible()
	if m.detail && len(visible) > 0 {
		m.renderDetail(&b, m.types[visible[m.selected]])
		b.WriteString("\n")
		b.WriteString(m.st.help.Render("esc back • q quit"))
		return b.String()
	}

	b.WriteString(m.filter.View())
	b.WriteString("\n\n")
	for i, idx := range visible {
		line := m.formatType(m.types[idx])
		if i == m.selected {
			b.WriteString(m.st.selected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if len(visible) == 0 {
		b.WriteString(m.st.help.Render("  no matching types"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.st.help.Render("type to filter • ↑/↓ select • enter details • ctrl+c quit"))
	return b.String()
}

func (m *exploreModel) formatType(t typeView) string {
	if t.err != nil {
		return m.st.fn.Render(t.name) + " " + m.st.err.Render("failed")
	}
	summary := "no initializer"
	if t.footprint != "" {
		summary = fmt.Sprintf("%d contribution(s)", len(t.contributors))
	}
	return m.st.fn.Render(t.name) + " " + m.st.typ.Render(fmt.Sprintf("%d bytes, %s", t.size, summary))
}

func (m *exploreModel) renderDetail(b *strings.Builder, t typeView) {
	fmt.Fprintf(b, "%s\n\n", m.st.fn.Render(t.name))
	if t.err != nil {
		b.WriteString(m.st.err.Render(fmt.Sprintf("Error: %v", t.err)))
		b.WriteString("\n")
		return
	}

	section := func(title string, lines []string, empty string) {
		b.WriteString(m.st.heading.Render(title))
		b.WriteString("\n")
		if len(lines) == 0 {
			b.WriteString("  " + m.st.help.Render(empty) + "\n")
		}
		for _, l := range lines {
			b.WriteString("  " + l + "\n")
		}
		b.WriteString("\n")
	}

	section("contributions", t.contributors, "none")
	if t.footprint != "" {
		section("initializer "+t.footprint, t.listing, "")
	} else {
		section("initializer", nil, "not generated")
	}
	section("host calls", t.calls, "none")
	results := make([]string, len(t.globals))
	for i, g := range t.globals {
		results[i] = m.st.result.Render(g)
	}
	section("fields", results, "none exported")
}
