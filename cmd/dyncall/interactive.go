package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/dyncall/config"
	"github.com/wippyai/dyncall/dispatch"
	"github.com/wippyai/dyncall/host"
	"github.com/wippyai/dyncall/library"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Form fields, in the order of the dyncall operation parameters.
const (
	fieldLibrary = iota
	fieldConvention
	fieldSymbol
	fieldSpec
	fieldArgs
	fieldCount
)

var fieldPrompts = [fieldCount]string{
	fieldLibrary:    "library: ",
	fieldConvention: "cconv:   ",
	fieldSymbol:     "symbol:  ",
	fieldSpec:       "spec:    ",
	fieldArgs:       "args:    ",
}

var fieldPlaceholders = [fieldCount]string{
	fieldLibrary:    "libm or path/to/module.wasm",
	fieldConvention: "default",
	fieldSymbol:     "floor",
	fieldSpec:       "(d)d",
	fieldArgs:       "2.7",
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateForm
	stateShowResult
)

type interactiveModel struct {
	err      error
	d        *dispatch.Dispatcher
	cfg      *config.Config
	log      *zap.Logger
	result   string
	funcs    []exportInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type exportsMsg struct {
	err   error
	funcs []exportInfo
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(a *app, lib string) *interactiveModel {
	m := &interactiveModel{
		d:     a.d,
		cfg:   a.cfg,
		log:   a.log,
		state: stateForm,
	}
	m.inputs = make([]textinput.Model, fieldCount)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = fieldPrompts[i]
		ti.Placeholder = fieldPlaceholders[i]
		ti.Width = 40
		m.inputs[i] = ti
	}
	m.inputs[fieldLibrary].SetValue(lib)
	m.focus(fieldLibrary)
	if library.IsWasmPath(lib) {
		m.state = stateSelectFunc
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	if m.state == stateSelectFunc {
		return m.loadExports(m.inputs[fieldLibrary].Value())
	}
	return textinput.Blink
}

func (m *interactiveModel) loadExports(lib string) tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		funcs, err := listExports(context.Background(), cfg, lib)
		return exportsMsg{funcs: funcs, err: err}
	}
}

func (m *interactiveModel) focus(i int) {
	m.inputs[m.focusIdx].Blur()
	m.focusIdx = i
	m.inputs[i].Focus()
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateForm {
				return m, tea.Quit
			}

		case "up":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) > 0 {
					f := m.funcs[m.selected]
					m.inputs[fieldSymbol].SetValue(f.name)
					m.inputs[fieldSpec].SetValue(f.spec)
					m.state = stateForm
					m.focus(fieldArgs)
				}
				return m, nil

			case stateForm:
				req, err := m.request()
				return m, m.callFunction(req, err)

			case stateShowResult:
				m.state = stateForm
				m.result = ""
				m.err = nil
				return m, nil
			}

		case "tab", "shift+tab":
			if m.state == stateForm {
				step := 1
				if msg.String() == "shift+tab" {
					step = fieldCount - 1
				}
				m.focus((m.focusIdx + step) % fieldCount)
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateForm:
				if len(m.funcs) > 0 {
					m.state = stateSelectFunc
				}
			case stateShowResult:
				m.state = stateForm
				m.result = ""
				m.err = nil
			}
			return m, nil
		}

	case exportsMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateForm
			return m, nil
		}
		m.funcs = msg.funcs
		if len(m.funcs) == 0 {
			m.state = stateForm
		}
		return m, nil

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateForm {
		var cmd tea.Cmd
		m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) request() (dispatch.Request, error) {
	return dispatch.RequestFromOperation(
		strings.TrimSpace(m.inputs[fieldLibrary].Value()),
		strings.TrimSpace(m.inputs[fieldConvention].Value()),
		strings.TrimSpace(m.inputs[fieldSymbol].Value()),
		strings.TrimSpace(m.inputs[fieldSpec].Value()),
		strings.Fields(m.inputs[fieldArgs].Value()),
	)
}

// callFunction returns a command for req. The request is built in Update so
// the command never touches the form inputs.
func (m *interactiveModel) callFunction(req dispatch.Request, reqErr error) tea.Cmd {
	d, log := m.d, m.log
	return func() tea.Msg {
		if reqErr != nil {
			return callResultMsg{err: reqErr}
		}
		v, err := d.Dispatch(context.Background(), req)
		if err != nil {
			log.Debug("interactive call failed", zap.Error(err))
			return callResultMsg{err: err}
		}
		return callResultMsg{result: fmt.Sprintf("%s (%s)", host.Format(v), v.Tag())}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("dyncall"))
	b.WriteString(" ")
	b.WriteString(m.inputs[fieldLibrary].Value())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if m.funcs == nil {
			b.WriteString("Loading exports...")
			break
		}
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			line := funcStyle.Render(f.name) + " " + typeStyle.Render(f.spec)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + f.name + " " + f.spec))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateForm:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		}
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		help := "tab next field • enter call • ctrl+c quit"
		if len(m.funcs) > 0 {
			help += " • esc exports"
		}
		b.WriteString(helpStyle.Render(help))

	case stateShowResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.inputs[fieldSymbol].Value())))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (a *app) interactive(lib string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	p := tea.NewProgram(newInteractiveModel(a, lib), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
