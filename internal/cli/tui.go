package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/observability"
	"github.com/gagern/confoo/pkg/pipeline"
)

var (
	phaseActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	phaseDoneStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	phasePendStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// phases lists the transform phases in the order they are shown.
var phases = []observability.Phase{
	observability.PhaseInit,
	observability.PhaseBoundary,
	observability.PhaseOptimize,
	observability.PhaseScale,
	observability.PhaseCheck,
	observability.PhaseLayout,
}

// Messages sent from the hooks into the program.
type (
	phaseStartMsg struct{ phase observability.Phase }
	phaseDoneMsg  struct {
		phase    observability.Phase
		duration time.Duration
	}
	iterationMsg observability.Iteration
	exitMsg      struct {
		condition  string
		iterations int
	}
	resultMsg struct {
		res *pipeline.Result
		err error
	}
)

// =============================================================================
// ProgressModel - live view of a running transform
// =============================================================================

// ProgressModel is the bubbletea model showing transform phases and the
// most recent Newton iterations.
type ProgressModel struct {
	Title   string
	Current observability.Phase
	Done    map[observability.Phase]time.Duration
	History []observability.Iteration
	Exit    string

	res *pipeline.Result
	err error
}

// historyLen is the number of iterations kept on screen.
const historyLen = 8

// NewProgressModel creates a progress model for the named input.
func NewProgressModel(title string) ProgressModel {
	return ProgressModel{
		Title: title,
		Done:  make(map[observability.Phase]time.Duration, len(phases)),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case phaseStartMsg:
		m.Current = msg.phase
	case phaseDoneMsg:
		m.Done[msg.phase] = msg.duration
		if m.Current == msg.phase {
			m.Current = ""
		}
	case iterationMsg:
		m.History = append(m.History, observability.Iteration(msg))
		if len(m.History) > historyLen {
			m.History = m.History[len(m.History)-historyLen:]
		}
	case exitMsg:
		m.Exit = fmt.Sprintf("%s after %d iterations", msg.condition, msg.iterations)
	case resultMsg:
		m.res, m.err = msg.res, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")

	for _, p := range phases {
		switch d, done := m.Done[p]; {
		case done:
			b.WriteString(phaseDoneStyle.Render(fmt.Sprintf("  %s %-9s", iconSuccess, p)))
			b.WriteString(StyleDim.Render(" " + d.Round(time.Microsecond).String()))
		case p == m.Current:
			b.WriteString(phaseActiveStyle.Render(fmt.Sprintf("  %s %s", iconInfo, p)))
		default:
			b.WriteString(phasePendStyle.Render(fmt.Sprintf("    %s", p)))
		}
		b.WriteString("\n")
	}

	if len(m.History) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render(fmt.Sprintf("  %4s  %14s  %10s  %10s  %6s  %4s", "iter", "value", "|grad|", "λ²/2", "t", "cg")))
		b.WriteString("\n")
		for _, it := range m.History {
			b.WriteString(fmt.Sprintf("  %4d  %14.8g  %10.3e  %10.3e  %6.3g  %4d\n",
				it.Index, it.Value, it.GradientNorm, it.Decrement, it.StepSize, it.CGIterations))
		}
	}
	if m.Exit != "" {
		b.WriteString("\n  " + StyleHighlight.Render(m.Exit) + "\n")
	}
	return b.String()
}

// =============================================================================
// Hooks
// =============================================================================

// progressHooks forwards transform and optimizer events to a program.
type progressHooks struct {
	p *tea.Program
}

func (h progressHooks) OnPhaseStart(_ context.Context, phase observability.Phase) {
	h.p.Send(phaseStartMsg{phase})
}

func (h progressHooks) OnPhaseComplete(_ context.Context, phase observability.Phase, d time.Duration, _ error) {
	h.p.Send(phaseDoneMsg{phase, d})
}

func (h progressHooks) OnIteration(_ context.Context, it observability.Iteration) {
	h.p.Send(iterationMsg(it))
}

func (h progressHooks) OnExit(_ context.Context, condition string, iterations int) {
	h.p.Send(exitMsg{condition, iterations})
}

// runWithProgress runs fn while a ProgressModel renders its events on
// stderr. The global hooks are restored when fn returns.
func runWithProgress(ctx context.Context, title string, fn func(context.Context) (*pipeline.Result, error)) (*pipeline.Result, error) {
	p := tea.NewProgram(NewProgressModel("Flattening "+title),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
	)
	hooks := progressHooks{p}
	observability.SetTransformHooks(hooks)
	observability.SetOptimizerHooks(hooks)
	defer func() {
		observability.SetTransformHooks(observability.NoopTransformHooks{})
		observability.SetOptimizerHooks(observability.NoopOptimizerHooks{})
	}()

	go func() {
		res, err := fn(ctx)
		p.Send(resultMsg{res, err})
	}()

	final, err := p.Run()
	if ctx.Err() != nil {
		return nil, errors.Wrap(errors.ErrCodeCanceled, ctx.Err(), "flatten %s", title)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "progress view")
	}
	m := final.(ProgressModel)
	return m.res, m.err
}
