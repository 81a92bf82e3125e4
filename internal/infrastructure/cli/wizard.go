package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/quality"
	"github.com/felixgeelhaar/buraco/pkg/domain/session"
	"github.com/felixgeelhaar/buraco/pkg/domain/severity"
	"github.com/felixgeelhaar/buraco/pkg/domain/wizard"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Report a pothole step by step in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("BURACO_SKIP_WIZARD_RUN") == "true" {
			return nil
		}
		services, err := loadServices(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer services.Close()

		p := tea.NewProgram(newWizardModel(cmd.Context(), services.Intake), tea.WithContext(cmd.Context()))
		final, err := p.Run()
		if m, ok := final.(wizardModel); ok && m.session != nil {
			_ = services.Intake.EndSession(context.WithoutCancel(cmd.Context()), m.session.ID)
		}
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("wizard run failed: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(wizardCmd)
}

// Styles
var (
	wizTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(1).
			PaddingRight(1)

	wizStepActive = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	wizStepIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	wizFocused    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	wizHelp       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	wizWarn       = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	wizErr        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	wizBox        = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

var levelStyles = map[severity.Level]lipgloss.Style{
	severity.LevelLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	severity.LevelMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	severity.LevelHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	severity.LevelCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
}

const (
	fieldCEP = iota
	fieldNumber
	fieldPhoto
)

type sessionMsg struct {
	session  *session.Session
	warnings []string
	err      error
}

type photoMsg struct {
	result   application.PhotoResult
	warnings []string
	err      error
}

type wizardModel struct {
	ctx    context.Context
	intake *application.IntakeService

	session  *session.Session
	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	busy     bool
	pending  *quality.Report
	outcome  *application.Outcome
	warnings []string
	err      error
}

func newWizardModel(ctx context.Context, intake *application.IntakeService) wizardModel {
	placeholders := []string{"01310-100", "1578", "./buraco.jpg"}
	limits := []int{9, 10, 500}
	inputs := make([]textinput.Model, len(placeholders))
	for i := range inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = limits[i]
		in.Width = 40
		inputs[i] = in
	}
	return wizardModel{
		ctx:     ctx,
		intake:  intake,
		inputs:  inputs,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m wizardModel) Init() tea.Cmd {
	return m.startSession()
}

func (m wizardModel) startSession() tea.Cmd {
	return func() tea.Msg {
		sess, err := m.intake.StartSession(m.ctx)
		return sessionMsg{session: sess, err: err}
	}
}

func (m wizardModel) navigate(move func(context.Context, string) (*session.Session, error)) tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		sess, err := move(m.ctx, id)
		return sessionMsg{session: sess, err: err}
	}
}

func (m wizardModel) submit() tea.Cmd {
	id := m.session.ID
	cep := strings.TrimSpace(m.inputs[fieldCEP].Value())
	number := strings.TrimSpace(m.inputs[fieldNumber].Value())
	path := strings.TrimSpace(m.inputs[fieldPhoto].Value())
	return func() tea.Msg {
		var warnings []string
		if cep != "" {
			res, err := m.intake.SetAddress(m.ctx, id, cep, number)
			if err != nil {
				return photoMsg{err: err}
			}
			warnings = res.Warnings
		}
		// #nosec G304 -- the user names the photo
		data, err := os.ReadFile(path)
		if err != nil {
			return photoMsg{err: fmt.Errorf("read photo: %w", err), warnings: warnings}
		}
		res, err := m.intake.SubmitPhoto(m.ctx, id, data, false)
		return photoMsg{result: res, warnings: warnings, err: err}
	}
}

func (m wizardModel) confirm(proceed bool) tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		res, err := m.intake.ConfirmPhoto(m.ctx, id, proceed)
		return photoMsg{result: res, err: err}
	}
}

// run marks the model busy and starts work alongside the spinner.
func (m wizardModel) run(work tea.Cmd) (wizardModel, tea.Cmd) {
	m.busy = true
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, work)
}

func (m wizardModel) step() wizard.Step {
	if m.session == nil {
		return wizard.StepStart
	}
	return m.session.Step
}

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		prev := m.step()
		m.session = msg.session
		if m.step() == wizard.StepForm && prev != wizard.StepForm {
			m.outcome = nil
			cmd := m.focusInput(fieldCEP)
			return m, cmd
		}
		return m, nil

	case photoMsg:
		m.busy = false
		m.warnings = msg.warnings
		if msg.result.Session != nil {
			m.session = msg.result.Session
		}
		var gateErr *application.QualityGateError
		switch {
		case errors.As(msg.err, &gateErr):
			q := gateErr.Report
			m.pending = &q
		case msg.err != nil:
			m.err = msg.err
		default:
			m.pending = nil
			if msg.result.Outcome.Analysis != nil {
				out := msg.result.Outcome
				m.outcome = &out
			}
		}
		return m, nil
	}

	if m.step() == wizard.StepForm {
		cmd := m.updateInputs(msg)
		return m, cmd
	}
	return m, nil
}

func (m wizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy || m.session == nil {
		return m, nil
	}

	if m.pending != nil {
		switch key {
		case "y", "s":
			return m.run(m.confirm(true))
		case "n", "esc":
			m.pending = nil
			return m.run(m.confirm(false))
		}
		return m, nil
	}

	switch m.step() {
	case wizard.StepStart:
		switch key {
		case "enter":
			return m.run(m.navigate(m.intake.Advance))
		case "q":
			return m, tea.Quit
		}

	case wizard.StepForm:
		switch key {
		case "esc":
			return m.run(m.navigate(m.intake.Retreat))
		case "tab", "down":
			cmd := m.focusInput((m.focus + 1) % len(m.inputs))
			return m, cmd
		case "shift+tab", "up":
			return m, m.focusInput((m.focus + len(m.inputs) - 1) % len(m.inputs))
		case "enter":
			if m.focus < fieldPhoto {
				cmd := m.focusInput(m.focus + 1)
				return m, cmd
			}
			if strings.TrimSpace(m.inputs[fieldPhoto].Value()) == "" {
				m.err = errors.New("enter the path of the photo")
				return m, nil
			}
			return m.run(m.submit())
		}
		cmd := m.updateInputs(msg)
		return m, cmd

	case wizard.StepResult:
		switch key {
		case "r":
			return m.run(m.navigate(m.intake.RestartAnalysis))
		case "esc":
			return m.run(m.navigate(m.intake.Retreat))
		case "q", "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *wizardModel) focusInput(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
			m.inputs[j].PromptStyle = wizFocused
			m.inputs[j].TextStyle = wizFocused
			continue
		}
		m.inputs[j].Blur()
		m.inputs[j].PromptStyle = lipgloss.NewStyle()
		m.inputs[j].TextStyle = lipgloss.NewStyle()
	}
	return cmd
}

func (m *wizardModel) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

func (m wizardModel) View() string {
	var b strings.Builder
	b.WriteString(wizTitleStyle.Render("Buraco · pothole report"))
	b.WriteString("\n\n")
	b.WriteString(m.stepBar())
	b.WriteString("\n\n")

	switch {
	case m.pending != nil:
		b.WriteString(m.pendingView())
	case m.step() == wizard.StepStart:
		b.WriteString("Report a pothole in three steps: address, photo, assessment.\n")
		b.WriteString(wizHelp.Render("[enter] Start  [q] Quit"))
	case m.step() == wizard.StepForm:
		b.WriteString(m.formView())
	case m.step() == wizard.StepResult:
		b.WriteString(m.resultView())
	}

	if m.busy {
		b.WriteString("\n\n" + m.spinner.View() + " Working...")
	}
	for _, w := range m.warnings {
		b.WriteString("\n" + wizWarn.Render("⚠ "+w))
	}
	if m.err != nil {
		b.WriteString("\n" + wizErr.Render(userMessage(m.err)))
	}
	return b.String() + "\n"
}

func (m wizardModel) stepBar() string {
	names := []string{"1 Start", "2 Address & photo", "3 Result"}
	parts := make([]string, len(names))
	for i, n := range names {
		if wizard.Steps[i] == m.step() {
			parts[i] = wizStepActive.Render(n)
		} else {
			parts[i] = wizStepIdle.Render(n)
		}
	}
	return strings.Join(parts, wizStepIdle.Render(" › "))
}

func (m wizardModel) formView() string {
	labels := []string{"CEP", "Number", "Photo path"}
	var b strings.Builder
	for i, in := range m.inputs {
		label := fmt.Sprintf("  %s:", labels[i])
		if i == m.focus {
			label = wizFocused.Render(fmt.Sprintf("› %s:", labels[i]))
		}
		b.WriteString(label + "\n  " + in.View() + "\n")
	}
	if m.outcome != nil && m.outcome.Analysis != nil && !m.outcome.Analysis.OK() {
		b.WriteString("\n" + wizErr.Render(m.outcome.Analysis.Text) + "\n")
	}
	b.WriteString(wizHelp.Render("[tab] Next field  [enter] Analyze  [esc] Back  [ctrl+c] Quit"))
	return b.String()
}

func (m wizardModel) pendingView() string {
	var b strings.Builder
	b.WriteString(wizWarn.Render("The photo may not be good enough for an accurate assessment:"))
	b.WriteString("\n")
	for _, p := range m.pending.Problems {
		b.WriteString("  - " + p + "\n")
	}
	b.WriteString(wizHelp.Render("Continue anyway? [y] Yes  [n] No, choose another photo"))
	return b.String()
}

func (m wizardModel) resultView() string {
	rec := m.session.Record
	label := rec.Label()
	fb := severity.FeedbackFor(label)
	style, ok := levelStyles[label.Level()]
	if !ok {
		style = lipgloss.NewStyle()
	}

	var body strings.Builder
	body.WriteString(style.Render(fmt.Sprintf("%s Severity: %s", fb.Icon, label)))
	body.WriteString("\n" + fb.Message)
	body.WriteString("\nDeadline: " + fb.Deadline)
	if loc := rec.Location; loc != nil {
		body.WriteString("\n\n📍 " + loc.Address.Line(loc.Number))
	}
	if rec.Analysis != nil {
		body.WriteString("\n\n" + strings.TrimSpace(rec.Analysis.Text))
	}
	return wizBox.Render(body.String()) + "\n" +
		wizHelp.Render("[r] New analysis  [esc] Back  [q] Quit")
}

// userMessage prefers the CLI hint for known errors.
func userMessage(err error) string {
	var cliErr *CLIError
	if errors.As(MapError(err), &cliErr) {
		if cliErr.Hint != "" {
			return cliErr.Message + " · " + cliErr.Hint
		}
		return cliErr.Message
	}
	return err.Error()
}
