// Package wizard drives the linear intake flow start → form → result.
package wizard

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/buraco/pkg/domain/report"
)

// Step is one screen of the intake flow.
type Step string

// State constants stay untyped for statekit.StateID compatibility.
const (
	StateStart  = "start"
	StateForm   = "form"
	StateResult = "result"
)

const (
	StepStart  Step = StateStart
	StepForm   Step = StateForm
	StepResult Step = StateResult
)

// Steps lists the flow in order.
var Steps = []Step{StepStart, StepForm, StepResult}

const (
	EventAdvance = "advance"
	EventRetreat = "retreat"
	EventRestart = "restart"
)

func ParseStep(s string) (Step, error) {
	for _, st := range Steps {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown wizard step %q", s)
}

// Index returns the step's position in Steps, or -1.
func (s Step) Index() int {
	for i, st := range Steps {
		if st == s {
			return i
		}
	}
	return -1
}

type machineContext struct{}

// Machine wraps a statekit interpreter over the three steps. Advance at
// result and Retreat at start are no-ops.
type Machine struct {
	interpreter *statekit.Interpreter[machineContext]
}

// New builds a machine positioned at current. An empty step starts at the
// beginning.
func New(current Step) (*Machine, error) {
	if current == "" {
		current = StepStart
	}
	if current.Index() < 0 {
		return nil, fmt.Errorf("unknown wizard step %q", current)
	}

	builder := statekit.NewMachine[machineContext]("intake-wizard").
		WithInitial(statekit.StateID(current)).
		WithContext(machineContext{})

	builder.State(StateStart).
		On(EventAdvance).Target(StateForm).
		On(EventRestart).Target(StateForm).
		Done()

	builder.State(StateForm).
		On(EventAdvance).Target(StateResult).
		On(EventRetreat).Target(StateStart).
		On(EventRestart).Target(StateForm).
		Done()

	builder.State(StateResult).
		On(EventRetreat).Target(StateForm).
		On(EventRestart).Target(StateForm).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build wizard machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &Machine{interpreter: interpreter}, nil
}

func (m *Machine) Current() Step {
	return Step(m.interpreter.State().Value)
}

func (m *Machine) send(event string) Step {
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	return m.Current()
}

// Advance moves to the next step.
func (m *Machine) Advance() Step {
	return m.send(EventAdvance)
}

// Retreat moves to the previous step.
func (m *Machine) Retreat() Step {
	return m.send(EventRetreat)
}

// RestartAnalysis clears rec and returns to the form.
func (m *Machine) RestartAnalysis(rec *report.Record) Step {
	if rec != nil {
		rec.Reset()
	}
	return m.send(EventRestart)
}

// IsFinal reports whether no forward transition remains.
func (m *Machine) IsFinal() bool {
	return m.Current() == StepResult
}
