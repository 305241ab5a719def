// Package quiz holds the single-answer quiz state machine:
//
//	unanswered -> answered(correct|incorrect) -> [retry] -> unanswered
//
// The live preview drives this implementation directly; the offline bundle
// ships an imperative script encoding the same transitions. Both are tested
// against the same scenarios so the two surfaces cannot drift.
package quiz

import (
	"fmt"

	"github.com/inkforge/handbook"
)

// State of one quiz instance.
type State string

const (
	Unanswered        State = "unanswered"
	AnsweredCorrect   State = "correct"
	AnsweredIncorrect State = "incorrect"
)

// Machine tracks the answer state for one quiz block.
type Machine struct {
	content  handbook.QuizContent
	state    State
	selected string
}

// New creates a machine in the unanswered state.
func New(c handbook.QuizContent) *Machine {
	return &Machine{content: c, state: Unanswered}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Selected returns the chosen option id, empty while unanswered.
func (m *Machine) Selected() string { return m.selected }

// CorrectOption returns the id of the option marked correct.
func (m *Machine) CorrectOption() string {
	for _, opt := range m.content.Options {
		if opt.IsCorrect {
			return opt.ID
		}
	}
	return ""
}

// Select answers the quiz. Once answered the quiz is locked: further
// selections return an error and change nothing until Retry.
func (m *Machine) Select(optionID string) error {
	if m.state != Unanswered {
		return fmt.Errorf("quiz already answered")
	}
	var found *handbook.QuizOption
	for i := range m.content.Options {
		if m.content.Options[i].ID == optionID {
			found = &m.content.Options[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("unknown option %q", optionID)
	}
	m.selected = optionID
	if found.IsCorrect {
		m.state = AnsweredCorrect
	} else {
		m.state = AnsweredIncorrect
	}
	return nil
}

// Feedback returns the line shown after answering, empty while unanswered.
func (m *Machine) Feedback() string {
	switch m.state {
	case AnsweredCorrect:
		if m.content.FeedbackCorrect != "" {
			return m.content.FeedbackCorrect
		}
		return "Correct!"
	case AnsweredIncorrect:
		if m.content.FeedbackIncorrect != "" {
			return m.content.FeedbackIncorrect
		}
		return "Not quite - the correct answer is highlighted."
	default:
		return ""
	}
}

// Retry clears the answer, returning to the unanswered state.
func (m *Machine) Retry() {
	m.state = Unanswered
	m.selected = ""
}
