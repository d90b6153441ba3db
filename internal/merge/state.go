// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package merge

import (
	"fmt"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/vmerge/internal/log"
)

// State is a step of one merge request.
type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StateStaged    State = "staged"
	StateProbed    State = "probed"
	StatePlanned   State = "planned"
	StateEncoding  State = "encoding"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// forward is the only successor of each non-terminal state. Failed is
// reachable from every non-terminal state.
var forward = map[State]State{
	StateReceived:  StateValidated,
	StateValidated: StateStaged,
	StateStaged:    StateProbed,
	StateProbed:    StatePlanned,
	StatePlanned:   StateEncoding,
	StateEncoding:  StateDone,
}

// Transition is one observed state change.
type Transition struct {
	From State
	To   State
}

// lifecycle tracks the state of a single request. It is owned by one
// goroutine.
type lifecycle struct {
	state    State
	logger   zerolog.Logger
	observer func(Transition)
}

func newLifecycle(logger zerolog.Logger, observer func(Transition)) *lifecycle {
	return &lifecycle{state: StateReceived, logger: logger, observer: observer}
}

func (l *lifecycle) State() State { return l.state }

// advance moves to to. Anything other than the next forward step or Failed
// is a programming error.
func (l *lifecycle) advance(to State) error {
	from := l.state
	if from.Terminal() {
		return fmt.Errorf("merge: transition from terminal state %s to %s", from, to)
	}
	if to != StateFailed && forward[from] != to {
		return fmt.Errorf("merge: invalid transition %s -> %s", from, to)
	}
	l.state = to
	l.logger.Debug().
		Str(xglog.FieldEvent, "merge.state").
		Str("from", string(from)).
		Str(xglog.FieldState, string(to)).
		Msg("merge state changed")
	if l.observer != nil {
		l.observer(Transition{From: from, To: to})
	}
	return nil
}

// mustAdvance is advance for the orchestrator's fixed step order.
func (l *lifecycle) mustAdvance(to State) {
	if err := l.advance(to); err != nil {
		panic(err)
	}
}

// fail moves to Failed unless already terminal.
func (l *lifecycle) fail() {
	if !l.state.Terminal() {
		l.mustAdvance(StateFailed)
	}
}
