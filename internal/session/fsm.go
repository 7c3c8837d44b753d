package session

import "fmt"

// Status is a session slot's lifecycle state.
type Status string

const (
	StatusOpen      Status = "open"
	StatusMatched   Status = "matched"
	StatusLobby     Status = "lobby"
	StatusActive    Status = "active"
	StatusReveal    Status = "reveal"
	StatusCall      Status = "call"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Role names the two participants.
type Role string

const (
	RoleOptimizer Role = "optimizer"
	RoleScroller  Role = "scroller"
)

func ValidRole(r string) bool {
	return r == string(RoleOptimizer) || r == string(RoleScroller)
}

// Input is a lifecycle event applied to a session status.
type Input string

const (
	InputMatched      Input = "matched"       // both roles filled
	InputEnterLobby   Input = "enter_lobby"   // participants in the lobby
	InputBegin        Input = "begin"         // countdown finished, feed running
	InputEnd          Input = "end"           // session timer elapsed or ended early
	InputAcceptedCall Input = "accepted_call" // both sides opted in
	InputDeclinedCall Input = "declined_call" // at least one side opted out
	InputCallEnded    Input = "call_ended"
	InputAbandon      Input = "abandon"
)

var transitions = map[Status]map[Input]Status{
	StatusOpen:    {InputMatched: StatusMatched},
	StatusMatched: {InputEnterLobby: StatusLobby},
	StatusLobby:   {InputBegin: StatusActive},
	StatusActive:  {InputEnd: StatusReveal},
	StatusReveal: {
		InputAcceptedCall: StatusCall,
		InputDeclinedCall: StatusCompleted,
	},
	StatusCall: {InputCallEnded: StatusCompleted},
}

// Transition applies input to the current status. Any non-terminal status
// accepts InputAbandon; everything else must appear in the transition
// table or the input is rejected.
func Transition(current Status, input Input) (Status, error) {
	if Terminal(current) {
		return current, fmt.Errorf("session is %s: no transitions allowed", current)
	}
	if input == InputAbandon {
		return StatusAbandoned, nil
	}
	next, ok := transitions[current][input]
	if !ok {
		return current, fmt.Errorf("invalid transition: %s + %s", current, input)
	}
	return next, nil
}

// Terminal reports whether the status accepts no further inputs.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusAbandoned
}

func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusOpen, StatusMatched, StatusLobby, StatusActive,
		StatusReveal, StatusCall, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}
