package session

import "testing"

func TestHappyPathLifecycle(t *testing.T) {
	steps := []struct {
		input Input
		want  Status
	}{
		{InputMatched, StatusMatched},
		{InputEnterLobby, StatusLobby},
		{InputBegin, StatusActive},
		{InputEnd, StatusReveal},
		{InputAcceptedCall, StatusCall},
		{InputCallEnded, StatusCompleted},
	}
	status := StatusOpen
	for _, step := range steps {
		next, err := Transition(status, step.input)
		if err != nil {
			t.Fatalf("Transition(%s, %s): %v", status, step.input, err)
		}
		if next != step.want {
			t.Fatalf("Transition(%s, %s)=%s, want %s", status, step.input, next, step.want)
		}
		status = next
	}
	if !Terminal(status) {
		t.Fatalf("%s not terminal after full lifecycle", status)
	}
}

func TestDeclinedCallCompletes(t *testing.T) {
	next, err := Transition(StatusReveal, InputDeclinedCall)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if next != StatusCompleted {
		t.Fatalf("declined opt-in => %s, want completed", next)
	}
}

func TestAbandonFromAnyNonTerminal(t *testing.T) {
	for _, status := range []Status{StatusOpen, StatusMatched, StatusLobby, StatusActive, StatusReveal, StatusCall} {
		next, err := Transition(status, InputAbandon)
		if err != nil {
			t.Fatalf("Transition(%s, abandon): %v", status, err)
		}
		if next != StatusAbandoned {
			t.Fatalf("Transition(%s, abandon)=%s, want abandoned", status, next)
		}
	}
}

func TestInvalidTransitionsRejected(t *testing.T) {
	cases := []struct {
		status Status
		input  Input
	}{
		{StatusOpen, InputBegin},
		{StatusLobby, InputEnd},
		{StatusActive, InputAcceptedCall},
		{StatusReveal, InputMatched},
	}
	for _, tc := range cases {
		if next, err := Transition(tc.status, tc.input); err == nil {
			t.Fatalf("Transition(%s, %s)=%s, want error", tc.status, tc.input, next)
		}
	}
}

func TestTerminalStatesAcceptNothing(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusAbandoned} {
		for _, input := range []Input{InputMatched, InputBegin, InputEnd, InputAbandon} {
			if _, err := Transition(status, input); err == nil {
				t.Fatalf("Transition(%s, %s) accepted, want error", status, input)
			}
		}
	}
}

func TestLobbyFlow(t *testing.T) {
	state := LobbyCheckingPermissions
	for _, input := range []LobbyInput{
		LobbyInputPermissionsGranted,
		LobbyInputPartnerJoined,
		LobbyInputCountdownStarted,
		LobbyInputCountdownFinished,
	} {
		next, err := LobbyTransition(state, input)
		if err != nil {
			t.Fatalf("LobbyTransition(%s, %s): %v", state, input, err)
		}
		state = next
	}
	if state != LobbyReady {
		t.Fatalf("final lobby state %s, want ready", state)
	}
}

func TestLobbyPermissionDeniedIsTerminal(t *testing.T) {
	state, err := LobbyTransition(LobbyCheckingPermissions, LobbyInputPermissionsDenied)
	if err != nil {
		t.Fatalf("LobbyTransition: %v", err)
	}
	if state != LobbyError {
		t.Fatalf("state %s, want error", state)
	}
	if _, err := LobbyTransition(LobbyError, LobbyInputPartnerJoined); err == nil {
		t.Fatal("errored lobby accepted an input, want rejection")
	}
}
