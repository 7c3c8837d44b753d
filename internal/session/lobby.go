package session

import "fmt"

// LobbyState models the pre-session flow as an explicit machine instead of
// component-local flags: camera permission check, partner wait, countdown.
type LobbyState string

const (
	LobbyCheckingPermissions LobbyState = "checking_permissions"
	LobbyWaitingForPartner   LobbyState = "waiting_for_partner"
	LobbyPartnerJoined       LobbyState = "partner_joined"
	LobbyCountdown           LobbyState = "countdown"
	LobbyReady               LobbyState = "ready"
	LobbyError               LobbyState = "error"
)

type LobbyInput string

const (
	LobbyInputPermissionsGranted LobbyInput = "permissions_granted"
	LobbyInputPermissionsDenied  LobbyInput = "permissions_denied"
	LobbyInputPartnerJoined      LobbyInput = "partner_joined"
	LobbyInputCountdownStarted   LobbyInput = "countdown_started"
	LobbyInputCountdownFinished  LobbyInput = "countdown_finished"
)

var lobbyTransitions = map[LobbyState]map[LobbyInput]LobbyState{
	LobbyCheckingPermissions: {
		LobbyInputPermissionsGranted: LobbyWaitingForPartner,
		LobbyInputPermissionsDenied:  LobbyError,
	},
	LobbyWaitingForPartner: {LobbyInputPartnerJoined: LobbyPartnerJoined},
	LobbyPartnerJoined:     {LobbyInputCountdownStarted: LobbyCountdown},
	LobbyCountdown:         {LobbyInputCountdownFinished: LobbyReady},
}

// LobbyTransition applies input to the lobby state. LobbyError and
// LobbyReady are terminal: an errored lobby needs a fresh session link.
func LobbyTransition(current LobbyState, input LobbyInput) (LobbyState, error) {
	next, ok := lobbyTransitions[current][input]
	if !ok {
		return current, fmt.Errorf("invalid lobby transition: %s + %s", current, input)
	}
	return next, nil
}
