package auth

import (
	"time"
)

// InvitationState labels where an account sits in the activation flow.
type InvitationState = string

const (
	// InvitationInvited is a pending account with an unexpired token.
	InvitationInvited InvitationState = "invited"
	// InvitationActive is a completed, loginable account.
	InvitationActive InvitationState = "active"
	// InvitationInvalid covers everything else: expired, consumed, or a
	// token that never existed. They are indistinguishable on purpose.
	InvitationInvalid InvitationState = "invalid"
)

// invitationTransitions is the closed transition table. Invalid is terminal;
// Active is reachable only from Invited, exactly once.
var invitationTransitions = map[InvitationState]map[InvitationState]struct{}{
	InvitationInvited: {
		InvitationActive:  {},
		InvitationInvalid: {},
	},
}

// CanTransitionInvitation reports whether a state change is legal.
func CanTransitionInvitation(from, to InvitationState) bool {
	allowed, ok := invitationTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// InvitationStateOf derives the current state from the stored record.
func InvitationStateOf(u *User, now time.Time) InvitationState {
	switch {
	case u == nil:
		return InvitationInvalid
	case u.IsActive:
		return InvitationActive
	case u.InvitationValidAt(now):
		return InvitationInvited
	default:
		return InvitationInvalid
	}
}
