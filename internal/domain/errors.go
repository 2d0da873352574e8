package domain

import "errors"

// Battle errors
var (
	ErrBattleNotFound      = errors.New("battle not found")
	ErrBattleFull          = errors.New("battle already has two players")
	ErrSelfBattle          = errors.New("cannot join your own battle")
	ErrBattleNotActive     = errors.New("battle is not accepting moves")
	ErrBattleFinished      = errors.New("battle is already finished")
	ErrNotParticipant      = errors.New("creature is not a participant of this battle")
	ErrCreatureNotOwned    = errors.New("creature does not belong to this player")
	ErrSpellNotKnown       = errors.New("creature does not know this spell")
	ErrSpellNotFound       = errors.New("spell not found")
	ErrInvalidTarget       = errors.New("target is not a participant of this battle")
	ErrParticipantDead     = errors.New("participant is no longer alive")
	ErrNoConfirmedMoves    = errors.New("turn executed with no confirmed participants")
	ErrInconsistentBattle  = errors.New("battle state is inconsistent")
)

// Invitation errors
var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrSelfInvitation       = errors.New("cannot invite yourself")
	ErrInvitationPending    = errors.New("invitation already pending between these players")
	ErrInvitationExpired    = errors.New("invitation has expired")
	ErrInvitationClosed     = errors.New("invitation already responded or cancelled")
	ErrNotInvitationSender  = errors.New("only the sender can cancel an invitation")
	ErrNotInvitationTarget  = errors.New("invitation is not addressed to this player")
	ErrInvalidResponse      = errors.New("response must be accepted or declined")
)
