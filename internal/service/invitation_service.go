package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/repository"
	"gorm.io/gorm"
)

// InvitationService manages battle invitations: a 2 minute window in which
// the receiver may accept or decline. Expiry is evaluated lazily on every
// access; a background sweep additionally closes overdue rows so both
// parties get told about invitations nobody touched again.
type InvitationService struct {
	repos   *repository.Repositories
	tx      repository.TxManager
	battles *BattleService
}

func NewInvitationService(repos *repository.Repositories, tx repository.TxManager, battles *BattleService) *InvitationService {
	return &InvitationService{
		repos:   repos,
		tx:      tx,
		battles: battles,
	}
}

// SendInvitation creates a pending invitation from sender to receiver,
// recording the sender's chosen creatures for the eventual battle.
func (s *InvitationService) SendInvitation(ctx context.Context, senderID, receiverID uuid.UUID, invitationType domain.BattleType, senderCreatureIDs []uuid.UUID) (*domain.GameInvitation, error) {
	if senderID == receiverID {
		return nil, domain.ErrSelfInvitation
	}

	if _, err := s.repos.Player.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	owned, err := s.repos.Creature.VerifyOwnership(ctx, senderID, senderCreatureIDs)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, domain.ErrCreatureNotOwned
	}

	existing, err := s.repos.Invitation.GetPendingBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.IsExpired() {
			return nil, domain.ErrInvitationPending
		}
		// The old invitation ran out unnoticed; close it and move on.
		existing.Status = domain.InvitationStatusExpired
		if err := s.repos.Invitation.Update(ctx, existing); err != nil {
			return nil, err
		}
	}

	creatureJSON, err := json.Marshal(senderCreatureIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	invitation := &domain.GameInvitation{
		ID:              uuid.New(),
		SenderID:        senderID,
		ReceiverID:      receiverID,
		InvitationType:  invitationType,
		Status:          domain.InvitationStatusPending,
		SenderCreatures: creatureJSON,
		CreatedAt:       now,
		ExpiresAt:       now.Add(domain.InvitationTTL),
	}
	if err := s.repos.Invitation.Create(ctx, invitation); err != nil {
		return nil, err
	}

	return invitation, nil
}

// InvitationResponse carries the updated invitation and, on acceptance, the
// battle bootstrap state both parties need.
type InvitationResponse struct {
	Invitation   *domain.GameInvitation
	Accepted     bool
	Battle       *domain.Battle
	Participants []*domain.BattleParticipant
}

// RespondToInvitation accepts or declines on behalf of the receiver.
// Acceptance creates the battle from the invitation's stored sender
// creatures and the receiver's supplied ones, and links it back.
func (s *InvitationService) RespondToInvitation(ctx context.Context, invitationID, responderID uuid.UUID, accept bool, receiverCreatureIDs []uuid.UUID) (*InvitationResponse, error) {
	invitation, err := s.getInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if invitation.ReceiverID != responderID {
		return nil, domain.ErrNotInvitationTarget
	}
	if err := s.closeIfStale(ctx, invitation); err != nil {
		return nil, err
	}

	now := time.Now()
	invitation.RespondedAt = &now

	if !accept {
		invitation.Status = domain.InvitationStatusDeclined
		if err := s.repos.Invitation.Update(ctx, invitation); err != nil {
			return nil, err
		}
		return &InvitationResponse{Invitation: invitation}, nil
	}

	owned, err := s.repos.Creature.VerifyOwnership(ctx, responderID, receiverCreatureIDs)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, domain.ErrCreatureNotOwned
	}

	var senderCreatureIDs []uuid.UUID
	if err := json.Unmarshal(invitation.SenderCreatures, &senderCreatureIDs); err != nil {
		return nil, err
	}

	battle, err := s.battles.CreateBattle(ctx, invitation.SenderID, invitation.InvitationType)
	if err != nil {
		return nil, err
	}
	battle, participants, err := s.battles.JoinBattle(ctx, battle.ID, responderID, senderCreatureIDs, receiverCreatureIDs)
	if err != nil {
		return nil, err
	}

	invitation.Status = domain.InvitationStatusAccepted
	invitation.BattleID = &battle.ID
	if err := s.repos.Invitation.Update(ctx, invitation); err != nil {
		return nil, err
	}

	return &InvitationResponse{
		Invitation:   invitation,
		Accepted:     true,
		Battle:       battle,
		Participants: participants,
	}, nil
}

// CancelInvitation withdraws a pending invitation. Sender only.
func (s *InvitationService) CancelInvitation(ctx context.Context, invitationID, callerID uuid.UUID) (*domain.GameInvitation, error) {
	invitation, err := s.getInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if invitation.SenderID != callerID {
		return nil, domain.ErrNotInvitationSender
	}
	if err := s.closeIfStale(ctx, invitation); err != nil {
		return nil, err
	}

	now := time.Now()
	invitation.Status = domain.InvitationStatusCancelled
	invitation.RespondedAt = &now
	if err := s.repos.Invitation.Update(ctx, invitation); err != nil {
		return nil, err
	}
	return invitation, nil
}

// GetPendingForReceiver lists invitations the player can still respond to.
func (s *InvitationService) GetPendingForReceiver(ctx context.Context, receiverID uuid.UUID) ([]*domain.GameInvitation, error) {
	invitations, err := s.repos.Invitation.GetPendingForReceiver(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	live := invitations[:0]
	for _, inv := range invitations {
		if inv.IsExpired() {
			continue
		}
		live = append(live, inv)
	}
	return live, nil
}

// ExpireStale closes every pending invitation past its deadline and returns
// the ones it closed, so the caller can notify both parties.
func (s *InvitationService) ExpireStale(ctx context.Context) ([]*domain.GameInvitation, error) {
	stale, err := s.repos.Invitation.GetStalePending(ctx)
	if err != nil {
		return nil, err
	}

	for _, inv := range stale {
		inv.Status = domain.InvitationStatusExpired
		if err := s.repos.Invitation.Update(ctx, inv); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

func (s *InvitationService) getInvitation(ctx context.Context, id uuid.UUID) (*domain.GameInvitation, error) {
	invitation, err := s.repos.Invitation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, err
	}
	return invitation, nil
}

// closeIfStale enforces the one-shot status transition: a pending invitation
// past its deadline is persisted as expired before the caller's intent is
// rejected, and any terminal status rejects outright.
func (s *InvitationService) closeIfStale(ctx context.Context, invitation *domain.GameInvitation) error {
	if invitation.CanRespond() {
		return nil
	}
	if invitation.Status == domain.InvitationStatusPending && invitation.IsExpired() {
		invitation.Status = domain.InvitationStatusExpired
		if err := s.repos.Invitation.Update(ctx, invitation); err != nil {
			return err
		}
		return domain.ErrInvitationExpired
	}
	return domain.ErrInvitationClosed
}
