package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type invitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *invitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, invitation *domain.GameInvitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *invitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.GameInvitation, error) {
	var invitation domain.GameInvitation
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		First(&invitation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// GetPendingBetween returns the pending invitation for the ordered
// sender/receiver pair, or nil when none exists.
func (r *invitationRepository) GetPendingBetween(ctx context.Context, senderID, receiverID uuid.UUID) (*domain.GameInvitation, error) {
	var invitation domain.GameInvitation
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ? AND status = ?",
			senderID, receiverID, domain.InvitationStatusPending).
		Order("created_at DESC").
		First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *invitationRepository) GetPendingForReceiver(ctx context.Context, receiverID uuid.UUID) ([]*domain.GameInvitation, error) {
	var invitations []*domain.GameInvitation
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("receiver_id = ? AND status = ?", receiverID, domain.InvitationStatusPending).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *invitationRepository) GetPendingForSender(ctx context.Context, senderID uuid.UUID) ([]*domain.GameInvitation, error) {
	var invitations []*domain.GameInvitation
	err := r.db.WithContext(ctx).
		Preload("Receiver").
		Where("sender_id = ? AND status = ?", senderID, domain.InvitationStatusPending).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

// GetStalePending returns pending invitations whose TTL has elapsed. Used by
// the expiry sweep.
func (r *invitationRepository) GetStalePending(ctx context.Context) ([]*domain.GameInvitation, error) {
	var invitations []*domain.GameInvitation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", domain.InvitationStatusPending, time.Now()).
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *invitationRepository) Update(ctx context.Context, invitation *domain.GameInvitation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(invitation).Error
}
