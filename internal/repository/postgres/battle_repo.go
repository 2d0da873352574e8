package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"gorm.io/gorm"
)

type battleRepository struct {
	db *gorm.DB
}

func NewBattleRepository(db *gorm.DB) *battleRepository {
	return &battleRepository{db: db}
}

func (r *battleRepository) Create(ctx context.Context, battle *domain.Battle) error {
	return r.db.WithContext(ctx).Create(battle).Error
}

func (r *battleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Battle, error) {
	var battle domain.Battle
	err := r.db.WithContext(ctx).
		Preload("Player1").
		Preload("Player2").
		First(&battle, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &battle, nil
}

func (r *battleRepository) Update(ctx context.Context, battle *domain.Battle) error {
	return r.db.WithContext(ctx).Save(battle).Error
}

// Delete cascades to participants and actions; they have no lifecycle of
// their own.
func (r *battleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Select("Participants", "Actions").
		Delete(&domain.Battle{ID: id}).Error
}
