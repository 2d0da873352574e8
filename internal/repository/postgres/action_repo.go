package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"gorm.io/gorm"
)

type battleActionRepository struct {
	db *gorm.DB
}

func NewBattleActionRepository(db *gorm.DB) *battleActionRepository {
	return &battleActionRepository{db: db}
}

func (r *battleActionRepository) Create(ctx context.Context, action *domain.BattleAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *battleActionRepository) GetByBattle(ctx context.Context, battleID uuid.UUID) ([]*domain.BattleAction, error) {
	var actions []*domain.BattleAction
	err := r.db.WithContext(ctx).
		Preload("Caster.Creature").
		Preload("Target.Creature").
		Preload("SpellUsed").
		Where("battle_id = ?", battleID).
		Order("turn_number ASC, action_order ASC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *battleActionRepository) GetByBattleAndTurn(ctx context.Context, battleID uuid.UUID, turn int) ([]*domain.BattleAction, error) {
	var actions []*domain.BattleAction
	err := r.db.WithContext(ctx).
		Preload("Caster.Creature").
		Preload("Target.Creature").
		Preload("SpellUsed").
		Where("battle_id = ? AND turn_number = ?", battleID, turn).
		Order("action_order ASC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
