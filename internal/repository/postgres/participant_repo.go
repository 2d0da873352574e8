package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type battleParticipantRepository struct {
	db *gorm.DB
}

func NewBattleParticipantRepository(db *gorm.DB) *battleParticipantRepository {
	return &battleParticipantRepository{db: db}
}

func (r *battleParticipantRepository) Create(ctx context.Context, participant *domain.BattleParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *battleParticipantRepository) GetByBattle(ctx context.Context, battleID uuid.UUID) ([]*domain.BattleParticipant, error) {
	var participants []*domain.BattleParticipant
	err := r.db.WithContext(ctx).
		Preload("Creature").
		Preload("Player").
		Where("battle_id = ?", battleID).
		Order("team ASC, id ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *battleParticipantRepository) GetByBattleAndCreature(ctx context.Context, battleID, creatureID uuid.UUID) (*domain.BattleParticipant, error) {
	var participant domain.BattleParticipant
	err := r.db.WithContext(ctx).
		Preload("Creature").
		First(&participant, "battle_id = ? AND creature_id = ?", battleID, creatureID).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// Update writes only the participant row; the preloaded creature relation
// must never be synced back from battle state.
func (r *battleParticipantRepository) Update(ctx context.Context, participant *domain.BattleParticipant) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(participant).Error
}
