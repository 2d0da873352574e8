package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"gorm.io/gorm"
)

type spellRepository struct {
	db *gorm.DB
}

func NewSpellRepository(db *gorm.DB) *spellRepository {
	return &spellRepository{db: db}
}

func (r *spellRepository) Create(ctx context.Context, spell *domain.Spell) error {
	return r.db.WithContext(ctx).Create(spell).Error
}

func (r *spellRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Spell, error) {
	var spell domain.Spell
	err := r.db.WithContext(ctx).First(&spell, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &spell, nil
}

func (r *spellRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Spell, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var spells []*domain.Spell
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&spells).Error
	if err != nil {
		return nil, err
	}
	return spells, nil
}

func (r *spellRepository) KnownBy(ctx context.Context, creatureID, spellID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.CreatureSpell{}).
		Where("creature_id = ? AND spell_id = ?", creatureID, spellID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *spellRepository) Learn(ctx context.Context, creatureID, spellID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&domain.CreatureSpell{
		ID:         uuid.New(),
		CreatureID: creatureID,
		SpellID:    spellID,
	}).Error
}
