package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"gorm.io/gorm"
)

type creatureRepository struct {
	db *gorm.DB
}

func NewCreatureRepository(db *gorm.DB) *creatureRepository {
	return &creatureRepository{db: db}
}

func (r *creatureRepository) Create(ctx context.Context, creature *domain.Creature) error {
	return r.db.WithContext(ctx).Create(creature).Error
}

func (r *creatureRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Creature, error) {
	var creature domain.Creature
	err := r.db.WithContext(ctx).First(&creature, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &creature, nil
}

func (r *creatureRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Creature, error) {
	var creatures []*domain.Creature
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&creatures).Error
	if err != nil {
		return nil, err
	}
	return creatures, nil
}

// GetOwnedByIDs returns only the creatures in ids that belong to ownerID,
// preserving no particular order. Unknown or foreign ids are skipped.
func (r *creatureRepository) GetOwnedByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]*domain.Creature, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var creatures []*domain.Creature
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&creatures).Error
	if err != nil {
		return nil, err
	}
	return creatures, nil
}

func (r *creatureRepository) VerifyOwnership(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Creature{}).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == int64(len(ids)), nil
}

func (r *creatureRepository) Update(ctx context.Context, creature *domain.Creature) error {
	return r.db.WithContext(ctx).Save(creature).Error
}
