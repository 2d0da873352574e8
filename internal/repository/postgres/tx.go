package postgres

import (
	"context"

	"github.com/zawomons/battle-server/internal/repository"
	"gorm.io/gorm"
)

type txManager struct {
	db *gorm.DB
}

func (m *txManager) Do(ctx context.Context, fn func(r *repository.Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
