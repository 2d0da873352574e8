package postgres

import (
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	err = db.AutoMigrate(
		&domain.Player{},
		&domain.Spell{},
		&domain.Creature{},
		&domain.CreatureSpell{},
		&domain.Battle{},
		&domain.BattleParticipant{},
		&domain.BattleAction{},
		&domain.GameInvitation{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		Player:      NewPlayerRepository(db),
		Creature:    NewCreatureRepository(db),
		Spell:       NewSpellRepository(db),
		Battle:      NewBattleRepository(db),
		Participant: NewBattleParticipantRepository(db),
		Action:      NewBattleActionRepository(db),
		Invitation:  NewInvitationRepository(db),
	}
}

// NewTxManager returns a TxManager backed by gorm transactions.
func NewTxManager(db *gorm.DB) repository.TxManager {
	return &txManager{db: db}
}
