package service

import (
	"github.com/zawomons/battle-server/internal/config"
	"github.com/zawomons/battle-server/internal/engine"
	"github.com/zawomons/battle-server/internal/repository"
)

type Services struct {
	Auth       *AuthService
	Battle     *BattleService
	Invitation *InvitationService
}

func NewServices(repos *repository.Repositories, tx repository.TxManager, eng *engine.Engine, cfg *config.Config) *Services {
	battle := NewBattleService(repos, tx, eng)
	return &Services{
		Auth:       NewAuthService(repos.Player, cfg),
		Battle:     battle,
		Invitation: NewInvitationService(repos, tx, battle),
	}
}
