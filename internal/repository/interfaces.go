package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
)

type PlayerRepository interface {
	Create(ctx context.Context, player *domain.Player) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error)
	GetByUsername(ctx context.Context, username string) (*domain.Player, error)
	Update(ctx context.Context, player *domain.Player) error
}

// CreatureRepository is the narrow read surface onto the creature directory,
// plus the stat write-back performed when a ranked battle finishes.
type CreatureRepository interface {
	Create(ctx context.Context, creature *domain.Creature) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Creature, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Creature, error)
	GetOwnedByIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]*domain.Creature, error)
	VerifyOwnership(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (bool, error)
	Update(ctx context.Context, creature *domain.Creature) error
}

type SpellRepository interface {
	Create(ctx context.Context, spell *domain.Spell) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Spell, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Spell, error)
	KnownBy(ctx context.Context, creatureID, spellID uuid.UUID) (bool, error)
	Learn(ctx context.Context, creatureID, spellID uuid.UUID) error
}

type BattleRepository interface {
	Create(ctx context.Context, battle *domain.Battle) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Battle, error)
	Update(ctx context.Context, battle *domain.Battle) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type BattleParticipantRepository interface {
	Create(ctx context.Context, participant *domain.BattleParticipant) error
	GetByBattle(ctx context.Context, battleID uuid.UUID) ([]*domain.BattleParticipant, error)
	GetByBattleAndCreature(ctx context.Context, battleID, creatureID uuid.UUID) (*domain.BattleParticipant, error)
	Update(ctx context.Context, participant *domain.BattleParticipant) error
}

type BattleActionRepository interface {
	Create(ctx context.Context, action *domain.BattleAction) error
	GetByBattle(ctx context.Context, battleID uuid.UUID) ([]*domain.BattleAction, error)
	GetByBattleAndTurn(ctx context.Context, battleID uuid.UUID, turn int) ([]*domain.BattleAction, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, invitation *domain.GameInvitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GameInvitation, error)
	GetPendingBetween(ctx context.Context, senderID, receiverID uuid.UUID) (*domain.GameInvitation, error)
	GetPendingForReceiver(ctx context.Context, receiverID uuid.UUID) ([]*domain.GameInvitation, error)
	GetPendingForSender(ctx context.Context, senderID uuid.UUID) ([]*domain.GameInvitation, error)
	GetStalePending(ctx context.Context) ([]*domain.GameInvitation, error)
	Update(ctx context.Context, invitation *domain.GameInvitation) error
}

type Repositories struct {
	Player      PlayerRepository
	Creature    CreatureRepository
	Spell       SpellRepository
	Battle      BattleRepository
	Participant BattleParticipantRepository
	Action      BattleActionRepository
	Invitation  InvitationRepository
}

// TxManager runs fn against a repository set bound to one database
// transaction; all writes commit or roll back together.
type TxManager interface {
	Do(ctx context.Context, fn func(r *Repositories) error) error
}
