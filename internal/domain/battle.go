package domain

import (
	"time"

	"github.com/google/uuid"
)

type BattleType string

const (
	BattleTypeFriendly BattleType = "friendly"
	BattleTypeRanked   BattleType = "ranked"
)

type BattlePhase string

// Phases only ever move forward: waiting -> selection -> combat -> finished.
const (
	BattlePhaseWaiting   BattlePhase = "waiting"
	BattlePhaseSelection BattlePhase = "selection"
	BattlePhaseCombat    BattlePhase = "combat"
	BattlePhaseFinished  BattlePhase = "finished"
)

type ActionType string

const (
	ActionTypeSpellCast     ActionType = "spell_cast"
	ActionTypeDamageDealt   ActionType = "damage_dealt"
	ActionTypeHealPerformed ActionType = "heal_performed"
	ActionTypeBuffApplied   ActionType = "buff_applied"
)

// Battle is one engagement between exactly two players. Player2 is null only
// while the battle waits for an opponent; Winner is set only once finished.
type Battle struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Type        BattleType  `json:"type" gorm:"not null;default:'friendly'"`
	Phase       BattlePhase `json:"phase" gorm:"not null;default:'waiting'"`
	Player1ID   uuid.UUID   `json:"player1Id" gorm:"type:uuid;index;not null"`
	Player2ID   *uuid.UUID  `json:"player2Id" gorm:"type:uuid;index"`
	WinnerID    *uuid.UUID  `json:"winnerId" gorm:"type:uuid"`
	CurrentTurn int         `json:"currentTurn" gorm:"not null;default:0"`
	CreatedAt   time.Time   `json:"createdAt"`
	StartedAt   *time.Time  `json:"startedAt"`
	FinishedAt  *time.Time  `json:"finishedAt"`

	// Relations
	Player1      *Player             `json:"player1,omitempty" gorm:"foreignKey:Player1ID"`
	Player2      *Player             `json:"player2,omitempty" gorm:"foreignKey:Player2ID"`
	Winner       *Player             `json:"winner,omitempty" gorm:"foreignKey:WinnerID"`
	Participants []BattleParticipant `json:"participants,omitempty" gorm:"foreignKey:BattleID;constraint:OnDelete:CASCADE"`
	Actions      []BattleAction      `json:"actions,omitempty" gorm:"foreignKey:BattleID;constraint:OnDelete:CASCADE"`
}

func (b *Battle) IsFinished() bool {
	return b.Phase == BattlePhaseFinished
}

// Active reports whether moves may still be submitted.
func (b *Battle) Active() bool {
	return b.Phase == BattlePhaseSelection || b.Phase == BattlePhaseCombat
}

// BattleParticipant is one creature's in-battle state, decoupled from the
// creature's persistent record: hp/energy are copied at join time.
type BattleParticipant struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BattleID         uuid.UUID  `json:"battleId" gorm:"type:uuid;index;not null"`
	PlayerID         uuid.UUID  `json:"playerId" gorm:"type:uuid;index;not null"`
	CreatureID       uuid.UUID  `json:"creatureId" gorm:"type:uuid;not null"`
	Team             int        `json:"team" gorm:"not null"`
	CurrentHP        int        `json:"currentHp" gorm:"not null"`
	CurrentEnergy    int        `json:"currentEnergy" gorm:"not null"`
	SelectedSpellID  *uuid.UUID `json:"selectedSpellId" gorm:"type:uuid"`
	SelectedTargetID *uuid.UUID `json:"selectedTargetId" gorm:"type:uuid"`
	HasConfirmedMove bool       `json:"hasConfirmedMove" gorm:"not null;default:false"`
	InitiativeBonus  int        `json:"initiativeBonus" gorm:"not null;default:0"`

	// Relations
	Creature *Creature `json:"creature,omitempty" gorm:"foreignKey:CreatureID"`
	Player   *Player   `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
}

func (p *BattleParticipant) IsAlive() bool {
	return p.CurrentHP > 0
}

// TotalInitiative requires the Creature relation to be loaded.
func (p *BattleParticipant) TotalInitiative() int {
	return p.Creature.Initiative + p.InitiativeBonus
}

// ResetMoveSelection clears the per-turn selection state.
func (p *BattleParticipant) ResetMoveSelection() {
	p.SelectedSpellID = nil
	p.SelectedTargetID = nil
	p.HasConfirmedMove = false
}

// BattleAction is an append-only log entry of one resolved effect, used for
// replay and audit. Never mutated after creation.
type BattleAction struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BattleID         uuid.UUID  `json:"battleId" gorm:"type:uuid;index;not null"`
	TurnNumber       int        `json:"turnNumber" gorm:"not null"`
	ActionOrder      int        `json:"actionOrder" gorm:"not null"`
	ActionType       ActionType `json:"actionType" gorm:"not null"`
	CasterID         uuid.UUID  `json:"casterId" gorm:"type:uuid;not null"`
	TargetID         *uuid.UUID `json:"targetId" gorm:"type:uuid"`
	SpellUsedID      *uuid.UUID `json:"spellUsedId" gorm:"type:uuid"`
	DamageAmount     int        `json:"damageAmount" gorm:"not null;default:0"`
	HealAmount       int        `json:"healAmount" gorm:"not null;default:0"`
	TargetHPAfter    int        `json:"targetHpAfter" gorm:"not null;default:0"`
	TargetAliveAfter bool       `json:"targetAliveAfter" gorm:"not null;default:true"`
	Timestamp        time.Time  `json:"timestamp" gorm:"autoCreateTime"`

	// Relations
	Caster    *BattleParticipant `json:"caster,omitempty" gorm:"foreignKey:CasterID"`
	Target    *BattleParticipant `json:"target,omitempty" gorm:"foreignKey:TargetID"`
	SpellUsed *Spell             `json:"spellUsed,omitempty" gorm:"foreignKey:SpellUsedID"`
}
