package domain

import (
	"time"

	"github.com/google/uuid"
)

type SpellClass string

const (
	SpellClassDamage SpellClass = "damage"
	SpellClassHeal   SpellClass = "heal"
)

// Spell is a static catalog entry. Per-spell effect tables are not modelled
// yet; BasePower is the flat contribution used by the engine formulas.
type Spell struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name           string     `json:"name" gorm:"not null"`
	Description    string     `json:"description"`
	Classification SpellClass `json:"classification" gorm:"not null;default:'damage'"`
	BasePower      int        `json:"basePower" gorm:"not null;default:25"`
}

// Creature is a player's persistent creature record. Battle state is copied
// out of it at join time and written back only when a ranked battle finishes.
type Creature struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID       *uuid.UUID `json:"ownerId" gorm:"type:uuid;index"`
	Name          string     `json:"name" gorm:"not null"`
	Experience    int        `json:"experience" gorm:"not null;default:0"`
	MaxHP         int        `json:"maxHp" gorm:"not null;default:100"`
	CurrentHP     int        `json:"currentHp" gorm:"not null;default:100"`
	MaxEnergy     int        `json:"maxEnergy" gorm:"not null;default:50"`
	CurrentEnergy int        `json:"currentEnergy" gorm:"not null;default:50"`
	Damage        int        `json:"damage" gorm:"not null;default:25"`
	Initiative    int        `json:"initiative" gorm:"not null;default:10"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// Relations
	Owner *Player `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}

// Level is derived from experience in fixed bands of 100.
func (c *Creature) Level() int {
	return c.Experience / 100
}

// CreatureSpell links a creature to a spell it has learned.
type CreatureSpell struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatureID uuid.UUID `json:"creatureId" gorm:"type:uuid;index;not null;uniqueIndex:idx_creature_spell"`
	SpellID    uuid.UUID `json:"spellId" gorm:"type:uuid;not null;uniqueIndex:idx_creature_spell"`

	Creature *Creature `json:"creature,omitempty" gorm:"foreignKey:CreatureID;constraint:OnDelete:CASCADE"`
	Spell    *Spell    `json:"spell,omitempty" gorm:"foreignKey:SpellID"`
}
