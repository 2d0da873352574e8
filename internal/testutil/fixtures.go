package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"gorm.io/gorm"
)

// PlayerBuilder creates test players with a builder pattern
type PlayerBuilder struct {
	username   string
	experience int
}

func NewPlayerBuilder() *PlayerBuilder {
	return &PlayerBuilder{
		username: fmt.Sprintf("player_%s", uuid.New().String()[:8]),
	}
}

func (b *PlayerBuilder) WithUsername(name string) *PlayerBuilder {
	b.username = name
	return b
}

func (b *PlayerBuilder) WithExperience(exp int) *PlayerBuilder {
	b.experience = exp
	return b
}

func (b *PlayerBuilder) Build(t *testing.T, db *gorm.DB) *domain.Player {
	t.Helper()

	player := &domain.Player{
		ID:         uuid.New(),
		Username:   b.username,
		Experience: b.experience,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := db.Create(player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	return player
}

// SpellBuilder creates catalog spells
type SpellBuilder struct {
	name           string
	classification domain.SpellClass
	basePower      int
}

func NewSpellBuilder() *SpellBuilder {
	return &SpellBuilder{
		name:           fmt.Sprintf("spell_%s", uuid.New().String()[:8]),
		classification: domain.SpellClassDamage,
		basePower:      25,
	}
}

func (b *SpellBuilder) WithName(name string) *SpellBuilder {
	b.name = name
	return b
}

func (b *SpellBuilder) Heal() *SpellBuilder {
	b.classification = domain.SpellClassHeal
	return b
}

func (b *SpellBuilder) WithBasePower(power int) *SpellBuilder {
	b.basePower = power
	return b
}

func (b *SpellBuilder) Build(t *testing.T, db *gorm.DB) *domain.Spell {
	t.Helper()

	spell := &domain.Spell{
		ID:             uuid.New(),
		Name:           b.name,
		Classification: b.classification,
		BasePower:      b.basePower,
	}
	if err := db.Create(spell).Error; err != nil {
		t.Fatalf("failed to create spell: %v", err)
	}
	return spell
}

// CreatureBuilder creates creatures, optionally teaching them spells
type CreatureBuilder struct {
	owner      *domain.Player
	name       string
	experience int
	maxHP      int
	currentHP  int
	energy     int
	damage     int
	initiative int
	spells     []*domain.Spell
}

func NewCreatureBuilder(owner *domain.Player) *CreatureBuilder {
	return &CreatureBuilder{
		owner:      owner,
		name:       fmt.Sprintf("creature_%s", uuid.New().String()[:8]),
		maxHP:      100,
		currentHP:  100,
		energy:     50,
		damage:     25,
		initiative: 10,
	}
}

func (b *CreatureBuilder) WithName(name string) *CreatureBuilder {
	b.name = name
	return b
}

func (b *CreatureBuilder) WithHP(current, max int) *CreatureBuilder {
	b.currentHP = current
	b.maxHP = max
	return b
}

func (b *CreatureBuilder) WithDamage(damage int) *CreatureBuilder {
	b.damage = damage
	return b
}

func (b *CreatureBuilder) WithInitiative(initiative int) *CreatureBuilder {
	b.initiative = initiative
	return b
}

func (b *CreatureBuilder) WithExperience(exp int) *CreatureBuilder {
	b.experience = exp
	return b
}

// Knowing teaches the creature these spells when built.
func (b *CreatureBuilder) Knowing(spells ...*domain.Spell) *CreatureBuilder {
	b.spells = append(b.spells, spells...)
	return b
}

func (b *CreatureBuilder) Build(t *testing.T, db *gorm.DB) *domain.Creature {
	t.Helper()

	creature := &domain.Creature{
		ID:            uuid.New(),
		OwnerID:       &b.owner.ID,
		Name:          b.name,
		Experience:    b.experience,
		MaxHP:         b.maxHP,
		CurrentHP:     b.currentHP,
		MaxEnergy:     b.energy,
		CurrentEnergy: b.energy,
		Damage:        b.damage,
		Initiative:    b.initiative,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(creature).Error; err != nil {
		t.Fatalf("failed to create creature: %v", err)
	}

	for _, spell := range b.spells {
		link := &domain.CreatureSpell{
			ID:         uuid.New(),
			CreatureID: creature.ID,
			SpellID:    spell.ID,
		}
		if err := db.Create(link).Error; err != nil {
			t.Fatalf("failed to teach spell: %v", err)
		}
	}

	return creature
}

// AuthToken issues a token for the player through the real auth service.
func AuthToken(t *testing.T, ts *TestServer, player *domain.Player) string {
	t.Helper()

	token, err := ts.Services.Auth.IssueToken(player)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}
