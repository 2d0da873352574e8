package engine_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/engine"
)

// zeroRand always returns a zero offset, removing variance from rolls.
type zeroRand struct{}

func (zeroRand) Offset(int) int { return 0 }

// maxRand always returns the extreme negative offset.
type minRand struct{}

func (minRand) Offset(magnitude int) int { return -magnitude }

type participantOpts struct {
	team       int
	hp         int
	maxHP      int
	damage     int
	initiative int
	experience int
	name       string
}

func newParticipant(opts participantOpts) *domain.BattleParticipant {
	if opts.maxHP == 0 {
		opts.maxHP = 100
	}
	if opts.name == "" {
		opts.name = "Zawo"
	}
	return &domain.BattleParticipant{
		ID:        uuid.New(),
		PlayerID:  uuid.New(),
		Team:      opts.team,
		CurrentHP: opts.hp,
		Creature: &domain.Creature{
			ID:         uuid.New(),
			Name:       opts.name,
			MaxHP:      opts.maxHP,
			Damage:     opts.damage,
			Initiative: opts.initiative,
			Experience: opts.experience,
		},
	}
}

func withMove(p *domain.BattleParticipant, spell *domain.Spell) *domain.BattleParticipant {
	p.SelectedSpellID = &spell.ID
	p.HasConfirmedMove = true
	return p
}

func damageSpell(power int) *domain.Spell {
	return &domain.Spell{
		ID:             uuid.New(),
		Name:           "Fireball",
		Classification: domain.SpellClassDamage,
		BasePower:      power,
	}
}

func healSpell(power int) *domain.Spell {
	return &domain.Spell{
		ID:             uuid.New(),
		Name:           "Heal",
		Classification: domain.SpellClassHeal,
		BasePower:      power,
	}
}

func TestCalculateDamage_WithinVarianceBounds(t *testing.T) {
	e := engine.New(engine.NewRand(42))
	caster := newParticipant(participantOpts{team: 1, hp: 100, damage: 25})
	spell := damageSpell(25)

	// base 50, variance ±10
	for i := 0; i < 1000; i++ {
		dmg := e.CalculateDamage(caster, spell)
		assert.GreaterOrEqual(t, dmg, 40)
		assert.LessOrEqual(t, dmg, 60)
	}
}

func TestCalculateDamage_NeverBelowOne(t *testing.T) {
	e := engine.New(minRand{})
	caster := newParticipant(participantOpts{team: 1, hp: 100, damage: 0})

	dmg := e.CalculateDamage(caster, damageSpell(0))
	assert.Equal(t, 1, dmg)
}

func TestCalculateHeal_CappedAtMaxHP(t *testing.T) {
	e := engine.New(zeroRand{})

	tests := []struct {
		name      string
		currentHP int
		maxHP     int
		power     int
		want      int
	}{
		{"full room", 50, 100, 30, 30},
		{"capped", 90, 100, 30, 10},
		{"already full", 100, 100, 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := newParticipant(participantOpts{team: 1, hp: tt.currentHP, maxHP: tt.maxHP})
			got := e.CalculateHeal(target, healSpell(tt.power))
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, target.CurrentHP+got, tt.maxHP)
		})
	}
}

func TestTurnOrder_FiltersAndSorts(t *testing.T) {
	e := engine.New(zeroRand{})
	spell := damageSpell(25)

	fast := withMove(newParticipant(participantOpts{team: 1, hp: 100, initiative: 20, name: "Fast"}), spell)
	slow := withMove(newParticipant(participantOpts{team: 2, hp: 100, initiative: 5, name: "Slow"}), spell)
	dead := withMove(newParticipant(participantOpts{team: 2, hp: 0, initiative: 50, name: "Dead"}), spell)
	unconfirmed := newParticipant(participantOpts{team: 1, hp: 100, initiative: 40, name: "Lazy"})
	unconfirmed.SelectedSpellID = &spell.ID

	order := e.TurnOrder([]*domain.BattleParticipant{slow, unconfirmed, dead, fast})

	require.Len(t, order, 2)
	assert.Equal(t, "Fast", order[0].Creature.Name)
	assert.Equal(t, "Slow", order[1].Creature.Name)
}

func TestTurnOrder_TieBreaks(t *testing.T) {
	e := engine.New(zeroRand{})
	spell := damageSpell(25)

	// Same initiative: higher level (exp/100) wins, then raw experience,
	// then name ascending.
	veteran := withMove(newParticipant(participantOpts{team: 1, hp: 100, initiative: 10, experience: 250, name: "Veteran"}), spell)
	senior := withMove(newParticipant(participantOpts{team: 2, hp: 100, initiative: 10, experience: 150, name: "Senior"}), spell)
	alpha := withMove(newParticipant(participantOpts{team: 1, hp: 100, initiative: 10, experience: 120, name: "Alpha"}), spell)
	beta := withMove(newParticipant(participantOpts{team: 2, hp: 100, initiative: 10, experience: 120, name: "Beta"}), spell)

	order := e.TurnOrder([]*domain.BattleParticipant{beta, senior, alpha, veteran})

	require.Len(t, order, 4)
	assert.Equal(t, "Veteran", order[0].Creature.Name)
	assert.Equal(t, "Senior", order[1].Creature.Name)
	assert.Equal(t, "Alpha", order[2].Creature.Name)
	assert.Equal(t, "Beta", order[3].Creature.Name)
}

func TestTurnOrder_Deterministic(t *testing.T) {
	e := engine.New(engine.NewRand(7))
	spell := damageSpell(25)

	participants := []*domain.BattleParticipant{
		withMove(newParticipant(participantOpts{team: 1, hp: 100, initiative: 12, name: "A"}), spell),
		withMove(newParticipant(participantOpts{team: 2, hp: 100, initiative: 12, name: "B"}), spell),
		withMove(newParticipant(participantOpts{team: 1, hp: 100, initiative: 30, name: "C"}), spell),
	}

	first := e.TurnOrder(participants)
	for i := 0; i < 10; i++ {
		again := e.TurnOrder(participants)
		require.Equal(t, first, again)
	}
}

func TestResolveTargets(t *testing.T) {
	e := engine.New(zeroRand{})

	caster := newParticipant(participantOpts{team: 1, hp: 100})
	ally := newParticipant(participantOpts{team: 1, hp: 50})
	enemy := newParticipant(participantOpts{team: 2, hp: 100})
	deadEnemy := newParticipant(participantOpts{team: 2, hp: 0})
	all := []*domain.BattleParticipant{caster, ally, deadEnemy, enemy}

	t.Run("explicit target wins", func(t *testing.T) {
		caster.SelectedTargetID = &ally.ID
		targets := e.ResolveTargets(caster, damageSpell(25), all)
		require.Len(t, targets, 1)
		assert.Equal(t, ally.ID, targets[0].ID)
		caster.SelectedTargetID = nil
	})

	t.Run("heal defaults to self", func(t *testing.T) {
		targets := e.ResolveTargets(caster, healSpell(30), all)
		require.Len(t, targets, 1)
		assert.Equal(t, caster.ID, targets[0].ID)
	})

	t.Run("damage defaults to first living enemy", func(t *testing.T) {
		targets := e.ResolveTargets(caster, damageSpell(25), all)
		require.Len(t, targets, 1)
		assert.Equal(t, enemy.ID, targets[0].ID)
	})

	t.Run("no living enemy yields nothing", func(t *testing.T) {
		enemy.CurrentHP = 0
		defer func() { enemy.CurrentHP = 100 }()
		targets := e.ResolveTargets(caster, damageSpell(25), all)
		assert.Empty(t, targets)
	})
}

func TestExecuteTurn_DamagePass(t *testing.T) {
	e := engine.New(zeroRand{})
	spell := damageSpell(25)

	attacker := withMove(newParticipant(participantOpts{team: 1, hp: 100, damage: 0, initiative: 10, name: "Attacker"}), spell)
	defender := newParticipant(participantOpts{team: 2, hp: 100, name: "Defender"})
	battle := &domain.Battle{ID: uuid.New(), Phase: domain.BattlePhaseSelection, CurrentTurn: 0}
	participants := []*domain.BattleParticipant{attacker, defender}
	spells := map[uuid.UUID]*domain.Spell{spell.ID: spell}

	actions, err := e.ExecuteTurn(battle, participants, spells)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionTypeDamageDealt, actions[0].ActionType)
	assert.Equal(t, 25, actions[0].DamageAmount)
	assert.Equal(t, 75, actions[0].TargetHPAfter)
	assert.True(t, actions[0].TargetAliveAfter)
	assert.Equal(t, 1, actions[0].ActionOrder)
	assert.Equal(t, 0, actions[0].TurnNumber)

	assert.Equal(t, 75, defender.CurrentHP)
	assert.Equal(t, 1, battle.CurrentTurn)
	assert.Equal(t, domain.BattlePhaseCombat, battle.Phase)
	assert.Equal(t, engine.OutcomeNone, e.CheckBattleEnd(participants))

	// Selections are cleared for the next turn.
	assert.Nil(t, attacker.SelectedSpellID)
	assert.False(t, attacker.HasConfirmedMove)
}

func TestExecuteTurn_KillsAndEndCondition(t *testing.T) {
	e := engine.New(zeroRand{})
	spell := damageSpell(25)

	attacker := withMove(newParticipant(participantOpts{team: 1, hp: 100, damage: 0, initiative: 10}), spell)
	defender := newParticipant(participantOpts{team: 2, hp: 20, name: "Doomed"})
	battle := &domain.Battle{ID: uuid.New(), Phase: domain.BattlePhaseCombat, CurrentTurn: 3}
	participants := []*domain.BattleParticipant{attacker, defender}

	actions, err := e.ExecuteTurn(battle, participants, map[uuid.UUID]*domain.Spell{spell.ID: spell})
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, 0, actions[0].TargetHPAfter)
	assert.False(t, actions[0].TargetAliveAfter)
	assert.Equal(t, engine.OutcomeTeam1, e.CheckBattleEnd(participants))
}

func TestExecuteTurn_DeadCasterSkipped(t *testing.T) {
	e := engine.New(zeroRand{})
	strong := damageSpell(200)
	weak := damageSpell(25)

	// First kills Second before it acts; Second's queued move must not fire.
	first := withMove(newParticipant(participantOpts{team: 1, hp: 100, initiative: 30, name: "First"}), strong)
	second := withMove(newParticipant(participantOpts{team: 2, hp: 50, initiative: 10, name: "Second"}), weak)
	battle := &domain.Battle{ID: uuid.New(), Phase: domain.BattlePhaseCombat}
	participants := []*domain.BattleParticipant{first, second}
	spells := map[uuid.UUID]*domain.Spell{strong.ID: strong, weak.ID: weak}

	actions, err := e.ExecuteTurn(battle, participants, spells)
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, first.ID, actions[0].CasterID)
	assert.Equal(t, 100, first.CurrentHP)
}

func TestExecuteTurn_HealPass(t *testing.T) {
	e := engine.New(zeroRand{})
	spell := healSpell(30)

	healer := withMove(newParticipant(participantOpts{team: 1, hp: 60, initiative: 10, name: "Healer"}), spell)
	enemy := newParticipant(participantOpts{team: 2, hp: 100})
	battle := &domain.Battle{ID: uuid.New(), Phase: domain.BattlePhaseCombat}
	participants := []*domain.BattleParticipant{healer, enemy}

	actions, err := e.ExecuteTurn(battle, participants, map[uuid.UUID]*domain.Spell{spell.ID: spell})
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionTypeHealPerformed, actions[0].ActionType)
	assert.Equal(t, 30, actions[0].HealAmount)
	assert.Equal(t, 90, healer.CurrentHP)
}

func TestExecuteTurn_NoConfirmedMoves(t *testing.T) {
	e := engine.New(zeroRand{})
	battle := &domain.Battle{ID: uuid.New(), Phase: domain.BattlePhaseCombat, CurrentTurn: 2}
	participants := []*domain.BattleParticipant{
		newParticipant(participantOpts{team: 1, hp: 100}),
		newParticipant(participantOpts{team: 2, hp: 100}),
	}

	_, err := e.ExecuteTurn(battle, participants, nil)
	assert.ErrorIs(t, err, domain.ErrNoConfirmedMoves)
	assert.Equal(t, 2, battle.CurrentTurn, "turn must not advance when nothing was evaluated")
}

func TestCheckBattleEnd(t *testing.T) {
	e := engine.New(zeroRand{})

	tests := []struct {
		name    string
		team1HP []int
		team2HP []int
		want    engine.Outcome
	}{
		{"both alive", []int{50}, []int{50}, engine.OutcomeNone},
		{"one per side dead", []int{0, 50}, []int{0, 30}, engine.OutcomeNone},
		{"team1 wiped", []int{0, 0}, []int{10}, engine.OutcomeTeam2},
		{"team2 wiped", []int{10}, []int{0}, engine.OutcomeTeam1},
		{"mutual destruction", []int{0}, []int{0}, engine.OutcomeDraw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var participants []*domain.BattleParticipant
			for _, hp := range tt.team1HP {
				participants = append(participants, newParticipant(participantOpts{team: 1, hp: hp}))
			}
			for _, hp := range tt.team2HP {
				participants = append(participants, newParticipant(participantOpts{team: 2, hp: hp}))
			}
			assert.Equal(t, tt.want, e.CheckBattleEnd(participants))
		})
	}
}
