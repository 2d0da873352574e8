package engine

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
)

// Rand supplies the bounded variance offsets mixed into damage and heal
// rolls. Injectable so battle outcomes are reproducible under a fixed seed.
type Rand interface {
	// Offset returns a uniformly distributed value in [-magnitude, magnitude].
	Offset(magnitude int) int
}

type seededRand struct {
	r *rand.Rand
}

func NewRand(seed int64) Rand {
	return &seededRand{r: rand.New(rand.NewSource(seed))}
}

func (s *seededRand) Offset(magnitude int) int {
	if magnitude <= 0 {
		return 0
	}
	return s.r.Intn(2*magnitude+1) - magnitude
}

// Outcome is the result of an end-condition check.
type Outcome string

const (
	OutcomeNone  Outcome = "none"
	OutcomeDraw  Outcome = "draw"
	OutcomeTeam1 Outcome = "team1"
	OutcomeTeam2 Outcome = "team2"
)

// WinnerTeam returns the winning team number, or 0 for draw/none.
func (o Outcome) WinnerTeam() int {
	switch o {
	case OutcomeTeam1:
		return 1
	case OutcomeTeam2:
		return 2
	}
	return 0
}

// Engine performs all authoritative battle computation. It mutates only the
// in-memory records handed to it; persisting the results atomically is the
// caller's responsibility.
type Engine struct {
	rng Rand
}

func New(rng Rand) *Engine {
	return &Engine{rng: rng}
}

// TurnOrder filters to participants that are alive, have a selected spell
// and have confirmed their move, sorted by total initiative descending with
// level, experience and creature name as deterministic tie-breaks. Repeated
// calls over the same participant set yield an identical sequence.
func (e *Engine) TurnOrder(participants []*domain.BattleParticipant) []*domain.BattleParticipant {
	ordered := make([]*domain.BattleParticipant, 0, len(participants))
	for _, p := range participants {
		if p.IsAlive() && p.SelectedSpellID != nil && p.HasConfirmedMove {
			ordered = append(ordered, p)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.TotalInitiative() != b.TotalInitiative() {
			return a.TotalInitiative() > b.TotalInitiative()
		}
		if a.Creature.Level() != b.Creature.Level() {
			return a.Creature.Level() > b.Creature.Level()
		}
		if a.Creature.Experience != b.Creature.Experience {
			return a.Creature.Experience > b.Creature.Experience
		}
		return a.Creature.Name < b.Creature.Name
	})

	return ordered
}

// CalculateDamage is the creature's damage stat plus the spell's base power,
// with ±20% uniform variance. Never returns less than 1.
func (e *Engine) CalculateDamage(caster *domain.BattleParticipant, spell *domain.Spell) int {
	total := caster.Creature.Damage + spell.BasePower
	total += e.rng.Offset(total * 20 / 100)
	if total < 1 {
		return 1
	}
	return total
}

// CalculateHeal is the spell's base power with ±15% variance, capped so the
// target never exceeds its max hp. Never negative.
func (e *Engine) CalculateHeal(target *domain.BattleParticipant, spell *domain.Spell) int {
	amount := spell.BasePower
	amount += e.rng.Offset(amount * 15 / 100)

	if room := target.Creature.MaxHP - target.CurrentHP; amount > room {
		amount = room
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// ResolveTargets picks the spell's targets: the explicit selection when one
// was made, otherwise self for heals and the first living enemy for damage
// spells. Returns an empty list when no valid enemy exists.
func (e *Engine) ResolveTargets(caster *domain.BattleParticipant, spell *domain.Spell, participants []*domain.BattleParticipant) []*domain.BattleParticipant {
	if caster.SelectedTargetID != nil {
		for _, p := range participants {
			if p.ID == *caster.SelectedTargetID {
				return []*domain.BattleParticipant{p}
			}
		}
	}

	if spell.Classification == domain.SpellClassHeal {
		return []*domain.BattleParticipant{caster}
	}

	for _, p := range participants {
		if p.Team != caster.Team && p.IsAlive() {
			return []*domain.BattleParticipant{p}
		}
	}
	return nil
}

// ExecuteTurn resolves one full turn in memory: it computes the turn order
// once, applies each pending move in that order, emits one action per
// resolved effect with a strictly increasing action_order, resets every
// participant's move selection and advances the turn counter. Executing a
// turn with nothing to resolve is an invariant violation, not a no-op.
func (e *Engine) ExecuteTurn(battle *domain.Battle, participants []*domain.BattleParticipant, spells map[uuid.UUID]*domain.Spell) ([]*domain.BattleAction, error) {
	order := e.TurnOrder(participants)
	if len(order) == 0 {
		return nil, domain.ErrNoConfirmedMoves
	}

	var actions []*domain.BattleAction
	actionOrder := 0

	for _, caster := range order {
		if !caster.IsAlive() || caster.SelectedSpellID == nil {
			// May have been killed earlier this turn.
			continue
		}

		spell, ok := spells[*caster.SelectedSpellID]
		if !ok {
			return nil, domain.ErrSpellNotFound
		}
		actionOrder++

		for _, target := range e.ResolveTargets(caster, spell, participants) {
			action := &domain.BattleAction{
				ID:          uuid.New(),
				BattleID:    battle.ID,
				TurnNumber:  battle.CurrentTurn,
				ActionOrder: actionOrder,
				CasterID:    caster.ID,
				TargetID:    &target.ID,
				SpellUsedID: &spell.ID,
			}

			if spell.Classification == domain.SpellClassHeal {
				heal := e.CalculateHeal(target, spell)
				target.CurrentHP += heal
				if target.CurrentHP > target.Creature.MaxHP {
					target.CurrentHP = target.Creature.MaxHP
				}
				action.ActionType = domain.ActionTypeHealPerformed
				action.HealAmount = heal
			} else {
				damage := e.CalculateDamage(caster, spell)
				target.CurrentHP -= damage
				if target.CurrentHP < 0 {
					target.CurrentHP = 0
				}
				action.ActionType = domain.ActionTypeDamageDealt
				action.DamageAmount = damage
			}

			action.TargetHPAfter = target.CurrentHP
			action.TargetAliveAfter = target.IsAlive()
			actions = append(actions, action)
		}
	}

	for _, p := range participants {
		p.ResetMoveSelection()
	}

	if battle.Phase == domain.BattlePhaseSelection {
		battle.Phase = domain.BattlePhaseCombat
	}
	battle.CurrentTurn++

	return actions, nil
}

// CheckBattleEnd reports the current end condition over the participant set.
func (e *Engine) CheckBattleEnd(participants []*domain.BattleParticipant) Outcome {
	team1Alive := false
	team2Alive := false
	for _, p := range participants {
		if !p.IsAlive() {
			continue
		}
		switch p.Team {
		case 1:
			team1Alive = true
		case 2:
			team2Alive = true
		}
	}

	switch {
	case !team1Alive && !team2Alive:
		return OutcomeDraw
	case !team1Alive:
		return OutcomeTeam2
	case !team2Alive:
		return OutcomeTeam1
	}
	return OutcomeNone
}
