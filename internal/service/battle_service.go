package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/engine"
	"github.com/zawomons/battle-server/internal/repository"
	"gorm.io/gorm"
)

const (
	winnerBaseExperience = 50
	winnerTurnExperience = 5
	loserBaseExperience  = 10
	loserTurnExperience  = 2
)

// BattleService owns battle lifecycle: matchmaking, move selection and turn
// execution. The canonical state lives in the store; every mutation re-reads
// and re-validates before writing.
type BattleService struct {
	repos  *repository.Repositories
	tx     repository.TxManager
	engine *engine.Engine

	// One mutex per battle id. Turn execution is the single critical
	// section per battle: two confirm_ready calls racing to satisfy the
	// barrier must resolve the turn exactly once.
	locks sync.Map
}

func NewBattleService(repos *repository.Repositories, tx repository.TxManager, eng *engine.Engine) *BattleService {
	return &BattleService{
		repos:  repos,
		tx:     tx,
		engine: eng,
	}
}

func (s *BattleService) battleLock(battleID uuid.UUID) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(battleID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// releaseLock drops a battle's lock entry once no further turns can execute,
// so finished battles don't pin their mutexes for the process lifetime.
func (s *BattleService) releaseLock(battleID uuid.UUID) {
	s.locks.Delete(battleID)
}

// CreateBattle allocates a waiting battle with player1 and no participants.
func (s *BattleService) CreateBattle(ctx context.Context, player1ID uuid.UUID, battleType domain.BattleType) (*domain.Battle, error) {
	battle := &domain.Battle{
		ID:        uuid.New(),
		Type:      battleType,
		Phase:     domain.BattlePhaseWaiting,
		Player1ID: player1ID,
		CreatedAt: time.Now(),
	}
	if err := s.repos.Battle.Create(ctx, battle); err != nil {
		return nil, err
	}
	return battle, nil
}

// JoinBattle attaches player2 and enrolls both teams' creatures. Creature ids
// that fail ownership verification are skipped rather than failing the join;
// hp and energy are snapshot from the creatures' live stats at this moment.
// Serialized per battle so two racing joins cannot both claim the empty slot.
func (s *BattleService) JoinBattle(ctx context.Context, battleID, player2ID uuid.UUID, team1CreatureIDs, team2CreatureIDs []uuid.UUID) (*domain.Battle, []*domain.BattleParticipant, error) {
	lock := s.battleLock(battleID)
	lock.Lock()
	defer lock.Unlock()

	var battle *domain.Battle
	var participants []*domain.BattleParticipant
	err := s.tx.Do(ctx, func(r *repository.Repositories) error {
		var err error
		battle, err = r.Battle.GetByID(ctx, battleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBattleNotFound
			}
			return err
		}
		if battle.Player1ID == player2ID {
			return domain.ErrSelfBattle
		}
		if battle.Player2ID != nil {
			return domain.ErrBattleFull
		}
		if battle.IsFinished() {
			return domain.ErrBattleFinished
		}

		now := time.Now()
		battle.Player2ID = &player2ID
		battle.Phase = domain.BattlePhaseSelection
		battle.StartedAt = &now
		if err := r.Battle.Update(ctx, battle); err != nil {
			return err
		}

		team1, err := r.Creature.GetOwnedByIDs(ctx, battle.Player1ID, team1CreatureIDs)
		if err != nil {
			return err
		}
		team2, err := r.Creature.GetOwnedByIDs(ctx, player2ID, team2CreatureIDs)
		if err != nil {
			return err
		}

		enroll := func(playerID uuid.UUID, team int, creatures []*domain.Creature) error {
			for _, creature := range creatures {
				p := &domain.BattleParticipant{
					ID:            uuid.New(),
					BattleID:      battle.ID,
					PlayerID:      playerID,
					CreatureID:    creature.ID,
					Team:          team,
					CurrentHP:     creature.CurrentHP,
					CurrentEnergy: creature.CurrentEnergy,
				}
				if err := r.Participant.Create(ctx, p); err != nil {
					return err
				}
				p.Creature = creature
				participants = append(participants, p)
			}
			return nil
		}
		if err := enroll(battle.Player1ID, 1, team1); err != nil {
			return err
		}
		return enroll(player2ID, 2, team2)
	})
	if err != nil {
		return nil, nil, err
	}

	return battle, participants, nil
}

func (s *BattleService) GetBattle(ctx context.Context, battleID uuid.UUID) (*domain.Battle, error) {
	battle, err := s.repos.Battle.GetByID(ctx, battleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBattleNotFound
		}
		return nil, err
	}
	return battle, nil
}

func (s *BattleService) GetParticipants(ctx context.Context, battleID uuid.UUID) ([]*domain.BattleParticipant, error) {
	return s.repos.Participant.GetByBattle(ctx, battleID)
}

func (s *BattleService) GetActions(ctx context.Context, battleID uuid.UUID) ([]*domain.BattleAction, error) {
	return s.repos.Action.GetByBattle(ctx, battleID)
}

// IsParticipant reports whether the player is one of the battle's two sides.
func (s *BattleService) IsParticipant(battle *domain.Battle, playerID uuid.UUID) bool {
	if battle.Player1ID == playerID {
		return true
	}
	return battle.Player2ID != nil && *battle.Player2ID == playerID
}

// SelectMove records a pending move for one of the caller's participants.
// The target, when given, is addressed by creature id like the caster.
func (s *BattleService) SelectMove(ctx context.Context, battleID, playerID, creatureID, spellID uuid.UUID, targetCreatureID *uuid.UUID) (*domain.BattleParticipant, error) {
	battle, err := s.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if !battle.Active() {
		return nil, domain.ErrBattleNotActive
	}

	participant, err := s.repos.Participant.GetByBattleAndCreature(ctx, battleID, creatureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotParticipant
		}
		return nil, err
	}
	if participant.PlayerID != playerID {
		return nil, domain.ErrCreatureNotOwned
	}
	if !participant.IsAlive() {
		return nil, domain.ErrParticipantDead
	}

	known, err := s.repos.Spell.KnownBy(ctx, creatureID, spellID)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, domain.ErrSpellNotKnown
	}

	var targetParticipantID *uuid.UUID
	if targetCreatureID != nil {
		target, err := s.repos.Participant.GetByBattleAndCreature(ctx, battleID, *targetCreatureID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrInvalidTarget
			}
			return nil, err
		}
		targetParticipantID = &target.ID
	}

	participant.SelectedSpellID = &spellID
	participant.SelectedTargetID = targetParticipantID
	participant.HasConfirmedMove = false
	if err := s.repos.Participant.Update(ctx, participant); err != nil {
		return nil, err
	}

	return participant, nil
}

// TurnResult is the outcome of one confirm_ready call. When the barrier was
// not yet satisfied only the readiness flags are meaningful; when a turn
// executed it carries the resolved actions, the refreshed participant state
// and, for a finished battle, the outcome.
type TurnResult struct {
	Battle       *domain.Battle
	Participants []*domain.BattleParticipant
	Actions      []*domain.BattleAction
	Executed     bool
	Outcome      engine.Outcome
	Team1Ready   bool
	Team2Ready   bool
}

// ConfirmReady marks every alive participant of the caller that has a
// selected spell as confirmed, then executes the turn if every alive
// participant on both teams is now confirmed. Serialized per battle so the
// racing confirmation from the other side cannot double-resolve the turn.
func (s *BattleService) ConfirmReady(ctx context.Context, battleID, playerID uuid.UUID) (*TurnResult, error) {
	lock := s.battleLock(battleID)
	lock.Lock()
	defer lock.Unlock()

	var result *TurnResult
	err := s.tx.Do(ctx, func(r *repository.Repositories) error {
		battle, err := r.Battle.GetByID(ctx, battleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBattleNotFound
			}
			return err
		}
		if !battle.Active() {
			return domain.ErrBattleNotActive
		}
		if !s.IsParticipant(battle, playerID) {
			return domain.ErrNotParticipant
		}

		participants, err := r.Participant.GetByBattle(ctx, battleID)
		if err != nil {
			return err
		}

		for _, p := range participants {
			if p.PlayerID != playerID || !p.IsAlive() || p.SelectedSpellID == nil || p.HasConfirmedMove {
				continue
			}
			p.HasConfirmedMove = true
			if err := r.Participant.Update(ctx, p); err != nil {
				return err
			}
		}

		result = &TurnResult{
			Battle:       battle,
			Participants: participants,
			Team1Ready:   teamReady(participants, 1),
			Team2Ready:   teamReady(participants, 2),
		}
		if !result.Team1Ready || !result.Team2Ready {
			return nil
		}

		return s.executeTurn(ctx, r, result)
	})
	if err != nil {
		return nil, err
	}
	if result.Executed && result.Outcome != engine.OutcomeNone {
		s.releaseLock(battleID)
	}
	return result, nil
}

// executeTurn resolves the turn inside the caller's transaction: actions,
// participant mutations, the battle row and any end-of-battle consequences
// commit or roll back together.
func (s *BattleService) executeTurn(ctx context.Context, r *repository.Repositories, result *TurnResult) error {
	battle := result.Battle
	participants := result.Participants

	spellIDs := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		if p.SelectedSpellID != nil {
			spellIDs = append(spellIDs, *p.SelectedSpellID)
		}
	}
	spellList, err := r.Spell.GetByIDs(ctx, spellIDs)
	if err != nil {
		return err
	}
	spells := make(map[uuid.UUID]*domain.Spell, len(spellList))
	for _, spell := range spellList {
		spells[spell.ID] = spell
	}

	actions, err := s.engine.ExecuteTurn(battle, participants, spells)
	if err != nil {
		return err
	}

	for _, action := range actions {
		if err := r.Action.Create(ctx, action); err != nil {
			return err
		}
	}
	for _, p := range participants {
		if err := r.Participant.Update(ctx, p); err != nil {
			return err
		}
	}

	result.Executed = true
	result.Actions = actions
	result.Outcome = s.engine.CheckBattleEnd(participants)
	if result.Outcome != engine.OutcomeNone {
		if err := s.applyBattleResults(ctx, r, battle, participants, result.Outcome); err != nil {
			return err
		}
	}

	return r.Battle.Update(ctx, battle)
}

// applyBattleResults finishes the battle. Friendly battles carry no
// persistent consequence beyond the battle row itself; ranked battles pay
// out experience to every participating creature (winners earn more, longer
// battles earn more) and sync each creature's stored hp to its battle-end
// hp, floored at 1 so no creature leaves combat dead.
func (s *BattleService) applyBattleResults(ctx context.Context, r *repository.Repositories, battle *domain.Battle, participants []*domain.BattleParticipant, outcome engine.Outcome) error {
	now := time.Now()
	battle.Phase = domain.BattlePhaseFinished
	battle.FinishedAt = &now

	winnerTeam := outcome.WinnerTeam()
	switch winnerTeam {
	case 1:
		battle.WinnerID = &battle.Player1ID
	case 2:
		battle.WinnerID = battle.Player2ID
	}

	if battle.Type != domain.BattleTypeRanked {
		return nil
	}

	for _, p := range participants {
		creature, err := r.Creature.GetByID(ctx, p.CreatureID)
		if err != nil {
			return err
		}

		if p.Team == winnerTeam {
			creature.Experience += winnerBaseExperience + winnerTurnExperience*battle.CurrentTurn
		} else {
			creature.Experience += loserBaseExperience + loserTurnExperience*battle.CurrentTurn
		}

		creature.CurrentHP = p.CurrentHP
		if creature.CurrentHP < 1 {
			creature.CurrentHP = 1
		}
		if err := r.Creature.Update(ctx, creature); err != nil {
			return err
		}
	}

	return nil
}

// teamReady reports whether every alive member of the team has confirmed.
// A wiped team is vacuously ready, which lets the final turn's end check run.
func teamReady(participants []*domain.BattleParticipant, team int) bool {
	for _, p := range participants {
		if p.Team != team || !p.IsAlive() {
			continue
		}
		if !p.HasConfirmedMove {
			return false
		}
	}
	return true
}
