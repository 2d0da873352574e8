package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/service"
)

type BattleHandler struct {
	battleService *service.BattleService
}

func NewBattleHandler(battleService *service.BattleService) *BattleHandler {
	return &BattleHandler{battleService: battleService}
}

// BattleDetailResponse is the REST view of one battle and its participants.
type BattleDetailResponse struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Phase        string                 `json:"phase"`
	Player1ID    string                 `json:"player1Id"`
	Player2ID    string                 `json:"player2Id,omitempty"`
	WinnerID     string                 `json:"winnerId,omitempty"`
	CurrentTurn  int                    `json:"currentTurn"`
	CreatedAt    string                 `json:"createdAt"`
	StartedAt    string                 `json:"startedAt,omitempty"`
	FinishedAt   string                 `json:"finishedAt,omitempty"`
	Participants []BattleParticipantDTO `json:"participants"`
}

type BattleParticipantDTO struct {
	ID            string `json:"id"`
	PlayerID      string `json:"playerId"`
	CreatureID    string `json:"creatureId"`
	CreatureName  string `json:"creatureName,omitempty"`
	Team          int    `json:"team"`
	CurrentHP     int    `json:"currentHp"`
	MaxHP         int    `json:"maxHp,omitempty"`
	CurrentEnergy int    `json:"currentEnergy"`
	Alive         bool   `json:"alive"`
}

// BattleActionDTO is one replay log entry.
type BattleActionDTO struct {
	TurnNumber       int    `json:"turnNumber"`
	ActionOrder      int    `json:"actionOrder"`
	ActionType       string `json:"actionType"`
	CasterID         string `json:"casterId"`
	TargetID         string `json:"targetId,omitempty"`
	SpellID          string `json:"spellId,omitempty"`
	SpellName        string `json:"spellName,omitempty"`
	DamageAmount     int    `json:"damageAmount"`
	HealAmount       int    `json:"healAmount"`
	TargetHPAfter    int    `json:"targetHpAfter"`
	TargetAliveAfter bool   `json:"targetAliveAfter"`
	Timestamp        string `json:"timestamp"`
}

// Get returns one battle with its participant state.
func (h *BattleHandler) Get(w http.ResponseWriter, r *http.Request) {
	battleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid battle id", http.StatusBadRequest)
		return
	}

	battle, err := h.battleService.GetBattle(r.Context(), battleID)
	if err != nil {
		if errors.Is(err, domain.ErrBattleNotFound) {
			http.Error(w, "Battle not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR [BattleHandler.Get] %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	participants, err := h.battleService.GetParticipants(r.Context(), battleID)
	if err != nil {
		log.Printf("ERROR [BattleHandler.Get] loading participants: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := BattleDetailResponse{
		ID:          battle.ID.String(),
		Type:        string(battle.Type),
		Phase:       string(battle.Phase),
		Player1ID:   battle.Player1ID.String(),
		CurrentTurn: battle.CurrentTurn,
		CreatedAt:   battle.CreatedAt.Format(time.RFC3339),
	}
	if battle.Player2ID != nil {
		resp.Player2ID = battle.Player2ID.String()
	}
	if battle.WinnerID != nil {
		resp.WinnerID = battle.WinnerID.String()
	}
	if battle.StartedAt != nil {
		resp.StartedAt = battle.StartedAt.Format(time.RFC3339)
	}
	if battle.FinishedAt != nil {
		resp.FinishedAt = battle.FinishedAt.Format(time.RFC3339)
	}

	resp.Participants = make([]BattleParticipantDTO, len(participants))
	for i, p := range participants {
		dto := BattleParticipantDTO{
			ID:            p.ID.String(),
			PlayerID:      p.PlayerID.String(),
			CreatureID:    p.CreatureID.String(),
			Team:          p.Team,
			CurrentHP:     p.CurrentHP,
			CurrentEnergy: p.CurrentEnergy,
			Alive:         p.IsAlive(),
		}
		if p.Creature != nil {
			dto.CreatureName = p.Creature.Name
			dto.MaxHP = p.Creature.MaxHP
		}
		resp.Participants[i] = dto
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetActions returns the battle's full replay log in execution order.
func (h *BattleHandler) GetActions(w http.ResponseWriter, r *http.Request) {
	battleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid battle id", http.StatusBadRequest)
		return
	}

	if _, err := h.battleService.GetBattle(r.Context(), battleID); err != nil {
		if errors.Is(err, domain.ErrBattleNotFound) {
			http.Error(w, "Battle not found", http.StatusNotFound)
			return
		}
		log.Printf("ERROR [BattleHandler.GetActions] %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	actions, err := h.battleService.GetActions(r.Context(), battleID)
	if err != nil {
		log.Printf("ERROR [BattleHandler.GetActions] loading actions: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	dtos := make([]BattleActionDTO, len(actions))
	for i, a := range actions {
		dto := BattleActionDTO{
			TurnNumber:       a.TurnNumber,
			ActionOrder:      a.ActionOrder,
			ActionType:       string(a.ActionType),
			CasterID:         a.CasterID.String(),
			DamageAmount:     a.DamageAmount,
			HealAmount:       a.HealAmount,
			TargetHPAfter:    a.TargetHPAfter,
			TargetAliveAfter: a.TargetAliveAfter,
			Timestamp:        a.Timestamp.Format(time.RFC3339),
		}
		if a.TargetID != nil {
			dto.TargetID = a.TargetID.String()
		}
		if a.SpellUsedID != nil {
			dto.SpellID = a.SpellUsedID.String()
		}
		if a.SpellUsed != nil {
			dto.SpellName = a.SpellUsed.Name
		}
		dtos[i] = dto
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"actions": dtos})
}
