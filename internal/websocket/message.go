package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
)

type MessageType string

const (
	// Client to Server
	MessageTypeCreateBattle          MessageType = "create_battle"
	MessageTypeJoinBattle            MessageType = "join_battle"
	MessageTypeSelectMove            MessageType = "select_move"
	MessageTypeConfirmReady          MessageType = "confirm_ready"
	MessageTypeSendInvitation        MessageType = "send_game_invitation"
	MessageTypeRespondToInvitation   MessageType = "respond_to_invitation"
	MessageTypeCancelInvitation      MessageType = "cancel_invitation"
	MessageTypeGetPendingInvitations MessageType = "get_pending_invitations"

	// Server to Client
	MessageTypeConnectionEstablished MessageType = "connection_established"
	MessageTypeBattleCreated         MessageType = "battle_created"
	MessageTypeBattleStarted         MessageType = "battle_started"
	MessageTypeMoveSelected          MessageType = "move_selected"
	MessageTypePlayerReady           MessageType = "player_ready"
	MessageTypeTurnResults           MessageType = "turn_results"
	MessageTypeBattleEnded           MessageType = "battle_ended"
	MessageTypeInvitationReceived    MessageType = "game_invitation_received"
	MessageTypeInvitationSent        MessageType = "invitation_sent"
	MessageTypeInvitationAccepted    MessageType = "invitation_accepted"
	MessageTypeInvitationDeclined    MessageType = "invitation_declined"
	MessageTypeInvitationCancelled   MessageType = "invitation_cancelled"
	MessageTypeInvitationExpired     MessageType = "invitation_expired"
	MessageTypePendingInvitations    MessageType = "pending_invitations"
	MessageTypeError                 MessageType = "error"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Client to Server payloads

type CreateBattlePayload struct {
	BattleType    string      `json:"battle_type"`
	TeamCreatures []uuid.UUID `json:"team_creatures"`
}

type JoinBattlePayload struct {
	BattleID          uuid.UUID   `json:"battle_id"`
	TeamCreatures     []uuid.UUID `json:"team_creatures"`
	OpponentCreatures []uuid.UUID `json:"opponent_creatures"`
}

type SelectMovePayload struct {
	CreatureID uuid.UUID  `json:"creature_id"`
	SpellID    uuid.UUID  `json:"spell_id"`
	TargetID   *uuid.UUID `json:"target_id,omitempty"`
}

type SendInvitationPayload struct {
	ReceiverID      uuid.UUID   `json:"receiver_id"`
	InvitationType  string      `json:"invitation_type"`
	SenderCreatures []uuid.UUID `json:"sender_creatures"`
}

type RespondToInvitationPayload struct {
	InvitationID      uuid.UUID   `json:"invitation_id"`
	Response          string      `json:"response"` // "accepted" or "declined"
	ReceiverCreatures []uuid.UUID `json:"receiver_creatures,omitempty"`
}

type CancelInvitationPayload struct {
	InvitationID uuid.UUID `json:"invitation_id"`
}

// Server to Client payloads

type ConnectionEstablishedPayload struct {
	PlayerID uuid.UUID `json:"player_id"`
}

type BattleCreatedPayload struct {
	BattleID   uuid.UUID `json:"battle_id"`
	BattleType string    `json:"battle_type"`
	Phase      string    `json:"phase"`
}

type BattleStartedPayload struct {
	BattleID     uuid.UUID         `json:"battle_id"`
	BattleType   string            `json:"battle_type"`
	Phase        string            `json:"phase"`
	CurrentTurn  int               `json:"current_turn"`
	Participants []ParticipantView `json:"participants"`
}

type MoveSelectedPayload struct {
	CreatureID uuid.UUID  `json:"creature_id"`
	SpellID    uuid.UUID  `json:"spell_id"`
	TargetID   *uuid.UUID `json:"target_id,omitempty"`
}

type PlayerReadyPayload struct {
	PlayerID   uuid.UUID `json:"player_id"`
	Team1Ready bool      `json:"team1_ready"`
	Team2Ready bool      `json:"team2_ready"`
}

type TurnResultsPayload struct {
	TurnNumber   int               `json:"turn_number"`
	Actions      []ActionView      `json:"actions"`
	Participants []ParticipantView `json:"participants"`
}

type BattleEndedPayload struct {
	Winner  *uuid.UUID   `json:"winner"`
	Outcome string       `json:"outcome"`
	Actions []ActionView `json:"actions"`
}

type InvitationView struct {
	ID              uuid.UUID   `json:"id"`
	SenderID        uuid.UUID   `json:"sender_id"`
	SenderName      string      `json:"sender_name,omitempty"`
	ReceiverID      uuid.UUID   `json:"receiver_id"`
	InvitationType  string      `json:"invitation_type"`
	Status          string      `json:"status"`
	SenderCreatures []uuid.UUID `json:"sender_creatures"`
	ExpiresAt       int64       `json:"expires_at"`
	BattleID        *uuid.UUID  `json:"battle_id,omitempty"`
}

// InvitationRespondedPayload is sent to both parties; Battle is the
// bootstrap state and is present only on acceptance.
type InvitationRespondedPayload struct {
	Invitation InvitationView        `json:"invitation"`
	Battle     *BattleStartedPayload `json:"battle,omitempty"`
}

type PendingInvitationsPayload struct {
	Invitations []InvitationView `json:"invitations"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParticipantView is the wire shape of one in-battle creature.
type ParticipantView struct {
	ID            uuid.UUID `json:"id"`
	PlayerID      uuid.UUID `json:"player_id"`
	CreatureID    uuid.UUID `json:"creature_id"`
	CreatureName  string    `json:"creature_name,omitempty"`
	Team          int       `json:"team"`
	CurrentHP     int       `json:"current_hp"`
	MaxHP         int       `json:"max_hp,omitempty"`
	CurrentEnergy int       `json:"current_energy"`
	Alive         bool      `json:"alive"`
	Confirmed     bool      `json:"confirmed"`
}

// ActionView is the wire shape of one resolved battle effect.
type ActionView struct {
	TurnNumber       int        `json:"turn_number"`
	ActionOrder      int        `json:"action_order"`
	ActionType       string     `json:"action_type"`
	CasterID         uuid.UUID  `json:"caster_id"`
	TargetID         *uuid.UUID `json:"target_id,omitempty"`
	SpellID          *uuid.UUID `json:"spell_id,omitempty"`
	DamageAmount     int        `json:"damage_amount"`
	HealAmount       int        `json:"heal_amount"`
	TargetHPAfter    int        `json:"target_hp_after"`
	TargetAliveAfter bool       `json:"target_alive_after"`
}

func NewParticipantView(p *domain.BattleParticipant) ParticipantView {
	view := ParticipantView{
		ID:            p.ID,
		PlayerID:      p.PlayerID,
		CreatureID:    p.CreatureID,
		Team:          p.Team,
		CurrentHP:     p.CurrentHP,
		CurrentEnergy: p.CurrentEnergy,
		Alive:         p.IsAlive(),
		Confirmed:     p.HasConfirmedMove,
	}
	if p.Creature != nil {
		view.CreatureName = p.Creature.Name
		view.MaxHP = p.Creature.MaxHP
	}
	return view
}

func NewParticipantViews(participants []*domain.BattleParticipant) []ParticipantView {
	views := make([]ParticipantView, len(participants))
	for i, p := range participants {
		views[i] = NewParticipantView(p)
	}
	return views
}

func NewActionView(a *domain.BattleAction) ActionView {
	return ActionView{
		TurnNumber:       a.TurnNumber,
		ActionOrder:      a.ActionOrder,
		ActionType:       string(a.ActionType),
		CasterID:         a.CasterID,
		TargetID:         a.TargetID,
		SpellID:          a.SpellUsedID,
		DamageAmount:     a.DamageAmount,
		HealAmount:       a.HealAmount,
		TargetHPAfter:    a.TargetHPAfter,
		TargetAliveAfter: a.TargetAliveAfter,
	}
}

func NewActionViews(actions []*domain.BattleAction) []ActionView {
	views := make([]ActionView, len(actions))
	for i, a := range actions {
		views[i] = NewActionView(a)
	}
	return views
}

func NewInvitationView(inv *domain.GameInvitation) InvitationView {
	view := InvitationView{
		ID:             inv.ID,
		SenderID:       inv.SenderID,
		ReceiverID:     inv.ReceiverID,
		InvitationType: string(inv.InvitationType),
		Status:         string(inv.Status),
		ExpiresAt:      inv.ExpiresAt.UnixMilli(),
		BattleID:       inv.BattleID,
	}
	if inv.Sender != nil {
		view.SenderName = inv.Sender.Username
	}
	_ = json.Unmarshal(inv.SenderCreatures, &view.SenderCreatures)
	return view
}

func NewInvitationViews(invitations []*domain.GameInvitation) []InvitationView {
	views := make([]InvitationView, len(invitations))
	for i, inv := range invitations {
		views[i] = NewInvitationView(inv)
	}
	return views
}
