package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Client is one player's live session. A session follows at most one battle
// at a time; invitation traffic rides the same connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	room     *BattleRoom
	playerID uuid.UUID

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, playerID uuid.UUID) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		playerID: playerID,
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("INVALID_MESSAGE", "Malformed message envelope")
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeCreateBattle:
		var payload CreateBattlePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid create battle payload")
			return
		}
		c.handleCreateBattle(&payload)

	case MessageTypeJoinBattle:
		var payload JoinBattlePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid join battle payload")
			return
		}
		c.handleJoinBattle(&payload)

	case MessageTypeSelectMove:
		var payload SelectMovePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid select move payload")
			return
		}
		if c.room == nil {
			c.sendError("NO_BATTLE", "Join a battle before selecting moves")
			return
		}
		select {
		case c.room.selectMove <- &SelectMoveRequest{Client: c, Payload: payload}:
		case <-c.room.done:
		}

	case MessageTypeConfirmReady:
		if c.room == nil {
			c.sendError("NO_BATTLE", "Join a battle before confirming")
			return
		}
		select {
		case c.room.confirmReady <- c:
		case <-c.room.done:
		}

	case MessageTypeSendInvitation:
		var payload SendInvitationPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid invitation payload")
			return
		}
		c.handleSendInvitation(&payload)

	case MessageTypeRespondToInvitation:
		var payload RespondToInvitationPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid invitation response payload")
			return
		}
		c.handleRespondToInvitation(&payload)

	case MessageTypeCancelInvitation:
		var payload CancelInvitationPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError("INVALID_PAYLOAD", "Invalid cancel invitation payload")
			return
		}
		c.handleCancelInvitation(&payload)

	case MessageTypeGetPendingInvitations:
		c.handleGetPendingInvitations()

	default:
		c.sendError("UNKNOWN_TYPE", "Unknown message type")
	}
}

func (c *Client) handleCreateBattle(payload *CreateBattlePayload) {
	battleType := domain.BattleTypeFriendly
	if payload.BattleType == string(domain.BattleTypeRanked) {
		battleType = domain.BattleTypeRanked
	}

	battle, err := c.hub.services.Battle.CreateBattle(context.Background(), c.playerID, battleType)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	if c.enterRoom(battle.ID) == nil {
		return
	}

	c.sendEvent(MessageTypeBattleCreated, BattleCreatedPayload{
		BattleID:   battle.ID,
		BattleType: string(battle.Type),
		Phase:      string(battle.Phase),
	})
}

func (c *Client) handleJoinBattle(payload *JoinBattlePayload) {
	ctx := context.Background()
	svc := c.hub.services.Battle

	battle, err := svc.GetBattle(ctx, payload.BattleID)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	// A returning player re-enters the broadcast group and gets a fresh
	// snapshot, whether or not an opponent has arrived yet; everyone else
	// takes the empty player2 slot.
	if svc.IsParticipant(battle, c.playerID) {
		if c.enterRoom(battle.ID) == nil {
			return
		}

		participants, err := svc.GetParticipants(ctx, battle.ID)
		if err != nil {
			c.sendServiceError(err)
			return
		}
		c.sendEvent(MessageTypeBattleStarted, battleStartedPayload(battle, participants))
		return
	}

	battle, participants, err := svc.JoinBattle(ctx, payload.BattleID, c.playerID, payload.OpponentCreatures, payload.TeamCreatures)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	room := c.enterRoom(battle.ID)
	if room == nil {
		return
	}
	room.Broadcast(MessageTypeBattleStarted, battleStartedPayload(battle, participants))
}

// enterRoom moves the session into the battle's live room. A session follows
// at most one battle, so any previous room is left first. Joining retries
// through the hub when a room winds down between lookup and join.
func (c *Client) enterRoom(battleID uuid.UUID) *BattleRoom {
	if c.room != nil && c.room.battleID != battleID {
		c.room.Leave(c)
		c.room = nil
	}
	for {
		room := c.hub.GetOrCreateBattleRoom(battleID)
		if room == nil {
			return nil
		}
		if room.Join(c) {
			c.room = room
			return room
		}
	}
}

func (c *Client) handleSendInvitation(payload *SendInvitationPayload) {
	ctx := context.Background()

	invitationType := domain.BattleTypeFriendly
	if payload.InvitationType == string(domain.BattleTypeRanked) {
		invitationType = domain.BattleTypeRanked
	}

	invitation, err := c.hub.services.Invitation.SendInvitation(ctx, c.playerID, payload.ReceiverID, invitationType, payload.SenderCreatures)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	if sender, err := c.hub.services.Auth.GetPlayerByID(ctx, c.playerID); err == nil {
		invitation.Sender = sender
	}
	view := NewInvitationView(invitation)

	c.sendEvent(MessageTypeInvitationSent, view)
	if msg, err := NewMessage(MessageTypeInvitationReceived, view); err == nil {
		c.hub.PublishToUser(invitation.ReceiverID, msg)
	}
}

func (c *Client) handleRespondToInvitation(payload *RespondToInvitationPayload) {
	var accept bool
	switch payload.Response {
	case "accepted":
		accept = true
	case "declined":
		accept = false
	default:
		c.sendServiceError(domain.ErrInvalidResponse)
		return
	}

	result, err := c.hub.services.Invitation.RespondToInvitation(context.Background(), payload.InvitationID, c.playerID, accept, payload.ReceiverCreatures)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	responded := InvitationRespondedPayload{Invitation: NewInvitationView(result.Invitation)}
	eventType := MessageTypeInvitationDeclined
	if result.Accepted {
		eventType = MessageTypeInvitationAccepted
		bootstrap := battleStartedPayload(result.Battle, result.Participants)
		responded.Battle = &bootstrap
	}

	c.sendEvent(eventType, responded)
	if msg, err := NewMessage(eventType, responded); err == nil {
		c.hub.PublishToUser(result.Invitation.SenderID, msg)
	}
}

func (c *Client) handleCancelInvitation(payload *CancelInvitationPayload) {
	invitation, err := c.hub.services.Invitation.CancelInvitation(context.Background(), payload.InvitationID, c.playerID)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	view := NewInvitationView(invitation)
	c.sendEvent(MessageTypeInvitationCancelled, view)
	if msg, err := NewMessage(MessageTypeInvitationCancelled, view); err == nil {
		c.hub.PublishToUser(invitation.ReceiverID, msg)
	}
}

func (c *Client) handleGetPendingInvitations() {
	pending, err := c.hub.services.Invitation.GetPendingForReceiver(context.Background(), c.playerID)
	if err != nil {
		c.sendServiceError(err)
		return
	}
	c.sendEvent(MessageTypePendingInvitations, PendingInvitationsPayload{
		Invitations: NewInvitationViews(pending),
	})
}

func battleStartedPayload(battle *domain.Battle, participants []*domain.BattleParticipant) BattleStartedPayload {
	return BattleStartedPayload{
		BattleID:     battle.ID,
		BattleType:   string(battle.Type),
		Phase:        string(battle.Phase),
		CurrentTurn:  battle.CurrentTurn,
		Participants: NewParticipantViews(participants),
	}
}

func (c *Client) sendEvent(msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Printf("failed to build %s message: %v", msgType, err)
		return
	}
	c.trySend(msg)
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}

// sendServiceError maps a service failure onto the wire error taxonomy.
// Errors are always returned to the originating session only.
func (c *Client) sendServiceError(err error) {
	c.sendError(errorCode(err), err.Error())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrBattleNotFound):
		return "BATTLE_NOT_FOUND"
	case errors.Is(err, domain.ErrBattleFull):
		return "BATTLE_FULL"
	case errors.Is(err, domain.ErrSelfBattle):
		return "SELF_BATTLE"
	case errors.Is(err, domain.ErrBattleNotActive), errors.Is(err, domain.ErrBattleFinished):
		return "BATTLE_NOT_ACTIVE"
	case errors.Is(err, domain.ErrNotParticipant), errors.Is(err, domain.ErrInvalidTarget):
		return "NOT_A_PARTICIPANT"
	case errors.Is(err, domain.ErrCreatureNotOwned):
		return "NOT_OWNER"
	case errors.Is(err, domain.ErrSpellNotKnown), errors.Is(err, domain.ErrSpellNotFound):
		return "UNKNOWN_SPELL"
	case errors.Is(err, domain.ErrParticipantDead):
		return "PARTICIPANT_DEAD"
	case errors.Is(err, domain.ErrNoConfirmedMoves), errors.Is(err, domain.ErrInconsistentBattle):
		return "ENGINE_FAULT"
	case errors.Is(err, domain.ErrInvitationNotFound):
		return "INVITATION_NOT_FOUND"
	case errors.Is(err, domain.ErrSelfInvitation):
		return "SELF_INVITATION"
	case errors.Is(err, domain.ErrInvitationPending):
		return "INVITATION_PENDING"
	case errors.Is(err, domain.ErrInvitationExpired):
		return "INVITATION_EXPIRED"
	case errors.Is(err, domain.ErrInvitationClosed):
		return "INVITATION_CLOSED"
	case errors.Is(err, domain.ErrNotInvitationSender), errors.Is(err, domain.ErrNotInvitationTarget):
		return "NOT_YOUR_INVITATION"
	case errors.Is(err, domain.ErrInvalidResponse):
		return "INVALID_RESPONSE"
	case errors.Is(err, service.ErrPlayerNotFound):
		return "PLAYER_NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

// trySend drops the message rather than block a slow consumer, and absorbs
// the send-on-closed race during shutdown.
func (c *Client) trySend(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal message: %v", err)
		return
	}

	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
	}
}
