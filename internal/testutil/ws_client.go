package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Message
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient creates a new WebSocket test client
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *websocket.Message, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				select {
				case <-c.done:
					return
				case c.errors <- err:
				}
				return
			}

			var msg websocket.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				c.errors <- err
				continue
			}

			select {
			case c.messages <- &msg:
			case <-c.done:
				return
			}
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// SendIntent sends one client intent to the server.
func (c *WSClient) SendIntent(msgType websocket.MessageType, payload interface{}) {
	c.t.Helper()

	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		c.t.Fatalf("failed to build %s intent: %v", msgType, err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send %s intent: %v", msgType, err)
	}
}

func (c *WSClient) CreateBattle(battleType string, teamCreatures []uuid.UUID) {
	c.SendIntent(websocket.MessageTypeCreateBattle, websocket.CreateBattlePayload{
		BattleType:    battleType,
		TeamCreatures: teamCreatures,
	})
}

func (c *WSClient) JoinBattle(battleID uuid.UUID, teamCreatures, opponentCreatures []uuid.UUID) {
	c.SendIntent(websocket.MessageTypeJoinBattle, websocket.JoinBattlePayload{
		BattleID:          battleID,
		TeamCreatures:     teamCreatures,
		OpponentCreatures: opponentCreatures,
	})
}

func (c *WSClient) SelectMove(creatureID, spellID uuid.UUID, targetID *uuid.UUID) {
	c.SendIntent(websocket.MessageTypeSelectMove, websocket.SelectMovePayload{
		CreatureID: creatureID,
		SpellID:    spellID,
		TargetID:   targetID,
	})
}

func (c *WSClient) ConfirmReady() {
	c.SendIntent(websocket.MessageTypeConfirmReady, struct{}{})
}

func (c *WSClient) SendInvitation(receiverID uuid.UUID, invitationType string, creatures []uuid.UUID) {
	c.SendIntent(websocket.MessageTypeSendInvitation, websocket.SendInvitationPayload{
		ReceiverID:      receiverID,
		InvitationType:  invitationType,
		SenderCreatures: creatures,
	})
}

func (c *WSClient) RespondToInvitation(invitationID uuid.UUID, response string, creatures []uuid.UUID) {
	c.SendIntent(websocket.MessageTypeRespondToInvitation, websocket.RespondToInvitationPayload{
		InvitationID:      invitationID,
		Response:          response,
		ReceiverCreatures: creatures,
	})
}

func (c *WSClient) CancelInvitation(invitationID uuid.UUID) {
	c.SendIntent(websocket.MessageTypeCancelInvitation, websocket.CancelInvitationPayload{
		InvitationID: invitationID,
	})
}

func (c *WSClient) GetPendingInvitations() {
	c.SendIntent(websocket.MessageTypeGetPendingInvitations, struct{}{})
}

// ExpectMessage waits for a message of the specified type, skipping others.
func (c *WSClient) ExpectMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", msgType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for message type %s", msgType)
		}
	}
}

// ExpectNoMessage asserts nothing of the given type arrives within the window.
func (c *WSClient) ExpectNoMessage(msgType websocket.MessageType, window time.Duration) {
	c.t.Helper()

	deadline := time.After(window)
	for {
		select {
		case msg := <-c.messages:
			if msg != nil && msg.Type == msgType {
				c.t.Fatalf("unexpected %s message", msgType)
			}
		case <-deadline:
			return
		}
	}
}

func (c *WSClient) ExpectBattleCreated(timeout time.Duration) *websocket.BattleCreatedPayload {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeBattleCreated, timeout)
	var payload websocket.BattleCreatedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode battle created payload: %v", err)
	}
	return &payload
}

func (c *WSClient) ExpectBattleStarted(timeout time.Duration) *websocket.BattleStartedPayload {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeBattleStarted, timeout)
	var payload websocket.BattleStartedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode battle started payload: %v", err)
	}
	return &payload
}

func (c *WSClient) ExpectTurnResults(timeout time.Duration) *websocket.TurnResultsPayload {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeTurnResults, timeout)
	var payload websocket.TurnResultsPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode turn results payload: %v", err)
	}
	return &payload
}

func (c *WSClient) ExpectBattleEnded(timeout time.Duration) *websocket.BattleEndedPayload {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeBattleEnded, timeout)
	var payload websocket.BattleEndedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode battle ended payload: %v", err)
	}
	return &payload
}

func (c *WSClient) ExpectInvitation(timeout time.Duration) *websocket.InvitationView {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeInvitationReceived, timeout)
	var payload websocket.InvitationView
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode invitation payload: %v", err)
	}
	return &payload
}

func (c *WSClient) ExpectError(timeout time.Duration) *websocket.ErrorPayload {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeError, timeout)
	var payload websocket.ErrorPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode error payload: %v", err)
	}
	return &payload
}
