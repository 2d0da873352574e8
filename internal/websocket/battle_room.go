package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/engine"
	"github.com/zawomons/battle-server/internal/service"
)

// BattleRoom is the broadcast group for one battle. A single goroutine owns
// the client set and drives every battle intent in arrival order, so two
// players' sessions never touch the same battle concurrently through this
// room. The store stays canonical: the room re-reads state through the
// service on every intent.
type BattleRoom struct {
	hub      *Hub
	battleID uuid.UUID
	battles  *service.BattleService

	clients map[*Client]bool
	// halted is set after an engine invariant violation; further turn
	// execution is refused until the battle is inspected.
	halted bool

	join         chan *Client
	leave        chan *Client
	selectMove   chan *SelectMoveRequest
	confirmReady chan *Client
	broadcast    chan *Message
	stop         chan struct{}
	done         chan struct{}
}

type SelectMoveRequest struct {
	Client  *Client
	Payload SelectMovePayload
}

func NewBattleRoom(hub *Hub, battleID uuid.UUID, battles *service.BattleService) *BattleRoom {
	return &BattleRoom{
		hub:          hub,
		battleID:     battleID,
		battles:      battles,
		clients:      make(map[*Client]bool),
		join:         make(chan *Client),
		leave:        make(chan *Client),
		selectMove:   make(chan *SelectMoveRequest),
		confirmReady: make(chan *Client),
		broadcast:    make(chan *Message),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (r *BattleRoom) Run() {
	defer close(r.done)

	for {
		select {
		case <-r.stop:
			return

		case client := <-r.join:
			r.clients[client] = true

		case client := <-r.leave:
			if r.clients[client] {
				delete(r.clients, client)
				if client.room == r {
					client.room = nil
				}
			}
			// Disconnection never forfeits the battle; an empty room
			// winds down and a later rejoin recreates it from the store.
			if len(r.clients) == 0 {
				r.hub.dropBattleRoom(r.battleID, r)
				return
			}

		case req := <-r.selectMove:
			r.handleSelectMove(req)

		case client := <-r.confirmReady:
			r.handleConfirmReady(client)

		case msg := <-r.broadcast:
			r.broadcastMessage(msg)
		}
	}
}

func (r *BattleRoom) Stop() {
	select {
	case <-r.done:
	default:
		close(r.stop)
	}
}

func (r *BattleRoom) Wait() {
	<-r.done
}

// Join adds the client to the room's broadcast group. Returns false when the
// room already wound down; the caller must look the battle up again.
func (r *BattleRoom) Join(client *Client) bool {
	select {
	case r.join <- client:
		return true
	case <-r.done:
		return false
	}
}

func (r *BattleRoom) Leave(client *Client) {
	select {
	case r.leave <- client:
	case <-r.done:
	}
}

// Broadcast fans an event out to every session in the group.
func (r *BattleRoom) Broadcast(msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Printf("failed to build %s message: %v", msgType, err)
		return
	}
	select {
	case r.broadcast <- msg:
	case <-r.done:
	}
}

func (r *BattleRoom) broadcastMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal broadcast: %v", err)
		return
	}
	for client := range r.clients {
		func() {
			defer func() { recover() }()
			select {
			case client.send <- data:
			default:
			}
		}()
	}
}

func (r *BattleRoom) handleSelectMove(req *SelectMoveRequest) {
	participant, err := r.battles.SelectMove(
		context.Background(),
		r.battleID,
		req.Client.playerID,
		req.Payload.CreatureID,
		req.Payload.SpellID,
		req.Payload.TargetID,
	)
	if err != nil {
		req.Client.sendServiceError(err)
		return
	}

	// Ack to the sender only; the opponent learns nothing about the
	// chosen move until the turn resolves.
	req.Client.sendEvent(MessageTypeMoveSelected, MoveSelectedPayload{
		CreatureID: participant.CreatureID,
		SpellID:    req.Payload.SpellID,
		TargetID:   req.Payload.TargetID,
	})
}

func (r *BattleRoom) handleConfirmReady(client *Client) {
	if r.halted {
		client.sendError("ENGINE_FAULT", "Battle is halted pending inspection")
		return
	}

	result, err := r.battles.ConfirmReady(context.Background(), r.battleID, client.playerID)
	if err != nil {
		if errors.Is(err, domain.ErrNoConfirmedMoves) || errors.Is(err, domain.ErrInconsistentBattle) {
			r.halted = true
			log.Printf("battle %s halted: %v", r.battleID, err)
		}
		client.sendServiceError(err)
		return
	}

	if !result.Executed {
		r.broadcastMessage(mustMessage(MessageTypePlayerReady, PlayerReadyPayload{
			PlayerID:   client.playerID,
			Team1Ready: result.Team1Ready,
			Team2Ready: result.Team2Ready,
		}))
		return
	}

	// CurrentTurn already points at the next turn.
	turnNumber := result.Battle.CurrentTurn - 1
	if result.Outcome == engine.OutcomeNone {
		r.broadcastMessage(mustMessage(MessageTypeTurnResults, TurnResultsPayload{
			TurnNumber:   turnNumber,
			Actions:      NewActionViews(result.Actions),
			Participants: NewParticipantViews(result.Participants),
		}))
		return
	}

	// Terminal: ship the full action log so clients can replay the battle.
	allActions, err := r.battles.GetActions(context.Background(), r.battleID)
	if err != nil {
		log.Printf("failed to load action log for %s: %v", r.battleID, err)
		allActions = result.Actions
	}
	r.broadcastMessage(mustMessage(MessageTypeBattleEnded, BattleEndedPayload{
		Winner:  result.Battle.WinnerID,
		Outcome: string(result.Outcome),
		Actions: NewActionViews(allActions),
	}))
}

func mustMessage(msgType MessageType, payload interface{}) *Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Printf("failed to build %s message: %v", msgType, err)
		return &Message{Type: msgType}
	}
	return msg
}
