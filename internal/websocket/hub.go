package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/service"
)

// Hub tracks every connected client, fans events out to per-player
// notification groups and hosts one BattleRoom per live battle. Battle
// intents are serialized by the room's actor loop; notification intents are
// handled on the client's read goroutine and published through the hub.
type Hub struct {
	battles    map[uuid.UUID]*BattleRoom
	clients    map[*Client]bool
	userGroups map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool

	services *service.Services
	mu       sync.RWMutex
}

func NewHub(services *service.Services) *Hub {
	return &Hub{
		battles:    make(map[uuid.UUID]*BattleRoom),
		clients:    make(map[*Client]bool),
		userGroups: make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		services:   services,
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true

			rooms := make([]*BattleRoom, 0, len(h.battles))
			for _, room := range h.battles {
				rooms = append(rooms, room)
			}
			h.mu.Unlock()

			for _, room := range rooms {
				room.Stop()
			}
			for _, room := range rooms {
				room.Wait()
			}

			h.mu.Lock()
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.userGroups = make(map[uuid.UUID]map[*Client]bool)
			h.battles = make(map[uuid.UUID]*BattleRoom)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)
		}
	}
}

// Stop gracefully shuts down the hub and every battle room. Blocks until
// everything has exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.clients[client] = true
	group, ok := h.userGroups[client.playerID]
	if !ok {
		group = make(map[*Client]bool)
		h.userGroups[client.playerID] = group
	}
	group[client] = true
	h.mu.Unlock()

	client.sendEvent(MessageTypeConnectionEstablished, ConnectionEstablishedPayload{
		PlayerID: client.playerID,
	})

	// Anything that arrived while the player was away.
	pending, err := h.services.Invitation.GetPendingForReceiver(context.Background(), client.playerID)
	if err != nil {
		log.Printf("failed to load pending invitations for %s: %v", client.playerID, err)
		return
	}
	client.sendEvent(MessageTypePendingInvitations, PendingInvitationsPayload{
		Invitations: NewInvitationViews(pending),
	})
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	if group, ok := h.userGroups[client.playerID]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(h.userGroups, client.playerID)
		}
	}
	room := client.room
	h.mu.Unlock()

	client.Close()
	if room != nil {
		room.Leave(client)
	}
}

// GetOrCreateBattleRoom returns the live room for a battle, starting one
// from persisted state when none exists (reconnects after the room wound
// down, or after a restart).
func (h *Hub) GetOrCreateBattleRoom(battleID uuid.UUID) *BattleRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	if room, ok := h.battles[battleID]; ok {
		return room
	}

	room := NewBattleRoom(h, battleID, h.services.Battle)
	h.battles[battleID] = room
	go room.Run()
	return room
}

// dropBattleRoom removes a wound-down room. The battle stays addressable:
// the next join recreates a room from the store.
func (h *Hub) dropBattleRoom(battleID uuid.UUID, room *BattleRoom) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.battles[battleID] == room {
		delete(h.battles, battleID)
	}
}

// PublishToUser delivers an event to every live session of one player.
func (h *Hub) PublishToUser(playerID uuid.UUID, msg *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.userGroups[playerID] {
		client.trySend(msg)
	}
}

// NotifyInvitationsExpired tells both parties about invitations the sweep
// closed.
func (h *Hub) NotifyInvitationsExpired(invitations []*domain.GameInvitation) {
	for _, inv := range invitations {
		msg, err := NewMessage(MessageTypeInvitationExpired, NewInvitationView(inv))
		if err != nil {
			continue
		}
		h.PublishToUser(inv.SenderID, msg)
		h.PublishToUser(inv.ReceiverID, msg)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister safely unregisters a client, tolerating a stopping hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
