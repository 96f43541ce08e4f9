// Package presence is the realtime ephemeral side channel: cursor positions
// and who-is-online, fanned out over websockets. Nothing here is persisted;
// a disconnect wipes the user's entries, which is the cleanup hook the
// document store cannot give us.
package presence

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"canvas-sync-server/internal/domain"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Manager struct {
	clients      map[string]*Client
	userIndex    map[string]map[string]bool
	cursors      map[string]domain.CursorPosition
	online       map[string]domain.PresenceEntry
	clientsMutex sync.RWMutex

	Register      chan *Client
	Unregister    chan *Client
	HandleMessage chan *ClientMessage

	maxConnPerUser int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
}

func NewManager(maxConnPerUser int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		cursors:        make(map[string]domain.CursorPosition),
		online:         make(map[string]domain.PresenceEntry),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerUser: maxConnPerUser,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		m.clientsMutex.Unlock()
		log.Printf("max connections reached for user %s", client.UserID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	firstConn := len(m.userIndex[client.UserID]) == 1
	entry := domain.PresenceEntry{
		UserID:   client.UserID,
		Username: client.Username,
		Color:    client.Color,
		JoinedAt: time.Now(),
	}
	if firstConn {
		m.online[client.UserID] = entry
	}

	state := m.statePayloadLocked()
	m.clientsMutex.Unlock()

	log.Printf("presence client registered: %s (user: %s)", client.ID, client.UserID)

	// The newcomer gets the entire ephemeral state; everyone else just
	// learns about the join.
	if msg, err := NewMessage(TypeState, state); err == nil {
		m.sendToClient(client, msg)
	}
	if firstConn {
		if msg, err := NewMessage(TypeJoin, &JoinPayload{Entry: entry}); err == nil {
			m.broadcast(msg, client.ID)
		}
	}
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()

	if _, ok := m.clients[client.ID]; !ok {
		m.clientsMutex.Unlock()
		return
	}

	delete(m.clients, client.ID)
	delete(m.userIndex[client.UserID], client.ID)

	lastConn := len(m.userIndex[client.UserID]) == 0
	if lastConn {
		delete(m.userIndex, client.UserID)
		delete(m.online, client.UserID)
		delete(m.cursors, client.UserID)
	}

	close(client.Send)
	m.clientsMutex.Unlock()

	log.Printf("presence client unregistered: %s", client.ID)

	if lastConn {
		if msg, err := NewMessage(TypeLeave, &LeavePayload{UserID: client.UserID}); err == nil {
			m.broadcast(msg, "")
		}
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		log.Printf("error unmarshaling presence message: %v", err)
		return
	}

	switch msg.Type {
	case TypeCursor:
		m.handleCursor(clientMsg.Client, &msg)

	case TypePing:
		if pong, err := NewMessage(TypePong, nil); err == nil {
			m.sendToClient(clientMsg.Client, pong)
		}

	default:
		log.Printf("unknown presence message type: %s", msg.Type)
	}
}

func (m *Manager) handleCursor(client *Client, msg *Message) {
	var payload CursorPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		log.Printf("error unmarshaling cursor payload: %v", err)
		return
	}

	pos := domain.CursorPosition{
		UserID:   client.UserID,
		Username: client.Username,
		Color:    client.Color,
		X:        payload.X,
		Y:        payload.Y,
		MovedAt:  time.Now(),
	}

	m.clientsMutex.Lock()
	m.cursors[client.UserID] = pos
	m.clientsMutex.Unlock()

	if out, err := NewMessage(TypeCursor, pos); err == nil {
		m.broadcast(out, client.ID)
	}
}

func (m *Manager) statePayloadLocked() *StatePayload {
	state := &StatePayload{}
	for _, e := range m.online {
		state.Online = append(state.Online, e)
	}
	for _, c := range m.cursors {
		state.Cursors = append(state.Cursors, c)
	}
	return state
}

// OnlineUsers returns the ids of users with at least one live connection.
// The reconciliation layer may consult this to tell a lock held by a live
// user from one left behind by a vanished one.
func (m *Manager) OnlineUsers() []string {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	ids := make([]string, 0, len(m.online))
	for id := range m.online {
		ids = append(ids, id)
	}
	return ids
}

// Cursors returns a copy of every live cursor position.
func (m *Manager) Cursors() []domain.CursorPosition {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	out := make([]domain.CursorPosition, 0, len(m.cursors))
	for _, c := range m.cursors {
		out = append(out, c)
	}
	return out
}

func (m *Manager) broadcast(message *Message, excludeClientID string) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	for clientID, client := range m.clients {
		if clientID == excludeClientID {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("presence client %s send buffer full, dropping", clientID)
		}
	}
}

func (m *Manager) sendToClient(client *Client, message *Message) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return
	}

	select {
	case client.Send <- messageBytes:
	default:
		log.Printf("presence client %s send buffer full", client.ID)
	}
}
