// Package live fans score updates out to spectators watching a tournament.
// Spectators hold a long-lived server-sent-events connection; the server pushes each
// score change the moment it is committed instead of having every phone poll the
// leaderboard.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/trentd187/idpa-match/internal/events"
)

// Client is a single connected spectator.
type Client struct {
	TournamentID uuid.UUID   // Which tournament this client is watching
	Send         chan []byte // Outgoing messages; the hub writes, the SSE stream reads
}

// NewClient returns a client with a buffered send channel.
func NewClient(tournamentID uuid.UUID) *Client {
	return &Client{TournamentID: tournamentID, Send: make(chan []byte, 32)}
}

// Message is a payload for everyone watching one tournament.
type Message struct {
	TournamentID uuid.UUID
	Data         []byte
}

// Hub keeps the set of clients per tournament.
// Run owns all changes to the client map; Subscribers may read it under mu.
type Hub struct {
	clients map[uuid.UUID]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. Start it in a goroutine; it returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.TournamentID] == nil {
				h.clients[client.TournamentID] = make(map[*Client]bool)
			}
			h.clients[client.TournamentID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.TournamentID] {
				select {
				case client.Send <- msg.Data:
				default:
					// Buffer full: the client is not keeping up.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.TournamentID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.TournamentID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// BroadcastToTournament queues data for every client watching the tournament.
// It is a no-op once the hub has stopped.
func (h *Hub) BroadcastToTournament(tournamentID uuid.UUID, data []byte) {
	select {
	case h.broadcast <- &Message{TournamentID: tournamentID, Data: data}:
	case <-h.done:
	}
}

// PublishScoreChanged makes the hub an events.Sink.
func (h *Hub) PublishScoreChanged(_ context.Context, ev events.ScoreChanged) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode live score event: %w", err)
	}
	h.BroadcastToTournament(ev.TournamentID, data)
	return nil
}

// Register starts delivering broadcasts for the client's tournament.
// If the hub has stopped, client.Send is closed straight away.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister stops delivery and closes client.Send. Safe to call for a client the
// hub already dropped, and after the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers returns how many clients are watching a tournament.
func (h *Hub) Subscribers(tournamentID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tournamentID])
}
