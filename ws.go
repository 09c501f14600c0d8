package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// phaseEvent is pushed to every connected client whenever the admin
// advances the phase or resets the game. Clients that prefer polling can
// keep using /api/phase.
type phaseEvent struct {
	Type  string `json:"type"` // always "phase"
	Phase int    `json:"phase"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan phaseEvent
}

type phaseNotifier struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
}

func newPhaseNotifier() *phaseNotifier {
	return &phaseNotifier{
		clients: make(map[*wsClient]bool),
	}
}

func (n *phaseNotifier) register(c *wsClient) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clients[c] = true
}

func (n *phaseNotifier) unregister(c *wsClient) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.clients[c]; ok {
		delete(n.clients, c)
		close(c.send)
	}
}

// broadcast fans the new phase out to every client. Slow clients are
// dropped rather than blocking the game.
func (n *phaseNotifier) broadcast(phase int) {
	msg := phaseEvent{Type: "phase", Phase: phase}

	n.mu.Lock()
	defer n.mu.Unlock()

	for client := range n.clients {
		select {
		case client.send <- msg:
		default:
			delete(n.clients, client)
			close(client.send)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readPump discards anything the client sends; the socket is push-only.
// Reading is still required to notice the peer going away.
func (c *wsClient) readPump(n *phaseNotifier) {
	defer func() {
		n.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func servePhaseEvents(cfg *Config, game *SentenceGame, notifier *phaseNotifier) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		phase, err := game.Phase()
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: websocket upgrade: %v", err)
			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan phaseEvent, 8),
		}

		notifier.register(client)

		// Current phase first, so clients need no separate fetch.
		client.send <- phaseEvent{Type: "phase", Phase: phase}

		go client.writePump()
		client.readPump(notifier)
	}
}
