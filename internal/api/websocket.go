package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"api-pvp/internal/game"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The arena is meant to be played from anywhere: clients are API
	// scripts, not browsers holding credentials.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient tracks one WebSocket connection. A client with a player id
// receives that player's filtered view; everyone else spectates the full
// snapshot.
type wsClient struct {
	conn     *websocket.Conn
	ip       string
	playerID string
}

// wsMessage is the envelope sent to clients.
type wsMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// WebSocketHub fans the engine's per-tick snapshot out to connected
// clients. It subscribes through the engine's listener API; the engine
// itself never knows about connections.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	register   chan *wsClient
	unregister chan *websocket.Conn
	snapshots  chan game.FullState
	mu         sync.RWMutex

	wsLimiter *WebSocketRateLimiter
	maxTotal  int

	engine     *game.Engine
	listenerID int
}

// NewWebSocketHub creates a hub with connection limiting.
func NewWebSocketHub(maxTotal, maxPerIP int) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		snapshots:  make(chan game.FullState, 8),
		wsLimiter:  NewWebSocketRateLimiter(maxPerIP),
		maxTotal:   maxTotal,
	}
}

// BindEngine subscribes the hub to the battle engine's tick broadcasts.
// The listener never blocks the loop: a busy hub drops the frame.
func (h *WebSocketHub) BindEngine(e *game.Engine) {
	id := e.Subscribe(func(s game.FullState) {
		select {
		case h.snapshots <- s:
		default:
		}
	})

	h.mu.Lock()
	h.engine = e
	h.listenerID = id
	h.mu.Unlock()
}

// Unbind detaches the hub from the engine. Safe to call while snapshots
// are still fanning out.
func (h *WebSocketHub) Unbind() {
	h.mu.Lock()
	e := h.engine
	id := h.listenerID
	h.engine = nil
	h.mu.Unlock()

	if e != nil {
		e.Unsubscribe(id)
	}
}

// Run processes registrations and snapshot fan-out. Start once.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("ws client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("ws client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case snap := <-h.snapshots:
			h.fanOut(snap)
		}
	}
}

// fanOut sends the tick's state to every client: the full snapshot to
// spectators, the per-player filtered view to player connections.
func (h *WebSocketHub) fanOut(snap game.FullState) {
	fullMsg, err := json.Marshal(wsMessage{Event: "state", Data: snap})
	if err != nil {
		return
	}

	UpdateWorldGauges(len(snap.Players), len(snap.Projectiles))

	h.mu.RLock()
	engine := h.engine
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var failed []*websocket.Conn
	for _, c := range clients {
		payload := fullMsg
		if c.playerID != "" && engine != nil {
			view, ok := engine.PlayerState(c.playerID)
			if !ok {
				continue
			}
			payload, err = json.Marshal(wsMessage{Event: "player_state", Data: view})
			if err != nil {
				continue
			}
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			failed = append(failed, c.conn)
			continue
		}
		IncrementWSMessages()
	}

	for _, conn := range failed {
		h.dropClient(conn)
	}
}

func (h *WebSocketHub) dropClient(conn *websocket.Conn) {
	h.mu.Lock()
	if client, ok := h.clients[conn]; ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()
	UpdateWSConnections(count)
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades a connection. A `player` query parameter
// switches the client from spectator mode to that player's filtered view.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()

	if total >= h.maxTotal {
		log.Printf("ws connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("ws connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{
		conn:     conn,
		ip:       ip,
		playerID: r.URL.Query().Get("player"),
	}
	h.register <- client

	// Drain the read side so pings and closes are processed; the state
	// stream is strictly server → client.
	go func() {
		defer func() {
			h.unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
