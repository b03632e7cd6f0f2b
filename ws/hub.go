package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vnkhanh/e-cert-backend/logger"
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub groups websocket clients by channel key (the university's email) and
// fans messages out to every client on a key.
type Hub struct {
	Clients map[string]map[*websocket.Conn]*Client
	Mutex   sync.RWMutex
	log     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Clients: make(map[string]map[*websocket.Conn]*Client),
		log:     log,
	}
}

// Register adds conn under key and starts its pumps. greeting, when set, is
// the first message the client receives.
func (h *Hub) Register(key string, conn *websocket.Conn, greeting []byte) *Client {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if _, ok := h.Clients[key]; !ok {
		h.Clients[key] = make(map[*websocket.Conn]*Client)
	}

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	if greeting != nil {
		client.Send <- greeting
	}
	h.Clients[key][conn] = client

	go h.readPump(key, client)
	go h.writePump(client)
	return client
}

func (h *Hub) Unregister(key string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if clients, ok := h.Clients[key]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
		}
		if len(clients) == 0 {
			delete(h.Clients, key)
		}
	}
}

// Broadcast queues data for every client on key. Slow clients drop messages.
func (h *Hub) Broadcast(key string, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for _, client := range h.Clients[key] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// Publish sends v as JSON to every client on key.
func (h *Hub) Publish(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("WS hub: marshal failed", "error", err)
		return
	}
	h.Broadcast(key, data)
}

func (h *Hub) GetStats() map[string]int {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	clients := 0
	for _, c := range h.Clients {
		clients += len(c)
	}
	return map[string]int{
		"channels": len(h.Clients),
		"clients":  clients,
	}
}

func (h *Hub) readPump(key string, client *Client) {
	defer h.Unregister(key, client.Conn)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) writePump(client *Client) {
	defer func() {
		client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
		client.Conn.Close()
	}()
	for msg := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}
