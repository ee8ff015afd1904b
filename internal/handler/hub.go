package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 64
)

// EventSource per-account event subscriptions
type EventSource interface {
	Subscribe(accountID string) (string, <-chan *model.Event)
	Unsubscribe(accountID, id string) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	conn      *websocket.Conn
	accountID string
	send      chan []byte
}

// Hub streams position events and mark-to-market updates to websocket clients of an account
type Hub struct {
	events  EventSource
	trading *Trading

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// NewHub constructor
func NewHub(events EventSource, trading *Trading) *Hub {
	return &Hub{
		events:  events,
		trading: trading,
		clients: make(map[string]map[*client]struct{}),
	}
}

// HandleWS GET /ws?account_id=
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, model.Validationf("account_id is required"))
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithField("account", accountID).Errorf("hub - HandleWS - Upgrade: %v", err)
		return
	}

	c := &client{conn: conn, accountID: accountID, send: make(chan []byte, sendBufferSize)}
	listenerID, events := h.events.Subscribe(accountID)
	h.register(c)

	go h.writePump(c, events)
	go h.readPump(c, listenerID)
}

// PushMark sends valuations to every client of the account, slow clients miss the update
func (h *Hub) PushMark(accountID string, valuations []model.Valuation) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.clients[accountID]
	if len(clients) == 0 {
		return
	}
	data, err := json.Marshal(wsMessage{Type: "MarkToMarket", Data: h.trading.valuationsToResponse(valuations)})
	if err != nil {
		logrus.WithField("account", accountID).Errorf("hub - PushMark - Marshal: %v", err)
		return
	}
	for c := range clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// Clients number of connected clients of an account
func (h *Hub) Clients(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[c.accountID]
	if !ok {
		clients = make(map[*client]struct{})
		h.clients[c.accountID] = clients
	}
	clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.clients[c.accountID]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.clients, c.accountID)
	}
}

// readPump only keeps the connection alive, inbound messages are ignored
func (h *Hub) readPump(c *client, listenerID string) {
	defer func() {
		h.unregister(c)
		if err := h.events.Unsubscribe(c.accountID, listenerID); err != nil {
			logrus.WithField("account", c.accountID).Debugf("hub - readPump - Unsubscribe: %v", err)
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithField("account", c.accountID).Warnf("hub - readPump - ReadMessage: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client, events <-chan *model.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(wsMessage{Type: string(event.Type), Data: h.trading.positionToResponse(event.Position)})
			if err != nil {
				logrus.WithField("event", event.ID).Errorf("hub - writePump - Marshal: %v", err)
				continue
			}
			if !h.write(c, data) {
				return
			}
		case data := <-c.send:
			if !h.write(c, data) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(c *client, data []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logrus.WithField("account", c.accountID).Debugf("hub - write - WriteMessage: %v", err)
		return false
	}
	return true
}
