package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/evetabi/amm/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tunables
// ──────────────────────────────────────────────────────────────────────────────

const (
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 35 * time.Second // must be > pingInterval
	maxMessageSize = 512              // bytes; clients only send pongs
	sendBufferSize = 256              // messages in each client send channel
)

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client represents one connected WebSocket endpoint.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte // buffered outbound message queue
	market uuid.UUID   // uuid.Nil = every market
}

// envelope is one outbound message tagged with the market it concerns.
type envelope struct {
	market uuid.UUID
	data   []byte
}

// ──────────────────────────────────────────────────────────────────────────────
// Hub
// ──────────────────────────────────────────────────────────────────────────────

// Hub maintains the set of active clients and routes broadcast messages.
// Run must be started before ServeWs is used. Hub implements
// service.EventPublisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	// channels consumed by Run
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	upgrader websocket.Upgrader
	log      *slog.Logger
	now      func() time.Time
}

// NewHub creates a Hub ready to be started with Run.
// An empty allowedOrigins accepts every origin.
func NewHub(allowedOrigins []string, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 512),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Run: hub event loop
// ──────────────────────────────────────────────────────────────────────────────

// Run processes registration, unregistration and broadcast events
// sequentially until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if client.market != uuid.Nil && client.market != msg.market {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Slow client: drop the message for it only.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ConnectedCount returns the current number of connected clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────────────────────────────────────────────────────────────────
// ServeWs: HTTP → WebSocket upgrade
// ──────────────────────────────────────────────────────────────────────────────

// ServeWs upgrades an HTTP request to a WebSocket connection and starts the
// read/write pumps. An optional ?market=<uuid> restricts the stream to one
// market.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	var market uuid.UUID
	if s := r.URL.Query().Get("market"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid market id", http.StatusBadRequest)
			return
		}
		market = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		market: market,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ──────────────────────────────────────────────────────────────────────────────
// Client pumps
// ──────────────────────────────────────────────────────────────────────────────

// writePump drains the client's send channel and sends a ping every
// pingInterval.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services pongs; the protocol is server-push. When the
// connection drops the client is unregistered.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("ws unexpected close", "err", err)
			}
			return
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Publishing: service.EventPublisher and the price scheduler
// ──────────────────────────────────────────────────────────────────────────────

// PublishPurchase pushes a purchase message.
func (h *Hub) PublishPurchase(ev domain.PurchaseEvent) {
	h.broadcastJSON(ev.MarketID, PurchaseMessage{
		Type:      MsgTypePurchase,
		MarketID:  ev.MarketID,
		Buyer:     ev.Buyer,
		Outcome:   domain.OutcomeOf(ev.IsYes),
		Shares:    ev.Shares,
		Cost:      ev.Cost,
		Timestamp: h.now(),
	})
}

// PublishSale pushes a sale message.
func (h *Hub) PublishSale(ev domain.SaleEvent) {
	h.broadcastJSON(ev.MarketID, SaleMessage{
		Type:      MsgTypeSale,
		MarketID:  ev.MarketID,
		Seller:    ev.Seller,
		Outcome:   domain.OutcomeOf(ev.IsYes),
		Shares:    ev.Shares,
		Payout:    ev.Payout,
		Timestamp: h.now(),
	})
}

// PublishResolved pushes a resolution message.
func (h *Hub) PublishResolved(ev domain.ResolvedEvent) {
	h.broadcastJSON(ev.MarketID, ResolvedMessage{
		Type:       MsgTypeResolved,
		MarketID:   ev.MarketID,
		Winner:     domain.OutcomeOf(ev.YesWins),
		ResolvedAt: ev.ResolvedAt,
	})
}

// PublishRedeem pushes a redemption message.
func (h *Hub) PublishRedeem(ev domain.RedeemEvent) {
	h.broadcastJSON(ev.MarketID, RedeemMessage{
		Type:      MsgTypeRedeem,
		MarketID:  ev.MarketID,
		Holder:    ev.Holder,
		Outcome:   domain.OutcomeOf(ev.IsYes),
		Shares:    ev.Shares,
		Payout:    ev.Payout,
		Timestamp: h.now(),
	})
}

// BroadcastPrices pushes a price snapshot.
func (h *Hub) BroadcastPrices(msg PricesMessage) {
	h.broadcastJSON(msg.MarketID, msg)
}

// broadcastJSON is the common marshalling path. It never blocks: when the
// broadcast queue is full the message is dropped.
func (h *Hub) broadcastJSON(market uuid.UUID, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("ws marshal failed", "err", err)
		return
	}
	select {
	case h.broadcast <- envelope{market: market, data: data}:
	default:
		h.log.Warn("ws broadcast queue full, message dropped", "market", market)
	}
}
