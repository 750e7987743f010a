package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var _ inventory.EventPublisher = (*Hub)(nil)

// MessageStockUpdate tipo de mensaje empujado tras cada confirmación.
const MessageStockUpdate = "stock_update"

// Client lo que el hub necesita de una conexión (*websocket.Conn lo cumple).
type Client interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Message sobre enviado a los clientes.
type Message struct {
	Type string      `json:"type"`
	Data StockUpdate `json:"data"`
}

// StockUpdate cantidades ya confirmadas tras un movimiento, devolución, cambio o reconstrucción.
type StockUpdate struct {
	Kind           string         `json:"kind"`
	GroupID        string         `json:"group_id,omitempty"`
	TransactionIDs []string       `json:"transaction_ids,omitempty"`
	Levels         map[string]int `json:"levels"`
	Seq            int64          `json:"seq"`
	At             time.Time      `json:"at"`
}

// Hub mantiene los clientes conectados y reparte los eventos de stock.
type Hub struct {
	Clients    map[Client]bool
	Register   chan Client
	Unregister chan Client
	Broadcast  chan []byte
	mutex      sync.Mutex
	log        zerolog.Logger

	done     chan struct{} // cerrado cuando Run termina
	stopOnce sync.Once
}

// NewHub crea el hub; Broadcast tiene buffer para no frenar a quien publica.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		Clients:    make(map[Client]bool),
		Register:   make(chan Client),
		Unregister: make(chan Client),
		Broadcast:  make(chan []byte, 256),
		log:        log,
		done:       make(chan struct{}),
	}
}

// Run atiende registro, baja y difusión hasta que ctx termine; al salir cierra todas las conexiones.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.mutex.Lock()
			for conn := range h.Clients {
				_ = conn.Close()
				delete(h.Clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			n := len(h.Clients)
			h.mutex.Unlock()
			h.log.Debug().Int("clients", n).Msg("cliente ws conectado")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				_ = conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					_ = conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish serializa el evento y lo encola. Si la cola está llena el evento se descarta:
// los clientes siempre pueden volver a consultar el stock.
func (h *Hub) Publish(ev inventory.StockEvent) {
	payload, err := json.Marshal(Message{
		Type: MessageStockUpdate,
		Data: StockUpdate{
			Kind:           ev.Kind,
			GroupID:        ev.GroupID,
			TransactionIDs: ev.TransactionIDs,
			Levels:         ev.Levels,
			Seq:            ev.Seq,
			At:             ev.At,
		},
	})
	if err != nil {
		h.log.Error().Err(err).Msg("serializar evento de stock")
		return
	}
	select {
	case h.Broadcast <- payload:
	default:
		h.log.Warn().Int64("seq", ev.Seq).Msg("cola ws llena, evento descartado")
	}
}

// Join registra la conexión. Devuelve false si el hub ya se detuvo.
func (h *Hub) Join(c Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Leave da de baja la conexión; tras detenerse el hub no hace nada (Run ya las cerró).
func (h *Hub) Leave(c Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// ClientCount clientes conectados.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// UpgradeRequired deja pasar solo peticiones de upgrade a websocket.
func UpgradeRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}
}

// Handler registra la conexión en el hub y la mantiene viva hasta que el cliente cierre.
func Handler(h *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		if !h.Join(c) {
			_ = c.Close()
			return
		}
		defer h.Leave(c)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
