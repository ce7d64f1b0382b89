package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"pairgo/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient реалізує інтерфейс chathub.Client поверх
// gorilla/websocket. Стан сесії захищено м'ютексом: його читає readPump,
// а змінюють matcher і хаб зі своїх goroutine.
type WebSocketClient struct {
	ConnID  string
	UserID  string
	Profile models.Profile
	Conn    *websocket.Conn
	Hub     *ManagerService
	Send    chan models.Event

	// done сигналізує writePump завершитися. Канал Send ніколи не
	// закривається: хаб, matcher і розсилки кімнат можуть тримати
	// посилання на клієнта зі знімків, зроблених до зняття, і надсилати
	// в нього вже після Close. Надіслане після Close просто не буде
	// доставлено.
	done chan struct{}

	mu    sync.Mutex
	state SessionState

	closeOnce sync.Once
}

// NewWebSocketClient створює клієнта у стані Connecting.
func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, connID string, profile models.Profile) *WebSocketClient {
	return &WebSocketClient{
		ConnID:  connID,
		UserID:  profile.UserID,
		Profile: profile,
		Conn:    conn,
		Hub:     hub,
		Send:    make(chan models.Event, 256),
		done:    make(chan struct{}),
		state:   StateConnecting,
	}
}

// --- Реалізація методів інтерфейсу ---

func (c *WebSocketClient) GetConnID() string                   { return c.ConnID }
func (c *WebSocketClient) GetUserID() string                   { return c.UserID }
func (c *WebSocketClient) GetProfile() models.Profile          { return c.Profile }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

func (c *WebSocketClient) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *WebSocketClient) Transition(to SessionState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !canTransition(c.state, to) {
		return &ErrIllegalTransition{From: c.state, To: to}
	}
	c.state = to
	return nil
}

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close зупиняє writePump через done-канал. Повторний виклик безпечний:
// каскад очищення може дійти сюди двома шляхами.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// --- Логіка 'Pump' ---

// readPump читає конверти з WebSocket і віддає їх хабу. Обробка
// синхронна, тому події одного з'єднання ніколи не переганяють
// одна одну.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c // Надсилаємо команду на Unregister
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var ev models.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			log.Printf("Error decoding JSON from client %s: %v", c.UserID, err)
			c.Hub.sendError(c, "malformed event")
			continue
		}

		c.Hub.HandleEvent(c, ev)
	}
}

// writePump читає події з каналу Send і записує їх у WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// Хаб зняв клієнта, закриваємо з'єднання WS
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case ev := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			dataToWrite, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Error encoding JSON for client %s: %v", c.UserID, err)
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, dataToWrite); err != nil {
				return
			}

			// Дозбируємо накопичені події, щоб не будити сокет на кожну.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				extraData, err := json.Marshal(<-c.Send)
				if err != nil {
					continue
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, extraData); err != nil {
					return
				}
			}

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
