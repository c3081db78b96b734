// Package notifications provides the real-time notification channel: a
// registry of websocket connections grouped into rooms.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"inkwell/internal/category"
	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/gosimple/slug"
)

const (
	// FeedRoom receives every blog event.
	FeedRoom = "feed"

	EventBlogCreated = "blog.created"
	EventBlogUpdated = "blog.updated"
	EventBlogDeleted = "blog.deleted"

	defaultMaxConns = 10000
)

var (
	ErrLimitReached = errors.New("server connection limit reached")
	ErrInvalidRoom  = errors.New("invalid room name")
	ErrShutdown     = errors.New("notification manager is shut down")
	ErrUnknownConn  = errors.New("connection is not registered")

	roomPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9:_\-]{0,63}$`)
)

// CategoryRoom is the room for events about one normalized category.
func CategoryRoom(name string) string {
	return "category:" + slug.Make(category.Normalize(name))
}

// ValidRoom reports whether room is an acceptable room name.
func ValidRoom(room string) bool {
	return roomPattern.MatchString(room)
}

// Event is the envelope delivered to connections.
type Event struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Manager tracks connections and their single room subscription.
type Manager struct {
	mu       sync.RWMutex
	clients  map[*Client]string
	rooms    map[string]map[*Client]struct{}
	maxConns int
	closed   bool

	notifier *Notifier
	wired    atomic.Bool
	log      *observability.WSLogger
}

// NewManager creates a Manager. A nil notifier or one without Redis keeps
// delivery in-process.
func NewManager(notifier *Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = middleware.Logger
	}
	return &Manager{
		clients:  make(map[*Client]string),
		rooms:    make(map[string]map[*Client]struct{}),
		maxConns: defaultMaxConns,
		notifier: notifier,
		log:      observability.NewWSLogger("notifications", logger),
	}
}

// Name returns a human-readable identifier for this hub.
func (m *Manager) Name() string { return "notifications" }

// Register adds a connection. userID is empty for anonymous connections.
func (m *Manager) Register(conn *websocket.Conn, userID string) (*Client, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrShutdown
	}
	if len(m.clients) >= m.maxConns {
		m.mu.Unlock()
		return nil, ErrLimitReached
	}
	client := NewClient(m, conn, userID)
	client.IncomingHandler = m.HandleMessage
	m.clients[client] = ""
	m.mu.Unlock()

	middleware.ActiveWebSockets.Inc()
	m.log.LogConnect(context.Background(), client.ID, userID)
	return client, nil
}

// UnregisterClient removes the connection and its room subscription.
// Calling it twice is harmless.
func (m *Manager) UnregisterClient(c *Client) {
	m.mu.Lock()
	room, ok := m.clients[c]
	if ok {
		delete(m.clients, c)
		m.removeFromRoomLocked(c, room)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	middleware.ActiveWebSockets.Dec()
	m.log.LogDisconnect(context.Background(), c.ID, c.UserID, room)
}

// Join subscribes c to room, replacing any previous subscription.
func (m *Manager) Join(c *Client, room string) error {
	if !ValidRoom(room) {
		return ErrInvalidRoom
	}

	m.mu.Lock()
	previous, ok := m.clients[c]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownConn
	}
	if previous == room {
		m.mu.Unlock()
		return nil
	}
	m.removeFromRoomLocked(c, previous)
	members, exists := m.rooms[room]
	if !exists {
		members = make(map[*Client]struct{})
		m.rooms[room] = members
	}
	members[c] = struct{}{}
	m.clients[c] = room
	m.mu.Unlock()

	observability.WebSocketRoomConnections.WithLabelValues(room).Inc()
	m.log.LogJoin(context.Background(), c.ID, previous, room)
	return nil
}

// Leave drops c's room subscription, if any.
func (m *Manager) Leave(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.clients[c]
	if !ok || room == "" {
		return
	}
	m.removeFromRoomLocked(c, room)
	m.clients[c] = ""
}

func (m *Manager) removeFromRoomLocked(c *Client, room string) {
	if room == "" {
		return
	}
	if members, ok := m.rooms[room]; ok {
		if _, in := members[c]; in {
			delete(members, c)
			observability.WebSocketRoomConnections.WithLabelValues(room).Dec()
		}
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
}

// RoomOf returns the room c is subscribed to, or "".
func (m *Manager) RoomOf(c *Client) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[c]
}

// RoomSize returns the number of connections subscribed to room.
func (m *Manager) RoomSize(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

// ConnectionCount returns the number of registered connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Emit delivers an event to every connection in room. Once wired to Redis the
// event goes through pub/sub so all instances deliver it; otherwise, or when
// publishing fails, it is delivered in-process.
func (m *Manager) Emit(ctx context.Context, room, eventType string, payload any) error {
	if !ValidRoom(room) {
		return ErrInvalidRoom
	}
	data, err := json.Marshal(Event{Type: eventType, Room: room, Payload: payload})
	if err != nil {
		return err
	}
	observability.NotificationEvents.WithLabelValues(eventType).Inc()

	if m.wired.Load() {
		err := m.notifier.PublishRoom(ctx, room, string(data))
		if err == nil {
			return nil
		}
		m.log.LogError(ctx, "", err, "publish")
	}
	m.deliver(room, data)
	return nil
}

// deliver sends data to local members of room and returns how many received it.
func (m *Manager) deliver(room string, data []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sent := 0
	for c := range m.rooms[room] {
		if c.TrySend(data) {
			sent++
		}
	}
	return sent
}

// StartWiring subscribes to room events published by any instance and routes
// them to local connections. Without Redis it is a no-op.
func (m *Manager) StartWiring(ctx context.Context) error {
	if !m.notifier.Enabled() {
		return nil
	}
	err := m.notifier.StartPatternSubscriber(ctx, func(room, payload string) {
		m.deliver(room, []byte(payload))
	})
	if err != nil {
		return err
	}
	m.wired.Store(true)
	go func() {
		<-ctx.Done()
		m.wired.Store(false)
	}()
	return nil
}

type clientMessage struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// HandleMessage processes a control message from a connection:
// {"type":"join","room":"<id>"}, {"type":"leave"} or {"type":"ping"}.
func (m *Manager) HandleMessage(c *Client, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.reply(c, Event{Type: "error", Payload: map[string]string{"message": "invalid message"}})
		return
	}

	switch msg.Type {
	case "join":
		if err := m.Join(c, msg.Room); err != nil {
			m.reply(c, Event{Type: "error", Payload: map[string]string{"message": err.Error()}})
			return
		}
		m.reply(c, Event{Type: "joined", Room: msg.Room})
	case "leave":
		room := m.RoomOf(c)
		m.Leave(c)
		m.reply(c, Event{Type: "left", Room: room})
	case "ping":
		m.reply(c, Event{Type: "pong"})
	default:
		m.reply(c, Event{Type: "error", Payload: map[string]string{"message": "unknown message type"}})
	}
}

func (m *Manager) reply(c *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.TrySend(data)
}

// ErrorFrame encodes an error event carrying message.
func ErrorFrame(message string) []byte {
	data, _ := json.Marshal(Event{Type: "error", Payload: map[string]string{"message": message}})
	return data
}

// Shutdown closes every connection and refuses new ones.
func (m *Manager) Shutdown(_ context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	clients := make([]*Client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		if c.Conn != nil {
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"),
				time.Now().Add(writeWait))
		}
		m.UnregisterClient(c)
	}
	return nil
}
