package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"buiq-backend/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionAuthenticator resolves the session a WebSocket token belongs to.
type SessionAuthenticator interface {
	ParseSessionToken(token string) (uuid.UUID, error)
}

// SessionChecker reports whether a session is still live. Tokens outlive sessions.
type SessionChecker interface {
	Exists(sessionID uuid.UUID) bool
}

// Hub pushes conversation events to the browser tabs of a session. With a Redis
// client, events go through pub/sub so any replica holding the socket can deliver them.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	writeMu     map[*websocket.Conn]*sync.Mutex
	redisClient *redis.Client
	auth        SessionAuthenticator
	sessions    SessionChecker
	logger      *zap.Logger
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, auth SessionAuthenticator, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		writeMu:     make(map[*websocket.Conn]*sync.Mutex),
		redisClient: redisClient,
		auth:        auth,
		logger:      logger,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

// SetSessionChecker makes HandleWebSocket refuse tokens of ended sessions. The hub is
// built before the session manager it publishes for, so the checker is attached afterwards.
func (h *Hub) SetSessionChecker(sessions SessionChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = sessions
}

func channelName(sessionID uuid.UUID) string {
	return "chat_updates:" + sessionID.String()
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := h.auth.ParseSessionToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.mu.RLock()
	sessions := h.sessions
	h.mu.RUnlock()
	if sessions != nil && !sessions.Exists(sessionID) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.registerConnection(sessionID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], conn)
	h.writeMu[conn] = &sync.Mutex{}

	// Start pub/sub subscription if this is the first connection for this session
	if h.redisClient != nil && len(h.connections[sessionID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	h.logger.Debug("websocket connected",
		zap.String("session_id", sessionID.String()),
		zap.Int("connections", len(h.connections[sessionID])),
	)
}

func (h *Hub) unregisterConnection(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.writeMu, conn)

	conns := h.connections[sessionID]
	for i, c := range conns {
		if c == conn {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[sessionID]) == 0 {
		h.dropSessionLocked(sessionID)
	}

	h.logger.Debug("websocket disconnected", zap.String("session_id", sessionID.String()))
}

func (h *Hub) dropSessionLocked(sessionID uuid.UUID) {
	delete(h.connections, sessionID)
	if cancel, ok := h.cancelFuncs[sessionID]; ok {
		cancel()
		delete(h.cancelFuncs, sessionID)
	}
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, channelName(sessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	type target struct {
		conn *websocket.Conn
		mu   *sync.Mutex
	}

	h.mu.RLock()
	conns := h.connections[sessionID]
	targets := make([]target, 0, len(conns))
	for _, conn := range conns {
		targets = append(targets, target{conn: conn, mu: h.writeMu[conn]})
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.mu.Lock()
		t.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("websocket write failed", zap.String("session_id", sessionID.String()), zap.Error(err))
		}
		t.mu.Unlock()
	}
}

// Publish delivers an event to every socket of the session.
func (h *Hub) Publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode event", zap.Error(err))
		return
	}

	if h.redisClient == nil {
		h.broadcast(sessionID, data)
		return
	}

	if err := h.redisClient.Publish(ctx, channelName(sessionID), string(data)).Err(); err != nil {
		h.logger.Warn("redis publish failed, delivering locally", zap.Error(err))
		h.broadcast(sessionID, data)
	}
}

// CloseSession disconnects every socket of an ended session.
func (h *Hub) CloseSession(sessionID uuid.UUID) {
	h.mu.Lock()
	conns := h.connections[sessionID]
	h.dropSessionLocked(sessionID)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}

// Close disconnects every socket.
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]uuid.UUID, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.CloseSession(id)
	}
}

// ConnectionCount returns the number of open sockets for a session.
func (h *Hub) ConnectionCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}
