package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/flatsim/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// client is one WebSocket viewer. Frames are queued on send and written by a
// dedicated goroutine; a full queue drops the frame.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

type hub struct {
	config Config
	logger log.Log

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	broadcasts uint64 // atomic
	dropped    uint64 // atomic
}

func newHub(config Config, logger log.Log) *hub {
	return &hub{
		config:  config,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// open lets clients join again after closeAll.
func (h *hub) open() {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()
}

func (h *hub) add(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrServerNotRunning
	}
	if len(h.clients) >= h.config.MaxClients {
		return ErrMaxClientsReached
	}
	h.clients[c] = struct{}{}
	return nil
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) counters() (uint64, uint64) {
	return atomic.LoadUint64(&h.broadcasts), atomic.LoadUint64(&h.dropped)
}

func (h *hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	atomic.AddUint64(&h.broadcasts, 1)
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

func (h *hub) sendTo(c *client, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- frame:
	default:
		atomic.AddUint64(&h.dropped, 1)
	}
}

// closeAll drops every client and refuses new ones until open is called.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", log.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, s.config.ClientBufferSize)}
	if err = s.hub.add(c); err != nil {
		code := websocket.CloseTryAgainLater
		if errors.Is(err, ErrServerNotRunning) {
			code = websocket.CloseGoingAway
		}
		s.logger.Warn("Rejecting connection",
			log.String("remote_addr", conn.RemoteAddr().String()),
			log.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	clientLogger := s.logger.With(log.String("remote_addr", conn.RemoteAddr().String()))
	clientLogger.Info("Client connected", log.Int("total_clients", s.hub.count()))

	// New viewers get the current state right away.
	if frame, err := json.Marshal(s.world.Snapshot()); err == nil {
		s.hub.sendTo(c, frame)
	}

	go s.writePump(c, clientLogger)
	s.readPump(c)

	s.hub.remove(c)
	clientLogger.Info("Client disconnected", log.Int("total_clients", s.hub.count()))
}

// readPump discards client messages and returns when the connection closes.
func (s *Server) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client, logger log.Log) {
	defer func() { _ = c.conn.Close() }()

	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Debug("Failed to send snapshot", log.Error(err))
			return
		}
	}

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
		time.Now().Add(time.Second))
}
