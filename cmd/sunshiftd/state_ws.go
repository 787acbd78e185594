package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + status feed
// ============================================================================
// UI surfaces (tray menu, widgets) subscribe here instead of polling. The
// scheduler publishes a DaemonStatus after every resolution; the server stores
// the latest snapshot for state_init on connect and broadcasts state_changed
// frames to connected clients.
//
// Messages are JSON text frames with an envelope {type, ts, data}. Slow
// clients are disconnected when their send buffer fills; one stuck tray widget
// must not block the feed.
// ============================================================================

// envelope is the wire format for WS messages.
type envelope struct {
	Type string      `json:"type"`
	Ts   *time.Time  `json:"ts,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// ==============================
// Hub
// ==============================

type Hub struct {
	logger *slog.Logger

	// broadcast carries already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size; zero picks a default.
	SendBuf int
	// BroadcastBuf is the hub inbound queue size; zero picks a default.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 16
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 64
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first; removing while ranging would race.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		// Closing send signals writePump to exit.
		safeCloseChan(c.send)
		h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // ignore "close of closed channel"
	}()
	close(ch)
}

// BroadcastBytes enqueues a serialized frame for fanout. Never blocks; drops
// when the hub queue is full.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ==============================
// Client
// ==============================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 16
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// closeStatus extracts a readable websocket close code/text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

// writePump writes queued messages and keepalive pings to the websocket.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					if code, text, ok := closeStatus(err); ok {
						c.logger.Info("ws writePump exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
					} else {
						c.logger.Info("ws writePump exiting (write error)", "remote_addr", c.remoteAddr, "error", err)
					}
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Info("ws writePump exiting (ping error)", "remote_addr", c.remoteAddr, "error", err)
				}
				return
			}
		}
	}
}

// readPump discards inbound messages to detect disconnects and drive pongs.
func (c *Client) readPump(ctx context.Context) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				if code, text, ok := closeStatus(err); ok {
					c.logger.Info("ws readPump exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
				} else {
					c.logger.Info("ws readPump exiting (read error)", "remote_addr", c.remoteAddr, "error", err)
				}
			}
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
	}
}

// ==============================
// Server
// ==============================

// StateServer owns the hub and the latest published status snapshot.
type StateServer struct {
	logger *slog.Logger
	hub    *Hub

	mu   sync.Mutex
	last *DaemonStatus
}

func NewStateServer(logger *slog.Logger, cfg HubConfig) *StateServer {
	return &StateServer{
		logger: logger,
		hub:    NewHub(logger, cfg),
	}
}

func (s *StateServer) Hub() *Hub { return s.hub }

// Publish stores the snapshot and broadcasts a state_changed frame. Called by
// the scheduler after every resolution.
func (s *StateServer) Publish(st DaemonStatus) {
	s.mu.Lock()
	s.last = &st
	s.mu.Unlock()

	now := time.Now().UTC()
	msg, err := json.Marshal(envelope{Type: "state_changed", Ts: &now, Data: st})
	if err != nil {
		s.logger.Warn("ws state marshal failed", "error", err)
		return
	}
	s.hub.BroadcastBytes(msg)
}

// Register installs the WS handler on mux.
func (s *StateServer) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	// The listener binds localhost; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStateWS upgrades, registers the client, and sends state_init.
func (s *StateServer) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.register <- client

	// Pumps must not be tied to r.Context(): net/http cancels it when the
	// handler returns, which would kill the connection with a 1006.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return
	}

	now := time.Now().UTC()
	initMsg, err := json.Marshal(envelope{Type: "state_init", Ts: &now, Data: *last})
	if err != nil {
		s.logger.Warn("ws state_init marshal failed", "error", err)
		return
	}

	select {
	case client.send <- initMsg:
	default:
		s.hub.unregister <- client
	}
}

// runStateServer serves the WS endpoint until ctx is canceled.
func runStateServer(ctx context.Context, port int, server *StateServer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	server.Register(mux, "/ws")

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}

	logger.Info("state server listening", "addr", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("state server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("state server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}
