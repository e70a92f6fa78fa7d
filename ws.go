package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHub fans drawing commands out to browser clients. It owns the scene so a
// joining client can be brought up to date before it sees live commands.
type wsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	scene   *scene
	logger  *slog.Logger
}

func newHub(logger *slog.Logger) *wsHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &wsHub{
		clients: make(map[*websocket.Conn]struct{}),
		scene:   newScene(),
		logger:  logger,
	}
}

func (h *wsHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade error", "error", err)
		return
	}
	h.add(conn)
	go h.readPump(conn)
}

// add registers c and replays the current scene to it.
func (h *wsHub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cmd := range h.scene.replay() {
		if err := writeCommand(c, cmd); err != nil {
			h.logger.Debug("ws replay failed", "error", err)
			_ = c.Close()
			return
		}
	}
	h.clients[c] = struct{}{}
	h.logger.Debug("ws client joined", "remote", c.RemoteAddr().String(), "clients", len(h.clients))
}

func (h *wsHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// apply records cmd in the scene and broadcasts it. A command that cannot be
// encoded leaves the scene untouched.
func (h *wsHub) apply(cmd command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode %s command: %w", cmd.Op, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.scene.apply(cmd); err != nil {
		return err
	}
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			c.Close()
			delete(h.clients, c)
		}
	}
	return nil
}

func (h *wsHub) stats() hubStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return hubStats{
		Clients:     len(h.clients),
		Markers:     len(h.scene.markers),
		MapReceived: h.scene.center != nil,
	}
}

type hubStats struct {
	Clients     int  `json:"clients"`
	Markers     int  `json:"markers"`
	MapReceived bool `json:"map"`
}

func (h *wsHub) readPump(c *websocket.Conn) {
	defer func() {
		h.remove(c)
		_ = c.Close()
	}()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func writeCommand(c *websocket.Conn, cmd command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}
