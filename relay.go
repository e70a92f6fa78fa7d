package main

import (
	"context"
	"log/slog"
	"sync"

	socketio "github.com/googollee/go-socket.io"

	"vehicle-visualizer/marker"
)

// relayEvent is the socket.io event the legacy browser client listens on.
const relayEvent = "message"

// relay forwards raw update lines to socket.io clients. The first valid map
// line is kept and sent to every client that connects later, since nothing
// can be drawn before it.
type relay struct {
	server *socketio.Server
	logger *slog.Logger

	mu      sync.Mutex
	mapLine string
}

func newRelay(logger *slog.Logger) *relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &relay{
		server: socketio.NewServer(nil),
		logger: logger,
	}
	r.server.OnConnect("/", func(c socketio.Conn) error {
		r.logger.Debug("relay client connected", "id", c.ID())
		if line := r.lastMap(); line != "" {
			c.Emit(relayEvent, line)
		}
		return nil
	})
	r.server.OnError("/", func(_ socketio.Conn, err error) {
		r.logger.Warn("relay error", "error", err)
	})
	r.server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		r.logger.Debug("relay client disconnected", "id", c.ID(), "reason", reason)
	})
	return r
}

// run serves socket.io until ctx is done.
func (r *relay) run(ctx context.Context) {
	go func() {
		if err := r.server.Serve(); err != nil {
			r.logger.Error("relay stopped", "error", err)
		}
	}()
	<-ctx.Done()
	if err := r.server.Close(); err != nil {
		r.logger.Warn("relay close error", "error", err)
	}
}

func (r *relay) forward(line string) {
	r.rememberMap(line)
	r.server.BroadcastToNamespace("/", relayEvent, line)
}

func (r *relay) rememberMap(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mapLine != "" {
		return
	}
	rec, err := marker.ParseLine(line)
	if err != nil {
		return
	}
	// Only a map the session can accept; a sentinel center is rejected there.
	if m, ok := rec.(marker.MapInit); ok && marker.ValidCoordinate(m.Center.Lat(), m.Center.Lon()) {
		r.mapLine = line
	}
}

func (r *relay) lastMap() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mapLine
}
