package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// udpListener receives update lines from the S-LDM. A datagram carries one
// or more newline separated lines, possibly NUL terminated.
type udpListener struct {
	conn   *net.UDPConn
	out    chan<- string
	logger *slog.Logger

	datagrams prometheus.Counter
	errors    prometheus.Counter
}

func listenUDP(bind string, port int, out chan<- string, logger *slog.Logger, reg prometheus.Registerer) (*udpListener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(bind, fmt.Sprint(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve udp address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	u := &udpListener{
		conn:   conn,
		out:    out,
		logger: logger,
		datagrams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visualizer",
			Subsystem: "udp",
			Name:      "datagrams_total",
			Help:      "Datagrams received from the S-LDM",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visualizer",
			Subsystem: "udp",
			Name:      "socket_errors_total",
			Help:      "Socket read errors encountered",
		}),
	}
	if reg != nil {
		reg.MustRegister(u.datagrams, u.errors)
	}
	return u, nil
}

func (u *udpListener) addr() net.Addr {
	return u.conn.LocalAddr()
}

// run reads datagrams until ctx is done, then closes the socket.
func (u *udpListener) run(ctx context.Context) {
	defer u.conn.Close()
	u.logger.Info("udp listener started", "addr", u.addr().String())
	buf := make([]byte, 65536)
	for {
		if ctx.Err() != nil {
			return
		}
		// The deadline lets the loop notice cancellation.
		_ = u.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			u.errors.Inc()
			u.logger.Warn("udp read error", "error", err)
			continue
		}
		u.datagrams.Inc()
		for _, line := range splitDatagram(buf[:n]) {
			select {
			case u.out <- line:
			case <-ctx.Done():
				return
			}
		}
	}
}

func splitDatagram(b []byte) []string {
	payload := strings.TrimRight(string(b), "\x00\r\n")
	if payload == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
