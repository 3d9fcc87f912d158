// Package udp receives WeatherFlow hub broadcasts.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

type readTimeout struct{}

func (readTimeout) Error() string { return "udp read timeout" }
func (readTimeout) Timeout() bool { return true }

// ErrReadTimeout is returned when no datagram arrived within the read
// timeout. It reports Timeout() == true so callers can treat it as idle.
var ErrReadTimeout error = readTimeout{}

// Listener reads datagrams from a bound UDP socket. It implements
// pipeline.PacketSource.
type Listener struct {
	conn    net.PacketConn
	buf     []byte
	timeout time.Duration
	logger  *slog.Logger
}

// Listen binds addr. Datagrams larger than bufSize are truncated.
func Listen(ctx context.Context, addr string, bufSize int, timeout time.Duration, logger *slog.Logger) (*Listener, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	logger.Info("udp listener bound", "addr", conn.LocalAddr().String(), "buffer", bufSize)
	return &Listener{
		conn:    conn,
		buf:     make([]byte, bufSize),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// ReadPacket blocks until a datagram arrives, the read timeout passes or the
// context deadline passes. The returned slice is owned by the caller.
func (l *Listener) ReadPacket(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(l.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := l.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	n, from, err := l.conn.ReadFrom(l.buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrReadTimeout
		}
		return nil, fmt.Errorf("read udp: %w", err)
	}

	l.logger.Debug("datagram received", "from", from.String(), "bytes", n)
	out := make([]byte, n)
	copy(out, l.buf[:n])
	return out, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Close unblocks any pending read and releases the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}
