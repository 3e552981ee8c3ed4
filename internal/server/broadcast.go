package server

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/inkglow/internal/compose"
)

// outbound is one queued write. A frame's metadata and payload travel
// together so they are never interleaved with other messages.
type outbound struct {
	msg  any
	data []byte
}

// client is one WebSocket connection with its own writer goroutine.
type client struct {
	conn    *websocket.Conn
	send    chan outbound
	limiter *rateLimiter
	dropped atomic.Uint64
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan outbound, ClientQueueSize), limiter: &rateLimiter{}}
}

// enqueue never blocks; a slow client loses messages instead.
func (c *client) enqueue(o outbound) bool {
	select {
	case c.send <- o:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, WriteTimeout)
			err := wsjson.Write(wctx, c.conn, o.msg)
			if err == nil && o.data != nil {
				err = c.conn.Write(wctx, websocket.MessageBinary, o.data)
			}
			cancel()
			if err != nil {
				slog.Debug("websocket write error", "error", err)
				return
			}
		}
	}
}

// frameDedup skips frames that look the same as the last one sent, but
// never more than forceEvery-1 in a row.
type frameDedup struct {
	forceEvery int

	mu      sync.Mutex
	last    *goimagehash.ImageHash
	size    image.Point
	skipped int
}

func newFrameDedup(forceEvery int) *frameDedup {
	return &frameDedup{forceEvery: max(1, forceEvery)}
}

// changed reports whether img should be sent.
func (d *frameDedup) changed(img image.Image) bool {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return true
	}
	size := img.Bounds().Size()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.last != nil && d.size == size && d.skipped+1 < d.forceEvery {
		if dist, err := d.last.Distance(hash); err == nil && dist <= MaxHashDistance {
			d.skipped++
			return false
		}
	}
	d.last, d.size, d.skipped = hash, size, 0
	return true
}

// Publish sends a composed frame to every client. It is the pipeline sink.
func (s *Server) Publish(out *compose.Output) {
	if out == nil || out.Image == nil || s.clientCount() == 0 {
		return
	}
	if !s.dedup.changed(out.Image) {
		return
	}
	seq := s.seq.Add(1)
	s.broadcast(outbound{msg: frameMessage(seq, out), data: out.Straight()})
}

func (s *Server) broadcast(o outbound) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.enqueue(o)
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
