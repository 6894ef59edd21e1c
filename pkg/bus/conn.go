package bus

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCallTimeout is used by Call when the caller's context carries no
// deadline of its own.
const DefaultCallTimeout = 30 * time.Second

// Handler processes an incoming method call or signal addressed to this
// connection's side of the bus. HandleCall returns the reply body, or a
// non-nil *Error to send back as an error frame instead.
type Handler interface {
	HandleCall(path, iface, member string, body json.RawMessage) (json.RawMessage, *Error)
	HandleSignal(path, iface, member string, body json.RawMessage)
}

// pendingCall tracks a method call awaiting its reply.
type pendingCall struct {
	reply chan *Frame
}

// Conn is one peer-to-peer connection: a node's connection to the
// orchestrator, or a client's connection to the public bus. It owns the
// framing and call-correlation machinery; object dispatch is delegated to
// a Handler supplied by the caller.
type Conn struct {
	conn net.Conn

	mu      sync.Mutex
	pending map[string]*pendingCall
	closed  bool

	// OnDisconnect, if set, is invoked exactly once when the connection's
	// read loop exits, whether because of a clean close or a transport
	// error.
	OnDisconnect func(err error)
}

// NewConn wraps an already-established net.Conn.
func NewConn(c net.Conn) *Conn {
	return &Conn{
		conn:    c,
		pending: make(map[string]*pendingCall),
	}
}

// RemoteAddr returns the address of the peer on the other end.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Serve reads frames until the connection closes or the context is
// cancelled, dispatching calls and signals to h and replies to whichever
// goroutine is blocked in Call. Serve blocks; callers run it in its own
// goroutine per accepted connection.
func (c *Conn) Serve(ctx context.Context, h Handler) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		f, err := readFrame(c.conn)
		if err != nil {
			c.abortPending(err)
			if c.OnDisconnect != nil {
				c.OnDisconnect(err)
			}
			return err
		}

		switch f.Type {
		case FrameReply, FrameError:
			c.deliverReply(f)
		case FrameMethodCall:
			go c.dispatchCall(h, f)
		case FrameSignal:
			h.HandleSignal(f.Path, f.Interface, f.Member, f.Body)
		}
	}
}

func (c *Conn) dispatchCall(h Handler, f *Frame) {
	body, busErr := h.HandleCall(f.Path, f.Interface, f.Member, f.Body)
	if busErr != nil {
		_ = c.send(&Frame{
			Type:        FrameError,
			ReplySerial: f.Serial,
			ErrorName:   busErr.Name,
			Body:        mustMarshal(busErr.Message),
		})
		return
	}
	_ = c.send(&Frame{
		Type:        FrameReply,
		ReplySerial: f.Serial,
		Body:        body,
	})
}

func (c *Conn) deliverReply(f *Frame) {
	c.mu.Lock()
	p, ok := c.pending[f.ReplySerial]
	if ok {
		delete(c.pending, f.ReplySerial)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	p.reply <- f
}

func (c *Conn) abortPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for serial, p := range c.pending {
		delete(c.pending, serial)
		close(p.reply)
	}
}

// Call sends a method call to path/iface/member with args marshalled as the
// body, and blocks until the reply arrives, the context is cancelled, or
// DefaultCallTimeout elapses (whichever the context doesn't already bound).
// out, if non-nil, receives the unmarshalled reply body.
func (c *Conn) Call(ctx context.Context, path, iface, member string, args any, out any) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}

	body, err := json.Marshal(args)
	if err != nil {
		return InvalidArgument("marshal call arguments: %v", err)
	}

	serial := uuid.New().String()
	p := &pendingCall{reply: make(chan *Frame, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Disconnected()
	}
	c.pending[serial] = p
	c.mu.Unlock()

	if err := c.send(&Frame{
		Type:      FrameMethodCall,
		Serial:    serial,
		Path:      path,
		Interface: iface,
		Member:    member,
		Body:      body,
	}); err != nil {
		c.mu.Lock()
		delete(c.pending, serial)
		c.mu.Unlock()
		return TransportFailure(err)
	}

	select {
	case f, ok := <-p.reply:
		if !ok {
			return Disconnected()
		}
		if f.Type == FrameError {
			var msg string
			_ = json.Unmarshal(f.Body, &msg)
			return &Error{Name: f.ErrorName, Message: msg}
		}
		if out != nil && len(f.Body) > 0 {
			if err := json.Unmarshal(f.Body, out); err != nil {
				return TransportFailure(err)
			}
		}
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, serial)
		c.mu.Unlock()
		return CallTimeout(serial)
	}
}

// Emit sends a signal with no expectation of a reply.
func (c *Conn) Emit(path, iface, member string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return InvalidArgument("marshal signal payload: %v", err)
	}
	return c.send(&Frame{
		Type:      FrameSignal,
		Path:      path,
		Interface: iface,
		Member:    member,
		Body:      body,
	})
}

func (c *Conn) send(f *Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Disconnected()
	}
	return writeFrame(c.conn, f)
}

// Close closes the underlying connection and fails every call still
// waiting for a reply.
func (c *Conn) Close() error {
	c.abortPending(Disconnected())
	return c.conn.Close()
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
