package vebus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomjnixon/mk2go/internal/frames"
	"github.com/tomjnixon/mk2go/internal/framing"
	"github.com/tomjnixon/mk2go/internal/observability"
)

// Connection drives command/reply exchanges over one byte stream. A
// background goroutine owns the read side and feeds the decoder
// continuously, so broadcast frames are drained even while no exchange is
// running.
//
// Connections do not lock; callers are expected to go through a Session,
// which guarantees one exchange at a time. A second concurrent Exchange
// fails with ErrBusy rather than corrupting correlation.
type Connection struct {
	transport io.ReadWriteCloser
	cfg       Config
	log       zerolog.Logger

	// OnUnsolicited observes parsed frames that answered no outstanding
	// command (version broadcasts, LED state and so on). Set before Start.
	OnUnsolicited func(frames.Reply)

	mu     sync.Mutex
	waiter *waiter

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

type waiter struct {
	accepts func(frames.Reply) bool
	ch      chan frames.Reply
}

// NewConnection wraps a byte-stream transport. Call Start before use.
func NewConnection(transport io.ReadWriteCloser, cfg Config, log zerolog.Logger) *Connection {
	return &Connection{
		transport: transport,
		cfg:       cfg.withDefaults(),
		log:       log,
		closed:    make(chan struct{}),
	}
}

// Start launches the background read loop.
func (c *Connection) Start() {
	go c.readLoop()
}

// Close tears down the transport; pending and future exchanges fail with
// ErrStreamClosed.
func (c *Connection) Close() error {
	err := c.transport.Close()
	c.shutdown(ErrStreamClosed)
	return err
}

// Done is closed once the read loop has exited.
func (c *Connection) Done() <-chan struct{} { return c.closed }

func (c *Connection) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
	})
}

func (c *Connection) readLoop() {
	decoder := framing.NewDecoder(c.log)
	buf := make([]byte, c.cfg.ReadChunk)
	var lastDropped, lastChecksum uint64

	for {
		n, err := c.transport.Read(buf)
		if n > 0 {
			for _, f := range decoder.Feed(buf[:n]) {
				c.dispatch(f)
			}
			d, k := decoder.DroppedBytes(), decoder.ChecksumErrors()
			observability.RecordFraming(d-lastDropped, k-lastChecksum)
			lastDropped, lastChecksum = d, k
		}
		if err != nil {
			if err != io.EOF {
				c.log.Error().Err(err).Msg("transport read failed")
			}
			c.shutdown(fmt.Errorf("%w: %v", ErrStreamClosed, err))
			return
		}
	}
}

func (c *Connection) dispatch(f framing.Frame) {
	reply, ok := frames.ParseReply(f)
	if !ok {
		c.log.Debug().
			Uint8("id", f.ID).
			Hex("payload", f.Payload).
			Msg("unrecognized frame")
		observability.RecordUnsolicited()
		return
	}

	c.mu.Lock()
	w := c.waiter
	if w != nil && w.accepts(reply) {
		c.waiter = nil
		c.mu.Unlock()
		w.ch <- reply
		return
	}
	c.mu.Unlock()

	observability.RecordUnsolicited()
	if c.OnUnsolicited != nil {
		c.OnUnsolicited(reply)
	}
}

func (c *Connection) register(cmd frames.Command) (*waiter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiter != nil {
		return nil, ErrBusy
	}
	w := &waiter{accepts: cmd.Accepts, ch: make(chan frames.Reply, 1)}
	c.waiter = w
	return w, nil
}

func (c *Connection) unregister(w *waiter) {
	c.mu.Lock()
	if c.waiter == w {
		c.waiter = nil
	}
	c.mu.Unlock()
}

// Send writes a command without waiting for any reply. For the few
// fire-and-forget commands (reset, state) that nothing answers.
func (c *Connection) Send(cmd frames.Command) error {
	wire, err := framing.Encode(cmd.Frame())
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return c.closeErr
	default:
	}
	c.log.Debug().Hex("wire", wire).Type("command", cmd).Msg("send")
	if _, err := c.transport.Write(wire); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamClosed, err)
	}
	return nil
}

// Exchange sends cmd and blocks until a reply the command accepts arrives,
// the per-attempt timeout expires (resending up to the retry budget), ctx
// is cancelled, or the stream closes. Replies the command does not accept
// are handed to OnUnsolicited and the wait continues.
func (c *Connection) Exchange(ctx context.Context, cmd frames.Command) (frames.Reply, error) {
	wire, err := framing.Encode(cmd.Frame())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	w, err := c.register(cmd)
	if err != nil {
		observability.RecordExchange("busy", 0)
		return nil, err
	}
	defer c.unregister(w)

	timer := time.NewTimer(c.cfg.ReplyTimeout)
	defer timer.Stop()

	for attempt := 0; ; attempt++ {
		if _, err := c.transport.Write(wire); err != nil {
			observability.RecordExchange("write_error", 0)
			return nil, fmt.Errorf("%w: %v", ErrStreamClosed, err)
		}

		select {
		case reply := <-w.ch:
			observability.RecordExchange("ok", time.Since(start))
			return reply, nil
		case <-timer.C:
			if attempt >= c.cfg.Retries {
				observability.RecordExchange("timeout", 0)
				return nil, fmt.Errorf("%w after %d attempts", ErrTimeout, attempt+1)
			}
			observability.RecordRetry()
			c.log.Warn().Type("command", cmd).Int("attempt", attempt+1).Msg("reply timeout, resending")
			timer.Reset(c.cfg.ReplyTimeout)
		case <-ctx.Done():
			observability.RecordExchange("cancelled", 0)
			return nil, ctx.Err()
		case <-c.closed:
			observability.RecordExchange("closed", 0)
			return nil, c.closeErr
		}
	}
}
