package vebus

import "time"

// Config defines reliability behavior for one Connection.
type Config struct {
	// ReplyTimeout bounds the wait for a matching reply per attempt.
	ReplyTimeout time.Duration
	// Retries is how many times a command is resent after the first
	// attempt times out.
	Retries int
	// HandshakeTimeout bounds the session start exchange.
	HandshakeTimeout time.Duration
	// ReadChunk is the transport read size.
	ReadChunk int
}

// DefaultConfig returns defaults tuned for a 2400 baud serial link.
func DefaultConfig() Config {
	return Config{
		ReplyTimeout:     500 * time.Millisecond,
		Retries:          3,
		HandshakeTimeout: 2 * time.Second,
		ReadChunk:        128,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = d.ReplyTimeout
	}
	if c.Retries < 0 {
		c.Retries = d.Retries
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = d.ReadChunk
	}
	return c
}
