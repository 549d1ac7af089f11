// Package monitor is the polling daemon: it owns the serial link, keeps a
// cached status snapshot fresh, and serves it over HTTP.
//
// Ownership boundary:
//   - serial port lifecycle and the single Session on it
//   - the poll loop and the cached snapshot
//   - the HTTP read surface (health, metrics, status, registry lookups)
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/tomjnixon/mk2go/internal/config"
	"github.com/tomjnixon/mk2go/internal/frames"
	"github.com/tomjnixon/mk2go/internal/observability"
	"github.com/tomjnixon/mk2go/internal/vebus"
)

type Service struct {
	cfg config.Config
	log zerolog.Logger

	conn *vebus.Connection
	sess *vebus.Session

	mu     sync.RWMutex
	status Status

	startedAt time.Time
}

func NewService(cfg config.Config, log zerolog.Logger) *Service {
	return &Service{cfg: cfg, log: log, startedAt: time.Now()}
}

// Run opens the device and serves until ctx is cancelled or the serial
// stream dies.
func (s *Service) Run(ctx context.Context) error {
	port, err := serial.Open(s.cfg.Device.Path, &serial.Mode{BaudRate: s.cfg.Device.Baud})
	if err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Device.Path, err)
	}

	s.conn = vebus.NewConnection(port, vebus.Config{
		ReplyTimeout:     s.cfg.Link.ReplyTimeout.Duration,
		Retries:          s.cfg.Link.Retries,
		HandshakeTimeout: s.cfg.Link.HandshakeTimeout.Duration,
	}, s.log)
	s.conn.Start()
	defer s.conn.Close()

	s.sess = vebus.NewSession(s.conn, s.cfg.Device.Address, s.log)
	if err := s.sess.Start(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if v, err := s.sess.Version(ctx); err == nil {
		s.log.Info().Str("version", fmt.Sprintf("%08x", v.Version)).Msg("device connected")
		s.mu.Lock()
		s.status.Version = fmt.Sprintf("%08x", v.Version)
		s.mu.Unlock()
	}

	observability.RegisterMetrics()
	server := &http.Server{Addr: s.cfg.HTTP.Listen, Handler: s.Router()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()
	go s.pollLoop(ctx)

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutCtx)
		return ctx.Err()
	case <-s.conn.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutCtx)
		return errors.New("monitor: serial stream closed")
	case err := <-serveErr:
		return fmt.Errorf("monitor: serve: %w", err)
	}
}

func (s *Service) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Monitor.PollInterval.Duration)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ticker.C:
			s.poll(ctx)
		case <-ctx.Done():
			return
		case <-s.conn.Done():
			return
		}
	}
}

func (s *Service) poll(ctx context.Context) {
	var snap Status

	dc, err := s.sess.DCStatus(ctx)
	if err != nil {
		s.pollFailed("dc status", err)
		return
	}
	snap.DC = newDCView(dc)

	ac, err := s.sess.ACStatus(ctx, frames.L1Info)
	if err != nil {
		s.pollFailed("ac status", err)
		return
	}
	snap.AC = newACView(ac)

	leds, err := s.sess.LEDStatus(ctx)
	if err != nil {
		s.pollFailed("led status", err)
		return
	}
	snap.LEDs = newLEDView(leds)

	snap.UpdatedAt = time.Now().UTC()
	s.log.Debug().
		Float64("u_bat", snap.DC.Voltage).
		Float64("i_charger", snap.DC.ChargerCurrent).
		Str("state", snap.AC.State).
		Msg("polled")
	s.mu.Lock()
	snap.Version = s.status.Version
	s.status = snap
	s.mu.Unlock()
}

func (s *Service) pollFailed(what string, err error) {
	s.log.Warn().Err(err).Str("poll", what).Msg("poll failed")
	s.mu.Lock()
	s.status.LastError = fmt.Sprintf("%s: %v", what, err)
	s.mu.Unlock()
}

// Snapshot returns the latest cached status.
func (s *Service) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
