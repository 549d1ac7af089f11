package vebus

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomjnixon/mk2go/internal/frames"
	"github.com/tomjnixon/mk2go/internal/registry"
)

// Session is the public operation surface: scaled, name-level get/set over
// one Connection. Every operation holds the session lock for its whole
// exchange (including both halves of a flag read-modify-write), so callers
// can share a Session freely.
type Session struct {
	mu      sync.Mutex
	conn    *Connection
	address byte
	log     zerolog.Logger
}

// NewSession wraps conn for the device at the given bus address.
func NewSession(conn *Connection, address byte, log zerolog.Logger) *Session {
	return &Session{conn: conn, address: address, log: log}
}

// Start performs the session handshake: select the device address, then
// switch the device to extended winmon frames. Without the switch the
// device splits info replies into short frames this module does not parse.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.conn.cfg.HandshakeTimeout)
	defer cancel()

	reply, err := s.conn.Exchange(ctx, frames.SelectAddress{Address: s.address})
	if err != nil {
		return fmt.Errorf("select address: %w", err)
	}
	if addr := reply.(*frames.AddressReply).Address; addr != s.address {
		return fmt.Errorf("%w: address select returned %d, want %d", ErrUnexpectedReply, addr, s.address)
	}

	err = s.conn.Send(frames.SetState{
		State:    frames.SwitchOn,
		Limit:    frames.NoCurrentLimit,
		Flags:    frames.FlagNoSendPanelState,
		Extended: true,
	})
	if err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	s.log.Debug().Uint8("address", s.address).Msg("session started")
	return nil
}

// GetRAMVar reads one runtime variable by name and returns its scaled value.
func (s *Session) GetRAMVar(ctx context.Context, name string) (float64, error) {
	info, err := registry.LookupVariable(name)
	if err != nil {
		return 0, err
	}
	return s.getVar(ctx, info)
}

// GetRAMVarByID is GetRAMVar keyed by numeric id.
func (s *Session) GetRAMVarByID(ctx context.Context, id uint8) (float64, error) {
	info, err := registry.VariableByID(id)
	if err != nil {
		return 0, err
	}
	return s.getVar(ctx, info)
}

func (s *Session) getVar(ctx context.Context, info registry.VariableInfo) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readRAMVarsLocked(ctx, info.ID)
	if err != nil {
		return 0, err
	}
	return info.ToScaled(values[0]), nil
}

// SetRAMVar writes one runtime variable by name. Conversion failures
// surface before anything touches the wire.
func (s *Session) SetRAMVar(ctx context.Context, name string, value float64) error {
	info, err := registry.LookupVariable(name)
	if err != nil {
		return err
	}
	return s.setVar(ctx, info, value)
}

// SetRAMVarByID is SetRAMVar keyed by numeric id.
func (s *Session) SetRAMVarByID(ctx context.Context, id uint8, value float64) error {
	info, err := registry.VariableByID(id)
	if err != nil {
		return err
	}
	return s.setVar(ctx, info, value)
}

func (s *Session) setVar(ctx context.Context, info registry.VariableInfo, value float64) error {
	raw, err := info.ToRaw(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, info.ID, false, false, raw)
}

// GetSetting reads one persisted setting by name and returns its scaled
// value.
func (s *Session) GetSetting(ctx context.Context, name string) (float64, error) {
	info, err := registry.LookupSetting(name)
	if err != nil {
		return 0, err
	}
	return s.getSetting(ctx, info)
}

// GetSettingByID is GetSetting keyed by numeric id.
func (s *Session) GetSettingByID(ctx context.Context, id uint16) (float64, error) {
	info, err := registry.SettingByID(id)
	if err != nil {
		return 0, err
	}
	return s.getSetting(ctx, info)
}

func (s *Session) getSetting(ctx context.Context, info registry.SettingInfo) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.readSettingLocked(ctx, info.ID)
	if err != nil {
		return 0, err
	}
	return info.ToScaled(raw), nil
}

// SetSetting writes one setting by name. With ramOnly the write takes
// effect immediately but is not persisted, and later persistent reads do
// not reflect it.
func (s *Session) SetSetting(ctx context.Context, name string, value float64, ramOnly bool) error {
	info, err := registry.LookupSetting(name)
	if err != nil {
		return err
	}
	return s.setSetting(ctx, info, value, ramOnly)
}

// SetSettingByID is SetSetting keyed by numeric id.
func (s *Session) SetSettingByID(ctx context.Context, id uint16, value float64, ramOnly bool) error {
	info, err := registry.SettingByID(id)
	if err != nil {
		return err
	}
	return s.setSetting(ctx, info, value, ramOnly)
}

func (s *Session) setSetting(ctx context.Context, info registry.SettingInfo, value float64, ramOnly bool) error {
	raw, err := info.ToRaw(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, uint8(info.ID), true, ramOnly, raw)
}

// SetFlag sets or clears one flag bit via read-modify-write of its flag
// word. The device does not make the two steps atomic; the session lock
// does, as far as this process is concerned.
func (s *Session) SetFlag(ctx context.Context, name string, enabled, ramOnly bool) error {
	flag, err := registry.LookupFlag(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readSettingLocked(ctx, flag.SettingID)
	if err != nil {
		return fmt.Errorf("read flag word: %w", err)
	}

	updated := setBit(raw, flag.Bit, enabled)
	if flag.InvertedBit >= 0 {
		updated = setBit(updated, uint8(flag.InvertedBit), !enabled)
	}
	if updated == raw {
		return nil
	}
	if err := s.writeLocked(ctx, uint8(flag.SettingID), true, ramOnly, updated); err != nil {
		return fmt.Errorf("write flag word: %w", err)
	}
	return nil
}

func setBit(word uint16, bit uint8, on bool) uint16 {
	if on {
		return word | 1<<bit
	}
	return word &^ (1 << bit)
}

// ReadRAMVarsRaw reads raw unscaled values for the given variable ids, in
// order. Useful for ids the registry does not know.
func (s *Session) ReadRAMVarsRaw(ctx context.Context, ids ...uint8) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRAMVarsLocked(ctx, ids...)
}

// the device answers at most six variables per read command
const ramVarBatch = 6

func (s *Session) readRAMVarsLocked(ctx context.Context, ids ...uint8) ([]uint16, error) {
	values := make([]uint16, 0, len(ids))
	for start := 0; start < len(ids); start += ramVarBatch {
		batch := ids[start:min(start+ramVarBatch, len(ids))]
		reply, err := s.conn.Exchange(ctx, frames.ReadRAMVars{IDs: batch})
		if err != nil {
			return nil, err
		}
		switch r := reply.(type) {
		case *frames.RAMVarValuesReply:
			if len(r.Values) < len(batch) {
				return nil, fmt.Errorf("%w: %d values for %d variables", ErrUnexpectedReply, len(r.Values), len(batch))
			}
			values = append(values, r.Values[:len(batch)]...)
		case *frames.RAMVarUnsupportedReply:
			return nil, fmt.Errorf("%w: variable read rejected", ErrUnsupported)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
		}
	}
	return values, nil
}

// ReadSettingRaw reads one raw unscaled setting value by id.
func (s *Session) ReadSettingRaw(ctx context.Context, id uint16) (uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSettingLocked(ctx, id)
}

func (s *Session) readSettingLocked(ctx context.Context, id uint16) (uint16, error) {
	reply, err := s.conn.Exchange(ctx, frames.ReadSetting{ID: id})
	if err != nil {
		return 0, err
	}
	switch r := reply.(type) {
	case *frames.SettingValueReply:
		return r.Raw, nil
	case *frames.SettingUnsupportedReply:
		return 0, fmt.Errorf("%w: setting %d", ErrUnsupported, id)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
}

func (s *Session) writeLocked(ctx context.Context, id uint8, isSetting, ramOnly bool, raw uint16) error {
	cmd := frames.WriteValue{ID: id, IsSetting: isSetting, RAMOnly: ramOnly, Value: raw}
	reply, err := s.conn.Exchange(ctx, cmd)
	if err != nil {
		return err
	}
	switch r := reply.(type) {
	case *frames.WriteAckReply:
		switch r.Status {
		case frames.WriteRAMVarOK:
			if isSetting {
				return fmt.Errorf("%w: setting write acknowledged as variable write", ErrUnexpectedReply)
			}
			return nil
		case frames.WriteSettingOK:
			if !isSetting {
				return fmt.Errorf("%w: variable write acknowledged as setting write", ErrUnexpectedReply)
			}
			return nil
		case frames.WriteNeedAccessLevel:
			return ErrAccessLevelRequired
		}
		return fmt.Errorf("%w: write status %02x", ErrUnexpectedReply, byte(r.Status))
	case *frames.UnknownCommandReply:
		return fmt.Errorf("%w: write to id %d", ErrUnsupported, id)
	default:
		return fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
}
