package vebus

import (
	"context"
	"fmt"

	"github.com/tomjnixon/mk2go/internal/frames"
	"github.com/tomjnixon/mk2go/internal/registry"
)

// DCStatus is a scaled DC-side snapshot. Currents are in amps, voltage in
// volts, period in the inverter period unit of the variable registry.
type DCStatus struct {
	Voltage         float64
	InverterCurrent float64
	ChargerCurrent  float64
	InverterPeriod  float64
}

// ACStatus is a scaled AC snapshot for one phase. NumPhases is zero except
// on L1 frames, which carry the phase count for the whole system.
type ACStatus struct {
	Phase     uint8
	NumPhases uint8

	State           frames.MainState
	MainsVoltage    float64
	MainsCurrent    float64
	InverterVoltage float64
	InverterCurrent float64
	MainsPeriod     float64
}

// DCStatus polls the DC snapshot and scales it with the registry entries
// for battery voltage, battery current and inverter period.
func (s *Session) DCStatus(ctx context.Context) (*DCStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.conn.Exchange(ctx, frames.InfoRequest{Kind: frames.DCInfo})
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*frames.DCInfoReply)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}

	uBat := mustVariable(registry.VarUBat)
	iBat := mustVariable(registry.VarIBat)
	period := mustVariable(registry.VarInverterPeriod)
	return &DCStatus{
		Voltage:         uBat.ToScaled(r.Voltage),
		InverterCurrent: float64(r.InverterCurrent) * iBat.Scale,
		ChargerCurrent:  float64(r.ChargerCurrent) * iBat.Scale,
		InverterPeriod:  float64(r.InverterPeriod) * period.Scale,
	}, nil
}

// ACStatus polls the AC snapshot for one phase.
func (s *Session) ACStatus(ctx context.Context, kind frames.InfoKind) (*ACStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.conn.Exchange(ctx, frames.InfoRequest{Kind: kind})
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*frames.ACInfoReply)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}

	uMains := mustVariable(registry.VarUMainsRMS)
	iMains := mustVariable(registry.VarIMainsRMS)
	uInverter := mustVariable(registry.VarUInverterRMS)
	iInverter := mustVariable(registry.VarIInverterRMS)
	period := mustVariable(registry.VarMainsPeriod)
	return &ACStatus{
		Phase:           r.Phase,
		NumPhases:       r.NumPhases,
		State:           r.State,
		MainsVoltage:    uMains.ToScaled(r.MainsVoltage),
		MainsCurrent:    float64(r.MainsCurrent) * iMains.Scale,
		InverterVoltage: uInverter.ToScaled(r.InverterVoltage),
		InverterCurrent: float64(r.InverterCurrent) * iInverter.Scale,
		MainsPeriod:     float64(r.MainsPeriod) * period.Scale,
	}, nil
}

func mustVariable(id uint8) registry.VariableInfo {
	info, err := registry.VariableByID(id)
	if err != nil {
		panic(fmt.Sprintf("vebus: registry missing builtin variable %d", id))
	}
	return info
}

// LEDStatus polls the front-panel LED states.
func (s *Session) LEDStatus(ctx context.Context) (*frames.LEDStatusReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.conn.Exchange(ctx, frames.LEDRequest{})
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*frames.LEDStatusReply)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
	return r, nil
}

// Version polls the interface firmware version.
func (s *Session) Version(ctx context.Context) (*frames.VersionReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.conn.Exchange(ctx, frames.VersionRequest{})
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*frames.VersionReply)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
	return r, nil
}

// VariableDeviceInfo asks the device for its own scaling info for a RAM
// variable. Diagnostic: the registry is authoritative for normal reads, but
// this is the way to cross-check registry entries against real hardware.
func (s *Session) VariableDeviceInfo(ctx context.Context, id uint16) (*frames.RAMVarInfoReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.conn.Exchange(ctx, frames.RAMVarInfoRequest{ID: id})
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*frames.RAMVarInfoReply)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
	if !r.Supported {
		return nil, fmt.Errorf("%w: variable %d", ErrUnsupported, id)
	}
	return r, nil
}

// SettingDeviceInfo asks the device for its own scaling and range info for
// a setting.
func (s *Session) SettingDeviceInfo(ctx context.Context, id uint16) (*frames.SettingInfoReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := s.conn.Exchange(ctx, frames.SettingInfoRequest{ID: id})
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*frames.SettingInfoReply)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
	return r, nil
}

// Reset asks the device at the given address to restart. The device does
// not reply; expect the session to need a new Start afterwards.
func (s *Session) Reset(address uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Send(frames.Reset{Address: address})
}
