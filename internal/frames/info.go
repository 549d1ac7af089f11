package frames

import (
	"encoding/binary"

	"github.com/tomjnixon/mk2go/internal/framing"
)

// MainState is the device's operating state as reported in AC info frames.
type MainState byte

const (
	StateDown        MainState = 0x0
	StateStartup     MainState = 0x1
	StateOff         MainState = 0x2
	StateSlave       MainState = 0x3
	StateInvertFull  MainState = 0x4
	StateInvertHalf  MainState = 0x5
	StateInvertAES   MainState = 0x6
	StatePowerAssist MainState = 0x7
	StateBypass      MainState = 0x8
	StateCharge      MainState = 0x9
)

// DCInfoReply is the raw DC snapshot. Currents are 24-bit on the wire.
type DCInfoReply struct {
	Voltage         uint16
	InverterCurrent uint32
	ChargerCurrent  uint32
	InverterPeriod  uint8
}

func (*DCInfoReply) isReply() {}

// ACInfoReply is the raw AC snapshot for one phase. NumPhases is zero when
// the frame does not carry it (phases other than L1).
type ACInfoReply struct {
	Phase     uint8
	NumPhases uint8

	State           MainState
	MainsVoltage    uint16
	MainsCurrent    uint32
	InverterVoltage uint16
	InverterCurrent uint32
	MainsPeriod     uint8
}

func (*ACInfoReply) isReply() {}

// DC and AC info share frame type 0x20 and are told apart by the phase-info
// byte: 0x0C is DC, 0x05..0x0B encode the phase.
const (
	phaseInfoDC   byte = 0x0C
	phaseInfoLow  byte = 0x05
	phaseInfoHigh byte = 0x0B
)

func parseDCInfoReply(f framing.Frame) (Reply, bool) {
	if f.ID != InfoFrameID || len(f.Payload) < 14 || f.Payload[4] != phaseInfoDC {
		return nil, false
	}
	return &DCInfoReply{
		Voltage:         binary.LittleEndian.Uint16(f.Payload[5:7]),
		InverterCurrent: uint24(f.Payload[7:10]),
		ChargerCurrent:  uint24(f.Payload[10:13]),
		InverterPeriod:  f.Payload[13],
	}, true
}

func parseACInfoReply(f framing.Frame) (Reply, bool) {
	if f.ID != InfoFrameID || len(f.Payload) < 14 {
		return nil, false
	}
	phaseInfo := f.Payload[4]
	if phaseInfo < phaseInfoLow || phaseInfo > phaseInfoHigh {
		return nil, false
	}

	var phase, numPhases uint8
	switch phaseInfo {
	case 0x05, 0x06, 0x07:
		phase = uint8(9 - phaseInfo)
	default:
		phase = 1
		numPhases = uint8(phaseInfo - 0x07)
	}

	bfFactor := uint32(f.Payload[0])
	inverterFactor := uint32(f.Payload[1])
	return &ACInfoReply{
		Phase:           phase,
		NumPhases:       numPhases,
		State:           MainState(f.Payload[3]),
		MainsVoltage:    binary.LittleEndian.Uint16(f.Payload[5:7]),
		MainsCurrent:    uint32(binary.LittleEndian.Uint16(f.Payload[7:9])) * bfFactor,
		InverterVoltage: binary.LittleEndian.Uint16(f.Payload[9:11]),
		InverterCurrent: uint32(binary.LittleEndian.Uint16(f.Payload[11:13])) * inverterFactor,
		MainsPeriod:     f.Payload[13],
	}, true
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
