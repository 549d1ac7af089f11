package frames

import (
	"encoding/binary"

	"github.com/tomjnixon/mk2go/internal/framing"
)

// AddressReply confirms a SelectAddress command.
type AddressReply struct {
	Address byte
}

func (*AddressReply) isReply() {}

func parseAddressReply(f framing.Frame) (Reply, bool) {
	cmd, data, ok := mk2Command(f)
	if !ok || cmd != 'A' {
		return nil, false
	}
	// two bytes, or three with a zero pad byte
	switch len(data) {
	case 2:
	case 3:
		if data[2] != 0x00 {
			return nil, false
		}
	default:
		return nil, false
	}
	if data[0] != 0x01 {
		return nil, false
	}
	return &AddressReply{Address: data[1]}, true
}

// VersionReply is sent in answer to VersionRequest and broadcast every 1.5s
// regardless.
type VersionReply struct {
	Version uint32
	Mode    byte
}

func (*VersionReply) isReply() {}

func parseVersionReply(f framing.Frame) (Reply, bool) {
	cmd, data, ok := mk2Command(f)
	if !ok || cmd != 'V' || len(data) != 5 {
		return nil, false
	}
	return &VersionReply{
		Version: binary.LittleEndian.Uint32(data[:4]),
		Mode:    data[4],
	}, true
}

// LED identifies one front-panel LED.
type LED int

const (
	LEDMains LED = iota
	LEDAbsorption
	LEDBulk
	LEDFloat
	LEDInverter
	LEDOverload
	LEDLowBattery
	LEDTemperature
)

// LEDState is the state of one LED.
type LEDState int

const (
	LEDOff LEDState = iota
	LEDOn
	LEDBlink
	LEDBlinkAntiphase
)

// LEDStatusReply carries the on/blink bitmaps for all LEDs. Known is false
// when the device reports it does not know its LED state.
type LEDStatusReply struct {
	Known bool
	On    byte
	Blink byte
}

func (*LEDStatusReply) isReply() {}

// State returns the state of one LED.
func (r *LEDStatusReply) State(led LED) LEDState {
	on := (r.On >> led) & 1
	blink := (r.Blink >> led) & 1
	return LEDState(on | blink<<1)
}

func parseLEDStatusReply(f framing.Frame) (Reply, bool) {
	cmd, data, ok := mk2Command(f)
	if !ok || cmd != 'L' {
		return nil, false
	}
	// documented as 2 or 3 bytes, observed as 6 when the panel appends
	// extra data
	switch len(data) {
	case 2, 3, 6:
	default:
		return nil, false
	}
	if data[0] == 0x1F && data[1] == 0x1F {
		return &LEDStatusReply{Known: false}, true
	}
	return &LEDStatusReply{Known: true, On: data[0], Blink: data[1]}, true
}

// RAMVarValuesReply carries raw values for a ReadRAMVars command, in
// request order.
type RAMVarValuesReply struct {
	Values []uint16
}

func (*RAMVarValuesReply) isReply() {}

// RAMVarUnsupportedReply means a requested RAM variable cannot be read.
type RAMVarUnsupportedReply struct{}

func (*RAMVarUnsupportedReply) isReply() {}

// SettingValueReply carries one raw setting value.
type SettingValueReply struct {
	Raw uint16
}

func (*SettingValueReply) isReply() {}

// SettingUnsupportedReply means a requested setting does not exist on this
// device.
type SettingUnsupportedReply struct{}

func (*SettingUnsupportedReply) isReply() {}

// WriteStatus discriminates WriteAckReply outcomes.
type WriteStatus byte

const (
	WriteRAMVarOK        = WriteStatus(winmonWriteRAMVarOK)
	WriteSettingOK       = WriteStatus(winmonWriteSettingOK)
	WriteNeedAccessLevel = WriteStatus(winmonAccessLevel)
)

// WriteAckReply answers a WriteValue command.
type WriteAckReply struct {
	Status WriteStatus
}

func (*WriteAckReply) isReply() {}

// UnknownCommandReply means the device did not recognize a winmon command;
// in practice it answers writes to ids that do not exist.
type UnknownCommandReply struct {
	Info byte
}

func (*UnknownCommandReply) isReply() {}

// RAMVarInfoReply carries the device's own scaling for one RAM variable.
// Supported is false when the device does not implement the variable. A bit
// variable reports its bit position instead of a scale.
type RAMVarInfoReply struct {
	Supported bool
	IsBit     bool
	Bit       uint8
	Signed    bool
	Scale     float64
	Offset    int16
}

func (*RAMVarInfoReply) isReply() {}

// SettingInfoReply carries the device's own scaling and raw range for one
// setting.
type SettingInfoReply struct {
	Scale       float64
	Offset      int16
	Default     uint16
	Minimum     uint16
	Maximum     uint16
	AccessLevel byte
}

func (*SettingInfoReply) isReply() {}

func parseWinmonReply(f framing.Frame) (Reply, bool) {
	cmd, data, ok := mk2Command(f)
	if !ok || cmd != 'X' || len(data) == 0 {
		return nil, false
	}

	switch data[0] {
	case winmonUnknownCommand:
		if len(data) < 2 {
			return nil, false
		}
		return &UnknownCommandReply{Info: data[1]}, true

	case winmonRAMVarValues:
		values := make([]uint16, 0, (len(data)-1)/2)
		for off := 1; off+2 <= len(data); off += 2 {
			values = append(values, binary.LittleEndian.Uint16(data[off:off+2]))
		}
		return &RAMVarValuesReply{Values: values}, true

	case winmonRAMVarBad:
		return &RAMVarUnsupportedReply{}, true

	case winmonSettingValue:
		if len(data) < 3 {
			return nil, false
		}
		return &SettingValueReply{Raw: binary.LittleEndian.Uint16(data[1:3])}, true

	case winmonSettingBad:
		return &SettingUnsupportedReply{}, true

	case winmonWriteRAMVarOK, winmonWriteSettingOK, winmonAccessLevel:
		return &WriteAckReply{Status: WriteStatus(data[0])}, true

	case winmonRAMVarInfoRep:
		return parseRAMVarInfo(data)

	case winmonSettingInfoRep:
		return parseSettingInfo(data)
	}
	return nil, false
}

// parseRAMVarInfo decodes the four observed shapes of the 0x8E reply; the
// six-byte form carries a second 0x8F part holding the offset.
func parseRAMVarInfo(data []byte) (Reply, bool) {
	var rawScale, rawOffset int16
	switch len(data) {
	case 1:
		// no scale at all: unsupported
		return &RAMVarInfoReply{}, true
	case 3:
		rawScale = int16(binary.LittleEndian.Uint16(data[1:3]))
		if rawScale != 0 {
			return nil, false
		}
	case 5:
		rawScale = int16(binary.LittleEndian.Uint16(data[1:3]))
		rawOffset = int16(binary.LittleEndian.Uint16(data[3:5]))
	case 6:
		rawScale = int16(binary.LittleEndian.Uint16(data[1:3]))
		if data[3] != winmonRAMVarInfoRep2 {
			return nil, false
		}
		rawOffset = int16(binary.LittleEndian.Uint16(data[4:6]))
	default:
		return nil, false
	}

	if rawScale == 0 {
		return &RAMVarInfoReply{}, true
	}
	if uint16(rawOffset) == 0x8000 {
		if rawScale < 1 || rawScale > 16 {
			return nil, false
		}
		return &RAMVarInfoReply{Supported: true, IsBit: true, Bit: uint8(rawScale - 1)}, true
	}

	signed := rawScale < 0
	scale := float64(rawScale)
	if signed {
		scale = -scale
	}
	if scale >= 0x4000 {
		scale = 1 / (0x8000 - scale)
	}
	return &RAMVarInfoReply{
		Supported: true,
		Signed:    signed,
		Scale:     scale,
		Offset:    rawOffset,
	}, true
}

func parseSettingInfo(data []byte) (Reply, bool) {
	// only the long winmon layout; the short split form is excluded by the
	// extended state command sent at session start
	if len(data) < 12 {
		return nil, false
	}
	rawScale := int16(binary.LittleEndian.Uint16(data[1:3]))
	if rawScale == 0 {
		return nil, false
	}
	scale := float64(rawScale)
	if scale < 0 {
		scale = 1 / (-scale)
	}
	return &SettingInfoReply{
		Scale:       scale,
		Offset:      int16(binary.LittleEndian.Uint16(data[3:5])),
		Default:     binary.LittleEndian.Uint16(data[5:7]),
		Minimum:     binary.LittleEndian.Uint16(data[7:9]),
		Maximum:     binary.LittleEndian.Uint16(data[9:11]),
		AccessLevel: data[11],
	}, true
}
