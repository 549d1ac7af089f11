package frames

import (
	"encoding/binary"

	"github.com/tomjnixon/mk2go/internal/framing"
)

// SelectAddress picks which device on the bus subsequent commands talk to.
type SelectAddress struct {
	Address byte
}

func (c SelectAddress) Frame() framing.Frame {
	return command('A', 0x01, c.Address)
}

func (c SelectAddress) Accepts(r Reply) bool {
	_, ok := r.(*AddressReply)
	return ok
}

// VersionRequest asks for a version frame; the device also broadcasts one
// every 1.5s unprompted, which makes this a cheap liveness probe.
type VersionRequest struct{}

func (VersionRequest) Frame() framing.Frame {
	return command('V')
}

func (VersionRequest) Accepts(r Reply) bool {
	_, ok := r.(*VersionReply)
	return ok
}

// InfoKind selects which status snapshot an InfoRequest asks for.
type InfoKind byte

const (
	DCInfo InfoKind = 0
	L1Info InfoKind = 1
)

// InfoRequest asks for a DC or AC status snapshot.
type InfoRequest struct {
	Kind InfoKind
}

func (c InfoRequest) Frame() framing.Frame {
	return command('F', byte(c.Kind))
}

func (c InfoRequest) Accepts(r Reply) bool {
	switch r.(type) {
	case *DCInfoReply:
		return c.Kind == DCInfo
	case *ACInfoReply:
		return c.Kind != DCInfo
	}
	return false
}

// Reset restarts the device. Nothing answers it.
type Reset struct {
	Address uint32
}

func (c Reset) Frame() framing.Frame {
	var data [5]byte
	data[0] = 8
	binary.LittleEndian.PutUint16(data[1:3], uint16(c.Address>>16))
	binary.LittleEndian.PutUint16(data[3:5], uint16(c.Address))
	return command('F', data[:]...)
}

func (Reset) Accepts(Reply) bool { return false }

// LEDRequest asks for the front-panel LED states.
type LEDRequest struct{}

func (LEDRequest) Frame() framing.Frame {
	return command('L')
}

func (LEDRequest) Accepts(r Reply) bool {
	_, ok := r.(*LEDStatusReply)
	return ok
}

// ReadRAMVars reads up to six runtime variables by id in one exchange.
type ReadRAMVars struct {
	IDs []uint8
}

func (c ReadRAMVars) Frame() framing.Frame {
	data := make([]byte, 0, 1+len(c.IDs))
	data = append(data, winmonReadRAMVars)
	data = append(data, c.IDs...)
	return command('X', data...)
}

func (c ReadRAMVars) Accepts(r Reply) bool {
	switch r.(type) {
	case *RAMVarValuesReply, *RAMVarUnsupportedReply:
		return true
	}
	return false
}

// ReadSetting reads one persisted setting's raw value.
type ReadSetting struct {
	ID uint16
}

func (c ReadSetting) Frame() framing.Frame {
	var data [3]byte
	data[0] = winmonReadSetting
	binary.LittleEndian.PutUint16(data[1:], c.ID)
	return command('X', data[:]...)
}

func (c ReadSetting) Accepts(r Reply) bool {
	switch r.(type) {
	case *SettingValueReply, *SettingUnsupportedReply:
		return true
	}
	return false
}

// WriteValue writes a RAM variable or setting by id. RAMOnly makes a
// setting write volatile; it is meaningless for RAM variables.
type WriteValue struct {
	ID        uint8
	IsSetting bool
	RAMOnly   bool
	Value     uint16
}

func (c WriteValue) Frame() framing.Frame {
	var flags byte
	if c.IsSetting {
		flags |= 0b01
	}
	if c.RAMOnly {
		flags |= 0b10
	}
	var data [5]byte
	data[0] = winmonWriteViaID
	data[1] = flags
	data[2] = c.ID
	binary.LittleEndian.PutUint16(data[3:], c.Value)
	return command('X', data[:]...)
}

func (c WriteValue) Accepts(r Reply) bool {
	switch r.(type) {
	case *WriteAckReply, *UnknownCommandReply:
		return true
	}
	return false
}

// RAMVarInfoRequest asks the device for its own scaling info for a RAM
// variable; used to cross-check the static registry.
type RAMVarInfoRequest struct {
	ID uint16
}

func (c RAMVarInfoRequest) Frame() framing.Frame {
	var data [3]byte
	data[0] = winmonRAMVarInfo
	binary.LittleEndian.PutUint16(data[1:], c.ID)
	return command('X', data[:]...)
}

func (c RAMVarInfoRequest) Accepts(r Reply) bool {
	_, ok := r.(*RAMVarInfoReply)
	return ok
}

// SettingInfoRequest asks the device for its own scaling and range info for
// a setting.
type SettingInfoRequest struct {
	ID uint16
}

func (c SettingInfoRequest) Frame() framing.Frame {
	var data [3]byte
	data[0] = winmonSettingInfo
	binary.LittleEndian.PutUint16(data[1:], c.ID)
	return command('X', data[:]...)
}

func (c SettingInfoRequest) Accepts(r Reply) bool {
	_, ok := r.(*SettingInfoReply)
	return ok
}

// SwitchState is the requested operating mode in a SetState command.
type SwitchState byte

const (
	SwitchChargerOnly  SwitchState = 1
	SwitchInverterOnly SwitchState = 2
	SwitchOn           SwitchState = 3
	SwitchOff          SwitchState = 4
)

// StateFlags tune how chatty the device is.
type StateFlags byte

const (
	FlagAutoSendState          StateFlags = 1 << 0
	FlagAutoAppendLEDState     StateFlags = 1 << 1
	FlagNoSendPanelState       StateFlags = 1 << 4
	FlagAutoForwardPanelFrames StateFlags = 1 << 6
	flagCurrentLimitInAmps     StateFlags = 1 << 7
)

// ExtStateFlags live in the extended form of the state command.
type ExtStateFlags byte

const (
	ExtFlagShortWinmonFrames      ExtStateFlags = 1 << 0
	ExtFlagForwardConfigResponses ExtStateFlags = 1 << 2
	ExtFlagIgnoreBlockMode        ExtStateFlags = 1 << 3
)

// NoCurrentLimit leaves the device's configured input limit untouched.
const NoCurrentLimit uint16 = 0x8000

// SetState switches operating mode and panel behavior. The extended form
// (Extended=true) carries ExtFlags and must be sent once at session start:
// without it the device answers winmon commands with short split frames
// this catalog does not parse. Nothing answers it.
type SetState struct {
	State    SwitchState
	Limit    uint16 // NoCurrentLimit to leave as-is
	Flags    StateFlags
	Extended bool
	ExtFlags ExtStateFlags
}

func (c SetState) Frame() framing.Frame {
	flags := c.Flags | flagCurrentLimitInAmps
	data := make([]byte, 0, 8)
	data = append(data, byte(c.State))
	data = binary.LittleEndian.AppendUint16(data, c.Limit)
	data = append(data, 0x01, byte(flags))
	if c.Extended {
		data = append(data, 0x00, byte(c.ExtFlags), 0x00)
	}
	return command('S', data...)
}

func (SetState) Accepts(Reply) bool { return false }
