package frames

import (
	"github.com/tomjnixon/mk2go/internal/framing"
)

// Identifier values for the frames this catalog understands. CommandFrameID
// doubles as the stream sync byte; InfoFrameID carries the periodic DC/AC
// status broadcasts.
const (
	CommandFrameID byte = framing.SyncByte
	InfoFrameID    byte = 0x20
)

// Winmon sub-command and reply discriminants carried in 'X' frames.
const (
	winmonReadRAMVars    byte = 0x30
	winmonReadSetting    byte = 0x31
	winmonSettingInfo    byte = 0x35
	winmonRAMVarInfo     byte = 0x36
	winmonWriteViaID     byte = 0x37
	winmonUnknownCommand byte = 0x80
	winmonRAMVarValues   byte = 0x85
	winmonSettingValue   byte = 0x86
	winmonWriteRAMVarOK  byte = 0x87
	winmonWriteSettingOK byte = 0x88
	winmonSettingInfoRep byte = 0x89
	winmonRAMVarInfoRep  byte = 0x8E
	winmonRAMVarInfoRep2 byte = 0x8F
	winmonRAMVarBad      byte = 0x90
	winmonSettingBad     byte = 0x91
	winmonAccessLevel    byte = 0x9B
)

// Command is one outgoing request. Accepts reports whether an inbound reply
// satisfies it; the protocol has no sequence numbers, so this shape match is
// the only request/reply correlation there is.
type Command interface {
	Frame() framing.Frame
	Accepts(Reply) bool
}

// Reply is one parsed inbound frame from the closed reply set.
type Reply interface {
	isReply()
}

// replyParsers is tried in order against every decoded frame. The first
// match wins; no match means the frame is unsolicited noise for the caller
// to ignore.
var replyParsers = []func(framing.Frame) (Reply, bool){
	parseWinmonReply,
	parseAddressReply,
	parseVersionReply,
	parseLEDStatusReply,
	parseDCInfoReply,
	parseACInfoReply,
}

// ParseReply attempts to parse f against every known reply shape. ok is
// false for frames no shape claims; that is not an error.
func ParseReply(f framing.Frame) (Reply, bool) {
	for _, parse := range replyParsers {
		if r, ok := parse(f); ok {
			return r, true
		}
	}
	return nil, false
}

// command builds an 'A'/'F'/'X'/... command frame: identifier byte plus the
// command letter and its data.
func command(cmd byte, data ...byte) framing.Frame {
	payload := make([]byte, 0, 1+len(data))
	payload = append(payload, cmd)
	payload = append(payload, data...)
	return framing.Frame{ID: CommandFrameID, Payload: payload}
}

func mk2Command(f framing.Frame) (cmd byte, data []byte, ok bool) {
	if f.ID != CommandFrameID || len(f.Payload) == 0 {
		return 0, nil, false
	}
	return f.Payload[0], f.Payload[1:], true
}
