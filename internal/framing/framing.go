package framing

import (
	"errors"
)

// SyncByte marks the start of a command frame and is reserved on the wire:
// payload occurrences are escaped by doubling so a payload byte can never be
// mistaken for a frame boundary during resynchronization.
const SyncByte byte = 0xFF

// MaxDataLen is the largest identifier+payload length the 7-bit length
// prefix can carry. The high bit of the length byte flags appended LED
// state, not length.
const MaxDataLen = 0x7F

const ledStateFlag byte = 0x80

var (
	ErrFrameTooLarge = errors.New("framing: frame data exceeds length prefix")
	ErrEmptyPayload  = errors.New("framing: command frame needs at least one payload byte")
)

// DefaultFrameIDs are the identifier values the decoder accepts as frame
// starts. Anything else at the identifier position is treated as noise.
var DefaultFrameIDs = []byte{SyncByte, 0x20, 0x21, 0x41, 0x3C, 0x3F}

// Frame is one decoded protocol message: an identifier byte plus its
// unescaped payload. The length prefix and checksum live only on the wire.
type Frame struct {
	ID      byte
	Payload []byte
}

// Checksum computes the trailing checksum for body, where body is the
// unescaped [length][identifier][payload...] prefix of a frame. For most
// frames the checksum makes the whole frame sum to zero mod 256. Broadcast
// frame types 0x21/0x38/0x3D/0x3F use a variant that folds nibble-swapped
// early bytes into the sum; the device does this in the field even though
// the protocol document does not mention it.
func Checksum(body []byte) byte {
	sum := 0
	for _, b := range body {
		sum += int(b)
	}
	if len(body) >= 2 && oddChecksumID(body[1]) {
		end := len(body)
		if end > 7 {
			end = 7
		}
		for i := 1; i < end; i += 2 {
			sum += int(body[i])>>4 | int(body[i])<<4
		}
	}
	return byte(-sum & 0xFF)
}

func oddChecksumID(id byte) bool {
	switch id {
	case 0x21, 0x38, 0x3D, 0x3F:
		return true
	}
	return false
}

// Encode serializes a frame to wire bytes: length prefix, identifier,
// escaped payload, checksum. The checksum is computed over the unescaped
// logical frame and transmitted unescaped.
func Encode(f Frame) ([]byte, error) {
	dataLen := 1 + len(f.Payload)
	if dataLen > MaxDataLen {
		return nil, ErrFrameTooLarge
	}
	if f.ID == SyncByte && len(f.Payload) == 0 {
		return nil, ErrEmptyPayload
	}

	body := make([]byte, 0, dataLen+1)
	body = append(body, byte(dataLen), f.ID)
	body = append(body, f.Payload...)
	check := Checksum(body)

	wire := make([]byte, 0, len(body)+2)
	wire = append(wire, body[0], body[1])
	for _, b := range f.Payload {
		wire = append(wire, b)
		if b == SyncByte {
			wire = append(wire, b)
		}
	}
	return append(wire, check), nil
}
