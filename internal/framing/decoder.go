package framing

import (
	"encoding/hex"

	"github.com/rs/zerolog"
)

// Decoder turns a byte stream, fed in arbitrary chunks, into frames.
//
// Corruption is local: a bad checksum, an implausible length, or an unknown
// identifier drops bytes up to the next plausible frame start and decoding
// continues. Nothing is ever surfaced as an error; a stream of garbage just
// produces no frames.
type Decoder struct {
	buf   []byte
	known [256]bool
	log   zerolog.Logger

	droppedBytes   uint64
	checksumErrors uint64
}

// NewDecoder returns a decoder accepting DefaultFrameIDs as frame starts.
func NewDecoder(log zerolog.Logger) *Decoder {
	return NewDecoderIDs(log, DefaultFrameIDs)
}

// NewDecoderIDs returns a decoder accepting only the given identifier values
// as frame starts. The identifiers double as sync words during recovery, so
// the set must cover every frame the device can send.
func NewDecoderIDs(log zerolog.Logger, ids []byte) *Decoder {
	d := &Decoder{log: log}
	for _, id := range ids {
		d.known[id] = true
	}
	return d
}

// Feed appends p to the internal buffer and returns every complete,
// checksum-valid frame now available. A partial frame tail stays buffered
// for the next call.
func (d *Decoder) Feed(p []byte) []Frame {
	d.buf = append(d.buf, p...)

	var frames []Frame
	for {
		if len(d.buf) < 2 {
			break
		}
		if !d.known[d.buf[1]] {
			d.resync()
			continue
		}

		lenByte := d.buf[0]
		hasLED := lenByte&ledStateFlag != 0
		dataLen := int(lenByte &^ ledStateFlag)
		if dataLen < 2 || (hasLED && dataLen < 4) {
			d.resync()
			continue
		}

		data, end, ok, complete := d.unescape(dataLen)
		if !complete {
			break
		}
		if !ok {
			d.resync()
			continue
		}

		body := make([]byte, 0, dataLen+1)
		body = append(body, lenByte)
		body = append(body, data...)
		if Checksum(body) != d.buf[end] {
			d.checksumErrors++
			d.resync()
			continue
		}

		payload := data[1:]
		if hasLED {
			var led []byte
			payload, led = payload[:len(payload)-2], payload[len(payload)-2:]
			frames = append(frames, Frame{ID: data[0], Payload: payload})
			frames = append(frames, Frame{ID: SyncByte, Payload: append([]byte{'L'}, led...)})
		} else {
			frames = append(frames, Frame{ID: data[0], Payload: payload})
		}
		d.buf = d.buf[end+1:]
	}
	return frames
}

// unescape collects dataLen logical bytes starting at the identifier
// position, collapsing doubled sync bytes. It reports the wire index of the
// checksum byte, whether the escaped run was well formed, and whether enough
// bytes were buffered to decide at all.
func (d *Decoder) unescape(dataLen int) (data []byte, end int, ok, complete bool) {
	data = make([]byte, 0, dataLen)
	data = append(data, d.buf[1])

	i := 2
	for len(data) < dataLen {
		if i >= len(d.buf) {
			return nil, 0, false, false
		}
		b := d.buf[i]
		if b == SyncByte {
			if i+1 >= len(d.buf) {
				return nil, 0, false, false
			}
			if d.buf[i+1] != SyncByte {
				// a lone sync byte cannot occur inside a payload
				return nil, 0, false, true
			}
			i++
		}
		data = append(data, b)
		i++
	}
	if i >= len(d.buf) {
		return nil, 0, false, false
	}
	return data, i, true, true
}

// resync drops bytes up to the next plausible frame start: the byte before
// the next known identifier value, so it can act as a length prefix.
func (d *Decoder) resync() {
	pos := len(d.buf)
	for i := 2; i < len(d.buf); i++ {
		if d.known[d.buf[i]] {
			pos = i
			break
		}
	}
	dropped := d.buf[:pos-1]
	d.droppedBytes += uint64(len(dropped))
	d.log.Warn().
		Str("bytes", hex.EncodeToString(dropped)).
		Msg("framing: dropped bytes")
	d.buf = d.buf[pos-1:]
}

// DroppedBytes reports the total bytes discarded during resynchronization.
func (d *Decoder) DroppedBytes() uint64 { return d.droppedBytes }

// ChecksumErrors reports the number of frames rejected for a bad checksum.
func (d *Decoder) ChecksumErrors() uint64 { return d.checksumErrors }
