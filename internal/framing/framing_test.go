package framing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestEncodeKnownVector(t *testing.T) {
	// select-address command, checked against a captured exchange
	wire, err := Encode(Frame{ID: SyncByte, Payload: []byte{'A', 0x01, 0x00}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x04, 0xFF, 'A', 0x01, 0x00, 0xBB}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire mismatch: got=%x want=%x", wire, want)
	}
}

func TestChecksumBroadcastVariant(t *testing.T) {
	// frames captured from a real device; types 0x21/0x38/0x3F fold
	// nibble-swapped early bytes into the sum
	vectors := `
		05 38 04 6C 00 00 0A
		05 38 04 6E 00 00 E8
		05 38 05 00 00 00 3B
		05 3F 00 11 00 00 A7
		05 3F C0 72 00 00 70
		06 21 00 00 00 00 00 C7
		06 21 FF FF FF FF 80 4D
		06 21 FF FF FF FF 83 4A
		07 21 00 00 00 00 01 00 C5
	`
	for _, line := range strings.Fields(strings.ReplaceAll(vectors, " ", "")) {
		msg, err := hex.DecodeString(line)
		if err != nil {
			t.Fatalf("bad vector %q: %v", line, err)
		}
		body, want := msg[:len(msg)-1], msg[len(msg)-1]
		if got := Checksum(body); got != want {
			t.Fatalf("checksum mismatch for %x: got=%02x want=%02x", msg, got, want)
		}
	}
}

func TestEncodedFrameSumsToZero(t *testing.T) {
	wire, err := Encode(Frame{ID: SyncByte, Payload: []byte{'X', 0x30, 0x05}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sum := 0
	for _, b := range wire {
		sum += int(b)
	}
	if sum%256 != 0 {
		t.Fatalf("frame does not sum to zero: %x (sum=%d)", wire, sum)
	}
}

func TestEncodeTooLarge(t *testing.T) {
	_, err := Encode(Frame{ID: SyncByte, Payload: make([]byte, MaxDataLen)})
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func testDecoder() *Decoder {
	return NewDecoder(zerolog.Nop())
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := []Frame{
		{ID: SyncByte, Payload: []byte{'A', 0x01, 0x00}},
		{ID: SyncByte, Payload: []byte{'X', 0x30, 0x05}},
		{ID: 0x41, Payload: []byte{0x10, 0x20, 0x30}},
		{ID: 0x20, Payload: []byte{0x00, 0x00, 0x00, 0x00, 0x0C, 0x10, 0x27}},
	}
	for _, in := range cases {
		wire, err := Encode(in)
		if err != nil {
			t.Fatalf("encode %+v: %v", in, err)
		}
		frames := testDecoder().Feed(wire)
		if len(frames) != 1 {
			t.Fatalf("expected 1 frame, got %d (%x)", len(frames), wire)
		}
		if frames[0].ID != in.ID || !bytes.Equal(frames[0].Payload, in.Payload) {
			t.Fatalf("round-trip mismatch: got=%+v want=%+v", frames[0], in)
		}
	}
}

func TestDecodeEscapedSyncByte(t *testing.T) {
	in := Frame{ID: SyncByte, Payload: []byte{'W', 0xFF, 0x00, 0xFF}}
	wire, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// both payload sync bytes must appear doubled on the wire
	if bytes.Count(wire, []byte{0xFF}) != 5 {
		t.Fatalf("expected doubled sync bytes, wire=%x", wire)
	}
	frames := testDecoder().Feed(wire)
	if len(frames) != 1 || !bytes.Equal(frames[0].Payload, in.Payload) {
		t.Fatalf("escape round-trip failed: %+v", frames)
	}
}

func TestDecodeChunkedInput(t *testing.T) {
	wire, _ := Encode(Frame{ID: SyncByte, Payload: []byte{'X', 0x30, 0x05}})
	d := testDecoder()
	var frames []Frame
	for _, b := range wire {
		frames = append(frames, d.Feed([]byte{b})...)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame from byte-at-a-time feed, got %d", len(frames))
	}
}

func TestDecodeCorruptByteResyncs(t *testing.T) {
	good, _ := Encode(Frame{ID: SyncByte, Payload: []byte{'X', 0x30, 0x05}})
	for i := range good {
		bad := append([]byte(nil), good...)
		bad[i] ^= 0x01

		d := testDecoder()
		frames := d.Feed(bad)
		for _, f := range frames {
			if f.ID == SyncByte && len(f.Payload) > 0 && f.Payload[0] == 'X' &&
				bytes.Equal(f.Payload, []byte{'X', 0x30, 0x05}) {
				t.Fatalf("corrupt byte %d still decoded original frame", i)
			}
		}
		// decoding must pick up again on the next clean frame
		frames = d.Feed(good)
		frames = append(frames, d.Feed(good)...)
		found := false
		for _, f := range frames {
			if f.ID == SyncByte && bytes.Equal(f.Payload, []byte{'X', 0x30, 0x05}) {
				found = true
			}
		}
		if !found {
			t.Fatalf("decoder did not recover after corrupt byte %d", i)
		}
	}
}

func TestDecodeNoiseBetweenFrames(t *testing.T) {
	a, _ := Encode(Frame{ID: SyncByte, Payload: []byte{'A', 0x01, 0x00}})
	b, _ := Encode(Frame{ID: SyncByte, Payload: []byte{'X', 0x30, 0x05}})

	d := testDecoder()
	stream := append([]byte{0x12, 0x34}, a...)
	stream = append(stream, 0x56)
	stream = append(stream, b...)
	frames := d.Feed(stream)

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames through noise, got %d", len(frames))
	}
	if d.DroppedBytes() == 0 {
		t.Fatalf("expected dropped bytes to be counted")
	}
}

func TestDecodeLEDStateSplit(t *testing.T) {
	// long frame with the LED flag set carries two trailing LED bytes
	data := []byte{0xFF, 'V', 0x83, 0x11, 0x00, 0x00, 0x03, 0x1F}
	body := append([]byte{byte(len(data)) | 0x80}, data...)
	wire := append(append([]byte(nil), body...), Checksum(body))

	frames := testDecoder().Feed(wire)
	if len(frames) != 2 {
		t.Fatalf("expected frame + LED frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0].Payload, []byte{'V', 0x83, 0x11, 0x00, 0x00}) {
		t.Fatalf("main payload mismatch: %x", frames[0].Payload)
	}
	if !bytes.Equal(frames[1].Payload, []byte{'L', 0x03, 0x1F}) {
		t.Fatalf("led payload mismatch: %x", frames[1].Payload)
	}
}
