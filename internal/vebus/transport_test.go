package vebus

import (
	"encoding/binary"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomjnixon/mk2go/internal/framing"
)

// fakeDevice is an in-memory ReadWriteCloser: written frames are decoded
// and handed to handle, whose reply frames are encoded and queued for the
// read side.
type fakeDevice struct {
	mu       sync.Mutex
	decoder  *framing.Decoder
	handle   func(framing.Frame) []framing.Frame
	incoming chan []byte
	closed   chan struct{}
	once     sync.Once
	pending  []byte
}

func newFakeDevice(handle func(framing.Frame) []framing.Frame) *fakeDevice {
	return &fakeDevice{
		decoder:  framing.NewDecoder(zerolog.Nop()),
		handle:   handle,
		incoming: make(chan []byte, 32),
		closed:   make(chan struct{}),
	}
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		select {
		case chunk := <-d.incoming:
			d.pending = chunk
		case <-d.closed:
			return 0, io.EOF
		}
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	select {
	case <-d.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	d.mu.Lock()
	decoded := d.decoder.Feed(p)
	d.mu.Unlock()
	for _, f := range decoded {
		for _, reply := range d.handle(f) {
			wire, err := framing.Encode(reply)
			if err != nil {
				panic(err)
			}
			d.inject(wire)
		}
	}
	return len(p), nil
}

func (d *fakeDevice) inject(wire []byte) {
	select {
	case d.incoming <- wire:
	case <-d.closed:
	}
}

func (d *fakeDevice) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func mk2Reply(cmd byte, data ...byte) framing.Frame {
	return framing.Frame{ID: framing.SyncByte, Payload: append([]byte{cmd}, data...)}
}

// simInverter answers frames the way a single device on the bus would.
// Fields are read by tests only after the exchanges touching them return,
// so they need no locking of their own.
type simInverter struct {
	address  byte
	ram      map[uint8]uint16
	settings map[uint16]uint16
	ledOn    byte
	ledBlink byte

	denyWrites bool

	frames        []framing.Frame
	settingWrites int
}

func newSimInverter(address byte) *simInverter {
	return &simInverter{
		address:  address,
		ram:      make(map[uint8]uint16),
		settings: make(map[uint16]uint16),
	}
}

func (s *simInverter) handle(f framing.Frame) []framing.Frame {
	s.frames = append(s.frames, f)
	if f.ID != framing.SyncByte || len(f.Payload) == 0 {
		return nil
	}
	data := f.Payload[1:]
	switch f.Payload[0] {
	case 'A':
		return []framing.Frame{mk2Reply('A', 0x01, s.address)}
	case 'V':
		return []framing.Frame{mk2Reply('V', 0x11, 0x22, 0x33, 0x04, 0x00)}
	case 'L':
		return []framing.Frame{mk2Reply('L', s.ledOn, s.ledBlink)}
	case 'S':
		return nil
	case 'F':
		if len(data) == 0 {
			return nil
		}
		switch data[0] {
		case 0x00:
			return []framing.Frame{s.dcInfoFrame()}
		case 0x01:
			return []framing.Frame{s.acInfoFrame()}
		}
		return nil
	case 'X':
		return s.handleWinmon(data)
	}
	return nil
}

func (s *simInverter) handleWinmon(data []byte) []framing.Frame {
	reply := func(out ...byte) []framing.Frame {
		return []framing.Frame{mk2Reply('X', out...)}
	}
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case 0x30:
		out := []byte{0x85}
		for _, id := range data[1:] {
			out = binary.LittleEndian.AppendUint16(out, s.ram[id])
		}
		return reply(out...)
	case 0x31:
		id := binary.LittleEndian.Uint16(data[1:3])
		raw, ok := s.settings[id]
		if !ok {
			return reply(0x91)
		}
		out := binary.LittleEndian.AppendUint16([]byte{0x86}, raw)
		return reply(out...)
	case 0x37:
		if s.denyWrites {
			return reply(0x9B)
		}
		flags, id := data[1], data[2]
		value := binary.LittleEndian.Uint16(data[3:5])
		if flags&0x01 != 0 {
			s.settings[uint16(id)] = value
			s.settingWrites++
			return reply(0x88)
		}
		s.ram[id] = value
		return reply(0x87)
	}
	return reply(0x80, data[0])
}

func (s *simInverter) dcInfoFrame() framing.Frame {
	payload := []byte{0, 0, 0, 0, 0x0C}
	payload = binary.LittleEndian.AppendUint16(payload, 2524) // 25.24 V
	payload = append(payload, 0xE8, 0x03, 0x00)              // 1000 raw inverter current
	payload = append(payload, 0xC8, 0x00, 0x00)              // 200 raw charger current
	payload = append(payload, 100)                           // 10.0 period
	return framing.Frame{ID: 0x20, Payload: payload}
}

func (s *simInverter) acInfoFrame() framing.Frame {
	payload := []byte{2, 1, 0, 0x09, 0x08} // factors 2/1, charging, L1 of 1
	payload = binary.LittleEndian.AppendUint16(payload, 23012)
	payload = binary.LittleEndian.AppendUint16(payload, 150)
	payload = binary.LittleEndian.AppendUint16(payload, 22987)
	payload = binary.LittleEndian.AppendUint16(payload, 417)
	payload = append(payload, 100)
	return framing.Frame{ID: 0x20, Payload: payload}
}

// winmonCommands filters recorded frames down to one winmon sub-command.
func (s *simInverter) winmonCommands(sub byte) []framing.Frame {
	var out []framing.Frame
	for _, f := range s.frames {
		if f.ID == framing.SyncByte && len(f.Payload) >= 2 && f.Payload[0] == 'X' && f.Payload[1] == sub {
			out = append(out, f)
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		ReplyTimeout:     200 * time.Millisecond,
		Retries:          2,
		HandshakeTimeout: time.Second,
		ReadChunk:        64,
	}
}

func startConnection(t *testing.T, d *fakeDevice, cfg Config) *Connection {
	t.Helper()
	conn := NewConnection(d, cfg, zerolog.Nop())
	conn.Start()
	t.Cleanup(func() {
		conn.Close()
		<-conn.Done()
	})
	return conn
}
