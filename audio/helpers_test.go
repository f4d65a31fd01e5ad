package audio

import (
	"encoding/base64"
	"encoding/binary"
	"io"
	"sync"
)

// fakeDevice serves queued PCM to Read and blocks when empty.
type fakeDevice struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []byte
	closed   bool
	startErr error
	started  bool
}

func newFakeDevice() *fakeDevice {
	d := &fakeDevice{}
	d.cond = sync.NewCond(&d.mu)
	return d
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started = true
	return nil
}

func (d *fakeDevice) feed(p []byte) {
	d.mu.Lock()
	d.buf = append(d.buf, p...)
	d.mu.Unlock()
	d.cond.Broadcast()
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.buf) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cond.Broadcast()
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	played  []Segment
	flushes int
	playErr error
}

func (s *recordingSink) Play(seg Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.played = append(s.played, seg)
	return nil
}

func (s *recordingSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// tone returns n samples of a constant PCM16 value.
func tone(n int, value int16) []byte {
	out := make([]byte, n*BytesPerSample)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(value))
	}
	return out
}

func chunkOf(samples int) string {
	return base64.StdEncoding.EncodeToString(tone(samples, 100))
}
