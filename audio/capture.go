package audio

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/room4-2/duotranslate/apierror"
)

// ErrCaptureStarted is returned when Start is called on a capture that has
// already been started. Captures are not restartable.
var ErrCaptureStarted = errors.New("capture already started")

// Device is a microphone delivering 16 kHz mono PCM16LE.
type Device interface {
	// Start acquires the input device.
	Start() error
	// Read blocks until audio is available. It returns io.EOF once closed.
	Read(p []byte) (int, error)
	// Close releases the input device and unblocks Read.
	Close() error
}

// Frame is one fixed-size slice of microphone audio.
type Frame struct {
	Seq      uint64
	PCM      []byte
	Level    float64
	Duration time.Duration
}

// Capture turns a Device into a sequence of fixed-duration frames, each
// paired with its loudness level.
type Capture struct {
	dev        Device
	frameBytes int
	frameDur   time.Duration

	frames chan Frame
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	err     error
}

// NewCapture frames dev into chunks of frameDuration.
func NewCapture(dev Device, frameDuration time.Duration) *Capture {
	return &Capture{
		dev:        dev,
		frameBytes: BytesForDuration(CaptureSampleRate, frameDuration),
		frameDur:   frameDuration,
		frames:     make(chan Frame, 4),
		done:       make(chan struct{}),
	}
}

// Start acquires the device and begins producing frames. Failure to acquire
// the device is reported as a capture error.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrCaptureStarted
	}
	c.started = true

	if err := c.dev.Start(); err != nil {
		c.stopped = true
		close(c.frames)
		return apierror.NewCaptureError("microphone unavailable", err)
	}

	c.wg.Add(1)
	go c.run()
	return nil
}

// Frames is closed when the capture stops or the device fails.
func (c *Capture) Frames() <-chan Frame {
	return c.frames
}

// FrameBytes is the size of every emitted frame.
func (c *Capture) FrameBytes() int {
	return c.frameBytes
}

// Err returns the device error that ended the sequence, if any.
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Capture) run() {
	defer c.wg.Done()
	defer close(c.frames)

	var seq uint64
	for {
		buf := make([]byte, c.frameBytes)
		if _, err := io.ReadFull(c.dev, buf); err != nil {
			select {
			case <-c.done:
			default:
				if !errors.Is(err, io.EOF) {
					c.mu.Lock()
					c.err = apierror.NewCaptureError("microphone read failed", err)
					c.mu.Unlock()
				}
			}
			return
		}

		seq++
		frame := Frame{
			Seq:      seq,
			PCM:      buf,
			Level:    Level(RMS(buf)),
			Duration: c.frameDur,
		}
		select {
		case c.frames <- frame:
		case <-c.done:
			return
		}
	}
}

// Stop releases the device and ends the frame sequence. It is safe to call
// more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.stopped = true
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	close(c.done)
	err := c.dev.Close()
	c.wg.Wait()
	return err
}
