package device

import (
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/malgo"
)

// Microphone captures mono PCM16LE from the default input device.
type Microphone struct {
	sampleRate int

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

// NewMicrophone prepares a capture device at sampleRate. Nothing is acquired
// until Start.
func NewMicrophone(sampleRate int) *Microphone {
	m := &Microphone{
		sampleRate: sampleRate,
		buf:        make([]byte, 0, sampleRate*2), // 1 second buffer
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Start opens the default capture device.
func (m *Microphone) Start() error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			m.mu.Lock()
			if !m.closed {
				m.buf = append(m.buf, pInputSamples...)
			}
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to init microphone: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to start microphone: %w", err)
	}

	m.ctx = ctx
	m.device = device
	return nil
}

// Read blocks until captured audio is available.
func (m *Microphone) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.buf) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.buf) == 0 {
		return 0, io.EOF
	}

	n := copy(p, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}

// Close stops the device and releases the audio context.
func (m *Microphone) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.buf = nil
	m.cond.Broadcast()
	m.mu.Unlock()

	var err error
	if m.device != nil {
		err = m.device.Stop()
		m.device.Uninit()
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx.Free()
	}
	return err
}
