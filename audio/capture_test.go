package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/duotranslate/apierror"
)

func TestCaptureEmitsFixedSizeFrames(t *testing.T) {
	dev := newFakeDevice()
	c := NewCapture(dev, 100*time.Millisecond)
	require.NoError(t, c.Start())
	require.Equal(t, 3200, c.FrameBytes())

	// Two and a half frames: only two complete frames are emitted.
	dev.feed(tone(1600, 16384))
	dev.feed(tone(1600, 0))
	dev.feed(tone(800, 0))

	first := <-c.Frames()
	second := <-c.Frames()

	assert.Equal(t, uint64(1), first.Seq)
	assert.Len(t, first.PCM, 3200)
	assert.Equal(t, 1.0, first.Level)
	assert.Equal(t, 100*time.Millisecond, first.Duration)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Zero(t, second.Level)

	select {
	case f := <-c.Frames():
		t.Fatalf("unexpected partial frame %d", f.Seq)
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, c.Stop())
	_, open := <-c.Frames()
	assert.False(t, open)
	assert.NoError(t, c.Err())
}

func TestCaptureStartFailureIsCaptureError(t *testing.T) {
	dev := newFakeDevice()
	dev.startErr = errors.New("permission denied")
	c := NewCapture(dev, 200*time.Millisecond)

	err := c.Start()
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.KindCapture))

	_, open := <-c.Frames()
	assert.False(t, open)
	assert.NoError(t, c.Stop())
}

func TestCaptureIsNotRestartable(t *testing.T) {
	dev := newFakeDevice()
	c := NewCapture(dev, 200*time.Millisecond)
	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())

	assert.ErrorIs(t, c.Start(), ErrCaptureStarted)
	assert.NoError(t, c.Stop(), "second stop is a no-op")
}

func TestCaptureStopWithoutStart(t *testing.T) {
	c := NewCapture(newFakeDevice(), 200*time.Millisecond)
	assert.NoError(t, c.Stop())
}
