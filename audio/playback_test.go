package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/duotranslate/apierror"
	"github.com/room4-2/duotranslate/clock"
)

func TestEnqueueSchedulesBackToBack(t *testing.T) {
	clk := clock.NewFake()
	sink := &recordingSink{}
	p := NewPlayback(sink, clk)
	t0 := clk.Now()

	first, err := p.Enqueue(chunkOf(2400)) // 100ms
	require.NoError(t, err)
	second, err := p.Enqueue(chunkOf(4800)) // 200ms
	require.NoError(t, err)

	assert.Equal(t, t0, first.Start)
	assert.Equal(t, 100*time.Millisecond, first.Duration)
	assert.Equal(t, first.End(), second.Start)
	assert.Equal(t, t0.Add(300*time.Millisecond), p.Cursor())
	assert.Equal(t, 2, p.Active())

	require.Len(t, sink.played, 2)
	assert.Equal(t, first.Seq, sink.played[0].Seq)
	assert.Equal(t, second.Seq, sink.played[1].Seq)
}

func TestEnqueueNeverStartsInThePast(t *testing.T) {
	clk := clock.NewFake()
	p := NewPlayback(&recordingSink{}, clk)

	first, err := p.Enqueue(chunkOf(2400))
	require.NoError(t, err)

	// Queue drained and then some idle time passed.
	clk.Advance(500 * time.Millisecond)
	assert.Zero(t, p.Active())

	second, err := p.Enqueue(chunkOf(2400))
	require.NoError(t, err)
	assert.Equal(t, clk.Now(), second.Start)
	assert.True(t, second.Start.After(first.End()))
}

func TestSchedulingIsMonotonic(t *testing.T) {
	clk := clock.NewFake()
	p := NewPlayback(&recordingSink{}, clk)

	var prev Segment
	for i, gap := range []time.Duration{0, 10, 300, 0, 5, 1000, 0} {
		clk.Advance(gap * time.Millisecond)
		called := clk.Now()
		seg, err := p.Enqueue(chunkOf(1200 + i*240))
		require.NoError(t, err)

		assert.False(t, seg.Start.Before(called))
		if i > 0 {
			assert.False(t, seg.Start.Before(prev.End()), "segment %d overlaps its predecessor", i)
		}
		prev = seg
	}
}

func TestSegmentsLeaveActiveSetWhenFinished(t *testing.T) {
	clk := clock.NewFake()
	p := NewPlayback(&recordingSink{}, clk)

	_, _ = p.Enqueue(chunkOf(2400))
	_, _ = p.Enqueue(chunkOf(2400))
	assert.Equal(t, 2, p.Active())

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, p.Active())
	clk.Advance(100 * time.Millisecond)
	assert.Zero(t, p.Active())
}

func TestFlushDiscardsAndRewinds(t *testing.T) {
	clk := clock.NewFake()
	sink := &recordingSink{}
	p := NewPlayback(sink, clk)

	_, _ = p.Enqueue(chunkOf(24000))
	_, _ = p.Enqueue(chunkOf(24000))
	require.NoError(t, p.Flush())

	assert.Zero(t, p.Active())
	assert.True(t, p.Cursor().IsZero())
	assert.Equal(t, 1, sink.flushes)
	assert.Zero(t, clk.Pending())

	clk.Advance(10 * time.Millisecond)
	seg, err := p.Enqueue(chunkOf(2400))
	require.NoError(t, err)
	assert.Equal(t, clk.Now(), seg.Start)
}

func TestMalformedChunkIsDecodeError(t *testing.T) {
	clk := clock.NewFake()
	sink := &recordingSink{}
	p := NewPlayback(sink, clk)

	for _, chunk := range []string{"not base64!", "", "AAAA"} {
		_, err := p.Enqueue(chunk)
		require.Error(t, err, "chunk %q", chunk)
		assert.True(t, apierror.Is(err, apierror.KindDecode))
	}
	assert.Empty(t, sink.played)
	assert.True(t, p.Cursor().IsZero())

	_, err := p.Enqueue(chunkOf(240))
	assert.NoError(t, err, "session continues after a bad chunk")
}

func TestRejectedSegmentLeavesNoGap(t *testing.T) {
	clk := clock.NewFake()
	sink := &recordingSink{}
	p := NewPlayback(sink, clk)

	first, err := p.Enqueue(chunkOf(2400))
	require.NoError(t, err)

	sink.playErr = errors.New("device busy")
	_, err = p.Enqueue(chunkOf(4800))
	require.Error(t, err)
	assert.Equal(t, first.End(), p.Cursor())
	assert.Equal(t, 1, p.Active())
	assert.Equal(t, 1, clk.Pending())

	sink.playErr = nil
	third, err := p.Enqueue(chunkOf(2400))
	require.NoError(t, err)
	assert.Equal(t, first.End(), third.Start)
	require.Len(t, sink.played, 2)
}
