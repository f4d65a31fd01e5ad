package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/room4-2/duotranslate/audio"
)

// Speaker plays scheduled segments through the default output device.
// Segments are appended to one continuous stream, so consecutive segments
// play without gaps.
type Speaker struct {
	otoCtx *oto.Context

	mu      sync.Mutex
	cond    *sync.Cond
	player  *oto.Player
	buf     []byte
	playing bool
	closed  bool
}

// NewSpeaker opens the output device at sampleRate. oto allows a single
// context per process.
func NewSpeaker(sampleRate int) (*Speaker, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init speaker: %w", err)
	}
	<-ready

	s := &Speaker{
		otoCtx: otoCtx,
		buf:    make([]byte, 0, sampleRate*4), // 2 second buffer capacity
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Play appends the segment to the output stream.
func (s *Speaker) Play(seg audio.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("speaker closed")
	}
	s.buf = append(s.buf, seg.PCM...)

	// The player is created lazily so silence is not rendered before the first segment.
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	s.cond.Signal()
	return nil
}

// Read implements io.Reader for the oto player.
func (s *Speaker) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) == 0 && !s.closed && s.playing {
		s.cond.Wait()
	}

	if len(s.buf) == 0 {
		// Silence lets oto drain gracefully
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Flush drops pending audio and stops the current player.
func (s *Speaker) Flush() error {
	s.mu.Lock()
	s.buf = s.buf[:0]

	if s.player == nil || !s.playing {
		s.mu.Unlock()
		return nil
	}
	s.playing = false
	player := s.player
	s.player = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	player.Pause()
	return player.Close()
}

// Close stops playback permanently.
func (s *Speaker) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	player := s.player
	s.player = nil
	s.mu.Unlock()

	if player != nil {
		return player.Close()
	}
	return nil
}
