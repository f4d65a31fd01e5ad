package audio

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/room4-2/duotranslate/apierror"
	"github.com/room4-2/duotranslate/clock"
)

// Segment is a decoded chunk with its slot on the playback timeline.
type Segment struct {
	Seq      uint64
	PCM      []byte
	Start    time.Time
	Duration time.Duration
}

// End is when the segment finishes playing.
func (s Segment) End() time.Time { return s.Start.Add(s.Duration) }

// Sink renders scheduled segments. Play is called in arrival order and must
// not block on rendering.
type Sink interface {
	Play(seg Segment) error
	Flush() error
}

// Playback schedules decoded speech back to back on a single timeline.
type Playback struct {
	mu     sync.Mutex
	clock  clock.Clock
	sink   Sink
	cursor time.Time
	seq    uint64
	active map[uint64]clock.Timer
}

// NewPlayback creates an empty queue rendering to sink.
func NewPlayback(sink Sink, clk clock.Clock) *Playback {
	return &Playback{
		clock:  clk,
		sink:   sink,
		active: make(map[uint64]clock.Timer),
	}
}

// Decode turns a base64 chunk into 24 kHz mono PCM16LE samples.
func Decode(chunk string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return nil, apierror.NewDecodeError(fmt.Sprintf("invalid base64 audio: %v", err))
	}
	if len(pcm) == 0 {
		return nil, apierror.NewDecodeError("empty audio chunk")
	}
	if len(pcm)%BytesPerSample != 0 {
		return nil, apierror.NewDecodeError(fmt.Sprintf("truncated PCM16 chunk: %d bytes", len(pcm)))
	}
	return pcm, nil
}

// Enqueue decodes chunk and schedules it right after the current tail, never
// earlier than now. Malformed chunks are rejected with a decode error, and a
// segment the sink refuses is dropped; both leave the timeline untouched.
func (p *Playback) Enqueue(chunk string) (Segment, error) {
	pcm, err := Decode(chunk)
	if err != nil {
		return Segment{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	start := p.cursor
	if start.Before(now) {
		start = now
	}

	prev := p.cursor
	p.seq++
	seg := Segment{
		Seq:      p.seq,
		PCM:      pcm,
		Start:    start,
		Duration: DurationOf(PlaybackSampleRate, len(pcm)),
	}
	p.cursor = seg.End()

	seq := seg.Seq
	p.active[seq] = p.clock.AfterFunc(seg.End().Sub(now), func() { p.finish(seq) })

	if err := p.sink.Play(seg); err != nil {
		// The sink never took the segment; give its slot back.
		p.active[seq].Stop()
		delete(p.active, seq)
		p.cursor = prev
		return Segment{}, fmt.Errorf("failed to play segment %d: %w", seq, err)
	}
	return seg, nil
}

func (p *Playback) finish(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, seq)
}

// Flush discards every scheduled segment and rewinds the timeline.
func (p *Playback) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for seq, timer := range p.active {
		timer.Stop()
		delete(p.active, seq)
	}
	p.cursor = time.Time{}
	return p.sink.Flush()
}

// Active returns the number of segments that have not finished playing.
func (p *Playback) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Cursor is the end of the scheduled timeline; zero when nothing was scheduled.
func (p *Playback) Cursor() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
