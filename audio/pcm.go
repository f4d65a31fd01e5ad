// Package audio frames microphone input for the live service and schedules
// synthesized speech for gapless playback. Device access lives in audio/device.
package audio

import (
	"math"
	"time"
)

const (
	// CaptureSampleRate is the rate the live service expects for input audio.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate of synthesized speech from the live service.
	PlaybackSampleRate = 24000
	// BytesPerSample is the width of a mono PCM16LE sample.
	BytesPerSample = 2

	// CaptureMIMEType labels outbound frames.
	CaptureMIMEType = "audio/pcm;rate=16000"
	// PlaybackMIMEType labels synthesized speech.
	PlaybackMIMEType = "audio/pcm;rate=24000"

	// levelGain maps speech RMS onto the 0..1 indicator range.
	levelGain = 50
)

// RMS computes the root-mean-square of 16-bit signed little-endian PCM,
// normalized so full scale is 1.0.
func RMS(pcm []byte) float64 {
	samples := len(pcm) / BytesPerSample
	if samples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(pcm[i]) | int16(pcm[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
	}
	return math.Sqrt(sum / float64(samples))
}

// Level converts an RMS value to the loudness indicator scale, clamped to [0,1].
func Level(rms float64) float64 {
	return math.Min(math.Max(rms*levelGain, 0), 1)
}

// BytesForDuration returns the size of d worth of mono PCM16 at rate.
func BytesForDuration(rate int, d time.Duration) int {
	samples := int(int64(rate) * int64(d) / int64(time.Second))
	return samples * BytesPerSample
}

// DurationOf returns the play time of n bytes of mono PCM16 at rate.
func DurationOf(rate, n int) time.Duration {
	samples := n / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(rate)
}
