// Package device binds the audio pipeline to local hardware: a malgo
// microphone for capture and an oto speaker for playback. Both require cgo.
package device
