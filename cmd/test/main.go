// Command test streams a PCM or WAV file to a running server over the
// websocket protocol and prints the transcript it produces.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/room4-2/duotranslate/audio"
	"github.com/room4-2/duotranslate/audio/device"
	"github.com/room4-2/duotranslate/messages"
	"github.com/room4-2/duotranslate/transcript"
)

type serverMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

func main() {
	// Flags
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	audioFile := flag.String("file", "examples/user.pcm", "Audio file to send (16 kHz PCM or WAV)")
	languages := flag.String("languages", "fr-FR,en-US", "Language pair to connect with")
	mute := flag.Bool("mute", false, "Do not play synthesized audio")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)

	// Connect to server
	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	var speaker *device.Speaker
	if !*mute {
		speaker, err = device.NewSpeaker(audio.PlaybackSampleRate)
		if err != nil {
			log.Fatalf("Failed to open speaker: %v", err)
		}
		defer speaker.Close()
	}

	// Handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	connected := make(chan struct{})
	var connectedOnce sync.Once

	// Read responses from server
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}

			var msg serverMessage
			if err := sonic.Unmarshal(message, &msg); err != nil {
				log.Println("Parse error:", err)
				continue
			}

			switch msg.Type {
			case messages.TypeState:
				var payload messages.StatePayload
				_ = sonic.Unmarshal(msg.Payload, &payload)
				log.Printf("● %s", payload.State)
				if payload.State == "connected" {
					connectedOnce.Do(func() { close(connected) })
				}

			case messages.TypeTranscript:
				var payload messages.TranscriptPayload
				_ = sonic.Unmarshal(msg.Payload, &payload)
				printLatest(payload.Messages)

			case messages.TypeAudio:
				var payload messages.AudioResponsePayload
				_ = sonic.Unmarshal(msg.Payload, &payload)
				pcm, err := base64.StdEncoding.DecodeString(payload.Data)
				if err == nil && speaker != nil {
					_ = speaker.Play(audio.Segment{Seq: payload.Seq, PCM: pcm})
				}

			case messages.TypeStatus:
				var payload messages.StatusPayload
				_ = sonic.Unmarshal(msg.Payload, &payload)
				log.Printf("📊 Status: %s %s", payload.Status, payload.Message)
				if payload.Status == "flush" && speaker != nil {
					_ = speaker.Flush()
				}

			case messages.TypeError:
				var payload messages.ErrorPayload
				_ = sonic.Unmarshal(msg.Payload, &payload)
				if payload.Message != "" {
					log.Printf("❌ Error %s: %s", payload.Code, payload.Message)
				}
			}
		}
	}()

	pair := strings.Split(*languages, ",")
	connect, err := sonic.Marshal(map[string]any{
		"type":    messages.TypeConnect,
		"payload": messages.ConnectPayload{Languages: pair},
	})
	if err != nil {
		log.Fatalf("Failed to encode connect: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, connect); err != nil {
		log.Fatalf("Failed to send connect: %v", err)
	}

	select {
	case <-connected:
	case <-done:
		log.Fatal("Connection closed before the session connected")
	case <-time.After(15 * time.Second):
		log.Fatal("⏰ Timeout waiting for the live connection")
	}

	// Load and send audio file
	log.Printf("📤 Sending audio file: %s", *audioFile)

	audioData, err := loadAudioFile(*audioFile)
	if err != nil {
		log.Fatalf("Failed to load audio: %v", err)
	}

	// Send audio in chunks (simulating real-time streaming)
	chunkSize := audio.BytesForDuration(audio.CaptureSampleRate, 100*time.Millisecond)
	for i := 0; i < len(audioData); i += chunkSize {
		end := min(i+chunkSize, len(audioData))

		// Send as binary (more efficient)
		if err := conn.WriteMessage(websocket.BinaryMessage, audioData[i:end]); err != nil {
			log.Printf("Send error: %v", err)
			break
		}

		// Simulate real-time streaming pace
		time.Sleep(100 * time.Millisecond)
	}

	log.Println("✅ Audio sent, waiting for response...")

	// Wait for response or interrupt
	select {
	case <-done:
		log.Println("Connection closed")
	case <-interrupt:
		log.Println("\n👋 Interrupted, closing...")
	case <-time.After(30 * time.Second):
		log.Println("⏰ Done waiting for responses")
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// printLatest prints the newest message of each sender.
func printLatest(msgs []transcript.Message) {
	var origin, translation *transcript.Message
	for i := range msgs {
		switch msgs[i].Sender {
		case transcript.Origin:
			origin = &msgs[i]
		case transcript.Translation:
			translation = &msgs[i]
		}
	}
	if origin != nil {
		fmt.Printf("🗣  %s\n", origin.Text)
	}
	if translation != nil {
		fmt.Printf("🌐 %s\n", translation.Text)
	}
}

// loadAudioFile loads PCM or WAV file and returns raw PCM bytes
func loadAudioFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Check if it's a WAV file (starts with "RIFF")
	if len(data) > 44 && string(data[0:4]) == "RIFF" {
		// Skip WAV header (44 bytes for standard WAV)
		log.Println("📁 Detected WAV file, skipping header")
		return data[44:], nil
	}

	// Assume raw PCM
	log.Println("📁 Detected raw PCM file")
	return data, nil
}
