// Command duotranslate runs a translation session against the local
// microphone and speaker. Typed lines are translated as text entries.
//
//	/connect fr-FR en-US   start live audio translation
//	/disconnect            stop it
//	/draft <code> <text>   send a non-final text entry (debounced)
//	/phrase <code> <text>  send a saved phrase
//	<code> <text>          send a final text entry
//	/quit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/room4-2/duotranslate/audio"
	"github.com/room4-2/duotranslate/audio/device"
	"github.com/room4-2/duotranslate/config"
	"github.com/room4-2/duotranslate/drafts"
	"github.com/room4-2/duotranslate/gemini"
	"github.com/room4-2/duotranslate/language"
	"github.com/room4-2/duotranslate/logging"
	"github.com/room4-2/duotranslate/metrics"
	"github.com/room4-2/duotranslate/session"
	"github.com/room4-2/duotranslate/transcript"
)

func main() {
	languages := flag.String("languages", "", "language pair, e.g. fr-FR,en-US (defaults to DEFAULT_LANGUAGES)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *languages != "" {
		parts := strings.Split(*languages, ",")
		if len(parts) != 2 {
			log.Fatalf("invalid -languages %q", *languages)
		}
		cfg.DefaultLanguages = [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	speaker, err := device.NewSpeaker(audio.PlaybackSampleRate)
	if err != nil {
		log.Fatalf("Failed to open speaker: %v", err)
	}
	defer speaker.Close()

	var translator drafts.Translator
	if cfg.GeminiAPIKey != "" {
		tr, err := gemini.NewTranslator(ctx, cfg.GeminiAPIKey, cfg.TranslateModel, logger)
		if err != nil {
			log.Fatalf("Failed to create translator: %v", err)
		}
		translator = tr
	}

	printer := &printer{seen: make(map[string]string)}

	opts := session.OptionsFromConfig(cfg)
	opts.Log = logger
	opts.Metrics = metrics.New(nil)
	s := session.New(opts, session.Platform{
		Dial: func(ctx context.Context, setup gemini.Setup) (session.Transport, error) {
			proxy, err := gemini.Dial(ctx, cfg.GeminiAPIKey, setup, logger)
			if err != nil {
				return nil, err
			}
			return proxy, nil
		},
		NewDevice: func() (audio.Device, error) {
			return device.NewMicrophone(audio.CaptureSampleRate), nil
		},
		Sink:       speaker,
		Translator: translator,
	}, session.Observer{
		OnState: func(state session.ConnectionState) {
			fmt.Printf("● %s\n", state)
		},
		OnTranscript: printer.print,
		OnError: func(message string) {
			if message != "" {
				fmt.Printf("⚠️  %s\n", message)
			}
		},
	})
	defer s.Close()

	fmt.Printf("Languages: %s. Type /connect to start talking.\n", s.Pair())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !run(ctx, s, line) {
			return
		}
	}
}

// run executes one input line and reports whether to keep reading.
func run(ctx context.Context, s *session.Session, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit":
		return false
	case "/connect":
		pair := s.Pair()
		if codes := strings.Fields(rest); len(codes) == 2 {
			p, err := language.NewPair(codes[0], codes[1])
			if err != nil {
				fmt.Println(err)
				return true
			}
			pair = p
		}
		go func() {
			if err := s.Connect(ctx, pair); err != nil {
				fmt.Printf("connect: %v\n", err)
			}
		}()
	case "/disconnect":
		s.Disconnect()
	case "/draft":
		code, text, _ := strings.Cut(rest, " ")
		report(s.HandleTextEntry(text, code, false))
	case "/phrase":
		code, text, _ := strings.Cut(rest, " ")
		report(s.SendPhrase(text, code))
	default:
		report(s.HandleTextEntry(rest, cmd, true))
	}
	return true
}

func report(err error) {
	if err != nil {
		fmt.Println(err)
	}
}

// printer writes each message once per text change.
type printer struct {
	mu   sync.Mutex
	seen map[string]string
}

func (p *printer) print(msgs []transcript.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	live := make(map[string]string, len(msgs))
	for _, m := range msgs {
		live[m.ID] = m.Text
		if p.seen[m.ID] == m.Text {
			continue
		}
		marker := "🗣 "
		if m.Sender == transcript.Translation {
			marker = "🌐"
		}
		state := ""
		switch {
		case m.IsDraft:
			state = " (draft)"
		case !m.IsFinal:
			state = " …"
		}
		fmt.Printf("%s %s%s\n", marker, m.Text, state)
	}
	p.seen = live
}
