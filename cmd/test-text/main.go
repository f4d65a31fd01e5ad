package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/room4-2/duotranslate/config"
	"github.com/room4-2/duotranslate/gemini"
	"github.com/room4-2/duotranslate/language"
	"github.com/room4-2/duotranslate/logging"
)

func main() {
	target := flag.String("to", "es-ES", "Target language code")
	text := flag.String("text", "Hello! How are you today?", "Text to translate")
	flag.Parse()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY not set")
	}

	lang, ok := language.Lookup(*target)
	if !ok {
		log.Fatalf("Unknown language %q", *target)
	}

	logger, err := logging.New("debug")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	model := os.Getenv("TRANSLATE_MODEL")
	if model == "" {
		model = config.DefaultTranslateModel
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	translator, err := gemini.NewTranslator(ctx, apiKey, model, logger)
	if err != nil {
		log.Fatalf("Failed to create translator: %v", err)
	}

	start := time.Now()
	out, err := translator.Translate(ctx, *text, lang)
	if err != nil {
		log.Fatalf("❌ Translate failed: %v", err)
	}
	log.Printf("💬 %s → %s (%s)", *text, out, time.Since(start).Round(time.Millisecond))
}
