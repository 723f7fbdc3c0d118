// README: Runs one extractor against an utterance and prints the slot update and the merged slot set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"

	"dinecall/internal/ai"
	"dinecall/internal/logger"
	"dinecall/internal/modules/slots"
)

func main() {
	_ = godotenv.Load()

	kind := flag.String("extractor", envOrDefault("DINECALL_EXTRACTOR", "rules"), "rules, gemini, openai or anthropic")
	model := flag.String("model", os.Getenv("DINECALL_EXTRACTOR_MODEL"), "model name (provider default when empty)")
	known := flag.String("known", "", `slots already collected, as JSON, e.g. {"cuisine":"thai"}`)
	timeout := flag.Duration("timeout", 15*time.Second, "extraction timeout")
	flag.Parse()

	utterance := strings.Join(flag.Args(), " ")
	if utterance == "" {
		utterance = "Cheap sushi near Union Square, I can walk about twenty minutes"
	}

	zl, err := logger.New("debug", "console")
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	extractor, err := newExtractor(ctx, *kind, *model)
	if err != nil {
		log.Fatalf("init %s extractor: %v", *kind, err)
	}
	if c, ok := extractor.(interface{ Close() }); ok {
		defer c.Close()
	}

	var set slots.Set
	if *known != "" {
		var raw map[string]string
		if err := sonic.UnmarshalString(*known, &raw); err != nil {
			log.Fatalf("parse -known: %v", err)
		}
		u := slots.Update{Values: map[slots.Name]string{}}
		for k, v := range raw {
			if n, ok := slots.ParseName(k); ok {
				u.Values[n] = v
			}
		}
		set.Merge(u)
	}

	fmt.Printf("Caller: %s\n", utterance)
	update, err := ai.NewChain(zl, extractor).Extract(ctx, utterance, set)
	if err != nil {
		log.Fatalf("extract: %v", err)
	}

	res := set.Merge(update)
	out, _ := sonic.ConfigStd.MarshalIndent(map[string]any{
		"extractor": extractor.Name(),
		"update":    update.Values,
		"note":      update.Note,
		"changed":   res.Changed,
		"invalid":   res.Invalid,
		"slots":     set.Snapshot(),
		"complete":  set.IsComplete(),
		"missing":   set.Missing(nil),
		"signature": set.Signature(),
	}, "", "  ")
	fmt.Println(string(out))
}

func newExtractor(ctx context.Context, kind, model string) (ai.Extractor, error) {
	switch kind {
	case "rules":
		return ai.NewRulesExtractor(), nil
	case "gemini":
		return ai.NewGeminiExtractor(ctx, requireEnv("GEMINI_API_KEY"), model)
	case "openai":
		return ai.NewOpenAIExtractor(requireEnv("OPENAI_API_KEY"), model, os.Getenv("OPENAI_BASE_URL")), nil
	case "anthropic":
		return ai.NewAnthropicExtractor(requireEnv("ANTHROPIC_API_KEY"), model, os.Getenv("ANTHROPIC_BASE_URL")), nil
	}
	return nil, fmt.Errorf("unknown extractor %q", kind)
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s environment variable not set", key)
	}
	return v
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
