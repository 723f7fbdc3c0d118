package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dinecall/internal/ai"
	"dinecall/internal/config"
	"dinecall/internal/infra"
	"dinecall/internal/maps"
	"dinecall/internal/modules/notify"
	"dinecall/internal/modules/search"
	"dinecall/internal/modules/slots"
)

// buildExtractor returns the configured extractor with the rules extractor
// behind it as fallback. The returned func releases client resources.
func buildExtractor(ctx context.Context, cfg config.Config, log *zap.Logger) (ai.Extractor, func(), error) {
	rules := ai.NewRulesExtractor()
	noop := func() {}
	switch cfg.AI.Extractor {
	case "gemini":
		g, err := ai.NewGeminiExtractor(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
		if err != nil {
			return nil, noop, err
		}
		return ai.NewChain(log, g, rules), g.Close, nil
	case "openai":
		return ai.NewChain(log, ai.NewOpenAIExtractor(cfg.AI.OpenAIKey, cfg.AI.Model, ""), rules), noop, nil
	case "anthropic":
		return ai.NewChain(log, ai.NewAnthropicExtractor(cfg.AI.AnthropicKey, cfg.AI.Model, ""), rules), noop, nil
	}
	return rules, noop, nil
}

func buildSearcher(cfg config.Config, rdb *redis.Client, log *zap.Logger) (search.Searcher, error) {
	var providers []search.Searcher
	for _, name := range cfg.Search.Providers {
		switch name {
		case "google":
			client, err := maps.NewClient(cfg.Search.MapsKey)
			if err != nil {
				return nil, fmt.Errorf("maps client: %w", err)
			}
			providers = append(providers, search.NewMapsSearcher(
				maps.NewGeocodeService(client, cfg.Search.Region),
				maps.NewPlacesService(client, cfg.Search.Language, cfg.Search.Region),
				maps.NewRouteService(client, cfg.Search.Language),
				log,
			))
		case "static":
			providers = append(providers, search.NewStaticSearcher(nil))
		default:
			return nil, fmt.Errorf("unknown search provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no search provider configured")
	}

	var s search.Searcher = providers[0]
	if len(providers) > 1 {
		s = search.NewMultiSearcher(log, providers...)
	}
	return search.NewCachedSearcher(s, rdb, cfg.Search.CacheTTL, log), nil
}

func buildNotifier(ctx context.Context, cfg config.Config, log *zap.Logger) (notify.Notifier, error) {
	if cfg.Notify.Backend != "sns" {
		return notify.NewLogNotifier(log), nil
	}
	client, err := infra.NewSNSClient(ctx, cfg.Notify.AWSRegion)
	if err != nil {
		return nil, err
	}
	return notify.NewSNSNotifier(client), nil
}

func slotOrder(names []string) []slots.Name {
	out := make([]slots.Name, 0, len(names))
	for _, n := range names {
		if name, ok := slots.ParseName(n); ok {
			out = append(out, name)
		}
	}
	return out
}
