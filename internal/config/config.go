// README: Config loader with env defaults for HTTP, Redis, adapters, conversation and session settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	DefaultForcePhrases = []string{"search again", "new search", "try again", "look again", "refresh", "search anyway"}
	DefaultMorePhrases  = []string{"more options", "more", "next", "what else", "anything else", "other options", "show me more", "more please"}
	DefaultEndPhrases   = []string{"that's all", "that is all", "goodbye", "bye", "no thanks", "no thank you", "i'm done", "hang up"}
	DefaultSlotOrder    = []string{"cuisine", "location", "budget", "travel_mode", "travel_minutes"}
)

const defaultWelcome = "Hi! I can help you find a place to eat. What are you in the mood for?"

type ConversationConfig struct {
	TopN            int
	ForcePhrases    []string
	MorePhrases     []string
	EndPhrases      []string
	SlotOrder       []string
	ExtractTimeout  time.Duration
	SearchTimeout   time.Duration
	WelcomeGreeting string
}

type SessionConfig struct {
	IdleTimeout        time.Duration
	DashboardRetention time.Duration
	CleanupInterval    time.Duration
	MaxSessions        int
}

type Config struct {
	HTTP struct {
		Addr      string
		PublicURL string
	}
	Redis struct {
		Addr     string
		Password string
	}
	Search struct {
		// Providers are queried together; results concatenate in this order.
		Providers []string
		MapsKey   string
		Language  string
		Region    string
		CacheTTL  time.Duration
	}
	AI struct {
		Extractor    string
		Model        string
		GeminiKey    string
		OpenAIKey    string
		AnthropicKey string
	}
	Notify struct {
		Backend   string
		AWSRegion string
	}
	Log struct {
		Level  string
		Format string
	}
	Conversation ConversationConfig
	Session      SessionConfig
}

// Load reads configuration from the environment, after loading a .env file
// when one is present in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	var errs []error
	p := parser{errs: &errs}

	cfg.HTTP.Addr = envOrDefault("DINECALL_HTTP_ADDR", ":8080")
	cfg.HTTP.PublicURL = strings.TrimRight(envOrDefault("DINECALL_PUBLIC_URL", "http://localhost:8080"), "/")
	cfg.Redis.Addr = os.Getenv("DINECALL_REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("DINECALL_REDIS_PASSWORD")

	cfg.Search.Providers = envList("DINECALL_SEARCH_PROVIDER", []string{"google"})
	cfg.Search.MapsKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Search.Language = envOrDefault("DINECALL_SEARCH_LANGUAGE", "en")
	cfg.Search.Region = os.Getenv("DINECALL_SEARCH_REGION")
	cfg.Search.CacheTTL = p.duration("DINECALL_SEARCH_CACHE_TTL", 10*time.Minute)
	for _, provider := range cfg.Search.Providers {
		switch provider {
		case "google":
			if cfg.Search.MapsKey == "" {
				errs = append(errs, errors.New("GOOGLE_MAPS_API_KEY is required when DINECALL_SEARCH_PROVIDER includes google"))
			}
		case "static":
		default:
			errs = append(errs, fmt.Errorf("DINECALL_SEARCH_PROVIDER: unknown provider %q", provider))
		}
	}

	cfg.AI.Extractor = strings.ToLower(envOrDefault("DINECALL_EXTRACTOR", "rules"))
	cfg.AI.Model = os.Getenv("DINECALL_EXTRACTOR_MODEL")
	cfg.AI.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.AI.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AI.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	if key, ok := map[string]string{
		"rules":     "-",
		"gemini":    cfg.AI.GeminiKey,
		"openai":    cfg.AI.OpenAIKey,
		"anthropic": cfg.AI.AnthropicKey,
	}[cfg.AI.Extractor]; !ok {
		errs = append(errs, fmt.Errorf("DINECALL_EXTRACTOR: unknown extractor %q", cfg.AI.Extractor))
	} else if key == "" {
		errs = append(errs, fmt.Errorf("DINECALL_EXTRACTOR=%s requires its API key", cfg.AI.Extractor))
	}

	cfg.Notify.Backend = strings.ToLower(envOrDefault("DINECALL_NOTIFIER", "log"))
	cfg.Notify.AWSRegion = envOrDefault("AWS_REGION", "us-east-1")
	if cfg.Notify.Backend != "log" && cfg.Notify.Backend != "sns" {
		errs = append(errs, fmt.Errorf("DINECALL_NOTIFIER: unknown notifier %q", cfg.Notify.Backend))
	}

	cfg.Log.Level = envOrDefault("DINECALL_LOG_LEVEL", "info")
	cfg.Log.Format = envOrDefault("DINECALL_LOG_FORMAT", "json")

	cfg.Conversation.TopN = p.positiveInt("DINECALL_TOP_N", 3)
	cfg.Conversation.ForcePhrases = envList("DINECALL_FORCE_PHRASES", DefaultForcePhrases)
	cfg.Conversation.MorePhrases = envList("DINECALL_MORE_PHRASES", DefaultMorePhrases)
	cfg.Conversation.EndPhrases = envList("DINECALL_END_PHRASES", DefaultEndPhrases)
	cfg.Conversation.SlotOrder = envList("DINECALL_SLOT_ORDER", DefaultSlotOrder)
	if err := ValidateSlotOrder(cfg.Conversation.SlotOrder); err != nil {
		errs = append(errs, fmt.Errorf("DINECALL_SLOT_ORDER: %w", err))
	}
	cfg.Conversation.ExtractTimeout = p.duration("DINECALL_EXTRACT_TIMEOUT", 6*time.Second)
	cfg.Conversation.SearchTimeout = p.duration("DINECALL_SEARCH_TIMEOUT", 12*time.Second)
	cfg.Conversation.WelcomeGreeting = envOrDefault("DINECALL_WELCOME_GREETING", defaultWelcome)

	cfg.Session.IdleTimeout = p.duration("DINECALL_SESSION_TIMEOUT", 30*time.Minute)
	cfg.Session.DashboardRetention = p.duration("DINECALL_DASHBOARD_RETENTION", 2*time.Hour)
	cfg.Session.CleanupInterval = p.duration("DINECALL_CLEANUP_INTERVAL", time.Minute)
	cfg.Session.MaxSessions = p.positiveInt("DINECALL_MAX_SESSIONS", 200)

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// ValidateSlotOrder requires each of the five required slot names exactly once.
func ValidateSlotOrder(order []string) error {
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		known := false
		for _, d := range DefaultSlotOrder {
			if name == d {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown slot %q", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate slot %q", name)
		}
		seen[name] = true
	}
	if len(seen) != len(DefaultSlotOrder) {
		return fmt.Errorf("expected %d slots, got %d", len(DefaultSlotOrder), len(seen))
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envList splits a comma-separated value, lowercasing and trimming entries.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parser collects parse errors instead of silently falling back to defaults.
type parser struct {
	errs *[]error
}

func (p parser) positiveInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: expected a positive integer, got %q", key, v))
		return def
	}
	return n
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: expected a positive duration, got %q", key, v))
		return def
	}
	return d
}
