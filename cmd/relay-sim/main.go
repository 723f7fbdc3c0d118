// README: Text-only call simulator; speaks the ConversationRelay protocol to a running server, interactively or through scripted scenarios.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	BaseURL  string
	From     string
	Scenario bool
	Timeout  time.Duration
}

func main() {
	cfg := loadConfig()

	if cfg.Scenario {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		results := NewRunner(cfg).RunAll(ctx)

		fmt.Println("\n== Summary ==")
		pass, fail := 0, 0
		for _, r := range results {
			if r.Status == "PASS" {
				pass++
			} else {
				fail++
			}
		}
		fmt.Printf("PASS=%d FAIL=%d\n", pass, fail)
		if fail > 0 {
			os.Exit(1)
		}
		return
	}

	if err := interactive(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("DINECALL_SIM_BASE_URL", "http://localhost:8080"), "server base URL")
	flag.StringVar(&cfg.From, "from", envOrDefault("DINECALL_SIM_FROM", "+15550100000"), "caller number sent in setup")
	flag.BoolVar(&cfg.Scenario, "scenarios", false, "run the scripted scenarios and report PASS/FAIL")
	flag.DurationVar(&cfg.Timeout, "timeout", 60*time.Second, "overall timeout for scenarios")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

// interactive reads caller lines from stdin and prints what the assistant says.
func interactive(cfg Config) error {
	call, err := Dial(cfg, newCallSid())
	if err != nil {
		return err
	}
	defer call.Close()

	fmt.Printf("Connected as %s. Type what the caller says; an empty line hangs up.\n", call.ID)
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("caller> ")
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			return nil
		}
		reply, err := call.Say(line, 30*time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("assistant> %s\n", reply.Text)
		if reply.Ended {
			fmt.Printf("(call ended; dashboard: %s/api/sessions/%s)\n", cfg.BaseURL, call.ID)
			return nil
		}
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
