package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const turnTimeout = 30 * time.Second

type Runner struct {
	cfg   Config
	httpc *http.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type Scenario struct {
	Name string
	Run  func(ctx context.Context) error
}

func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg, httpc: &http.Client{Timeout: 10 * time.Second}}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	scenarios := r.scenarios()
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			results = append(results, Result{Name: sc.Name, Status: "SKIP", Note: "timeout"})
			continue
		}
		start := time.Now()
		res := Result{Name: sc.Name, Status: "PASS"}
		if err := sc.Run(ctx); err != nil {
			res.Status = "FAIL"
			res.Note = err.Error()
		}
		res.Latency = time.Since(start)
		fmt.Printf("[%s] %-28s %8s %s\n", res.Status, res.Name, res.Latency.Round(time.Millisecond), res.Note)
		results = append(results, res)
	}
	return results
}

func (r *Runner) scenarios() []Scenario {
	return []Scenario{
		{Name: "health", Run: r.checkHealth},
		{Name: "single utterance search", Run: r.singleUtterance},
		{Name: "slot by slot", Run: r.slotBySlot},
		{Name: "repeat and more options", Run: r.repeatAndMore},
		{Name: "invalid travel time", Run: r.invalidMinutes},
		{Name: "unknown dashboard id", Run: r.unknownDashboard},
	}
}

func (r *Runner) checkHealth(ctx context.Context) error {
	status, body, err := r.get(ctx, "/health")
	if err != nil {
		return err
	}
	if status != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		return fmt.Errorf("health: status %d body %s", status, body)
	}
	return nil
}

func (r *Runner) singleUtterance(ctx context.Context) error {
	call, err := Dial(r.cfg, newCallSid())
	if err != nil {
		return err
	}
	defer call.Close()

	reply, err := call.Say("Italian food near downtown, cheap, walking, fifteen minutes", turnTimeout)
	if err != nil {
		return err
	}
	if err := expect(reply, "Number 1,"); err != nil {
		return err
	}
	return r.expectDashboard(ctx, call.ID, "AWAITING_MORE_OR_NEW")
}

func (r *Runner) slotBySlot(ctx context.Context) error {
	call, err := Dial(r.cfg, newCallSid())
	if err != nil {
		return err
	}
	defer call.Close()

	steps := []struct{ say, want string }{
		{"I'd like some thai food", "Where should I look"},
		{"near Union Square", "budget"},
		{"moderate", "How will you get there"},
		{"by transit", "How many minutes"},
		{"twenty minutes", ""},
	}
	for _, st := range steps {
		reply, err := call.Say(st.say, turnTimeout)
		if err != nil {
			return err
		}
		if err := expect(reply, st.want); err != nil {
			return err
		}
	}
	return r.expectDashboard(ctx, call.ID, "AWAITING_MORE_OR_NEW")
}

func (r *Runner) repeatAndMore(ctx context.Context) error {
	call, err := Dial(r.cfg, newCallSid())
	if err != nil {
		return err
	}
	defer call.Close()

	request := "Japanese near downtown, cheap, driving, thirty minutes"
	if _, err := call.Say(request, turnTimeout); err != nil {
		return err
	}
	reply, err := call.Say(request, turnTimeout)
	if err != nil {
		return err
	}
	if err := expect(reply, "still my top picks"); err != nil {
		return err
	}
	if _, err := call.Say("more options", turnTimeout); err != nil {
		return err
	}
	reply, err = call.Say("goodbye", turnTimeout)
	if err != nil {
		return err
	}
	if !reply.Ended {
		return fmt.Errorf("%w: call did not end after goodbye", errUnexpected)
	}
	return nil
}

func (r *Runner) invalidMinutes(ctx context.Context) error {
	call, err := Dial(r.cfg, newCallSid())
	if err != nil {
		return err
	}
	defer call.Close()

	if _, err := call.Say("Thai near Union Square, cheap, driving", turnTimeout); err != nil {
		return err
	}
	reply, err := call.Say("negative five minutes", turnTimeout)
	if err != nil {
		return err
	}
	return expect(reply, "between 1 and 180 minutes")
}

func (r *Runner) unknownDashboard(ctx context.Context) error {
	status, body, err := r.get(ctx, "/api/sessions/CAdoesnotexist")
	if err != nil {
		return err
	}
	if status != http.StatusNotFound || !strings.Contains(body, "session not found or expired") {
		return fmt.Errorf("dashboard: status %d body %s", status, body)
	}
	return nil
}

func (r *Runner) expectDashboard(ctx context.Context, id, state string) error {
	status, body, err := r.get(ctx, "/api/sessions/"+id)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("dashboard: status %d", status)
	}
	var view struct {
		State   string `json:"state"`
		Results []any  `json:"results"`
	}
	if err := sonic.UnmarshalString(body, &view); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	if view.State != state {
		return fmt.Errorf("dashboard: state %s, want %s", view.State, state)
	}
	return nil
}

func (r *Runner) get(ctx context.Context, path string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+path, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), err
}

func expect(reply Reply, want string) error {
	if want != "" && !strings.Contains(reply.Text, want) {
		return fmt.Errorf("%w: got %q, want it to contain %q", errUnexpected, reply.Text, want)
	}
	return nil
}
