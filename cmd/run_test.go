package cmd

import (
	"testing"
	"time"

	"github.com/planjudge/planjudge/internal/config"
	"github.com/planjudge/planjudge/internal/llm"
	"github.com/planjudge/planjudge/internal/sandbox"
)

func TestNewClientBackendSelection(t *testing.T) {
	cfg := config.Default()

	cfg.Client.Backend = "http"
	if _, ok := newClient(cfg).(*llm.HTTPClient); !ok {
		t.Errorf("http backend: got %T", newClient(cfg))
	}

	cfg.Client.Backend = "sandbox"
	cfg.Sandbox.Image = "agent:latest"
	cfg.Sandbox.TimeoutMinutes = 5
	c, ok := newClient(cfg).(*sandbox.Client)
	if !ok {
		t.Fatalf("sandbox backend: got %T", newClient(cfg))
	}
	if c.Image != "agent:latest" {
		t.Errorf("image: got %q", c.Image)
	}
	if c.Timeout != 5*time.Minute {
		t.Errorf("timeout: got %v", c.Timeout)
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Retry.MaxAttempts = 5
	cfg.Retry.InitialIntervalMS = 250
	cfg.Retry.MaxIntervalMS = 1000
	cfg.Retry.Multiplier = 2.0
	cfg.Retry.Jitter = false

	p := retryPolicy(cfg)
	if got := p.Backoff(2); got != 250*time.Millisecond {
		t.Errorf("Backoff(2): got %v, want 250ms", got)
	}
	if got := p.Backoff(4); got != 1000*time.Millisecond {
		t.Errorf("Backoff(4): got %v, want cap 1s", got)
	}
}
