package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vk/predictflow/internal/task"
)

// Root is the top-level HCL document: a single pipeline block.
type Root struct {
	Pipeline *Pipeline `hcl:"pipeline,block"`
}

// Pipeline declares the task set the orchestrator will build: which symbols
// to process, from which sources, at which aggregation intervals, plus the
// run-wide concurrency bound and default execution policy.
type Pipeline struct {
	Symbols       []string  `hcl:"symbols"`
	Intervals     []string  `hcl:"intervals,optional"`
	WindowDays    int       `hcl:"window_days,optional"`
	MaxConcurrent int       `hcl:"max_concurrent,optional"`
	Defaults      *Defaults `hcl:"defaults,block"`
	Sources       []*Source `hcl:"source,block"`
}

// Source declares one market-data endpoint.
type Source struct {
	Name    string `hcl:"name,label"`
	BaseURL string `hcl:"base_url"`
	Timeout string `hcl:"timeout,optional"`
}

// Defaults is the execution policy applied to every task the pipeline
// builder creates.
type Defaults struct {
	MaxRetries        int     `hcl:"max_retries,optional"`
	RetryBaseDelay    string  `hcl:"retry_base_delay,optional"`
	BackoffMultiplier float64 `hcl:"backoff_multiplier,optional"`
	Timeout           string  `hcl:"timeout,optional"`
}

// normalize fills unset fields with the pipeline's stock defaults.
func (p *Pipeline) normalize() {
	if len(p.Intervals) == 0 {
		p.Intervals = []string{"1h", "1d"}
	}
	if p.WindowDays == 0 {
		p.WindowDays = 2
	}
	if p.MaxConcurrent == 0 {
		p.MaxConcurrent = 3
	}
	if p.Defaults == nil {
		p.Defaults = &Defaults{}
	}
	d := p.Defaults
	if d.MaxRetries == 0 {
		d.MaxRetries = 3
	}
	if d.RetryBaseDelay == "" {
		d.RetryBaseDelay = "1s"
	}
	if d.BackoffMultiplier == 0 {
		d.BackoffMultiplier = 2
	}
	if d.Timeout == "" {
		d.Timeout = "30s"
	}
	for _, s := range p.Sources {
		if s.Timeout == "" {
			s.Timeout = "10s"
		}
	}
}

// validate checks the pipeline declaration for structural problems before
// any task is built.
func (p *Pipeline) validate() error {
	if len(p.Symbols) == 0 {
		return fmt.Errorf("pipeline must declare at least one symbol")
	}
	if len(p.Sources) == 0 {
		return fmt.Errorf("pipeline must declare at least one source block")
	}
	seen := make(map[string]bool)
	for _, s := range p.Sources {
		if s.Name == "" {
			return fmt.Errorf("source blocks must be labeled")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source %q", s.Name)
		}
		seen[s.Name] = true
		if s.BaseURL == "" {
			return fmt.Errorf("source %q: base_url is required", s.Name)
		}
		if _, err := time.ParseDuration(s.Timeout); err != nil {
			return fmt.Errorf("source %q: invalid timeout: %w", s.Name, err)
		}
	}
	for _, iv := range p.Intervals {
		if _, err := ParseInterval(iv); err != nil {
			return fmt.Errorf("invalid interval %q: %w", iv, err)
		}
	}
	if p.WindowDays < 1 {
		return fmt.Errorf("window_days must be at least 1, got %d", p.WindowDays)
	}
	if p.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", p.MaxConcurrent)
	}
	if _, err := p.TaskPolicy(); err != nil {
		return err
	}
	return nil
}

// TaskPolicy resolves the defaults block into the policy applied to built
// tasks.
func (p *Pipeline) TaskPolicy() (task.Policy, error) {
	d := p.Defaults
	base, err := time.ParseDuration(d.RetryBaseDelay)
	if err != nil {
		return task.Policy{}, fmt.Errorf("defaults: invalid retry_base_delay: %w", err)
	}
	timeout, err := time.ParseDuration(d.Timeout)
	if err != nil {
		return task.Policy{}, fmt.Errorf("defaults: invalid timeout: %w", err)
	}
	return task.Policy{
		MaxRetries:        d.MaxRetries,
		RetryBaseDelay:    base,
		BackoffMultiplier: d.BackoffMultiplier,
		Timeout:           timeout,
	}, nil
}

// ClientTimeout resolves the source's HTTP client timeout.
func (s *Source) ClientTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ParseInterval parses an aggregation interval such as "15m", "1h" or "1d".
// The "d" suffix (whole days) is accepted on top of the standard duration
// units.
func ParseInterval(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days < 1 {
			return 0, fmt.Errorf("expected a positive whole number of days")
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	return d, nil
}
