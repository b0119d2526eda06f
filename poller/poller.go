package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	blogflow "github.com/npavkovic/blogflow"
)

// DefaultInterval is the time between cycles when none is configured.
const DefaultInterval = 5 * time.Minute

// cycleStages is the stage order within one cycle. Draft runs first so
// an item researched in this cycle waits until the next cycle to be
// drafted.
var cycleStages = []blogflow.Stage{blogflow.StageDraft, blogflow.StageResearch}

// Runner runs one pipeline stage. *blogflow.Machine satisfies it.
type Runner interface {
	Run(ctx context.Context, stage blogflow.Stage, opts blogflow.Options) (*blogflow.RunReport, error)
}

// ErrRunnerRequired is returned by New when no runner is wired.
var ErrRunnerRequired = errors.New("runner is required")

// Config configures a Poller.
type Config struct {
	Runner Runner

	// Interval is the time between cycles. Defaults to DefaultInterval.
	Interval time.Duration

	// Options is applied to every stage run.
	Options blogflow.Options

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Poller drives pipeline cycles on a ticker until its context is
// canceled.
type Poller struct {
	runner   Runner
	interval time.Duration
	options  blogflow.Options
	logger   *slog.Logger
}

// New validates cfg and builds a Poller.
func New(cfg Config) (*Poller, error) {
	if cfg.Runner == nil {
		return nil, ErrRunnerRequired
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		runner:   cfg.Runner,
		interval: interval,
		options:  cfg.Options,
		logger:   logger,
	}, nil
}

// Run executes one cycle immediately, then one per interval, until ctx
// is canceled. Stage failures are logged and never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.interval)

	p.RunCycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.RunCycle(ctx)
		}
	}
}

// RunCycle runs every stage once, in cycle order.
func (p *Poller) RunCycle(ctx context.Context) {
	for _, stage := range cycleStages {
		if ctx.Err() != nil {
			return
		}

		report, err := p.runner.Run(ctx, stage, p.options)
		if err != nil {
			p.logger.Error("cycle stage failed", "stage", stage, "error", err)
			continue
		}
		p.logger.Info("cycle stage finished",
			"runId", report.RunID,
			"stage", stage,
			"selected", report.Selected,
			"completed", report.Completed(),
			"failed", report.Failed(),
		)
	}
}
