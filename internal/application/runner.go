package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akshay5995/mcpevals/internal/domain"
	"github.com/akshay5995/mcpevals/internal/ports"
)

// SessionFactory opens the initial connection to the server under
// evaluation.
type SessionFactory func(ctx context.Context) (ports.ToolSession, error)

// Runner executes every case of a suite and aggregates the outcomes.
// Case-level failures (timeouts, tool loop bounds, judge errors) are
// captured as error-status results; only failure to reach the server at
// all aborts the run.
type Runner struct {
	config   *Config
	llm      ports.LLMClient
	sessions SessionFactory
	metrics  ports.MetricsCollector
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerMetrics records per-case latency and outcomes.
func WithRunnerMetrics(collector ports.MetricsCollector) RunnerOption {
	return func(r *Runner) { r.metrics = collector }
}

// NewRunner creates a runner for the given suite configuration.
func NewRunner(config *Config, client ports.LLMClient, sessions SessionFactory, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		config:   config,
		llm:      client,
		sessions: sessions,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the suite. Results appear in declared configuration order
// regardless of execution order. The returned error is non-nil only when
// the server connection itself fails.
func (r *Runner) Run(ctx context.Context) (domain.SuiteResult, error) {
	session, err := r.sessions(ctx)
	if err != nil {
		return domain.SuiteResult{}, err
	}
	defer session.Close()

	start := time.Now()
	results := make([]domain.CaseResult, len(r.config.Evaluations))

	if r.config.Parallel && len(r.config.Evaluations) > 1 {
		r.runParallel(ctx, session, results)
	} else {
		for i, c := range r.config.Evaluations {
			results[i] = r.runCase(ctx, session, c)
		}
	}

	suite := domain.AggregateResults(results, time.Since(start))
	r.recordSuiteMetrics(suite)
	r.logger.Info("suite finished",
		"total", suite.Total,
		"passed", suite.Passed,
		"failed", suite.Failed,
		"errored", suite.Errored,
		"average", suite.OverallAverage,
		"duration", suite.Duration,
	)
	return suite, nil
}

// runParallel fans cases out over cloned sessions so concurrent tool
// calls never interleave on one server connection. Each result lands at
// its declaration index.
func (r *Runner) runParallel(ctx context.Context, session ports.ToolSession, results []domain.CaseResult) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.MaxConcurrency)

	for i, c := range r.config.Evaluations {
		g.Go(func() error {
			clone, err := session.Clone(gctx)
			if err != nil {
				results[i] = domain.NewErrorResult(c, domain.NewTranscript(c.Name), 0,
					fmt.Errorf("failed to clone server session: %w", err))
				return nil
			}
			defer clone.Close()
			results[i] = r.runCase(gctx, clone, c)
			return nil
		})
	}
	// Goroutines always return nil; failures live in the results slice.
	_ = g.Wait()
}

// runCase executes and scores one case under its timeout. It never
// returns an error: every failure mode becomes an error-status result
// carrying whatever transcript was captured before the failure.
func (r *Runner) runCase(ctx context.Context, session ports.ToolSession, c domain.EvaluationCase) domain.CaseResult {
	timeout := c.EffectiveTimeout(r.config.CaseTimeout())
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger.Info("running case", "case", c.Name, "timeout", timeout)
	start := time.Now()

	executor := NewTurnExecutor(r.llm, session, r.logger,
		WithMetrics(r.metrics),
		WithToolErrorPolicy(r.config.ToolErrorPolicy),
		WithMaxToolCalls(r.config.MaxToolCalls),
	)

	transcript, err := executor.Execute(cctx, c)
	if err != nil {
		return r.errorResult(cctx, c, transcript, time.Since(start), err)
	}

	judge := NewJudge(r.llm, r.logger)
	score, err := judge.Score(cctx, c, transcript)
	if err != nil {
		return r.errorResult(cctx, c, transcript, time.Since(start), err)
	}

	result := domain.NewScoredResult(c, transcript, score, time.Since(start))
	r.logger.Info("case finished",
		"case", c.Name,
		"status", result.Status,
		"average", score.Average,
		"duration", result.Duration,
	)
	return result
}

// errorResult classifies a case failure, mapping deadline expiry of the
// case context onto the timeout error. A timed-out case keeps its partial
// transcript but never a partial score.
func (r *Runner) errorResult(cctx context.Context, c domain.EvaluationCase, transcript domain.Transcript, duration time.Duration, err error) domain.CaseResult {
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %v", domain.ErrCaseTimeout, c.EffectiveTimeout(r.config.CaseTimeout()), err)
	}
	r.logger.Error("case errored", "case", c.Name, "error", err)
	return domain.NewErrorResult(c, transcript, duration, err)
}

func (r *Runner) recordSuiteMetrics(suite domain.SuiteResult) {
	if r.metrics == nil {
		return
	}
	for _, cr := range suite.Cases {
		r.metrics.RecordCounter("cases_total", 1, map[string]string{"status": string(cr.Status)})
		r.metrics.RecordLatency("case_run", cr.Duration, map[string]string{"status": string(cr.Status)})
	}
}
