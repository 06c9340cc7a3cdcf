package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/shotspectre/internal/screenshot"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 4

// Analyzer produces exactly one outcome per image. Implementations report
// faults as Failure outcomes rather than errors.
type Analyzer interface {
	Analyze(ctx context.Context, img screenshot.ImageFile) screenshot.Outcome
}

// Runner analyzes a batch of images with at most Workers calls in flight.
type Runner struct {
	Analyzer Analyzer
	Workers  int
	// Progress, when set, is called once per recorded outcome from a single
	// goroutine. Completed increases by one on every call.
	Progress func(screenshot.Progress)
}

type taskResult struct {
	name    string
	outcome screenshot.Outcome
}

// Run analyzes every file and returns once each has a recorded outcome.
// Per-file failures are recorded in the result set; the returned error is
// reserved for invalid configuration and broken bookkeeping.
func (r *Runner) Run(ctx context.Context, files []screenshot.ImageFile) (*screenshot.ResultSet, error) {
	if r.Workers <= 0 {
		return nil, &screenshot.ConfigurationError{
			Option: "workers",
			Reason: fmt.Sprintf("must be at least 1, got %d", r.Workers),
		}
	}
	if r.Analyzer == nil {
		return nil, &screenshot.ConfigurationError{Option: "analyzer", Reason: "not set"}
	}

	rs, err := screenshot.NewResultSet(files)
	if err != nil {
		return nil, fmt.Errorf("prepare results: %w", err)
	}
	if len(files) == 0 {
		return rs, nil
	}

	slog.Debug("Starting batch", "files", len(files), "workers", r.Workers)

	results := make(chan taskResult, r.Workers)
	collected := make(chan error, 1)
	go func() {
		collected <- r.collect(rs, results)
	}()

	var g errgroup.Group
	g.SetLimit(r.Workers)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			results <- taskResult{name: f.Name, outcome: notStarted(err)}
			continue
		}
		f := f
		g.Go(func() error {
			results <- taskResult{name: f.Name, outcome: r.analyze(ctx, f)}
			return nil
		})
	}

	_ = g.Wait()
	close(results)
	recordErr := <-collected

	if missing := rs.Missing(); len(missing) > 0 {
		recordErr = errors.Join(recordErr, fmt.Errorf("%d images have no outcome: %v", len(missing), missing))
	}
	if recordErr != nil {
		return nil, fmt.Errorf("collect results: %w", recordErr)
	}
	return rs, nil
}

// collect is the only writer of rs.
func (r *Runner) collect(rs *screenshot.ResultSet, results <-chan taskResult) error {
	var errs []error
	completed := 0
	for res := range results {
		if err := rs.Record(res.name, res.outcome); err != nil {
			errs = append(errs, err)
			continue
		}
		completed++

		if !res.outcome.OK() {
			slog.Warn("Analysis failed", "file", res.name, "kind", res.outcome.Kind(), "error", res.outcome.Message())
		}
		if r.Progress != nil {
			r.Progress(screenshot.Progress{
				Completed: completed,
				Total:     rs.Len(),
				File:      res.name,
				Outcome:   res.outcome,
			})
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) analyze(ctx context.Context, f screenshot.ImageFile) (out screenshot.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Analyzer panicked", "file", f.Name, "panic", p)
			out = screenshot.Failuref(screenshot.FailureInternal, "analyzer panic: %v", p)
		}
	}()

	if err := ctx.Err(); err != nil {
		return notStarted(err)
	}
	out = r.Analyzer.Analyze(ctx, f)
	if out.IsZero() {
		out = screenshot.Failure(screenshot.FailureInternal, "analyzer returned no outcome")
	}
	return out
}

func notStarted(err error) screenshot.Outcome {
	return screenshot.Failuref(screenshot.FailureCanceled, "analysis not started: %v", err)
}
