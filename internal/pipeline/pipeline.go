// Package pipeline runs an exercise as named sequential steps, and several
// independent exercises side by side.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cocoa-insights-go/internal/logger"
)

// Step is one stage of an exercise. A failing Optional step is logged and
// the run continues.
type Step struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) error
}

// Run executes steps in order, checking ctx between them
func Run(ctx context.Context, log *logger.Logger, steps []Step) error {
	start := time.Now()
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("before step %s: %w", s.Name, err)
		}
		stepLog := log.WithComponent(s.Name)
		t := time.Now()
		err := s.Run(ctx)
		fields := map[string]interface{}{
			"step":        fmt.Sprintf("%d/%d", i+1, len(steps)),
			"duration_ms": time.Since(t).Milliseconds(),
		}
		if err != nil {
			if s.Optional {
				stepLog.WithError(err).WithFields(fields).Warn("step skipped")
				continue
			}
			stepLog.WithError(err).WithFields(fields).Error("step failed")
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		stepLog.WithFields(fields).Debug("step done")
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("exercise complete")
	return nil
}

// Job is a whole exercise
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunAll runs independent jobs with at most workers in flight. Every job
// runs to completion; the first error is returned.
func RunAll(ctx context.Context, log *logger.Logger, workers int, jobs []Job) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	errs := make([]error, len(jobs))
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			if err := j.Run(ctx); err != nil {
				log.WithError(err).WithField("job", j.Name).Error("exercise failed")
				errs[i] = fmt.Errorf("%s: %w", j.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
