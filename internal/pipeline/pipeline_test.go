package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cocoa-insights-go/internal/logger"
)

func TestRunOrderAndOptional(t *testing.T) {
	var order []string
	step := func(name string, optional bool, err error) Step {
		return Step{Name: name, Optional: optional, Run: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}
	err := Run(context.Background(), logger.Discard(), []Step{
		step("load", false, nil),
		step("charts", true, errors.New("no font")),
		step("report", false, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"load", "charts", "report"}, order)
}

func TestRunStopsOnRequiredFailure(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	err := Run(context.Background(), logger.Discard(), []Step{
		{Name: "load", Run: func(context.Context) error { return boom }},
		{Name: "report", Run: func(context.Context) error { ran = true; return nil }},
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "load: boom")
	assert.False(t, ran)
}

func TestRunHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, logger.Discard(), []Step{{Name: "load", Run: func(context.Context) error { return nil }}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAll(t *testing.T) {
	var done atomic.Int32
	boom := errors.New("boom")
	jobs := []Job{
		{Name: "a", Run: func(context.Context) error { done.Add(1); return nil }},
		{Name: "b", Run: func(context.Context) error { done.Add(1); return boom }},
		{Name: "c", Run: func(context.Context) error { done.Add(1); return nil }},
	}
	err := RunAll(context.Background(), logger.Discard(), 2, jobs)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "b: boom")
	assert.Equal(t, int32(3), done.Load(), "a failure does not cancel the other jobs")

	assert.NoError(t, RunAll(context.Background(), logger.Discard(), 0, jobs[:1]))
}
