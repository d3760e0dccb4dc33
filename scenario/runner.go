package scenario

import (
	"context"
	"time"

	"github.com/google/uuid"

	"apiconform/checker"
	"apiconform/logger"
)

// Result is the outcome of one scenario.
type Result struct {
	ID       string
	Name     string
	Passed   bool
	Err      error
	Duration time.Duration
}

// Summary aggregates a run.
type Summary struct {
	RunID    string
	Results  []Result
	Passed   int
	Failed   int
	Duration time.Duration
}

// OK reports whether every scenario passed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Runner executes scenarios one after another against a shared Env.
type Runner struct {
	env       *Env
	scenarios []Scenario
	log       *logger.Entry
}

func NewRunner(env *Env, scenarios []Scenario) *Runner {
	if env.RunID == "" {
		env.RunID = uuid.NewString()
	}
	return &Runner{
		env:       env,
		scenarios: scenarios,
		log:       logger.GetLogger().WithComponent("runner").WithFields(logger.Fields{"run_id": env.RunID}),
	}
}

// Run executes the scenarios matching filters in order. A cancelled ctx
// marks every remaining scenario failed.
func (r *Runner) Run(ctx context.Context, filters []string) Summary {
	selected := Select(r.scenarios, filters)
	summary := Summary{RunID: r.env.RunID, Results: make([]Result, 0, len(selected))}
	r.log.WithFields(logger.Fields{"selected": len(selected), "filters": filters}).Info("run started")

	start := time.Now()
	for _, sc := range selected {
		res := r.runOne(ctx, sc)
		summary.Results = append(summary.Results, res)
		if res.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	summary.Duration = time.Since(start)

	r.log.WithFields(logger.Fields{
		"passed":      summary.Passed,
		"failed":      summary.Failed,
		"duration_ms": summary.Duration.Milliseconds(),
	}).Info("run finished")
	return summary
}

func (r *Runner) runOne(ctx context.Context, sc Scenario) Result {
	res := Result{ID: sc.ID, Name: sc.Name}
	start := time.Now()
	if err := ctx.Err(); err != nil {
		res.Err = err
	} else {
		res.Err = sc.Run(ctx, r.env)
	}
	res.Duration = time.Since(start)
	res.Passed = res.Err == nil
	logger.IncrementScenario(res.Passed)

	fields := logger.Fields{"scenario": sc.ID, "name": sc.Name, "passed": res.Passed}
	entry := r.log.WithFields(fields)
	switch {
	case res.Passed:
		entry.Info("scenario passed")
	case checker.IsFailure(res.Err):
		entry.WithError(res.Err).Warn("scenario failed")
	default:
		entry.WithError(res.Err).Error("scenario errored")
	}
	logger.LogPerformanceEntry(r.log, "runner", sc.ID, res.Duration, logger.Fields{"scenario": sc.ID})
	r.log.LogMetric("runner", "scenario_duration", res.Duration.Milliseconds(), "duration_ms", logger.Fields{"scenario": sc.ID})
	return res
}
