package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// ResultSink persists the filters and attrs frames produced by a model.
// The store package provides the database-backed implementation.
type ResultSink interface {
	SaveResult(ctx context.Context, result *entity.ModelResult) error
}

// RunOutcome summarizes a full executor walk.
type RunOutcome struct {
	Completed []string
	// Failed maps model name to its error message.
	Failed map[string]string
	// Skipped maps model name to the failed dependency that blocked it.
	Skipped   map[string]string
	Cancelled bool
	// Frames holds the attrs of every completed model, for downstream
	// derivations.
	Frames map[string]*Frame
}

func (o *RunOutcome) HasFailures() bool {
	return len(o.Failed) > 0 || len(o.Skipped) > 0
}

type Executor struct {
	results ResultSink
	tracker Tracker
	log     *zap.Logger
	specs   []ModelSpec
}

func NewExecutor(results ResultSink, tracker Tracker, log *zap.Logger) *Executor {
	return &Executor{results: results, tracker: tracker, log: log, specs: Catalog()}
}

// ExecuteAll walks the resolved model order sequentially. A model failure
// is isolated: its dependents are skipped but independent models still run,
// and the walk finishes as completed with the failures recorded. Only a
// persistence error or an execution panic escalates to a failed job.
func (e *Executor) ExecuteAll(ctx context.Context, jobID uuid.UUID, order []string, txs []entity.Transaction) (*RunOutcome, error) {
	byName := make(map[string]ModelSpec, len(e.specs))
	for _, spec := range e.specs {
		byName[spec.Name] = spec
	}

	if err := e.tracker.MarkRunning(ctx, jobID); err != nil {
		return nil, fmt.Errorf("marking job running: %w", err)
	}

	deps := make(map[string]*Frame)
	outcome := &RunOutcome{
		Failed:  make(map[string]string),
		Skipped: make(map[string]string),
		Frames:  deps,
	}
	total := len(order)

	for _, name := range order {
		cancelled, err := e.tracker.IsCancelled(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("checking cancellation: %w", err)
		}
		if cancelled {
			e.log.Info("job cancelled, stopping walk",
				zap.String("job_id", jobID.String()),
				zap.String("next_model", name))
			outcome.Cancelled = true
			return outcome, nil
		}

		spec, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("model %q not in catalog", name)
		}

		if blocker := firstBlockedDep(spec, outcome); blocker != "" {
			e.log.Warn("skipping model, dependency did not produce output",
				zap.String("job_id", jobID.String()),
				zap.String("model", name),
				zap.String("dependency", blocker))
			outcome.Skipped[name] = blocker
			continue
		}

		if err := e.tracker.SetCurrentModel(ctx, jobID, name); err != nil {
			return nil, fmt.Errorf("setting current model: %w", err)
		}

		input := &ModelInput{Transactions: txs, Deps: deps}
		start := time.Now()
		filters, attrs, runErr := runModel(spec, input)
		elapsed := time.Since(start)

		// A model must emit at least one frame; silence is a contract
		// breach, not a success.
		if runErr == nil && filters == nil && attrs == nil {
			runErr = fmt.Errorf("model %s produced no output", name)
		}
		if runErr != nil {
			e.log.Error("model execution failed",
				zap.String("job_id", jobID.String()),
				zap.String("model", name),
				zap.Error(runErr))
			outcome.Failed[name] = runErr.Error()
			continue
		}

		if attrs != nil {
			deps[name] = attrs
		}
		if err := e.persist(ctx, jobID, name, filters, attrs, elapsed); err != nil {
			return nil, fmt.Errorf("persisting %s results: %w", name, err)
		}

		outcome.Completed = append(outcome.Completed, name)
		if err := e.tracker.AddCompletedModel(ctx, jobID, name, len(outcome.Completed), total); err != nil {
			return nil, fmt.Errorf("recording progress: %w", err)
		}
		e.log.Info("model completed",
			zap.String("job_id", jobID.String()),
			zap.String("model", name),
			zap.Duration("execution_time", elapsed))
	}

	return outcome, nil
}

func runModel(spec ModelSpec, input *ModelInput) (filters, attrs *Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model %s panicked: %v", spec.Name, r)
		}
	}()
	return spec.Run(input)
}

func firstBlockedDep(spec ModelSpec, outcome *RunOutcome) string {
	for _, dep := range spec.DependsOn {
		if _, failed := outcome.Failed[dep]; failed {
			return dep
		}
		if _, skipped := outcome.Skipped[dep]; skipped {
			return dep
		}
	}
	return ""
}

func (e *Executor) persist(ctx context.Context, jobID uuid.UUID, model string, filters, attrs *Frame, elapsed time.Duration) error {
	if filters != nil {
		result, err := entity.NewModelResult(jobID, model, entity.ResultKindFilters, filters.Columns, filters.RowCount(), filters.Preview(PreviewRows), elapsed.Milliseconds())
		if err != nil {
			return err
		}
		if err := e.results.SaveResult(ctx, result); err != nil {
			return err
		}
	}
	if attrs != nil {
		result, err := entity.NewModelResult(jobID, model, entity.ResultKindAttrs, attrs.Columns, attrs.RowCount(), attrs.Preview(PreviewRows), elapsed.Milliseconds())
		if err != nil {
			return err
		}
		if err := e.results.SaveResult(ctx, result); err != nil {
			return err
		}
	}
	return nil
}
