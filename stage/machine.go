package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/go-playground/validator/v10"
)

// TracePrefix prefixes the Results key of each completed step's trace.
const TracePrefix = "trace."

// TraceKey returns the Results key holding a step's trace.
func TraceKey(step string) string { return TracePrefix + step }

// StepTrace is recorded for every completed step.
type StepTrace struct {
	Step        string    `json:"step"`
	Attempts    int       `json:"attempts"`
	DurationMS  int64     `json:"duration_ms"`
	Output      any       `json:"output,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Output is the typed result of a stage. Fields lists the values merged into
// StageState.Results.
type Output interface {
	Fields() map[string]any
}

// Definition describes a stage.
type Definition[S any, R Output] struct {
	Name   string
	Steps  []Step[S]
	Output func(data *S) (R, error)
}

// Options configures Run.
type Options struct {
	Logger logging.Logger
	Now    func() time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct applies struct-tag validation, reporting failures as core.ErrValidation.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return core.Validationf("%s", verrs.Error())
		}
		return core.Validationf("%v", err)
	}
	return nil
}

// Run executes def against st and data. On success it returns the validated
// output; on failure it returns the *core.StageError also stored in st.Error.
func Run[S any, R Output](ctx context.Context, st *core.StageState, data *S, def Definition[S, R], optFns ...func(o *Options)) (R, error) {
	opts := Options{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	var zero R
	stageStart := opts.Now()
	st.Status = core.StatusRunning
	st.StartedAt = stageStart
	st.Error = nil
	if st.MaxIterations < 1 {
		st.MaxIterations = 1
	}

	fail := func(step string, attempts int, err error) (R, error) {
		st.Status = core.StatusFailed
		st.Phase = string(core.StatusFailed)
		st.Error = core.NewStageError(def.Name, step, attempts, err)
		st.CompletedAt = opts.Now()
		logging.StageExecution(opts.Logger, def.Name, len(def.Steps), st.CompletedAt.Sub(stageStart), st.Error)
		return zero, st.Error
	}

	seen := make(map[string]bool, len(def.Steps))
	for _, step := range def.Steps {
		if seen[step.Name()] {
			return fail(step.Name(), 0, fmt.Errorf("duplicate step name %q", step.Name()))
		}
		seen[step.Name()] = true
	}

	for _, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			return fail(step.Name(), 0, cancelled(err))
		}
		st.Phase = step.Name()

		maxAttempts := 1
		if step.Retryable() {
			maxAttempts = st.MaxIterations
		}

		start := opts.Now()
		var (
			out      any
			err      error
			attempts int
		)
		for attempts < maxAttempts {
			attempts++
			if attempts > st.IterationCount {
				st.IterationCount = attempts
			}
			out, err = step.Execute(ctx, data)
			if err == nil {
				err = step.Validate(data)
			}
			if err == nil || !core.IsRetryable(err) {
				break
			}
			if ctx.Err() != nil {
				err = cancelled(ctx.Err())
				break
			}
			opts.Logger.Debug("retrying step", "stage", def.Name, "step", step.Name(), "attempt", attempts, "error", err)
		}
		dur := opts.Now().Sub(start)
		logging.StepExecution(opts.Logger, def.Name, step.Name(), attempts, dur, err)
		if err != nil {
			if ctx.Err() != nil && core.KindOf(err) != core.KindCancelled {
				err = cancelled(fmt.Errorf("%w (%v)", ctx.Err(), err))
			}
			return fail(step.Name(), attempts, err)
		}
		st.SetResult(TraceKey(step.Name()), StepTrace{
			Step:        step.Name(),
			Attempts:    attempts,
			DurationMS:  dur.Milliseconds(),
			Output:      out,
			CompletedAt: opts.Now(),
		})
	}

	result, err := def.Output(data)
	if err != nil {
		return fail("", 0, err)
	}
	if err := ValidateStruct(result); err != nil {
		return fail("", 0, fmt.Errorf("%s output: %w", def.Name, err))
	}
	fields := result.Fields()
	if len(fields) == 0 {
		return fail("", 0, core.Validationf("%s produced no results", def.Name))
	}
	for k, v := range fields {
		st.SetResult(k, v)
	}
	st.Status = core.StatusCompleted
	st.Phase = string(core.StatusCompleted)
	st.CompletedAt = opts.Now()
	logging.StageExecution(opts.Logger, def.Name, len(def.Steps), st.CompletedAt.Sub(stageStart), nil)
	return result, nil
}

func cancelled(err error) error {
	if errors.Is(err, core.ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrCancelled, err)
}
