package engine

import (
	"context"
	"sync"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/logging"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/positioning"
)

// CallbackType defines the lifecycle points where callbacks run.
//
// Callbacks hook into the pipeline without changing stage logic:
//   - BeforeStage/AfterStage: around a stage that completed
//   - OnError: when a stage fails or persistence of its record fails
//   - OnSelection: when a positioning option has been selected
//
// Callbacks run synchronously. A BeforeStage callback returning an error
// aborts the run before the stage starts.
type CallbackType string

const (
	// CallbackBeforeStage runs after the stage's state is created and before
	// its first step.
	CallbackBeforeStage CallbackType = "before_stage"

	// CallbackAfterStage runs after a stage completed and its record was saved.
	CallbackAfterStage CallbackType = "after_stage"

	// CallbackOnError runs when a stage fails. Errors returned by OnError
	// callbacks are logged, not propagated.
	CallbackOnError CallbackType = "on_error"

	// CallbackOnSelection runs when an option is selected, before ICP starts.
	CallbackOnSelection CallbackType = "on_selection"
)

// CallbackContext carries what a callback may inspect.
type CallbackContext struct {
	// SubjectID and RunID identify the pipeline run.
	SubjectID string
	RunID     int64

	// Stage is the stage name; empty for OnSelection.
	Stage string

	// State is the stage's state. Callbacks must treat it as read-only.
	State *core.StageState

	// Option is the selected option (OnSelection only).
	Option *positioning.Option

	// Err is the failure (OnError only).
	Err error

	CallbackType CallbackType

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for pipeline lifecycle hooks.
//
// Implementations should be fast; they run inline with the pipeline.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := NewFunctionCallback(
//	    CallbackAfterStage,
//	    func(ctx context.Context, callbackCtx *CallbackContext) error {
//	        log.Printf("stage %s completed", callbackCtx.Stage)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager holds callbacks per type and runs them in registration
// order. Execution stops at the first error.
//
// Registration and execution are safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks runs every callback registered for callbackType and
// returns the first error.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	callbackCtx.CallbackType = callbackType
	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback writes one structured log line per lifecycle event.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a logging callback for callbackType.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the event. A nil logger makes it a no-op.
func (c *LoggingCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}
	args := []any{"event", string(c.callbackType), "subject_id", callbackCtx.SubjectID, "run_id", callbackCtx.RunID}
	if callbackCtx.Stage != "" {
		args = append(args, "stage", callbackCtx.Stage)
	}
	if s := callbackCtx.State; s != nil {
		args = append(args, "status", string(s.Status), "stage_run_id", s.RunID)
	}
	if o := callbackCtx.Option; o != nil {
		args = append(args, "option", o.OptionNumber, "word", o.WordToOwn)
	}
	if callbackCtx.Err != nil {
		args = append(args, "error", callbackCtx.Err)
		c.logger.Warn("pipeline event", args...)
		return nil
	}
	c.logger.Info("pipeline event", args...)
	return nil
}

// ScoreThresholdCallback rejects a completed stage whose score field is
// below a minimum. Register it for CallbackAfterStage; the error halts the
// pipeline before the next stage.
type ScoreThresholdCallback struct {
	stage string
	key   string
	min   float64
}

// NewScoreThresholdCallback creates a gate on Results[key] of stage.
func NewScoreThresholdCallback(stage, key string, min float64) *ScoreThresholdCallback {
	return &ScoreThresholdCallback{stage: stage, key: key, min: min}
}

// Type returns CallbackAfterStage.
func (c *ScoreThresholdCallback) Type() CallbackType {
	return CallbackAfterStage
}

// Execute compares the stage's score with the minimum.
func (c *ScoreThresholdCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if callbackCtx.Stage != c.stage || callbackCtx.State == nil {
		return nil
	}
	v, ok := callbackCtx.State.Result(c.key)
	if !ok {
		return core.Validationf("%s has no %s", c.stage, c.key)
	}
	score, ok := v.(float64)
	if !ok {
		return core.Validationf("%s %s is %T, not a score", c.stage, c.key, v)
	}
	if score < c.min {
		return core.Validationf("%s %s %.2f is below %.2f", c.stage, c.key, score, c.min)
	}
	return nil
}
