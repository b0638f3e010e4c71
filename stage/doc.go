// Package stage implements the generic stage state machine shared by every
// pipeline stage.
//
// A stage is a Definition: a name, an ordered list of Steps over a typed
// state S, and an Output function that turns the final S into the stage's
// typed result R. Run drives a core.StageState through it:
//
//  1. Marks the state running and records the start time
//  2. Executes each step in declared order; after Execute succeeds the step's
//     Validate runs against the same state
//  3. Re-attempts a retryable step while its error is retryable, up to the
//     state's MaxIterations
//  4. Stops at the first failing step (fail-fast): status failed, Error set
//     with stage, step and kind; later steps never run
//  5. Stores a StepTrace for every completed step under "trace.<step>"
//  6. Validates the typed output with struct tags, merges its fields into
//     Results and marks the state completed
//
// Steps never see the StageState; only the final transition (completed or
// failed) is visible to callers.
package stage
