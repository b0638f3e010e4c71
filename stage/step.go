package stage

import "context"

// Step is one unit of work over the typed stage state S.
//
// Execute returns a summary value recorded in the step trace. Steps should
// assign into S only once their work succeeded so a retried or failed attempt
// leaves no half-written fields behind.
type Step[S any] interface {
	Name() string
	Execute(ctx context.Context, data *S) (any, error)
	Validate(data *S) error
	Retryable() bool
}

type funcStep[S any] struct {
	name      string
	exec      func(ctx context.Context, data *S) (any, error)
	validate  func(data *S) error
	retryable bool
}

// StepOption configures a step built with NewStep.
type StepOption[S any] func(*funcStep[S])

// NewStep adapts a function into a Step.
func NewStep[S any](name string, exec func(ctx context.Context, data *S) (any, error), opts ...StepOption[S]) Step[S] {
	s := &funcStep[S]{name: name, exec: exec}
	for _, o := range opts {
		o(s)
	}
	return s
}

// WithValidation attaches a post-execute check.
func WithValidation[S any](fn func(data *S) error) StepOption[S] {
	return func(s *funcStep[S]) { s.validate = fn }
}

// AsRetryable lets the machine re-attempt the step on retryable errors.
func AsRetryable[S any]() StepOption[S] {
	return func(s *funcStep[S]) { s.retryable = true }
}

func (s *funcStep[S]) Name() string { return s.name }

func (s *funcStep[S]) Execute(ctx context.Context, data *S) (any, error) {
	return s.exec(ctx, data)
}

func (s *funcStep[S]) Validate(data *S) error {
	if s.validate == nil {
		return nil
	}
	return s.validate(data)
}

func (s *funcStep[S]) Retryable() bool { return s.retryable }
