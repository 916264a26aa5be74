package objbuilder

import (
	"errors"
	"fmt"
)

var (
	// ErrCreationFailed is matched by every error raised by a creation strategy (factory or copier).
	ErrCreationFailed = errors.New("failed to create instance")

	// ErrStepFailed is matched by every *StepError.
	ErrStepFailed = errors.New("failed to apply modification step")
)

// StepError reports a fallible modification step that failed during a build.
type StepError struct {
	// Builder is the name of the builder running the step, set when the error leaves Build.
	Builder string
	// Index is the zero-based registration position of the failing step.
	Index int
	Err   error
}

func (e *StepError) Error() string {
	if e.Builder == "" {
		return fmt.Sprintf("%s #%d:\n\t%v", ErrStepFailed, e.Index, e.Err)
	}
	return fmt.Sprintf("%s #%d of builder %s:\n\t%v", ErrStepFailed, e.Index, e.Builder, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}

func creationError(builder string, err error) error {
	return fmt.Errorf("%w for builder %s:\n\t%w", ErrCreationFailed, builder, err)
}
