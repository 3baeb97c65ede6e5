package apperrors

import (
	"errors"
	"fmt"
)

// WorkflowError records which step of a section file operation failed.
// errors.Is matches both Kind and the underlying cause.
type WorkflowError struct {
	Kind      error
	Step      string
	SectionID string
	FileType  string
	Err       error
}

// NewWorkflowError wraps cause with the failing step's kind and context.
func NewWorkflowError(kind error, step, sectionID, fileType string, cause error) *WorkflowError {
	return &WorkflowError{
		Kind:      kind,
		Step:      step,
		SectionID: sectionID,
		FileType:  fileType,
		Err:       cause,
	}
}

func (e *WorkflowError) Error() string {
	msg := fmt.Sprintf("%s %s file for section %s: %v", e.Step, e.FileType, e.SectionID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WorkflowError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WorkflowStep extracts the failing step name, if err carries one.
func WorkflowStep(err error) (string, bool) {
	var wf *WorkflowError
	if errors.As(err, &wf) {
		return wf.Step, true
	}
	return "", false
}
