package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("create section: %w",
		NewWorkflowError(ErrMetadataInsertFailed, "insert metadata", "sec-1", "timetable", cause))

	assert.ErrorIs(t, err, ErrMetadataInsertFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrSectionLinkFailed)
	assert.Contains(t, err.Error(), "insert metadata timetable file for section sec-1")
	assert.Contains(t, err.Error(), "connection reset")

	step, ok := WorkflowStep(err)
	assert.True(t, ok)
	assert.Equal(t, "insert metadata", step)
}

func TestWorkflowError_NilCause(t *testing.T) {
	err := NewWorkflowError(ErrInvalidFileType, "validate", "sec-1", "enrollment", nil)

	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.Equal(t, "validate enrollment file for section sec-1: invalid file type", err.Error())
}

func TestEntityErrorsWrapGenericKinds(t *testing.T) {
	assert.ErrorIs(t, ErrSectionNotFound, ErrResourceNotFound)
	assert.ErrorIs(t, ErrProgramAlreadyExists, ErrConflict)
	assert.True(t, Is(ErrYearNotFound, ErrConflict, ErrResourceNotFound))
	assert.False(t, Is(ErrYearNotFound, ErrConflict))
}
