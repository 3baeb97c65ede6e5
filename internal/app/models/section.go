package models

import "time"

// Section is the leaf of the program/branch/year/section hierarchy
type Section struct {
	ID               string    `json:"id" validate:"required"`
	Name             string    `json:"name" validate:"required"`
	YearID           string    `json:"yearId" validate:"required"`
	TimetableFileID  *string   `json:"timetableFileId,omitempty"`
	EnrollmentFileID *string   `json:"enrollmentFileId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FileID returns the reference column for t.
func (s *Section) FileID(t FileType) *string {
	if t == FileTypeEnrollment {
		return s.EnrollmentFileID
	}
	return s.TimetableFileID
}

// SetFileID updates the reference column for t.
func (s *Section) SetFileID(t FileType, id *string) {
	if t == FileTypeEnrollment {
		s.EnrollmentFileID = id
		return
	}
	s.TimetableFileID = id
}

// FileColumn is the sections column holding the reference for t.
func FileColumn(t FileType) string {
	if t == FileTypeEnrollment {
		return "enrollment_file_id"
	}
	return "timetable_file_id"
}
