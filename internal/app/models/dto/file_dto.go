package dto

import (
	"encoding/json"
	"time"

	"github.com/yigit/attendance/internal/app/models"
)

// SectionResponse represents a section and its document references
type SectionResponse struct {
	ID               string    `json:"id" example:"7b4c0f4e-3f7a-4c36-9d1e-1f0c2b9a6e11"`
	Name             string    `json:"name" example:"A"`
	YearID           string    `json:"yearId"`
	TimetableFileID  *string   `json:"timetableFileId,omitempty"`
	EnrollmentFileID *string   `json:"enrollmentFileId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FromSection converts a models.Section to a SectionResponse
func FromSection(s *models.Section) SectionResponse {
	return SectionResponse{
		ID:               s.ID,
		Name:             s.Name,
		YearID:           s.YearID,
		TimetableFileID:  s.TimetableFileID,
		EnrollmentFileID: s.EnrollmentFileID,
		CreatedAt:        s.CreatedAt,
	}
}

// SectionListResponse represents a page of sections
type SectionListResponse struct {
	Sections []SectionResponse `json:"sections"`
	PaginationInfo
}

// FileResponse represents an attached section document
type FileResponse struct {
	FileID    string `json:"fileId" example:"0d7e1c9a-54a2-4b8e-9f5e-2f7d0b3c1a44"` // Metadata record id
	SectionID string `json:"sectionId"`
	Type      string `json:"type" example:"timetable" enums:"timetable,enrollment"`
	Bucket    string `json:"bucket" example:"timetables"`
	Path      string `json:"path" example:"7b4c0f4e-3f7a-4c36-9d1e-1f0c2b9a6e11-timetable.docx"` // Object key inside the bucket
}

// FromFileReference converts a models.FileReference to a FileResponse
func FromFileReference(r *models.FileReference) FileResponse {
	return FileResponse{FileID: r.FileID, SectionID: r.SectionID, Type: string(r.Type), Bucket: r.Bucket, Path: r.Path}
}

// SignedURLResponse carries a time-limited download link
type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ParsedDocumentResponse carries the parser's structured output
type ParsedDocumentResponse struct {
	SectionID string          `json:"sectionId"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data" swaggertype:"object"`
}
