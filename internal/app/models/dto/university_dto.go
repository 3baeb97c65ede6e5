package dto

import (
	"time"

	"github.com/yigit/attendance/internal/app/models"
)

// UniversityRequest represents university create/update data
type UniversityRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

// UniversityResponse represents a university
type UniversityResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromUniversity converts a models.University to a UniversityResponse
func FromUniversity(u *models.University) UniversityResponse {
	return UniversityResponse{ID: u.ID, Name: u.Name, Location: u.Location, CreatedAt: u.CreatedAt}
}

// ProgramRequest represents program create/update data
type ProgramRequest struct {
	Name     string `json:"name" binding:"required"`
	Duration string `json:"duration" binding:"required" example:"4 years"`
}

// ProgramResponse represents a degree program
type ProgramResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Duration     string    `json:"duration"`
	UniversityID string    `json:"universityId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FromProgram converts a models.Program to a ProgramResponse
func FromProgram(p *models.Program) ProgramResponse {
	return ProgramResponse{ID: p.ID, Name: p.Name, Duration: p.Duration, UniversityID: p.UniversityID, CreatedAt: p.CreatedAt}
}

// BranchRequest represents branch create/update data
type BranchRequest struct {
	Name string `json:"name" binding:"required"`
}

// BranchResponse represents a branch
type BranchResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ProgramID string    `json:"programId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromBranch converts a models.Branch to a BranchResponse
func FromBranch(b *models.Branch) BranchResponse {
	return BranchResponse{ID: b.ID, Name: b.Name, ProgramID: b.ProgramID, CreatedAt: b.CreatedAt}
}

// YearRequest represents year creation data
type YearRequest struct {
	YearNumber int `json:"yearNumber" binding:"required,min=1"`
}

// YearResponse represents a study year
type YearResponse struct {
	ID         string    `json:"id"`
	YearNumber int       `json:"yearNumber"`
	BranchID   string    `json:"branchId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromYear converts a models.Year to a YearResponse
func FromYear(y *models.Year) YearResponse {
	return YearResponse{ID: y.ID, YearNumber: y.YearNumber, BranchID: y.BranchID, CreatedAt: y.CreatedAt}
}
