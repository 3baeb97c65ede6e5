package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// University owns the whole academic hierarchy of its staff
type University struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// Program is a degree programme, e.g. "B.Tech" lasting "4 years"
type Program struct {
	ID           string    `json:"id" validate:"required"`
	Name         string    `json:"name" validate:"required"`
	Duration     string    `json:"duration" validate:"required"`
	UniversityID string    `json:"universityId" validate:"required"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Program durations are stored as "N years" with N in this range.
const (
	MinProgramYears = 1
	MaxProgramYears = 6
)

var durationPattern = regexp.MustCompile(`(?i)^\s*(\d+)\s+years?\s*$`)

// ParseDurationYears extracts N from "N years".
func ParseDurationYears(duration string) (int, error) {
	m := durationPattern.FindStringSubmatch(duration)
	if m == nil {
		return 0, fmt.Errorf("duration %q is not of the form \"N years\"", duration)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", duration, err)
	}
	if n < MinProgramYears || n > MaxProgramYears {
		return 0, fmt.Errorf("duration must be between %d and %d years", MinProgramYears, MaxProgramYears)
	}
	return n, nil
}

// FormatDurationYears renders n as stored in programs.duration.
func FormatDurationYears(n int) string {
	return fmt.Sprintf("%d years", n)
}

// Branch is a specialisation inside a program
type Branch struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	ProgramID string    `json:"programId" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
}

// Year is a study year of a branch
type Year struct {
	ID         string    `json:"id" validate:"required"`
	YearNumber int       `json:"yearNumber" validate:"required,min=1"`
	BranchID   string    `json:"branchId" validate:"required"`
	CreatedAt  time.Time `json:"createdAt"`
}
