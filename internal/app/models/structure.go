package models

// StructureRow is one flattened row of the university tree as read from
// the store. Child columns are nil when the parent has no children.
type StructureRow struct {
	ProgramID   string
	ProgramName string
	BranchID    *string
	BranchName  *string
	YearID      *string
	YearNumber  *int
	SectionID   *string
	SectionName *string
}

// StructureNode is one node of the navigation tree
type StructureNode struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	Children []*StructureNode `json:"children,omitempty"`
}

// Node kinds
const (
	NodeProgram = "program"
	NodeBranch  = "branch"
	NodeYear    = "year"
	NodeSection = "section"
)

// DashboardStats summarises a university's structure
type DashboardStats struct {
	TotalPrograms          int64 `json:"totalPrograms"`
	TotalBranches          int64 `json:"totalBranches"`
	TotalYears             int64 `json:"totalYears"`
	TotalSections          int64 `json:"totalSections"`
	SectionsWithEnrollment int64 `json:"sectionsWithEnrollment"`
}

// Scope names a level of the hierarchy. Cascading deletes and access checks
// resolve everything below or above a node of a given scope.
type Scope string

// Scopes
const (
	ScopeUniversity Scope = "university"
	ScopeProgram    Scope = "program"
	ScopeBranch     Scope = "branch"
	ScopeYear       Scope = "year"
	ScopeSection    Scope = "section"
)
