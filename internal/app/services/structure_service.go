package services

import (
	"context"
	"fmt"

	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/helpers"
)

// StructureStore reads the flattened hierarchy and its counters
type StructureStore interface {
	Rows(ctx context.Context, universityID string) ([]models.StructureRow, error)
	Stats(ctx context.Context, universityID string) (*models.DashboardStats, error)
}

// StructureService is the read-only structure browser and dashboard
type StructureService interface {
	GetStructure(ctx context.Context, userID string) ([]*models.StructureNode, error)
	GetDashboardStats(ctx context.Context, userID string) (*models.DashboardStats, error)
}

type structureServiceImpl struct {
	store StructureStore
	authz Authorizer
}

// NewStructureService creates a new structure service instance
func NewStructureService(store StructureStore, authz Authorizer) StructureService {
	return &structureServiceImpl{store: store, authz: authz}
}

// GetStructure returns the program/branch/year/section tree of the
// caller's university.
func (s *structureServiceImpl) GetStructure(ctx context.Context, userID string) ([]*models.StructureNode, error) {
	universityID, err := s.authz.UniversityOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Rows(ctx, universityID)
	if err != nil {
		return nil, err
	}
	return BuildTree(rows), nil
}

// GetDashboardStats returns the caller's university counters
func (s *structureServiceImpl) GetDashboardStats(ctx context.Context, userID string) (*models.DashboardStats, error) {
	universityID, err := s.authz.UniversityOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Stats(ctx, universityID)
}

// BuildTree folds joined rows into a tree, keeping row order at every level.
// Rows with nil child columns add only their parents.
func BuildTree(rows []models.StructureRow) []*models.StructureNode {
	var roots []*models.StructureNode
	nodes := map[string]*models.StructureNode{}

	child := func(parent *[]*models.StructureNode, kind, id, name string) *models.StructureNode {
		key := kind + ":" + id
		if n, ok := nodes[key]; ok {
			return n
		}
		n := &models.StructureNode{ID: id, Name: name, Kind: kind}
		nodes[key] = n
		*parent = append(*parent, n)
		return n
	}

	for _, r := range rows {
		program := child(&roots, models.NodeProgram, r.ProgramID, r.ProgramName)
		if r.BranchID == nil {
			continue
		}
		branch := child(&program.Children, models.NodeBranch, *r.BranchID, helpers.Deref(r.BranchName))
		if r.YearID == nil {
			continue
		}
		yearName := ""
		if r.YearNumber != nil {
			yearName = fmt.Sprintf("Year %d", *r.YearNumber)
		}
		year := child(&branch.Children, models.NodeYear, *r.YearID, yearName)
		if r.SectionID == nil {
			continue
		}
		child(&year.Children, models.NodeSection, *r.SectionID, helpers.Deref(r.SectionName))
	}
	return roots
}
