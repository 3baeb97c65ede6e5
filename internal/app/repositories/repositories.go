package repositories

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/attendance/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository       *UserRepository
	TokenRepository      *TokenRepository
	UniversityRepository *UniversityRepository
	ProgramRepository    *ProgramRepository
	BranchRepository     *BranchRepository
	YearRepository       *YearRepository
	SectionRepository    *SectionRepository
	FileRepository       *FileRepository
	StructureRepository  *StructureRepository
}

// NewRepositories initializes all repositories
func NewRepositories(conn db.DBTX) *Repositories {
	return &Repositories{
		UserRepository:       NewUserRepository(conn),
		TokenRepository:      NewTokenRepository(conn),
		UniversityRepository: NewUniversityRepository(conn),
		ProgramRepository:    NewProgramRepository(conn),
		BranchRepository:     NewBranchRepository(conn),
		YearRepository:       NewYearRepository(conn),
		SectionRepository:    NewSectionRepository(conn),
		FileRepository:       NewFileRepository(conn),
		StructureRepository:  NewStructureRepository(conn),
	}
}

func statementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
