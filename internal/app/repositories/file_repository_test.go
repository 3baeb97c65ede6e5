package repositories

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

func TestFileRepository_CreateAndGet(t *testing.T) {
	mock := newMock(t)
	repo := NewFileRepository(mock)

	rec := &models.FileRecord{ID: "f1", Path: "s1-timetable.docx", Bucket: "timetables", SectionID: "s1", Type: models.FileTypeTimetable}

	mock.ExpectExec("INSERT INTO files \\(id,path,bucket,section_id,type\\)").
		WithArgs("f1", "s1-timetable.docx", "timetables", "s1", "timetable").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT (.+) FROM files WHERE section_id = \\$1 AND type = \\$2").
		WithArgs("s1", "timetable").
		WillReturnRows(pgxmock.NewRows(fileColumns).AddRow("f1", "s1-timetable.docx", "timetables", "s1", "timetable"))

	require.NoError(t, repo.Create(context.Background(), rec))

	got, err := repo.GetBySectionAndType(context.Background(), "s1", models.FileTypeTimetable)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestFileRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewFileRepository(mock)

	mock.ExpectExec("INSERT INTO files").WillReturnError(uniqueViolation("files_section_id_type_key"))

	err := repo.Create(context.Background(), &models.FileRecord{ID: "f2", SectionID: "s1", Type: models.FileTypeEnrollment})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestFileRepository_GetMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewFileRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM files").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetBySectionAndType(context.Background(), "s1", models.FileTypeEnrollment)
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestFileRepository_GetRejectsUnknownType(t *testing.T) {
	mock := newMock(t)
	repo := NewFileRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM files").
		WillReturnRows(pgxmock.NewRows(fileColumns).AddRow("f1", "x", "timetables", "s1", "syllabus"))

	_, err := repo.GetBySectionAndType(context.Background(), "s1", models.FileTypeTimetable)
	assert.ErrorContains(t, err, "malformed")
}

func TestFileRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewFileRepository(mock)

	mock.ExpectExec("DELETE FROM files WHERE id = \\$1").WithArgs("f1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM files").WithArgs("f1").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), "f1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "f1"), apperrors.ErrFileNotFound)
}
