package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

func TestUserRepository_CreateLowercasesEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u1", "staff@uni.edu", "Asha Rao", "hash", (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	u := &models.User{ID: "u1", Email: " Staff@Uni.EDU ", FullName: "Asha Rao", Password: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, "staff@uni.edu", u.Email)
	assert.Equal(t, now, u.CreatedAt)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("INSERT INTO users").WillReturnError(uniqueViolation(usersEmailKey))

	err := repo.Create(context.Background(), &models.User{ID: "u1", Email: "a@b.co"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUserRepository_EnsureProfileIsIdempotentInsert(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	for i := 0; i < 2; i++ {
		mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO NOTHING`).
			WithArgs("u1", "staff@uni.edu", "Asha").
			WillReturnResult(pgxmock.NewResult("INSERT", int64(1-i)))
	}

	require.NoError(t, repo.EnsureProfile(context.Background(), "u1", "STAFF@uni.edu", "Asha"))
	require.NoError(t, repo.EnsureProfile(context.Background(), "u1", "STAFF@uni.edu", "Asha"))
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1").
		WithArgs("staff@uni.edu").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("u1", "staff@uni.edu", "Asha", "hash", strPtr("uni1"), (*time.Time)(nil), now))

	u, err := repo.GetByEmail(context.Background(), "Staff@Uni.edu")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.True(t, u.HasUniversity())
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM users").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserRepository_GetRejectsMalformedRow(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("u1", "", "Asha", "hash", (*string)(nil), (*time.Time)(nil), time.Now()))

	_, err := repo.GetByID(context.Background(), "u1")
	assert.ErrorContains(t, err, "malformed")
}

func TestUserRepository_SetUniversity(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec("UPDATE users SET university_id = \\$1 WHERE id = \\$2").
		WithArgs(strPtr("uni1"), "u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.SetUniversity(context.Background(), "u1", strPtr("uni1")))
	assert.ErrorIs(t, repo.SetUniversity(context.Background(), "gone", nil), apperrors.ErrUserNotFound)
}
