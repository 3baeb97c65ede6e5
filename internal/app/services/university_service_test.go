package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

var userRowColumns = []string{"id", "email", "full_name", "password_hash", "university_id", "last_login_at", "created_at"}

func newUniversityFixture(t *testing.T) (UniversityService, pgxmock.PgxPoolIface, *fakeAuthz, *recordingDetacher) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	authz := newFakeAuthz()
	detacher := &recordingDetacher{}
	svc := NewUniversityService(
		mock,
		repositories.NewUniversityRepository(mock),
		repositories.NewUserRepository(mock),
		authz,
		detacher,
		seqIDs("uni"),
		zerolog.Nop(),
	)
	return svc, mock, authz, detacher
}

func TestUniversityService_CreateAssignsInTransaction(t *testing.T) {
	svc, mock, _, _ := newUniversityFixture(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("staff").
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow("staff", "s@uni.edu", "S", "hash", (*string)(nil), (*time.Time)(nil), now))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO universities").
		WithArgs("uni-1", "Acme University", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("UPDATE users SET university_id").
		WithArgs(pgxmock.AnyArg(), "staff").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	u, err := svc.CreateUniversity(context.Background(), "staff", " Acme University ", "Pune")
	require.NoError(t, err)
	assert.Equal(t, "uni-1", u.ID)
	assert.Equal(t, "Acme University", u.Name)
}

func TestUniversityService_CreateRollsBackOnAssignFailure(t *testing.T) {
	svc, mock, _, _ := newUniversityFixture(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow("staff", "s@uni.edu", "S", "hash", (*string)(nil), (*time.Time)(nil), now))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO universities").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("UPDATE users").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := svc.CreateUniversity(context.Background(), "staff", "Acme", "")
	assert.ErrorContains(t, err, "deadlock detected")
}

func TestUniversityService_OnlyOnePerUser(t *testing.T) {
	svc, mock, _, _ := newUniversityFixture(t)
	uni := "uni-9"

	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow("staff", "s@uni.edu", "S", "hash", &uni, (*time.Time)(nil), time.Now()))

	_, err := svc.CreateUniversity(context.Background(), "staff", "Second", "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.CreateUniversity(context.Background(), "staff", "  ", "")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestUniversityService_MineUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc, mock, authz, detacher := newUniversityFixture(t)
	authz.users["staff"] = "uni-1"
	now := time.Now()
	location := "Pune"

	mock.ExpectQuery("SELECT (.+) FROM universities").
		WithArgs("uni-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "location", "created_at"}).AddRow("uni-1", "Acme", &location, now))
	mock.ExpectExec("UPDATE universities").
		WithArgs(pgxmock.AnyArg(), "Acme Institute", "uni-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	u, err := svc.UpdateMyUniversity(ctx, "staff", "Acme Institute", "Mumbai")
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", u.Location)

	mock.ExpectExec("DELETE FROM universities").
		WithArgs("uni-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, svc.DeleteMyUniversity(ctx, "staff"))
	assert.Equal(t, []string{string(models.ScopeUniversity) + ":uni-1"}, detacher.calls)

	_, err = svc.GetMyUniversity(ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNoUniversity)
}
