package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "attendance.test",
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body
}

func TestRedirectTarget(t *testing.T) {
	tests := []struct {
		path       string
		hasSession bool
		target     string
		redirect   bool
	}{
		{"/", false, "", false},
		{"/", true, "", false},
		{"/dashboard", false, "/auth/login", true},
		{"/sections/1", false, "/auth/login", true},
		{"/auth/login", false, "", false},
		{"/auth", false, "", false},
		{"/auth/login", true, "/dashboard", true},
		{"/auth/register", true, "/dashboard", true},
		{"/authority", false, "/auth/login", true},
		{"/dashboard", true, "", false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/%v", tc.path, tc.hasSession), func(t *testing.T) {
			target, ok := RedirectTarget(tc.path, tc.hasSession)
			assert.Equal(t, tc.redirect, ok)
			assert.Equal(t, tc.target, target)
		})
	}
}

func TestSessionRedirect(t *testing.T) {
	jwt := newJWT()
	m := NewAuthMiddleware(jwt)
	r := gin.New()
	r.Use(m.SessionRedirect())
	ok := func(c *gin.Context) { c.String(http.StatusOK, "page") }
	r.GET("/", ok)
	r.GET("/dashboard", ok)
	r.GET("/auth/login", ok)

	pair, err := jwt.GenerateTokenPair("u1", "u1@uni.edu")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: pair.AccessToken})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: pair.AccessToken})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// an invalid cookie counts as no session
	req = httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth(t *testing.T) {
	jwt := newJWT()
	m := NewAuthMiddleware(jwt)
	r := gin.New()
	r.GET("/me", m.JWTAuth(), func(c *gin.Context) {
		id, _ := UserIDFrom(c)
		c.String(http.StatusOK, id)
	})

	pair, err := jwt.GenerateTokenPair("u1", "u1@uni.edu")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeUnauthorized, decodeError(t, w).Error.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeInvalidToken, decodeError(t, w).Error.Code)
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"invalid file type", apperrors.NewWorkflowError(apperrors.ErrInvalidFileType, "validate", "s1", "timetable", errors.New("text/plain")), http.StatusUnsupportedMediaType, dto.ErrorCodeInvalidFileType, "Wrong file type"},
		{"upload", apperrors.NewWorkflowError(apperrors.ErrStorageUploadFailed, "upload", "s1", "timetable", errors.New("503")), http.StatusBadGateway, dto.ErrorCodeStorageUploadFailed, "File upload failed"},
		{"link", apperrors.NewWorkflowError(apperrors.ErrSectionLinkFailed, "link-section", "s1", "enrollment", errors.New("db")), http.StatusInternalServerError, dto.ErrorCodeSectionSaveFailed, "Could not save section"},
		{"not found", apperrors.ErrSectionNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
		{"no university", apperrors.ErrNoUniversity, http.StatusForbidden, dto.ErrorCodeNoUniversity, "No university assigned"},
		{"forbidden", apperrors.NewForbiddenError("other university"), http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
		{"validation", apperrors.NewValidationError("name cannot be empty"), http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
		{"conflict", apperrors.ErrProgramAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
		{"parse", fmt.Errorf("%w: bad sheet", apperrors.ErrParseFailed), http.StatusBadGateway, dto.ErrorCodeParseFailed, "Document parsing failed"},
		{"credentials", apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			HandleAPIError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, tc.message, body.Error.Message)
		})
	}
}

func TestHandleAPIError_WorkflowDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	HandleAPIError(c, apperrors.NewWorkflowError(apperrors.ErrMetadataInsertFailed, "insert-metadata", "s1", "enrollment", errors.New("db down")))

	body := decodeError(t, w)
	assert.Equal(t, "enrollment", body.Error.Field)
	assert.Equal(t, map[string]interface{}{"step": "insert-metadata", "sectionId": "s1"}, body.Error.Details)
}

type loginBody struct {
	Email string `json:"email" binding:"required,email"`
}

func TestBindJSON(t *testing.T) {
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var body loginBody
		if !BindJSON(c, &body) {
			return
		}
		c.String(http.StatusOK, body.Email)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{"email":"a@b.co"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{"email":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, decodeError(t, w).Error.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeBadRequest, decodeError(t, w).Error.Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/missing", entry["path"])
	assert.Equal(t, float64(404), entry["status"])
}
