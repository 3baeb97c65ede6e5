package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/filestorage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stands in for JWTAuth.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Set(middleware.ContextUserID, id)
		}
		c.Next()
	}
}

type part struct {
	field, filename, contentType, body string
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type fakeSectionService struct {
	services.SectionService
	created    []string
	uploads    map[string]string
	attachErr  error
	detached   []models.FileType
	download   *services.FileDownload
	parsed     json.RawMessage
	lastUserID string
}

func (f *fakeSectionService) read(u *models.Upload) {
	if u == nil {
		return
	}
	data, _ := io.ReadAll(u.Content)
	f.uploads[u.Filename] = u.ContentType + ":" + string(data)
}

func (f *fakeSectionService) CreateSection(_ context.Context, userID, yearID, name string, timetable, enrollment *models.Upload) (*models.Section, error) {
	f.lastUserID = userID
	if timetable == nil || enrollment == nil {
		return nil, apperrors.NewValidationError("timetable and enrollment files are required")
	}
	f.read(timetable)
	f.read(enrollment)
	f.created = append(f.created, name)
	return &models.Section{ID: "s1", Name: name, YearID: yearID}, nil
}

func (f *fakeSectionService) ListSections(_ context.Context, _, yearID string, page, size int) ([]*models.Section, *dto.PaginationInfo, error) {
	return []*models.Section{{ID: "s1", Name: "A", YearID: yearID}}, &dto.PaginationInfo{CurrentPage: page, PageSize: size, TotalPages: 1, TotalItems: 1}, nil
}

func (f *fakeSectionService) AttachFile(_ context.Context, _, sectionID string, t models.FileType, upload *models.Upload) (*models.FileReference, error) {
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	f.read(upload)
	return &models.FileReference{FileID: "f1", SectionID: sectionID, Type: t, Bucket: t.Bucket(), Path: models.BlobPath(sectionID, t, upload.Extension())}, nil
}

func (f *fakeSectionService) DetachFile(_ context.Context, _, _ string, t models.FileType) error {
	f.detached = append(f.detached, t)
	return nil
}

func (f *fakeSectionService) Download(context.Context, string, string, models.FileType) (*services.FileDownload, error) {
	if f.download == nil {
		return nil, apperrors.ErrFileNotFound
	}
	return f.download, nil
}

func (f *fakeSectionService) SignedURL(context.Context, string, string, models.FileType) (string, time.Time, error) {
	return "https://blobs.test/timetables/s1-timetable.docx?sig=x", time.Unix(1700000000, 0).UTC(), nil
}

func (f *fakeSectionService) Parse(context.Context, string, string, models.FileType) (json.RawMessage, error) {
	if f.parsed == nil {
		return nil, errors.Join(apperrors.ErrParseFailed, errors.New("503"))
	}
	return f.parsed, nil
}

func newSectionRouter(userID string, svc services.SectionService) *gin.Engine {
	c := NewSectionController(svc, zerolog.Nop())
	r := gin.New()
	g := r.Group("/api/v1", asUser(userID))
	g.POST("/years/:id/sections", c.CreateSection)
	g.GET("/years/:id/sections", c.ListSections)
	g.PUT("/sections/:id/files/:type", c.AttachFile)
	g.DELETE("/sections/:id/files/:type", c.DetachFile)
	g.GET("/sections/:id/files/:type/url", c.SignedURL)
	g.GET("/sections/:id/files/:type/download", c.Download)
	g.GET("/sections/:id/files/:type/parsed", c.ParseFile)
	return r
}

func TestSectionController_CreateSection(t *testing.T) {
	svc := &fakeSectionService{uploads: map[string]string{}}
	r := newSectionRouter("staff", svc)

	body, ct := multipartBody(t, map[string]string{"name": "A"},
		part{"timetable", "tt.docx", models.MimeDocx, "tt"},
		part{"enrollment", "roll.xlsx", models.MimeXlsx, "roll"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/years/y1/sections", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Data dto.SectionResponse `json:"data"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "A", resp.Data.Name)
	assert.Equal(t, "y1", resp.Data.YearID)
	assert.Equal(t, "staff", svc.lastUserID)
	assert.Equal(t, models.MimeDocx+":tt", svc.uploads["tt.docx"])
	assert.Equal(t, models.MimeXlsx+":roll", svc.uploads["roll.xlsx"])

	// missing enrollment is reported by the service
	body, ct = multipartBody(t, map[string]string{"name": "B"}, part{"timetable", "tt.docx", models.MimeDocx, "tt"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/years/y1/sections", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"A"}, svc.created)
}

func TestSectionController_AttachFile(t *testing.T) {
	svc := &fakeSectionService{uploads: map[string]string{}}
	r := newSectionRouter("staff", svc)

	send := func(fileType string) *httptest.ResponseRecorder {
		body, ct := multipartBody(t, nil, part{"file", "roll.xlsx", models.MimeXlsx, "roll"})
		req := httptest.NewRequest(http.MethodPut, "/api/v1/sections/s1/files/"+fileType, body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send("enrollment")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data dto.FileResponse `json:"data"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "enrollments", resp.Data.Bucket)
	assert.Equal(t, "s1-enrollment.xlsx", resp.Data.Path)

	w = send("syllabus")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.attachErr = apperrors.NewWorkflowError(apperrors.ErrInvalidFileType, services.StepValidate, "s1", "timetable", errors.New(models.MimeXlsx))
	w = send("timetable")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	var errResp dto.ErrorResponse
	decode(t, w, &errResp)
	assert.Equal(t, dto.ErrorCodeInvalidFileType, errResp.Error.Code)
	assert.Equal(t, "timetable", errResp.Error.Field)
}

func TestSectionController_DetachAndLinks(t *testing.T) {
	svc := &fakeSectionService{
		uploads:  map[string]string{},
		download: &services.FileDownload{Filename: "A_timetable.docx", ContentType: models.MimeDocx, Body: io.NopCloser(strings.NewReader("docx bytes"))},
		parsed:   json.RawMessage(`{"rows":2}`),
	}
	r := newSectionRouter("staff", svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/sections/s1/files/timetable", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []models.FileType{models.FileTypeTimetable}, svc.detached)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sections/s1/files/timetable/download", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="A_timetable.docx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, models.MimeDocx, w.Header().Get("Content-Type"))
	assert.Equal(t, "docx bytes", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sections/s1/files/timetable/url", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "s1-timetable.docx")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sections/s1/files/enrollment/parsed", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var parsed struct {
		Data dto.ParsedDocumentResponse `json:"data"`
	}
	decode(t, w, &parsed)
	assert.JSONEq(t, `{"rows":2}`, string(parsed.Data.Data))

	svc.parsed = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sections/s1/files/enrollment/parsed", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	svc.download = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sections/s1/files/timetable/download", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSectionController_ListPaginates(t *testing.T) {
	r := newSectionRouter("staff", &fakeSectionService{uploads: map[string]string{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/years/y1/sections?page=1&size=500", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.SectionListResponse `json:"data"`
	}
	decode(t, w, &resp)
	assert.Len(t, resp.Data.Sections, 1)
	assert.Equal(t, 10, resp.Data.PageSize)
}

func TestSectionController_RequiresUser(t *testing.T) {
	r := newSectionRouter("", &fakeSectionService{uploads: map[string]string{}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/sections/s1/files/timetable", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type fakeAuthService struct {
	services.AuthService
	loginErr error
	revoked  string
	userID   string
}

func (f *fakeAuthService) Login(_ context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &dto.AuthResponse{
		Token: dto.TokenResponse{AccessToken: "access-1", TokenType: "Bearer", ExpiresIn: 900, RefreshToken: "refresh-1"},
		User:  dto.UserResponse{ID: "u1", Email: req.Email},
	}, nil
}

func (f *fakeAuthService) Logout(_ context.Context, userID, refreshToken string) error {
	f.userID, f.revoked = userID, refreshToken
	return nil
}

func TestAuthController_LoginSetsSessionCookie(t *testing.T) {
	svc := &fakeAuthService{}
	c := NewAuthController(svc, false, zerolog.Nop())
	r := gin.New()
	r.POST("/auth/login", c.Login)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@uni.edu","password":"secret123"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Equal(t, "access-1", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 900, cookies[0].MaxAge)

	svc.loginErr = apperrors.ErrInvalidCredentials
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@uni.edu","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestAuthController_LogoutClearsCookie(t *testing.T) {
	svc := &fakeAuthService{}
	c := NewAuthController(svc, true, zerolog.Nop())
	r := gin.New()
	r.POST("/auth/logout", asUser("u1"), c.Logout)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refreshToken":"refresh-1"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", svc.userID)
	assert.Equal(t, "refresh-1", svc.revoked)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
	assert.True(t, cookies[0].Secure)

	// no body revokes every token of the user
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", svc.revoked)
}

type fakeProgramService struct {
	services.ProgramService
	deleted []string
}

func (f *fakeProgramService) CreateProgram(_ context.Context, _, name, duration string) (*models.Program, error) {
	if name == "CS" {
		return nil, apperrors.ErrProgramAlreadyExists
	}
	return &models.Program{ID: "p1", Name: name, Duration: duration, UniversityID: "uni-1"}, nil
}

func (f *fakeProgramService) DeleteProgram(_ context.Context, _, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestProgramController(t *testing.T) {
	svc := &fakeProgramService{}
	c := NewProgramController(svc)
	r := gin.New()
	r.POST("/programs", asUser("staff"), c.CreateProgram)
	r.DELETE("/programs/:id", asUser("staff"), c.DeleteProgram)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/programs", strings.NewReader(`{"name":"EE","duration":"4 years"}`)))
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data dto.ProgramResponse `json:"data"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "4 years", resp.Data.Duration)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/programs", strings.NewReader(`{"name":"CS","duration":"4 years"}`)))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/programs", strings.NewReader(`{"name":"CS"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/programs/p1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"p1"}, svc.deleted)
}

func TestBlobController(t *testing.T) {
	ctx := context.Background()
	store, err := filestorage.NewLocalStorage(t.TempDir(), "http://localhost/blobs", "secret", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, filestorage.Object{
		Bucket:      models.BucketTimetables,
		Path:        "s1-timetable.docx",
		ContentType: models.MimeDocx,
		Size:        4,
		Body:        strings.NewReader("docx"),
	}))

	c := NewBlobController(store)
	r := gin.New()
	r.GET("/blobs/:bucket/:path", c.ServeBlob)

	signed, err := store.SignedURL(ctx, models.BucketTimetables, "s1-timetable.docx", time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(signed, "http://localhost"), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "docx", w.Body.String())
	assert.Equal(t, models.MimeDocx, w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/blobs/timetables/s1-timetable.docx?expires=9999999999&signature=forged", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPageController_SessionRedirect(t *testing.T) {
	pages := NewPageController()
	r := gin.New()
	r.SetHTMLTemplate(PageTemplate())
	r.GET("/", pages.Home())
	r.GET("/sections/:id", asUser("staff"), pages.Section())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-page="home"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sections/s1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-id="s1"`)
	assert.Contains(t, w.Body.String(), `data-user="staff"`)
}
