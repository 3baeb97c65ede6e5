package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/filestorage"
	"github.com/yigit/attendance/internal/pkg/idgen"
)

// memSections is an in-memory SectionStore. The year index mirrors the
// years table so ListIDs can resolve ScopeYear.
type memSections struct {
	mu       sync.Mutex
	rows     map[string]*models.Section
	linkErr  error
	createFn func(*models.Section) error
}

func newMemSections() *memSections {
	return &memSections{rows: map[string]*models.Section{}}
}

func (m *memSections) Create(_ context.Context, s *models.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFn != nil {
		if err := m.createFn(s); err != nil {
			return err
		}
	}
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSections) GetByID(_ context.Context, id string) (*models.Section, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, apperrors.ErrSectionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSections) SetFileID(_ context.Context, sectionID string, t models.FileType, fileID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkErr != nil && fileID != nil {
		return m.linkErr
	}
	s, ok := m.rows[sectionID]
	if !ok {
		return apperrors.ErrSectionNotFound
	}
	s.SetFileID(t, fileID)
	return nil
}

func (m *memSections) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperrors.ErrSectionNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memSections) ListIDs(_ context.Context, scope models.Scope, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, s := range m.rows {
		if (scope == models.ScopeYear && s.YearID == id) || (scope == models.ScopeSection && s.ID == id) {
			ids = append(ids, s.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memFiles struct {
	mu        sync.Mutex
	rows      map[string]*models.FileRecord
	createErr error
}

func newMemFiles() *memFiles {
	return &memFiles{rows: map[string]*models.FileRecord{}}
}

func (m *memFiles) Create(_ context.Context, f *models.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.rows {
		if r.SectionID == f.SectionID && r.Type == f.Type {
			return fmt.Errorf("duplicate: %w", apperrors.ErrConflict)
		}
	}
	cp := *f
	m.rows[f.ID] = &cp
	return nil
}

func (m *memFiles) GetBySectionAndType(_ context.Context, sectionID string, t models.FileType) (*models.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.SectionID == sectionID && r.Type == t {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperrors.ErrFileNotFound
}

func (m *memFiles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return apperrors.ErrFileNotFound
	}
	delete(m.rows, id)
	return nil
}

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (m *memBlobs) Put(_ context.Context, obj filestorage.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	m.objects[obj.Bucket+"/"+obj.Path] = data
	return nil
}

func (m *memBlobs) Get(_ context.Context, bucket, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+path]
	if !ok {
		return nil, filestorage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Delete(_ context.Context, bucket, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, bucket+"/"+path)
	return nil
}

func (m *memBlobs) SignedURL(_ context.Context, bucket, path string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.local/%s/%s?ttl=%d", bucket, path, int(ttl.Seconds())), nil
}

func (m *memBlobs) EnsureBucket(context.Context, string) error { return nil }

func (m *memBlobs) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type workflowFixture struct {
	svc      SectionFilesService
	sections *memSections
	files    *memFiles
	blobs    *memBlobs
	idErr    error
	next     int
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	f := &workflowFixture{sections: newMemSections(), files: newMemFiles(), blobs: newMemBlobs()}
	ids := idgen.Func(func() (string, error) {
		if f.idErr != nil {
			return "", f.idErr
		}
		f.next++
		return fmt.Sprintf("id-%d", f.next), nil
	})
	f.svc = NewSectionFilesService(f.sections, f.files, f.blobs, ids,
		SectionFilesOptions{MaxFileSize: 1 << 20, SignedURLTTL: time.Hour}, zerolog.Nop())
	return f
}

func (f *workflowFixture) addSection(t *testing.T, id, yearID string) {
	t.Helper()
	require.NoError(t, f.sections.Create(context.Background(), &models.Section{ID: id, Name: "Section " + id, YearID: yearID}))
}

// assertConsistent checks that a section's reference, its file record and
// the blob are either all present and agreeing, or all absent.
func (f *workflowFixture) assertConsistent(t *testing.T, sectionID string, ft models.FileType) {
	t.Helper()
	ctx := context.Background()

	rec, recErr := f.files.GetBySectionAndType(ctx, sectionID, ft)
	sec, secErr := f.sections.GetByID(ctx, sectionID)

	var ref *string
	if secErr == nil {
		ref = sec.FileID(ft)
	}

	if recErr != nil {
		assert.Nil(t, ref, "section %s references a missing %s record", sectionID, ft)
		for _, k := range f.blobs.keys() {
			assert.False(t, strings.HasPrefix(k, ft.Bucket()+"/"+sectionID+"-"), "orphan blob %s", k)
		}
		return
	}

	require.NotNil(t, ref, "record %s has no section reference", rec.ID)
	assert.Equal(t, rec.ID, *ref)
	_, blobErr := f.blobs.Get(ctx, rec.Bucket, rec.Path)
	assert.NoError(t, blobErr, "record %s has no blob", rec.ID)
}

func docx(content string) *models.Upload {
	return &models.Upload{Filename: "timetable.docx", ContentType: models.MimeDocx, Size: int64(len(content)), Content: strings.NewReader(content)}
}

func xlsx(content string) *models.Upload {
	return &models.Upload{Filename: "students.xlsx", ContentType: models.MimeXlsx, Size: int64(len(content)), Content: strings.NewReader(content)}
}

func TestAttachFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")

	ref, err := f.svc.AttachFile(ctx, "s1", models.FileTypeEnrollment, xlsx("students"))
	require.NoError(t, err)
	assert.Equal(t, "s1", ref.SectionID)
	assert.Equal(t, models.BucketEnrollments, ref.Bucket)
	assert.Equal(t, "s1-enrollment.xlsx", ref.Path)

	rec, body, err := f.svc.OpenFile(ctx, "s1", models.FileTypeEnrollment)
	require.NoError(t, err)
	defer body.Close()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "students", string(data))
	assert.Equal(t, ref.FileID, rec.ID)

	f.assertConsistent(t, "s1", models.FileTypeEnrollment)
	f.assertConsistent(t, "s1", models.FileTypeTimetable)
}

func TestAttachFile_SupersedesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")

	first, err := f.svc.AttachFile(ctx, "s1", models.FileTypeEnrollment, xlsx("v1"))
	require.NoError(t, err)
	second, err := f.svc.AttachFile(ctx, "s1", models.FileTypeEnrollment, &models.Upload{
		Filename: "students.docx", ContentType: models.MimeDocx, Size: 2, Content: strings.NewReader("v2"),
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.FileID, second.FileID)
	assert.Len(t, f.files.rows, 1)
	assert.Equal(t, []string{"enrollments/s1-enrollment.docx"}, f.blobs.keys())
	f.assertConsistent(t, "s1", models.FileTypeEnrollment)
}

func TestAttachFile_RejectsBeforeTouchingState(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")

	_, err := f.svc.AttachFile(ctx, "s1", models.FileTypeTimetable, docx("existing"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		t      models.FileType
		upload *models.Upload
		kind   error
	}{
		{"wrong mime for timetable", models.FileTypeTimetable, xlsx("x"), apperrors.ErrInvalidFileType},
		{"plain text", models.FileTypeTimetable, &models.Upload{Filename: "notes.txt", ContentType: "text/plain", Size: 1, Content: strings.NewReader("x")}, apperrors.ErrInvalidFileType},
		{"missing upload", models.FileTypeTimetable, nil, apperrors.ErrInvalidFileType},
		{"too large", models.FileTypeTimetable, &models.Upload{ContentType: models.MimeDocx, Size: 2 << 20, Content: strings.NewReader("x")}, apperrors.ErrValidationFailed},
		{"unknown type", models.FileType("photo"), docx("x"), apperrors.ErrValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AttachFile(ctx, "s1", tc.t, tc.upload)
			assert.ErrorIs(t, err, tc.kind)
			// the existing timetable is untouched
			assert.Equal(t, []string{"timetables/s1-timetable.docx"}, f.blobs.keys())
			f.assertConsistent(t, "s1", models.FileTypeTimetable)
		})
	}
}

func TestAttachFile_UnknownSection(t *testing.T) {
	f := newWorkflowFixture(t)
	_, err := f.svc.AttachFile(context.Background(), "missing", models.FileTypeTimetable, docx("x"))
	assert.ErrorIs(t, err, apperrors.ErrSectionNotFound)
	assert.Empty(t, f.blobs.keys())
}

func TestAttachFile_RollsBackFailedStep(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name   string
		inject func(f *workflowFixture)
		kind   error
		step   string
	}{
		{"upload", func(f *workflowFixture) { f.blobs.putErr = cause }, apperrors.ErrStorageUploadFailed, StepUpload},
		{"id generation", func(f *workflowFixture) { f.idErr = cause }, apperrors.ErrIDGenerationFailed, StepGenerateID},
		{"metadata insert", func(f *workflowFixture) { f.files.createErr = cause }, apperrors.ErrMetadataInsertFailed, StepInsertMetadata},
		{"section link", func(f *workflowFixture) { f.sections.linkErr = cause }, apperrors.ErrSectionLinkFailed, StepLinkSection},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newWorkflowFixture(t)
			f.addSection(t, "s1", "y1")
			tc.inject(f)

			_, err := f.svc.AttachFile(ctx, "s1", models.FileTypeEnrollment, xlsx("data"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.ErrorIs(t, err, cause)
			step, ok := apperrors.WorkflowStep(err)
			assert.True(t, ok)
			assert.Equal(t, tc.step, step)

			assert.Empty(t, f.blobs.keys())
			assert.Empty(t, f.files.rows)
			f.assertConsistent(t, "s1", models.FileTypeEnrollment)
		})
	}
}

func TestAttachFile_RollbackSurvivesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")
	f.sections.linkErr = context.Canceled
	cancel()

	_, err := f.svc.AttachFile(ctx, "s1", models.FileTypeTimetable, docx("x"))
	assert.ErrorIs(t, err, apperrors.ErrSectionLinkFailed)
	assert.Empty(t, f.blobs.keys())
	assert.Empty(t, f.files.rows)
}

func TestDetachFile_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")

	_, err := f.svc.AttachFile(ctx, "s1", models.FileTypeTimetable, docx("x"))
	require.NoError(t, err)

	f.svc.DetachFile(ctx, "s1", models.FileTypeTimetable)
	f.svc.DetachFile(ctx, "s1", models.FileTypeTimetable)
	f.svc.DetachFile(ctx, "nope", models.FileTypeEnrollment)

	assert.Empty(t, f.blobs.keys())
	assert.Empty(t, f.files.rows)
	f.assertConsistent(t, "s1", models.FileTypeTimetable)

	_, _, err = f.svc.OpenFile(ctx, "s1", models.FileTypeTimetable)
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
}

func TestDetachFile_ContinuesPastBlobFailure(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")

	_, err := f.svc.AttachFile(ctx, "s1", models.FileTypeTimetable, docx("x"))
	require.NoError(t, err)
	f.blobs.deleteErr = errors.New("storage down")

	f.svc.DetachFile(ctx, "s1", models.FileTypeTimetable)

	assert.Empty(t, f.files.rows)
	sec, err := f.sections.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, sec.TimetableFileID)
}

func TestCreateSectionWithFiles(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	section, err := f.svc.CreateSectionWithFiles(ctx, "y1", "  A  ", docx("tt"), xlsx("roll"))
	require.NoError(t, err)
	assert.Equal(t, "A", section.Name)
	require.NotNil(t, section.TimetableFileID)
	require.NotNil(t, section.EnrollmentFileID)

	f.assertConsistent(t, section.ID, models.FileTypeTimetable)
	f.assertConsistent(t, section.ID, models.FileTypeEnrollment)
	assert.Len(t, f.blobs.keys(), 2)
}

func TestCreateSectionWithFiles_BadEnrollmentLeavesNothing(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	// 10KB docx timetable followed by a .txt enrollment
	timetable := docx(strings.Repeat("t", 10*1024))
	enrollment := &models.Upload{Filename: "students.txt", ContentType: "text/plain", Size: 4, Content: strings.NewReader("list")}

	_, err := f.svc.CreateSectionWithFiles(ctx, "y1", "A", timetable, enrollment)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)

	assert.Empty(t, f.sections.rows)
	assert.Empty(t, f.files.rows)
	assert.Empty(t, f.blobs.keys())
}

func TestCreateSectionWithFiles_UploadFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.files.createErr = errors.New("insert failed")

	_, err := f.svc.CreateSectionWithFiles(ctx, "y1", "A", docx("tt"), xlsx("roll"))
	assert.ErrorIs(t, err, apperrors.ErrMetadataInsertFailed)
	assert.Empty(t, f.sections.rows)
	assert.Empty(t, f.blobs.keys())
}

func TestCreateSectionWithFiles_Validation(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	_, err := f.svc.CreateSectionWithFiles(ctx, "y1", "   ", docx("tt"), xlsx("roll"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = f.svc.CreateSectionWithFiles(ctx, "y1", "A", nil, xlsx("roll"))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
	_, err = f.svc.CreateSectionWithFiles(ctx, "y1", "A", docx("tt"), nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	f.sections.createFn = func(*models.Section) error { return apperrors.ErrYearNotFound }
	_, err = f.svc.CreateSectionWithFiles(ctx, "missing", "A", docx("tt"), xlsx("roll"))
	assert.ErrorIs(t, err, apperrors.ErrYearNotFound)
	assert.Empty(t, f.blobs.keys())
}

func TestDetachAll_YearCascade(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	for _, id := range []string{"s1", "s2"} {
		f.addSection(t, id, "y1")
		_, err := f.svc.AttachFile(ctx, id, models.FileTypeTimetable, docx("tt"))
		require.NoError(t, err)
		_, err = f.svc.AttachFile(ctx, id, models.FileTypeEnrollment, xlsx("roll"))
		require.NoError(t, err)
	}
	f.addSection(t, "other", "y2")
	_, err := f.svc.AttachFile(ctx, "other", models.FileTypeTimetable, docx("tt"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DetachAll(ctx, models.ScopeYear, "y1"))

	assert.Equal(t, []string{"timetables/other-timetable.docx"}, f.blobs.keys())
	assert.Len(t, f.files.rows, 1)
	for _, id := range []string{"s1", "s2", "other"} {
		f.assertConsistent(t, id, models.FileTypeTimetable)
		f.assertConsistent(t, id, models.FileTypeEnrollment)
	}
}

func TestDeleteSection(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")
	_, err := f.svc.AttachFile(ctx, "s1", models.FileTypeTimetable, docx("tt"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSection(ctx, "s1"))
	assert.Empty(t, f.blobs.keys())
	assert.Empty(t, f.files.rows)
	assert.ErrorIs(t, f.svc.DeleteSection(ctx, "s1"), apperrors.ErrSectionNotFound)
}

func TestSignedURL(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")

	_, _, err := f.svc.SignedURL(ctx, "s1", models.FileTypeTimetable)
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)

	_, err = f.svc.AttachFile(ctx, "s1", models.FileTypeTimetable, docx("tt"))
	require.NoError(t, err)

	before := time.Now()
	url, expires, err := f.svc.SignedURL(ctx, "s1", models.FileTypeTimetable)
	require.NoError(t, err)
	assert.Contains(t, url, "timetables/s1-timetable.docx")
	assert.WithinDuration(t, before.Add(time.Hour), expires, time.Minute)
}

func TestOpenFile_MissingBlob(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.addSection(t, "s1", "y1")
	_, err := f.svc.AttachFile(ctx, "s1", models.FileTypeTimetable, docx("tt"))
	require.NoError(t, err)
	delete(f.blobs.objects, "timetables/s1-timetable.docx")

	_, _, err = f.svc.OpenFile(ctx, "s1", models.FileTypeTimetable)
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
}
