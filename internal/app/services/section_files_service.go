package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/filestorage"
	"github.com/yigit/attendance/internal/pkg/idgen"
	"github.com/yigit/attendance/internal/pkg/validation"
)

// Workflow step names reported in apperrors.WorkflowError.
const (
	StepValidate       = "validate"
	StepCreateSection  = "create-section"
	StepUpload         = "upload"
	StepGenerateID     = "generate-id"
	StepInsertMetadata = "insert-metadata"
	StepLinkSection    = "link-section"
)

// SectionStore is the section persistence the file workflow needs.
type SectionStore interface {
	Create(ctx context.Context, s *models.Section) error
	GetByID(ctx context.Context, id string) (*models.Section, error)
	SetFileID(ctx context.Context, sectionID string, t models.FileType, fileID *string) error
	Delete(ctx context.Context, id string) error
	ListIDs(ctx context.Context, scope models.Scope, id string) ([]string, error)
}

// FileRecordStore is the file metadata persistence the workflow needs.
type FileRecordStore interface {
	Create(ctx context.Context, f *models.FileRecord) error
	GetBySectionAndType(ctx context.Context, sectionID string, t models.FileType) (*models.FileRecord, error)
	Delete(ctx context.Context, id string) error
}

// SectionFilesService attaches and detaches section documents, keeping
// the section reference, the metadata row and the blob in step.
type SectionFilesService interface {
	AttachFile(ctx context.Context, sectionID string, t models.FileType, upload *models.Upload) (*models.FileReference, error)
	DetachFile(ctx context.Context, sectionID string, t models.FileType)
	CreateSectionWithFiles(ctx context.Context, yearID, name string, timetable, enrollment *models.Upload) (*models.Section, error)
	DeleteSection(ctx context.Context, sectionID string) error
	DetachAll(ctx context.Context, scope models.Scope, id string) error
	OpenFile(ctx context.Context, sectionID string, t models.FileType) (*models.FileRecord, io.ReadCloser, error)
	SignedURL(ctx context.Context, sectionID string, t models.FileType) (string, time.Time, error)
}

// SectionFilesOptions tunes the workflow.
type SectionFilesOptions struct {
	MaxFileSize  int64
	SignedURLTTL time.Duration
}

type sectionFilesServiceImpl struct {
	sections SectionStore
	files    FileRecordStore
	blobs    filestorage.BlobStore
	ids      idgen.Generator
	opts     SectionFilesOptions
	now      func() time.Time
	logger   zerolog.Logger
}

// NewSectionFilesService creates the section document workflow
func NewSectionFilesService(
	sections SectionStore,
	files FileRecordStore,
	blobs filestorage.BlobStore,
	ids idgen.Generator,
	opts SectionFilesOptions,
	logger zerolog.Logger,
) SectionFilesService {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	return &sectionFilesServiceImpl{
		sections: sections,
		files:    files,
		blobs:    blobs,
		ids:      ids,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With().Str("component", "section-files").Logger(),
	}
}

// rollback collects compensating actions and runs them newest first.
// Failures are logged and never returned.
type rollback struct {
	logger zerolog.Logger
	steps  []rollbackStep
}

type rollbackStep struct {
	name string
	fn   func(ctx context.Context) error
}

func (r *rollback) push(name string, fn func(ctx context.Context) error) {
	r.steps = append(r.steps, rollbackStep{name: name, fn: fn})
}

func (r *rollback) run(ctx context.Context) {
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		if err := step.fn(ctx); err != nil {
			r.logger.Error().Err(err).Str("rollbackStep", step.name).Msg("Rollback step failed, continuing")
		}
	}
}

// AttachFile stores upload as the section's document of type t, replacing
// any previous one. On failure every completed step is undone and the
// failing step's error kind is returned.
func (s *sectionFilesServiceImpl) AttachFile(ctx context.Context, sectionID string, t models.FileType, upload *models.Upload) (*models.FileReference, error) {
	if !t.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown file type %q", t))
	}
	if _, err := s.sections.GetByID(ctx, sectionID); err != nil {
		return nil, err
	}
	if err := s.checkUpload(sectionID, t, upload); err != nil {
		return nil, err
	}

	log := s.logger.With().Str("sectionID", sectionID).Str("fileType", string(t)).Logger()

	// At most one live record per (section, type): clear the old one first.
	s.DetachFile(ctx, sectionID, t)

	// Compensation must finish even if the caller has gone away.
	undoCtx := context.WithoutCancel(ctx)
	undo := &rollback{logger: log}

	bucket := t.Bucket()
	path := models.BlobPath(sectionID, t, upload.Extension())

	err := s.blobs.Put(ctx, filestorage.Object{
		Bucket:      bucket,
		Path:        path,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Body:        upload.Content,
	})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Blob upload failed")
		return nil, apperrors.NewWorkflowError(apperrors.ErrStorageUploadFailed, StepUpload, sectionID, string(t), err)
	}
	undo.push("delete-blob", func(ctx context.Context) error { return s.blobs.Delete(ctx, bucket, path) })

	fileID, err := s.ids.NewID()
	if err != nil {
		log.Error().Err(err).Msg("File id generation failed")
		undo.run(undoCtx)
		return nil, apperrors.NewWorkflowError(apperrors.ErrIDGenerationFailed, StepGenerateID, sectionID, string(t), err)
	}

	record := &models.FileRecord{ID: fileID, Path: path, Bucket: bucket, SectionID: sectionID, Type: t}
	if err := s.files.Create(ctx, record); err != nil {
		log.Error().Err(err).Str("fileID", fileID).Msg("File metadata insert failed")
		undo.run(undoCtx)
		return nil, apperrors.NewWorkflowError(apperrors.ErrMetadataInsertFailed, StepInsertMetadata, sectionID, string(t), err)
	}
	undo.push("delete-record", func(ctx context.Context) error { return s.files.Delete(ctx, fileID) })

	if err := s.sections.SetFileID(ctx, sectionID, t, &fileID); err != nil {
		log.Error().Err(err).Str("fileID", fileID).Msg("Linking file to section failed")
		undo.run(undoCtx)
		return nil, apperrors.NewWorkflowError(apperrors.ErrSectionLinkFailed, StepLinkSection, sectionID, string(t), err)
	}

	log.Info().Str("fileID", fileID).Str("path", path).Int64("size", upload.Size).Msg("File attached")
	return record.Reference(), nil
}

func (s *sectionFilesServiceImpl) checkUpload(sectionID string, t models.FileType, upload *models.Upload) error {
	if upload == nil || upload.Content == nil {
		return apperrors.NewWorkflowError(apperrors.ErrInvalidFileType, StepValidate, sectionID, string(t), errors.New("no file provided"))
	}
	if !t.Accepts(upload.ContentType) {
		return apperrors.NewWorkflowError(apperrors.ErrInvalidFileType, StepValidate, sectionID, string(t),
			fmt.Errorf("%q is not accepted, expected one of %v", upload.ContentType, t.AllowedMimeTypes()))
	}
	if s.opts.MaxFileSize > 0 && upload.Size > s.opts.MaxFileSize {
		return apperrors.NewValidationError(fmt.Sprintf("%s file exceeds the %d byte limit", t, s.opts.MaxFileSize))
	}
	return nil
}

// DetachFile removes the section's document of type t. It never fails:
// each step is attempted and its error logged. Detaching a missing
// document is a no-op.
func (s *sectionFilesServiceImpl) DetachFile(ctx context.Context, sectionID string, t models.FileType) {
	ctx = context.WithoutCancel(ctx)
	log := s.logger.With().Str("sectionID", sectionID).Str("fileType", string(t)).Logger()

	record, err := s.files.GetBySectionAndType(ctx, sectionID, t)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			log.Debug().Msg("Nothing to detach")
		} else {
			log.Error().Err(err).Msg("Looking up file record for detach failed")
		}
		return
	}

	if err := s.blobs.Delete(ctx, record.Bucket, record.Path); err != nil {
		log.Warn().Err(err).Str("path", record.Path).Msg("Deleting blob failed, continuing detach")
	}
	if err := s.files.Delete(ctx, record.ID); err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		log.Warn().Err(err).Str("fileID", record.ID).Msg("Deleting file record failed, continuing detach")
	}
	if err := s.sections.SetFileID(ctx, sectionID, t, nil); err != nil {
		if errors.Is(err, apperrors.ErrSectionNotFound) {
			log.Debug().Msg("Section already gone while clearing file reference")
		} else {
			log.Warn().Err(err).Msg("Clearing section file reference failed")
		}
	}

	log.Info().Str("fileID", record.ID).Msg("File detached")
}

// CreateSectionWithFiles inserts a section and attaches both documents.
// Either the section exists with both files or nothing is left behind.
func (s *sectionFilesServiceImpl) CreateSectionWithFiles(ctx context.Context, yearID, name string, timetable, enrollment *models.Upload) (*models.Section, error) {
	name, err := validation.Name("section name", name)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if timetable == nil {
		return nil, apperrors.NewValidationError("timetable file is required")
	}
	if enrollment == nil {
		return nil, apperrors.NewValidationError("enrollment file is required")
	}

	sectionID, err := s.ids.NewID()
	if err != nil {
		return nil, apperrors.NewWorkflowError(apperrors.ErrIDGenerationFailed, StepCreateSection, "", "", err)
	}

	section := &models.Section{ID: sectionID, Name: name, YearID: yearID}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, err
	}

	log := s.logger.With().Str("sectionID", sectionID).Str("yearID", yearID).Logger()
	undoCtx := context.WithoutCancel(ctx)
	undo := &rollback{logger: log}
	undo.push("delete-section", func(ctx context.Context) error { return s.sections.Delete(ctx, sectionID) })

	uploads := []struct {
		t      models.FileType
		upload *models.Upload
	}{
		{models.FileTypeTimetable, timetable},
		{models.FileTypeEnrollment, enrollment},
	}
	for _, u := range uploads {
		ref, err := s.AttachFile(ctx, sectionID, u.t, u.upload)
		if err != nil {
			log.Warn().Err(err).Str("fileType", string(u.t)).Msg("Section creation failed, rolling back")
			undo.run(undoCtx)
			return nil, err
		}
		t := u.t
		undo.push("detach-"+string(t), func(ctx context.Context) error {
			s.DetachFile(ctx, sectionID, t)
			return nil
		})
		section.SetFileID(t, &ref.FileID)
	}

	log.Info().Str("name", name).Msg("Section created with files")
	return section, nil
}

// DeleteSection detaches both documents and deletes the section row.
func (s *sectionFilesServiceImpl) DeleteSection(ctx context.Context, sectionID string) error {
	if _, err := s.sections.GetByID(ctx, sectionID); err != nil {
		return err
	}
	for _, t := range models.FileTypes {
		s.DetachFile(ctx, sectionID, t)
	}
	return s.sections.Delete(ctx, sectionID)
}

// DetachAll detaches every document of every section under (scope, id).
// Callers run it before deleting a parent so no blob outlives its row.
func (s *sectionFilesServiceImpl) DetachAll(ctx context.Context, scope models.Scope, id string) error {
	sectionIDs, err := s.sections.ListIDs(ctx, scope, id)
	if err != nil {
		return fmt.Errorf("error listing sections under %s %s: %w", scope, id, err)
	}
	for _, sectionID := range sectionIDs {
		for _, t := range models.FileTypes {
			s.DetachFile(ctx, sectionID, t)
		}
	}
	s.logger.Info().Str("scope", string(scope)).Str("id", id).Int("sections", len(sectionIDs)).Msg("Detached section files")
	return nil
}

// OpenFile returns the record and a reader over the stored bytes.
func (s *sectionFilesServiceImpl) OpenFile(ctx context.Context, sectionID string, t models.FileType) (*models.FileRecord, io.ReadCloser, error) {
	record, err := s.files.GetBySectionAndType(ctx, sectionID, t)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.blobs.Get(ctx, record.Bucket, record.Path)
	if err != nil {
		if errors.Is(err, filestorage.ErrObjectNotFound) {
			s.logger.Error().Str("sectionID", sectionID).Str("path", record.Path).Msg("File record has no blob")
			return nil, nil, apperrors.ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("error reading %s file: %w", t, err)
	}
	return record, body, nil
}

// SignedURL returns a time-limited download link for the document.
func (s *sectionFilesServiceImpl) SignedURL(ctx context.Context, sectionID string, t models.FileType) (string, time.Time, error) {
	record, err := s.files.GetBySectionAndType(ctx, sectionID, t)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().Add(s.opts.SignedURLTTL)
	url, err := s.blobs.SignedURL(ctx, record.Bucket, record.Path, s.opts.SignedURLTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error signing %s url: %w", t, err)
	}
	return url, expiresAt, nil
}
