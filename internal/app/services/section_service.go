package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/helpers"
	"github.com/yigit/attendance/internal/pkg/parser"
)

// SectionReader reads sections for listing
type SectionReader interface {
	GetByID(ctx context.Context, id string) (*models.Section, error)
	ListByYear(ctx context.Context, yearID string, offset uint64, limit int) ([]*models.Section, int64, error)
}

// FileDownload is an open section document ready to be streamed
type FileDownload struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// SectionService exposes the section document workflow to the caller's
// university
type SectionService interface {
	CreateSection(ctx context.Context, userID, yearID, name string, timetable, enrollment *models.Upload) (*models.Section, error)
	ListSections(ctx context.Context, userID, yearID string, page, size int) ([]*models.Section, *dto.PaginationInfo, error)
	GetSection(ctx context.Context, userID, id string) (*models.Section, error)
	DeleteSection(ctx context.Context, userID, id string) error
	AttachFile(ctx context.Context, userID, sectionID string, t models.FileType, upload *models.Upload) (*models.FileReference, error)
	DetachFile(ctx context.Context, userID, sectionID string, t models.FileType) error
	SignedURL(ctx context.Context, userID, sectionID string, t models.FileType) (string, time.Time, error)
	Download(ctx context.Context, userID, sectionID string, t models.FileType) (*FileDownload, error)
	Parse(ctx context.Context, userID, sectionID string, t models.FileType) (json.RawMessage, error)
}

type sectionServiceImpl struct {
	sections SectionReader
	files    SectionFilesService
	parser   parser.Client
	authz    Authorizer
	logger   zerolog.Logger
}

// NewSectionService creates a new section service instance
func NewSectionService(sections SectionReader, files SectionFilesService, parserClient parser.Client, authz Authorizer, logger zerolog.Logger) SectionService {
	return &sectionServiceImpl{
		sections: sections,
		files:    files,
		parser:   parserClient,
		authz:    authz,
		logger:   logger,
	}
}

func (s *sectionServiceImpl) CreateSection(ctx context.Context, userID, yearID, name string, timetable, enrollment *models.Upload) (*models.Section, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeYear, yearID); err != nil {
		return nil, err
	}
	return s.files.CreateSectionWithFiles(ctx, yearID, name, timetable, enrollment)
}

func (s *sectionServiceImpl) ListSections(ctx context.Context, userID, yearID string, page, size int) ([]*models.Section, *dto.PaginationInfo, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeYear, yearID); err != nil {
		return nil, nil, err
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sections, total, err := s.sections.ListByYear(ctx, yearID, offset, limit)
	if err != nil {
		return nil, nil, err
	}

	pagination := helpers.NewPaginationInfo(total, page, limit)
	return sections, &pagination, nil
}

func (s *sectionServiceImpl) GetSection(ctx context.Context, userID, id string) (*models.Section, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeSection, id); err != nil {
		return nil, err
	}
	return s.sections.GetByID(ctx, id)
}

func (s *sectionServiceImpl) DeleteSection(ctx context.Context, userID, id string) error {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeSection, id); err != nil {
		return err
	}
	return s.files.DeleteSection(ctx, id)
}

func (s *sectionServiceImpl) AttachFile(ctx context.Context, userID, sectionID string, t models.FileType, upload *models.Upload) (*models.FileReference, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeSection, sectionID); err != nil {
		return nil, err
	}
	return s.files.AttachFile(ctx, sectionID, t, upload)
}

// DetachFile fails only when the caller may not touch the section.
func (s *sectionServiceImpl) DetachFile(ctx context.Context, userID, sectionID string, t models.FileType) error {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeSection, sectionID); err != nil {
		return err
	}
	s.files.DetachFile(ctx, sectionID, t)
	return nil
}

func (s *sectionServiceImpl) SignedURL(ctx context.Context, userID, sectionID string, t models.FileType) (string, time.Time, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeSection, sectionID); err != nil {
		return "", time.Time{}, err
	}
	return s.files.SignedURL(ctx, sectionID, t)
}

// Download opens the document and names it "{section}_{type}.{ext}".
// The caller must close Body.
func (s *sectionServiceImpl) Download(ctx context.Context, userID, sectionID string, t models.FileType) (*FileDownload, error) {
	section, err := s.GetSection(ctx, userID, sectionID)
	if err != nil {
		return nil, err
	}

	record, body, err := s.files.OpenFile(ctx, sectionID, t)
	if err != nil {
		return nil, err
	}

	ext := record.Extension()
	return &FileDownload{
		Filename:    fmt.Sprintf("%s_%s.%s", section.Name, t, ext),
		ContentType: models.ContentTypeFor(ext),
		Body:        body,
	}, nil
}

// Parse forwards the stored document to the parsing service and returns
// its structured output.
func (s *sectionServiceImpl) Parse(ctx context.Context, userID, sectionID string, t models.FileType) (json.RawMessage, error) {
	download, err := s.Download(ctx, userID, sectionID, t)
	if err != nil {
		return nil, err
	}
	defer download.Body.Close()

	data, err := s.parser.Parse(ctx, t, parser.Document{
		Filename:    download.Filename,
		ContentType: download.ContentType,
		Content:     download.Body,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("sectionID", sectionID).Str("fileType", string(t)).Msg("Document parsing failed")
		if apperrors.Is(err, apperrors.ErrParseFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrParseFailed, err)
	}
	return data, nil
}
