package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
	"github.com/yigit/attendance/internal/pkg/helpers"
)

// SectionController handles sections and their timetable and enrollment documents
type SectionController struct {
	sectionService services.SectionService
	logger         zerolog.Logger
}

// NewSectionController creates a new SectionController
func NewSectionController(sectionService services.SectionService, logger zerolog.Logger) *SectionController {
	return &SectionController{sectionService: sectionService, logger: logger}
}

// CreateSection creates a section together with both of its documents
// @Summary Create section with documents
// @Description Either the section and both documents are stored, or nothing is
// @Tags sections
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Year ID"
// @Param name formData string true "Section name"
// @Param timetable formData file true "Timetable (.docx)"
// @Param enrollment formData file true "Enrollment list (.docx, .xlsx, .xls)"
// @Success 201 {object} dto.APIResponse{data=dto.SectionResponse}
// @Failure 400 {object} dto.ErrorResponse "Missing name or document"
// @Failure 415 {object} dto.ErrorResponse "Wrong file type"
// @Failure 502 {object} dto.ErrorResponse "Storage upload failed"
// @Router /years/{id}/sections [post]
func (c *SectionController) CreateSection(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	timetable, closeTimetable, err := formUpload(ctx, "timetable")
	defer closeTimetable()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	enrollment, closeEnrollment, err := formUpload(ctx, "enrollment")
	defer closeEnrollment()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	section, err := c.sectionService.CreateSection(ctx.Request.Context(), userID, ctx.Param("id"), ctx.PostForm("name"), timetable, enrollment)
	if err != nil {
		c.logger.Warn().Err(err).Str("yearID", ctx.Param("id")).Msg("Section creation failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromSection(section), "Section created"))
}

// ListSections returns one page of a year's sections
// @Summary List sections of a year
// @Tags sections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Year ID"
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.SectionListResponse}
// @Router /years/{id}/sections [get]
func (c *SectionController) ListSections(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	page, size := helpers.ParsePaginationParams(ctx)

	sections, pagination, err := c.sectionService.ListSections(ctx.Request.Context(), userID, ctx.Param("id"), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.SectionListResponse{Sections: make([]dto.SectionResponse, 0, len(sections)), PaginationInfo: *pagination}
	for _, s := range sections {
		resp.Sections = append(resp.Sections, dto.FromSection(s))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// GetSection returns one section
// @Summary Get section
// @Tags sections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Success 200 {object} dto.APIResponse{data=dto.SectionResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /sections/{id} [get]
func (c *SectionController) GetSection(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	section, err := c.sectionService.GetSection(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromSection(section), ""))
}

// DeleteSection detaches both documents and removes the section
// @Summary Delete section
// @Tags sections
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Success 204
// @Router /sections/{id} [delete]
func (c *SectionController) DeleteSection(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := c.sectionService.DeleteSection(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// AttachFile stores a document for the section, replacing any previous one
// @Summary Attach or replace a document
// @Tags sections
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Param type path string true "Document type" Enums(timetable, enrollment)
// @Param file formData file true "Document"
// @Success 200 {object} dto.APIResponse{data=dto.FileResponse}
// @Failure 415 {object} dto.ErrorResponse "Wrong file type"
// @Failure 500 {object} dto.ErrorResponse "Could not save section"
// @Failure 502 {object} dto.ErrorResponse "Storage upload failed"
// @Router /sections/{id}/files/{type} [put]
func (c *SectionController) AttachFile(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	t, ok := fileTypeParam(ctx)
	if !ok {
		return
	}

	upload, closeUpload, err := formUpload(ctx, "file")
	defer closeUpload()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ref, err := c.sectionService.AttachFile(ctx.Request.Context(), userID, ctx.Param("id"), t, upload)
	if err != nil {
		c.logger.Warn().Err(err).Str("sectionID", ctx.Param("id")).Str("fileType", string(t)).Msg("Attach failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromFileReference(ref), "File attached"))
}

// DetachFile removes a document. Missing documents are not an error.
// @Summary Detach a document
// @Tags sections
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Param type path string true "Document type" Enums(timetable, enrollment)
// @Success 204
// @Router /sections/{id}/files/{type} [delete]
func (c *SectionController) DetachFile(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	t, ok := fileTypeParam(ctx)
	if !ok {
		return
	}
	if err := c.sectionService.DetachFile(ctx.Request.Context(), userID, ctx.Param("id"), t); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SignedURL returns a time-limited link to the stored document
// @Summary Time-limited download link
// @Tags sections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Param type path string true "Document type" Enums(timetable, enrollment)
// @Success 200 {object} dto.APIResponse{data=dto.SignedURLResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /sections/{id}/files/{type}/url [get]
func (c *SectionController) SignedURL(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	t, ok := fileTypeParam(ctx)
	if !ok {
		return
	}
	url, expiresAt, err := c.sectionService.SignedURL(ctx.Request.Context(), userID, ctx.Param("id"), t)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SignedURLResponse{URL: url, ExpiresAt: expiresAt}, ""))
}

// Download streams the stored document as an attachment
// @Summary Download a document
// @Tags sections
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Param type path string true "Document type" Enums(timetable, enrollment)
// @Success 200 {file} binary
// @Failure 404 {object} dto.ErrorResponse
// @Router /sections/{id}/files/{type}/download [get]
func (c *SectionController) Download(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	t, ok := fileTypeParam(ctx)
	if !ok {
		return
	}
	download, err := c.sectionService.Download(ctx.Request.Context(), userID, ctx.Param("id"), t)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer download.Body.Close()

	ctx.DataFromReader(http.StatusOK, -1, download.ContentType, download.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}

// ParseFile sends the stored document to the parsing service
// @Summary Parse a document
// @Tags sections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Section ID"
// @Param type path string true "Document type" Enums(timetable, enrollment)
// @Success 200 {object} dto.APIResponse{data=dto.ParsedDocumentResponse}
// @Failure 502 {object} dto.ErrorResponse "Parsing failed"
// @Router /sections/{id}/files/{type}/parsed [get]
func (c *SectionController) ParseFile(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	t, ok := fileTypeParam(ctx)
	if !ok {
		return
	}
	data, err := c.sectionService.Parse(ctx.Request.Context(), userID, ctx.Param("id"), t)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ParsedDocumentResponse{
		SectionID: ctx.Param("id"),
		Type:      string(t),
		Data:      data,
	}, ""))
}
