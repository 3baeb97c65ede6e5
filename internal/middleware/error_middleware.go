package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/logger"
)

type errorMapping struct {
	kind    error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order; the first kind matched by errors.Is wins.
// Entity errors wrap the generic kinds, so specific entries come first.
var errorMappings = []errorMapping{
	{apperrors.ErrInvalidFileType, http.StatusUnsupportedMediaType, dto.ErrorCodeInvalidFileType, "Wrong file type"},
	{apperrors.ErrStorageUploadFailed, http.StatusBadGateway, dto.ErrorCodeStorageUploadFailed, "File upload failed"},
	{apperrors.ErrIDGenerationFailed, http.StatusInternalServerError, dto.ErrorCodeSectionSaveFailed, "Could not save section"},
	{apperrors.ErrMetadataInsertFailed, http.StatusInternalServerError, dto.ErrorCodeSectionSaveFailed, "Could not save section"},
	{apperrors.ErrSectionLinkFailed, http.StatusInternalServerError, dto.ErrorCodeSectionSaveFailed, "Could not save section"},
	{apperrors.ErrParseFailed, http.StatusBadGateway, dto.ErrorCodeParseFailed, "Document parsing failed"},

	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},

	{apperrors.ErrNoUniversity, http.StatusForbidden, dto.ErrorCodeNoUniversity, "No university assigned"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},

	{apperrors.ErrInvalidEmail, http.StatusBadRequest, dto.ErrorCodeInvalidEmail, "Invalid email"},
	{apperrors.ErrInvalidPassword, http.StatusBadRequest, dto.ErrorCodeInvalidPassword, "Invalid password"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},

	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	_ = c.Error(err)

	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)

		var custom *apperrors.CustomError
		var wf *apperrors.WorkflowError
		switch {
		case errors.As(err, &wf):
			detail = detail.WithField(wf.FileType).WithDetails(map[string]string{"step": wf.Step, "sectionId": wf.SectionID})
			if m.status >= http.StatusInternalServerError {
				logger.Error().Err(err).Str("step", wf.Step).Msg("Section document workflow failed")
			}
		case errors.As(err, &custom) && custom.Message != "":
			detail = detail.WithDetails(custom.Message)
		case m.status == http.StatusBadRequest || m.status == http.StatusBadGateway:
			detail = detail.WithDetails(err.Error())
		}

		c.AbortWithStatusJSON(m.status, dto.NewErrorResponse(detail))
		return
	}

	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled error")
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
}
