// Package controllers handles HTTP request handling
package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/middleware"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// currentUser returns the authenticated user id, writing a 401 when the
// request carries none.
func currentUser(ctx *gin.Context) (string, bool) {
	userID, ok := middleware.UserIDFrom(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return "", false
	}
	return userID, true
}

// fileTypeParam reads the :type path parameter.
func fileTypeParam(ctx *gin.Context) (models.FileType, bool) {
	t, err := models.ParseFileType(ctx.Param("type"))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(err.Error()))
		return "", false
	}
	return t, true
}

// formUpload opens the named multipart file. A missing field yields a nil
// upload so the service can report which document is absent. The returned
// close func is never nil.
func formUpload(ctx *gin.Context, field string) (*models.Upload, func(), error) {
	noop := func() {}
	header, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, apperrors.NewCustomError(apperrors.ErrBadRequest, err.Error())
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*models.Upload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, apperrors.NewCustomError(apperrors.ErrBadRequest, "could not read uploaded file")
	}
	return &models.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     f,
	}, func() { _ = f.Close() }, nil
}
