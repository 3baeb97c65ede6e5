package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/pkg/filestorage"
)

// SignedBlobReader serves objects behind signed URLs
type SignedBlobReader interface {
	Verify(bucket, path, expires, signature string) error
	Get(ctx context.Context, bucket, path string) (io.ReadCloser, error)
}

// BlobController serves local-storage objects to holders of a signed URL
type BlobController struct {
	blobs SignedBlobReader
}

// NewBlobController creates a new BlobController
func NewBlobController(blobs SignedBlobReader) *BlobController {
	return &BlobController{blobs: blobs}
}

// ServeBlob streams an object when its signature is valid and unexpired.
func (c *BlobController) ServeBlob(ctx *gin.Context) {
	bucket, path := ctx.Param("bucket"), ctx.Param("path")
	if err := c.blobs.Verify(bucket, path, ctx.Query("expires"), ctx.Query("signature")); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Link invalid or expired")
		ctx.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
		return
	}

	body, err := c.blobs.Get(ctx.Request.Context(), bucket, path)
	if err != nil {
		status, code := http.StatusInternalServerError, dto.ErrorCodeInternalServer
		if errors.Is(err, filestorage.ErrObjectNotFound) {
			status, code = http.StatusNotFound, dto.ErrorCodeResourceNotFound
		}
		ctx.AbortWithStatusJSON(status, dto.NewErrorResponse(dto.NewErrorDetail(code, http.StatusText(status))))
		return
	}
	defer body.Close()

	ctx.DataFromReader(http.StatusOK, -1, models.ContentTypeFor(strings.TrimPrefix(filepath.Ext(path), ".")), body, nil)
}
