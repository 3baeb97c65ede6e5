package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
)

// UniversityController handles the caller's university
type UniversityController struct {
	universityService services.UniversityService
	logger            zerolog.Logger
}

// NewUniversityController creates a new UniversityController
func NewUniversityController(universityService services.UniversityService, logger zerolog.Logger) *UniversityController {
	return &UniversityController{universityService: universityService, logger: logger}
}

// CreateUniversity creates a university and assigns it to the caller
// @Summary Create university
// @Description A user may own a single university
// @Tags universities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UniversityRequest true "University"
// @Success 201 {object} dto.APIResponse{data=dto.UniversityResponse}
// @Failure 409 {object} dto.ErrorResponse "User already belongs to a university"
// @Router /universities [post]
func (c *UniversityController) CreateUniversity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.UniversityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	university, err := c.universityService.CreateUniversity(ctx.Request.Context(), userID, req.Name, req.Location)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromUniversity(university), "University created"))
}

// GetMyUniversity returns the caller's university
// @Summary Get my university
// @Tags universities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UniversityResponse}
// @Failure 403 {object} dto.ErrorResponse "No university assigned"
// @Router /universities/mine [get]
func (c *UniversityController) GetMyUniversity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	university, err := c.universityService.GetMyUniversity(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromUniversity(university), ""))
}

// UpdateMyUniversity renames or relocates the caller's university
// @Summary Update my university
// @Tags universities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UniversityRequest true "University"
// @Success 200 {object} dto.APIResponse{data=dto.UniversityResponse}
// @Router /universities/mine [put]
func (c *UniversityController) UpdateMyUniversity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.UniversityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	university, err := c.universityService.UpdateMyUniversity(ctx.Request.Context(), userID, req.Name, req.Location)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromUniversity(university), "University updated"))
}

// DeleteMyUniversity removes the university with every section document below it
// @Summary Delete my university
// @Tags universities
// @Security BearerAuth
// @Success 204
// @Router /universities/mine [delete]
func (c *UniversityController) DeleteMyUniversity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := c.universityService.DeleteMyUniversity(ctx.Request.Context(), userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Str("userID", userID).Msg("University deleted")
	ctx.Status(http.StatusNoContent)
}
