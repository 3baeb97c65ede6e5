package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
)

// YearController handles study years of a branch
type YearController struct {
	yearService services.YearService
}

// NewYearController creates a new YearController
func NewYearController(yearService services.YearService) *YearController {
	return &YearController{yearService: yearService}
}

// CreateYear adds a study year to a branch
// @Summary Create year
// @Description yearNumber must not exceed the program duration
// @Tags years
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Branch ID"
// @Param request body dto.YearRequest true "Year"
// @Success 201 {object} dto.APIResponse{data=dto.YearResponse}
// @Failure 409 {object} dto.ErrorResponse "Year already exists"
// @Router /branches/{id}/years [post]
func (c *YearController) CreateYear(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.YearRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	year, err := c.yearService.CreateYear(ctx.Request.Context(), userID, ctx.Param("id"), req.YearNumber)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromYear(year), "Year created"))
}

// ListYears lists the years of a branch
// @Summary List years of a branch
// @Tags years
// @Produce json
// @Security BearerAuth
// @Param id path string true "Branch ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.YearResponse}
// @Router /branches/{id}/years [get]
func (c *YearController) ListYears(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	years, err := c.yearService.ListYears(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	out := make([]dto.YearResponse, 0, len(years))
	for _, y := range years {
		out = append(out, dto.FromYear(y))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(out, ""))
}

// GetYear returns one year
// @Summary Get year
// @Tags years
// @Produce json
// @Security BearerAuth
// @Param id path string true "Year ID"
// @Success 200 {object} dto.APIResponse{data=dto.YearResponse}
// @Router /years/{id} [get]
func (c *YearController) GetYear(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	year, err := c.yearService.GetYear(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromYear(year), ""))
}

// DeleteYear removes a year with its sections and their documents
// @Summary Delete year
// @Tags years
// @Security BearerAuth
// @Param id path string true "Year ID"
// @Success 204
// @Router /years/{id} [delete]
func (c *YearController) DeleteYear(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := c.yearService.DeleteYear(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
