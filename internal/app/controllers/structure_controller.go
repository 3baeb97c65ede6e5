package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
)

// StructureController serves the structure browser and the dashboard counters
type StructureController struct {
	structureService services.StructureService
}

// NewStructureController creates a new StructureController
func NewStructureController(structureService services.StructureService) *StructureController {
	return &StructureController{structureService: structureService}
}

// GetStructure returns the program/branch/year/section tree
// @Summary University structure
// @Tags structure
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.StructureNode}
// @Router /structure [get]
func (c *StructureController) GetStructure(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	tree, err := c.structureService.GetStructure(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(tree, ""))
}

// GetDashboardStats returns the university counters
// @Summary Dashboard counters
// @Tags structure
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.DashboardStats}
// @Router /dashboard/stats [get]
func (c *StructureController) GetDashboardStats(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	stats, err := c.structureService.GetDashboardStats(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}
