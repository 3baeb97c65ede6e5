package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
)

// BranchController handles program branches
type BranchController struct {
	branchService services.BranchService
}

// NewBranchController creates a new BranchController
func NewBranchController(branchService services.BranchService) *BranchController {
	return &BranchController{branchService: branchService}
}

// CreateBranch adds a branch to a program
// @Summary Create branch
// @Tags branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Param request body dto.BranchRequest true "Branch"
// @Success 201 {object} dto.APIResponse{data=dto.BranchResponse}
// @Router /programs/{id}/branches [post]
func (c *BranchController) CreateBranch(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.BranchRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	branch, err := c.branchService.CreateBranch(ctx.Request.Context(), userID, ctx.Param("id"), req.Name)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromBranch(branch), "Branch created"))
}

// ListBranches lists the branches of a program
// @Summary List branches of a program
// @Tags branches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.BranchResponse}
// @Router /programs/{id}/branches [get]
func (c *BranchController) ListBranches(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	branches, err := c.branchService.ListBranches(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	out := make([]dto.BranchResponse, 0, len(branches))
	for _, b := range branches {
		out = append(out, dto.FromBranch(b))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(out, ""))
}

// GetBranch returns one branch
// @Summary Get branch
// @Tags branches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Branch ID"
// @Success 200 {object} dto.APIResponse{data=dto.BranchResponse}
// @Router /branches/{id} [get]
func (c *BranchController) GetBranch(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	branch, err := c.branchService.GetBranch(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromBranch(branch), ""))
}

// UpdateBranch renames a branch
// @Summary Rename branch
// @Tags branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Branch ID"
// @Param request body dto.BranchRequest true "Branch"
// @Success 200 {object} dto.APIResponse{data=dto.BranchResponse}
// @Router /branches/{id} [put]
func (c *BranchController) UpdateBranch(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.BranchRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	branch, err := c.branchService.UpdateBranch(ctx.Request.Context(), userID, ctx.Param("id"), req.Name)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromBranch(branch), "Branch updated"))
}

// DeleteBranch removes a branch and everything below it
// @Summary Delete branch
// @Tags branches
// @Security BearerAuth
// @Param id path string true "Branch ID"
// @Success 204
// @Router /branches/{id} [delete]
func (c *BranchController) DeleteBranch(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := c.branchService.DeleteBranch(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
