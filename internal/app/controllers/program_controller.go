package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/models/dto"
	"github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/middleware"
)

// ProgramController handles degree programs of the caller's university
type ProgramController struct {
	programService services.ProgramService
}

// NewProgramController creates a new ProgramController
func NewProgramController(programService services.ProgramService) *ProgramController {
	return &ProgramController{programService: programService}
}

// CreateProgram adds a program to the caller's university
// @Summary Create program
// @Tags programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ProgramRequest true "Program"
// @Success 201 {object} dto.APIResponse{data=dto.ProgramResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid duration"
// @Failure 409 {object} dto.ErrorResponse "Duplicate name"
// @Router /programs [post]
func (c *ProgramController) CreateProgram(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.ProgramRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	program, err := c.programService.CreateProgram(ctx.Request.Context(), userID, req.Name, req.Duration)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromProgram(program), "Program created"))
}

// ListPrograms lists the caller's programs
// @Summary List programs
// @Tags programs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ProgramResponse}
// @Router /programs [get]
func (c *ProgramController) ListPrograms(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	programs, err := c.programService.ListPrograms(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	out := make([]dto.ProgramResponse, 0, len(programs))
	for _, p := range programs {
		out = append(out, dto.FromProgram(p))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(out, ""))
}

// GetProgram returns one program
// @Summary Get program
// @Tags programs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Success 200 {object} dto.APIResponse{data=dto.ProgramResponse}
// @Failure 404 {object} dto.ErrorResponse
// @Router /programs/{id} [get]
func (c *ProgramController) GetProgram(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	program, err := c.programService.GetProgram(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromProgram(program), ""))
}

// UpdateProgram renames a program or changes its duration
// @Summary Update program
// @Tags programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Param request body dto.ProgramRequest true "Program"
// @Success 200 {object} dto.APIResponse{data=dto.ProgramResponse}
// @Router /programs/{id} [put]
func (c *ProgramController) UpdateProgram(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.ProgramRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	program, err := c.programService.UpdateProgram(ctx.Request.Context(), userID, ctx.Param("id"), req.Name, req.Duration)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromProgram(program), "Program updated"))
}

// DeleteProgram removes a program and everything below it
// @Summary Delete program
// @Tags programs
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Success 204
// @Router /programs/{id} [delete]
func (c *ProgramController) DeleteProgram(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	if err := c.programService.DeleteProgram(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
