package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/engnotes/internal/app/models/dto"
	"github.com/yigit/engnotes/internal/app/services"
	"github.com/yigit/engnotes/internal/middleware"
)

// CatalogController serves the public browsing endpoints.
type CatalogController struct {
	catalogService *services.CatalogService
	logger         zerolog.Logger
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService *services.CatalogService, logger zerolog.Logger) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
		logger:         logger,
	}
}

// ListDegrees godoc
// @Summary List degrees with their semesters
// @Tags catalog
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.Degree}
// @Router /degrees [get]
func (c *CatalogController) ListDegrees(ctx *gin.Context) {
	degrees, err := c.catalogService.ListDegrees(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(degrees, ""))
}

// GetDegree godoc
// @Summary Get a degree with its semesters
// @Tags catalog
// @Param id path string true "Degree ID"
// @Success 200 {object} dto.APIResponse{data=models.Degree}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /degrees/{id} [get]
func (c *CatalogController) GetDegree(ctx *gin.Context) {
	degree, err := c.catalogService.GetDegree(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(degree, ""))
}

// GetSemester godoc
// @Summary Get a semester with its subjects and degree
// @Tags catalog
// @Param id path string true "Semester ID"
// @Router /semesters/{id} [get]
func (c *CatalogController) GetSemester(ctx *gin.Context) {
	semester, err := c.catalogService.GetSemester(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(semester, ""))
}

// GetSubject godoc
// @Summary Get a subject with its notes and ancestor chain
// @Tags catalog
// @Param id path string true "Subject ID"
// @Router /subjects/{id} [get]
func (c *CatalogController) GetSubject(ctx *gin.Context) {
	subject, err := c.catalogService.GetSubject(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(subject, ""))
}

// GetNote returns what the PDF viewer needs: the note, its file URL and the
// subject, semester and degree it belongs to.
// @Tags catalog
// @Param id path string true "Note ID"
// @Router /notes/{id} [get]
func (c *CatalogController) GetNote(ctx *gin.Context) {
	note, err := c.catalogService.GetNote(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(note, ""))
}
