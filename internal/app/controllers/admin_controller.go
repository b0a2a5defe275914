package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/engnotes/internal/app/auth"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/app/models/dto"
	"github.com/yigit/engnotes/internal/app/services"
	"github.com/yigit/engnotes/internal/middleware"
	"github.com/yigit/engnotes/internal/pkg/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminController handles catalog management. Every handler expects the
// AdminOnly middleware in front of it.
type AdminController struct {
	catalogService   *services.CatalogService
	reconcileService *services.ReconcileService
	uploadField      string
	logger           zerolog.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(
	catalogService *services.CatalogService,
	reconcileService *services.ReconcileService,
	uploadField string,
	logger zerolog.Logger,
) *AdminController {
	if uploadField == "" {
		uploadField = "pdfFile"
	}
	return &AdminController{
		catalogService:   catalogService,
		reconcileService: reconcileService,
		uploadField:      uploadField,
		logger:           logger,
	}
}

// principal returns the caller for audit logging.
func (c *AdminController) principal(ctx *gin.Context) (*appauth.Principal, bool) {
	p, err := appauth.RequireAdmin(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return nil, false
	}
	return p, true
}

// Dashboard godoc
// @Summary Degrees with semesters and per-kind counts
// @Tags admin
// @Success 200 {object} dto.APIResponse{data=services.Dashboard}
// @Router /admin/dashboard [get]
func (c *AdminController) Dashboard(ctx *gin.Context) {
	dashboard, err := c.catalogService.Dashboard(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dashboard, ""))
}

// Tree returns the whole catalog fully expanded.
func (c *AdminController) Tree(ctx *gin.Context) {
	degrees, err := c.catalogService.Tree(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(degrees, ""))
}

// --- degrees ---

// CreateDegree godoc
// @Summary Create a degree
// @Tags admin
// @Param request body dto.CreateDegreeRequest true "Degree"
// @Success 201 {object} dto.APIResponse{data=models.Degree}
// @Router /admin/degrees [post]
func (c *AdminController) CreateDegree(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}
	var req dto.CreateDegreeRequest
	if !middleware.BindRequest(ctx, &req) {
		return
	}

	degree := req.ToModel()
	if err := c.catalogService.CreateDegree(ctx.Request.Context(), degree); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.audit(p, "create", models.KindDegree, degree.ID)
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(degree, "Degree created"))
}

// UpdateDegree godoc
// @Summary Partially update a degree
// @Tags admin
// @Param id path string true "Degree ID"
// @Param request body dto.UpdateDegreeRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Degree}
// @Router /admin/degrees/{id} [patch]
func (c *AdminController) UpdateDegree(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}
	var req dto.UpdateDegreeRequest
	if !middleware.BindRequest(ctx, &req) {
		return
	}

	degree, err := c.catalogService.UpdateDegree(ctx.Request.Context(), ctx.Param("id"), req.ToPatch())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.audit(p, "update", models.KindDegree, degree.ID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(degree, "Degree updated"))
}

// --- semesters ---

// CreateSemester godoc
// @Summary Create a semester under a degree
// @Tags admin
// @Param request body dto.CreateSemesterRequest true "Semester"
// @Success 201 {object} dto.APIResponse{data=models.Semester}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail} "Degree not found"
// @Router /admin/semesters [post]
func (c *AdminController) CreateSemester(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}
	var req dto.CreateSemesterRequest
	if !middleware.BindRequest(ctx, &req) {
		return
	}

	semester := req.ToModel()
	if err := c.catalogService.CreateSemester(ctx.Request.Context(), semester); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.audit(p, "create", models.KindSemester, semester.ID)
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(semester, "Semester created"))
}

// UpdateSemester godoc
// @Summary Partially update a semester
// @Tags admin
// @Param id path string true "Semester ID"
// @Param request body dto.UpdateSemesterRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Semester}
// @Router /admin/semesters/{id} [patch]
func (c *AdminController) UpdateSemester(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}
	var req dto.UpdateSemesterRequest
	if !middleware.BindRequest(ctx, &req) {
		return
	}

	semester, err := c.catalogService.UpdateSemester(ctx.Request.Context(), ctx.Param("id"), req.ToPatch())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.audit(p, "update", models.KindSemester, semester.ID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(semester, "Semester updated"))
}

// --- subjects ---

// CreateSubject godoc
// @Summary Create a subject under a semester
// @Tags admin
// @Param request body dto.CreateSubjectRequest true "Subject"
// @Success 201 {object} dto.APIResponse{data=models.Subject}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail} "Semester not found"
// @Router /admin/subjects [post]
func (c *AdminController) CreateSubject(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}
	var req dto.CreateSubjectRequest
	if !middleware.BindRequest(ctx, &req) {
		return
	}

	subject := req.ToModel()
	if err := c.catalogService.CreateSubject(ctx.Request.Context(), subject); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.audit(p, "create", models.KindSubject, subject.ID)
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(subject, "Subject created"))
}

// UpdateSubject godoc
// @Summary Partially update a subject
// @Tags admin
// @Param id path string true "Subject ID"
// @Param request body dto.UpdateSubjectRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Subject}
// @Router /admin/subjects/{id} [patch]
func (c *AdminController) UpdateSubject(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}
	var req dto.UpdateSubjectRequest
	if !middleware.BindRequest(ctx, &req) {
		return
	}

	subject, err := c.catalogService.UpdateSubject(ctx.Request.Context(), ctx.Param("id"), req.ToPatch())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.audit(p, "update", models.KindSubject, subject.ID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(subject, "Subject updated"))
}

// --- notes ---

// CreateNote godoc
// @Summary Upload a note
// @Tags admin
// @Accept multipart/form-data
// @Param title formData string true "Title"
// @Param author formData string true "Author"
// @Param subjectId formData string true "Subject ID"
// @Param pdfFile formData file true "PDF file"
// @Success 201 {object} dto.APIResponse{data=models.Note}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail} "Missing or non-PDF file"
// @Router /admin/notes [post]
func (c *AdminController) CreateNote(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}
	var req dto.CreateNoteRequest
	if !middleware.BindRequest(ctx, &req) {
		return
	}
	file, err := c.formFile(ctx)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		middleware.HandleAPIError(ctx, err)
		return
	}

	// a nil file is rejected by the service
	note := req.ToModel()
	if err := c.catalogService.CreateNote(ctx.Request.Context(), note, file); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.audit(p, "create", models.KindNote, note.ID)
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(note, "Note uploaded"))
}

// UpdateNote godoc
// @Summary Partially update a note
// @Description A PDF in the upload field replaces the stored file.
// @Tags admin
// @Accept multipart/form-data
// @Param id path string true "Note ID"
// @Param title formData string false "Title"
// @Param author formData string false "Author"
// @Param pdfFile formData file false "Replacement PDF"
// @Success 200 {object} dto.APIResponse{data=models.Note}
// @Router /admin/notes/{id} [patch]
func (c *AdminController) UpdateNote(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}
	var req dto.UpdateNoteRequest
	if !middleware.BindRequest(ctx, &req) {
		return
	}
	file, err := c.formFile(ctx)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		middleware.HandleAPIError(ctx, err)
		return
	}

	note, err := c.catalogService.UpdateNote(ctx.Request.Context(), ctx.Param("id"), req.ToPatch(), file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.audit(p, "update", models.KindNote, note.ID)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(note, "Note updated"))
}

// formFile returns the uploaded PDF, or nil with http.ErrMissingFile when the
// request carries none.
func (c *AdminController) formFile(ctx *gin.Context) (*multipart.FileHeader, error) {
	file, err := ctx.FormFile(c.uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, http.ErrMissingFile
		}
		return nil, err
	}
	return file, nil
}

// --- deletes ---

// Delete runs the cascading delete for the kind bound to the route.
// @Summary Delete a record and everything below it
// @Tags admin
// @Param id path string true "Record ID"
// @Success 200 {object} dto.APIResponse{data=services.CascadeResult}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /admin/{kind}/{id} [delete]
func (c *AdminController) Delete(kind models.Kind) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		p, ok := c.principal(ctx)
		if !ok {
			return
		}

		id := ctx.Param("id")
		result, err := c.catalogService.Delete(ctx.Request.Context(), kind, id)
		if err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
		c.audit(p, "delete", kind, id)
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, fmt.Sprintf("%s deleted", kind)))
	}
}

// --- maintenance ---

// Reconcile godoc
// @Summary Repair links, orphan records and stray files
// @Tags admin
// @Param dryRun query bool false "Only report"
// @Success 200 {object} dto.APIResponse{data=services.ReconcileReport}
// @Router /admin/reconcile [post]
func (c *AdminController) Reconcile(ctx *gin.Context) {
	p, ok := c.principal(ctx)
	if !ok {
		return
	}

	dryRun := false
	if v := ctx.Query("dryRun"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.NewErrorDetail(dto.ErrorCodeBadRequest, "dryRun must be a boolean").WithField("dryRun")))
			return
		}
		dryRun = parsed
	}

	report, err := c.reconcileService.Run(ctx.Request.Context(), dryRun)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Str("admin", p.Username).Bool("dryRun", dryRun).Int("changes", report.Changes()).Msg("Reconciliation requested")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report, ""))
}

// Export streams the catalog as an xlsx workbook.
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /admin/export [get]
func (c *AdminController) Export(ctx *gin.Context) {
	degrees, err := c.catalogService.Tree(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	filename := fmt.Sprintf("catalog-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Header("Content-Type", xlsxContentType)
	ctx.Status(http.StatusOK)
	if err := export.Write(ctx.Writer, degrees); err != nil {
		// headers are already sent
		c.logger.Error().Err(err).Msg("Failed to write catalog export")
	}
}

func (c *AdminController) audit(p *appauth.Principal, action string, kind models.Kind, id string) {
	c.logger.Info().
		Str("admin", p.Username).
		Str("action", action).
		Str("kind", kind.String()).
		Str("id", id).
		Msg("Catalog changed")
}
