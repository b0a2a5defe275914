package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/engnotes/internal/app/controllers"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/app/models/dto"
	"github.com/yigit/engnotes/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	catalogController *controllers.CatalogController,
	adminController *controllers.AdminController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/logout", authController.Logout)
	}

	// --- Public catalog browsing ---
	v1.GET("/degrees", catalogController.ListDegrees)
	v1.GET("/degrees/:id", catalogController.GetDegree)
	v1.GET("/semesters/:id", catalogController.GetSemester)
	v1.GET("/subjects/:id", catalogController.GetSubject)
	v1.GET("/notes/:id", catalogController.GetNote)

	// --- Admin routes ---
	admin := v1.Group("/admin")
	admin.Use(authMiddleware.CookieAuth(), authMiddleware.AdminOnly())
	{
		admin.GET("/dashboard", adminController.Dashboard)
		admin.GET("/tree", adminController.Tree)
		admin.GET("/export", adminController.Export)
		admin.POST("/reconcile", adminController.Reconcile)

		degrees := admin.Group("/degrees")
		{
			degrees.POST("", adminController.CreateDegree)
			degrees.PATCH("/:id", adminController.UpdateDegree)
			degrees.DELETE("/:id", adminController.Delete(models.KindDegree))
		}

		semesters := admin.Group("/semesters")
		{
			semesters.POST("", adminController.CreateSemester)
			semesters.PATCH("/:id", adminController.UpdateSemester)
			semesters.DELETE("/:id", adminController.Delete(models.KindSemester))
		}

		subjects := admin.Group("/subjects")
		{
			subjects.POST("", adminController.CreateSubject)
			subjects.PATCH("/:id", adminController.UpdateSubject)
			subjects.DELETE("/:id", adminController.Delete(models.KindSubject))
		}

		// multipart, the PDF travels in the upload field
		notes := admin.Group("/notes")
		{
			notes.POST("", adminController.CreateNote)
			notes.PATCH("/:id", adminController.UpdateNote)
			notes.DELETE("/:id", adminController.Delete(models.KindNote))
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})
}
