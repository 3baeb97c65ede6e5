package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/attendance/internal/app/controllers"
	"github.com/yigit/attendance/internal/middleware"
)

// Controllers groups every HTTP handler the router mounts
type Controllers struct {
	Auth       *controllers.AuthController
	University *controllers.UniversityController
	Program    *controllers.ProgramController
	Branch     *controllers.BranchController
	Year       *controllers.YearController
	Section    *controllers.SectionController
	Structure  *controllers.StructureController
	Pages      *controllers.PageController
	// Blob is nil unless blobs live on the local filesystem.
	Blob *controllers.BlobController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/logout", c.Auth.Logout)
		authenticated.GET("/auth/profile", c.Auth.GetProfile)

		universities := authenticated.Group("/universities")
		{
			universities.POST("", c.University.CreateUniversity)
			universities.GET("/mine", c.University.GetMyUniversity)
			universities.PUT("/mine", c.University.UpdateMyUniversity)
			universities.DELETE("/mine", c.University.DeleteMyUniversity)
		}

		programs := authenticated.Group("/programs")
		{
			programs.POST("", c.Program.CreateProgram)
			programs.GET("", c.Program.ListPrograms)
			programs.GET("/:id", c.Program.GetProgram)
			programs.PUT("/:id", c.Program.UpdateProgram)
			programs.DELETE("/:id", c.Program.DeleteProgram)
			programs.POST("/:id/branches", c.Branch.CreateBranch)
			programs.GET("/:id/branches", c.Branch.ListBranches)
		}

		branches := authenticated.Group("/branches")
		{
			branches.GET("/:id", c.Branch.GetBranch)
			branches.PUT("/:id", c.Branch.UpdateBranch)
			branches.DELETE("/:id", c.Branch.DeleteBranch)
			branches.POST("/:id/years", c.Year.CreateYear)
			branches.GET("/:id/years", c.Year.ListYears)
		}

		years := authenticated.Group("/years")
		{
			years.GET("/:id", c.Year.GetYear)
			years.DELETE("/:id", c.Year.DeleteYear)
			years.POST("/:id/sections", c.Section.CreateSection)
			years.GET("/:id/sections", c.Section.ListSections)
		}

		sections := authenticated.Group("/sections")
		{
			sections.GET("/:id", c.Section.GetSection)
			sections.DELETE("/:id", c.Section.DeleteSection)
			sections.PUT("/:id/files/:type", c.Section.AttachFile)
			sections.DELETE("/:id/files/:type", c.Section.DetachFile)
			sections.GET("/:id/files/:type/url", c.Section.SignedURL)
			sections.GET("/:id/files/:type/download", c.Section.Download)
			sections.GET("/:id/files/:type/parsed", c.Section.ParseFile)
		}

		authenticated.GET("/structure", c.Structure.GetStructure)
		authenticated.GET("/dashboard/stats", c.Structure.GetDashboardStats)
	}

	if c.Blob != nil {
		router.GET("/blobs/:bucket/:path", c.Blob.ServeBlob)
	}

	setupPages(router, c.Pages, authMiddleware)
}

// setupPages mounts the HTML shells behind the session redirect rule.
func setupPages(router *gin.Engine, pages *controllers.PageController, authMiddleware *middleware.AuthMiddleware) {
	router.SetHTMLTemplate(controllers.PageTemplate())

	guarded := router.Group("")
	guarded.Use(authMiddleware.SessionRedirect())
	{
		guarded.GET(middleware.PathRoot, pages.Home())
		guarded.GET(middleware.PathLogin, pages.Login())
		guarded.GET("/auth/register", pages.Register())
		guarded.GET(middleware.PathDashboard, pages.Dashboard())
		guarded.GET("/university", pages.University())
		guarded.GET("/structure", pages.Structure())
		guarded.GET("/sections/:id", pages.Section())
	}
}
