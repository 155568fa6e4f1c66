package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/handler"
	"github.com/noah-isme/sice-api/internal/middleware"
	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/service"
	"github.com/noah-isme/sice-api/pkg/config"
	"github.com/noah-isme/sice-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sice-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sice-api/pkg/middleware/requestid"
)

// PhotoRoute is the public download path of signed profile photo links, relative to the API prefix.
const PhotoRoute = "/files/photos/"

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Students *handler.StudentHandler
	Subjects *handler.SubjectHandler
	Grades   *handler.GradeHandler
	Reports  *handler.ReportHandler
	Files    *handler.FileHandler
	Health   *handler.HealthHandler
}

// Deps carries what the router needs besides the handlers.
type Deps struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *service.MetricsService
	Authenticator middleware.Authenticator
	Handlers      Handlers
}

// NewRouter builds the gin engine with the global middleware chain and every route.
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	h := deps.Handlers
	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)
	api.GET(PhotoRoute+":token", h.Files.Photo)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Authenticator))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	teacherOnly := middleware.RequireRoles(models.RoleTeacher)
	adminOrSelf := middleware.RBAC(string(models.RoleAdmin), middleware.AllowSelf)

	secured.POST("/auth/change-password", h.Auth.ChangePassword)

	users := secured.Group("/users")
	users.GET("", adminOnly, h.Users.List)
	users.POST("", adminOnly, h.Users.Create)
	users.GET("/me", h.Users.Me)
	users.GET("/profile", teacherOnly, h.Users.GetProfile)
	users.PUT("/profile", teacherOnly, h.Users.UpdateProfile)
	users.GET("/:id", adminOrSelf, h.Users.Get)
	users.PUT("/:id", adminOrSelf, h.Users.Update)
	users.DELETE("/:id", adminOnly, h.Users.Delete)

	students := secured.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/search", h.Students.Search)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.POST("/:id/enroll/:subject_id", h.Students.Enroll)

	subjects := secured.Group("/subjects")
	subjects.GET("", h.Subjects.List)
	subjects.POST("", adminOnly, h.Subjects.Create)
	subjects.GET("/teacher-load", h.Subjects.TeacherLoad)
	subjects.GET("/:id", h.Subjects.Get)
	subjects.PUT("/:id", adminOnly, h.Subjects.Update)
	subjects.DELETE("/:id", adminOnly, h.Subjects.Delete)
	subjects.GET("/:id/students", h.Subjects.Roster)
	subjects.PUT("/:id/students", h.Subjects.ReplaceStudents)
	subjects.DELETE("/:id/students/:student_id", h.Subjects.RemoveStudent)

	grades := secured.Group("/grades")
	grades.GET("", h.Grades.List)
	grades.POST("", h.Grades.Create)
	grades.GET("/student/:id", h.Grades.ListByStudent)
	grades.GET("/:id", h.Grades.Get)
	grades.PUT("/:id", h.Grades.Update)
	grades.DELETE("/:id", h.Grades.Delete)

	reports := secured.Group("/reports")
	reports.GET("/student/:id", h.Reports.StudentReport)
	reports.GET("/student/:id/export", h.Reports.ExportStudentReport)
	reports.GET("/subject-grades/:id", h.Reports.SubjectGrades)
	reports.GET("/student-grades-search/:identifier", h.Reports.SearchStudentReport)
	reports.GET("/stats/:kind", h.Reports.Stats)

	return r
}
