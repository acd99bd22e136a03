package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/middleware"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/internal/service"
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry service.AuditEntry)
}

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth     *AuthHandler
	Exams    *ExamHandler
	Progress *ProgressHandler
	Answers  *AnswerHandler
	AI       *AIHandler
	Users    *UserHandler
	Catalog  *CatalogHandler
	Audit    *AuditHandler
	Metrics  *MetricsHandler
}

// RegisterRoutes mounts the public, learner and admin API under prefix.
// Health and Prometheus endpoints stay at the root.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, resolver identityResolver, audit auditRecorder) {
	r.GET("/healthz", h.Metrics.Healthz)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	authed := middleware.Auth(resolver)

	auth := api.Group("/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", authed, h.Auth.Me)
	auth.POST("/change-password", authed, h.Auth.ChangePassword)

	api.GET("/exams", h.Exams.List)
	api.GET("/exams/:id", h.Exams.Get)
	api.GET("/exams/:id/subjects/:subject_id/questions", authed, h.Exams.Questions)

	me := api.Group("/users/me", authed)
	me.POST("/exam", h.Progress.SelectExam)
	me.GET("/dashboard", h.Progress.Dashboard)
	me.GET("/progress", h.Progress.SubjectProgress)
	me.GET("/study-tips", h.AI.StudyTips)

	api.POST("/questions/:id/answer", authed, h.Answers.Submit)
	api.POST("/questions/:id/explanation", authed, h.AI.Explanation)
	api.POST("/ai/chat", authed, h.AI.Chat)

	admin := api.Group("/admin", authed)

	users := admin.Group("/users")
	users.GET("", middleware.Require(models.CapUsersRead), h.Users.List)
	users.POST("", middleware.Require(models.CapUsersManage), h.Users.Create)
	users.GET("/:id", middleware.Require(models.CapUsersRead), h.Users.Get)
	users.PUT("/:id", middleware.Require(models.CapUsersManage), h.Users.Update)
	users.DELETE("/:id", middleware.Require(models.CapUsersDelete), h.Users.Delete)
	users.POST("/:id/reset", middleware.Require(models.CapUsersManage), h.Users.Reset)
	users.GET("/:id/progress", middleware.Require(models.CapProgressReadAny), h.Users.Progress)
	users.GET("/:id/progress/export", middleware.Require(models.CapProgressReadAny), h.Users.ExportProgress)

	exams := admin.Group("/exams", middleware.Require(models.CapExamsManage))
	exams.GET("", h.Catalog.ListExams)
	exams.POST("", middleware.Audit(audit, models.AuditActionExamCreate, "exams"), h.Catalog.CreateExam)
	exams.PUT("/:id", middleware.Audit(audit, models.AuditActionExamUpdate, "exams"), h.Catalog.UpdateExam)
	exams.DELETE("/:id", middleware.Audit(audit, models.AuditActionExamDelete, "exams"), h.Catalog.DeleteExam)

	questions := admin.Group("", middleware.Require(models.CapQuestionsManage))
	questions.GET("/subjects/:subject_id/questions", h.Catalog.ListQuestions)
	questions.POST("/subjects/:subject_id/questions", middleware.Audit(audit, models.AuditActionQuestionCreate, "questions"), h.Catalog.CreateQuestion)
	questions.PUT("/questions/:id", middleware.Audit(audit, models.AuditActionQuestionUpdate, "questions"), h.Catalog.UpdateQuestion)
	questions.DELETE("/questions/:id", middleware.Audit(audit, models.AuditActionQuestionDelete, "questions"), h.Catalog.DeleteQuestion)

	admin.GET("/audit-logs", middleware.Require(models.CapAuditRead), h.Audit.List)
	admin.GET("/metrics", middleware.Require(models.CapAuditRead), h.Metrics.Summary)
}
