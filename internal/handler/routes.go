package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/middleware"
	"github.com/satriadp/supervision-api/internal/models"
	"github.com/satriadp/supervision-api/internal/repository"
	"github.com/satriadp/supervision-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth          *AuthHandler
	Periods       *PeriodHandler
	Deadlines     *DeadlineHandler
	Capacities    *CapacityHandler
	Topics        *TopicHandler
	Applications  *ApplicationHandler
	Assignments   *AssignmentHandler
	Cases         *CaseHandler
	Submissions   *SubmissionHandler
	Evaluations   *EvaluationHandler
	Enrollments   *EnrollmentHandler
	Students      *StudentHandler
	Teachers      *TeacherHandler
	Notifications *NotificationHandler
	Audit         *AuditHandler
}

// RegisterRoutes mounts the API surface under the given group. Role checks
// here are coarse; ownership checks live in the services, which see the
// resolved actor.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, auth *service.AuthService, auditRepo *repository.AuditRepository) {
	operator := middleware.RequireOperator()
	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleModerator, models.RoleAdmin)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(auditRepo, action, resource)
	}

	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("", middleware.JWT(auth))
	authed.GET("/auth/me", h.Auth.Me)
	authed.POST("/auth/change-password", h.Auth.ChangePassword)

	periods := authed.Group("/periods")
	periods.GET("", h.Periods.List)
	periods.GET("/active", h.Periods.Active)
	periods.GET("/:id", h.Periods.Get)
	periods.POST("", operator, audit("period.create", "periods"), h.Periods.Create)
	periods.PUT("/:id", operator, audit("period.update", "periods"), h.Periods.Update)
	periods.POST("/:id/activate", operator, audit("period.activate", "periods"), h.Periods.SetActive)
	periods.POST("/:id/set-current", operator, audit("period.set-current", "periods"), h.Periods.SetCurrent)
	periods.POST("/:id/publish", operator, audit("period.publish", "periods"), h.Periods.SetPublished)
	periods.GET("/:id/deadlines", h.Deadlines.List)
	periods.PUT("/:id/deadlines", operator, audit("deadline.set", "deadlines"), h.Deadlines.Set)
	periods.DELETE("/:id/deadlines/:artifact", operator, audit("deadline.remove", "deadlines"), h.Deadlines.Remove)

	capacities := authed.Group("/capacities")
	capacities.GET("", h.Capacities.List)
	capacities.GET("/:id", h.Capacities.Get)
	capacities.POST("", operator, audit("capacity.grant", "capacities"), h.Capacities.Grant)
	capacities.POST("/:id/resize", operator, audit("capacity.resize", "capacities"), h.Capacities.Resize)

	topics := authed.Group("/topics")
	topics.GET("", h.Topics.List)
	topics.GET("/:id", h.Topics.Get)
	topics.POST("", staff, audit("topic.create", "topics"), h.Topics.Create)
	topics.PUT("/:id", staff, audit("topic.update", "topics"), h.Topics.Update)
	topics.POST("/:id/resize", staff, audit("topic.resize", "topics"), h.Topics.Resize)

	applications := authed.Group("/applications")
	applications.GET("", h.Applications.List)
	applications.POST("", middleware.RequireRoles(models.RoleStudent), audit("application.apply", "applications"), h.Applications.Apply)
	applications.POST("/:id/approve", staff, audit("application.approve", "applications"), h.Applications.Approve)
	applications.POST("/:id/reject", staff, audit("application.reject", "applications"), h.Applications.Reject)

	assignments := authed.Group("/assignments", operator)
	assignments.POST("/directed", audit("assignment.directed", "assignments"), h.Assignments.AssignDirected)
	assignments.POST("/random", audit("assignment.random", "assignments"), h.Assignments.AssignRandom)

	cases := authed.Group("/cases/:kind")
	cases.GET("", h.Cases.List)
	cases.GET("/:id", h.Cases.Get)
	cases.GET("/:id/export/csv", h.Cases.ExportCSV)
	cases.GET("/:id/export/pdf", h.Cases.ExportPDF)
	cases.POST("/:id/submissions", audit("submission.create", "submissions"), h.Submissions.Submit)
	cases.GET("/:id/submissions", h.Submissions.Latest)
	cases.GET("/:id/submissions/history", h.Submissions.History)
	cases.PUT("/:id/video", audit("submission.video", "submissions"), h.Submissions.SetVideoURL)
	cases.POST("/:id/grades", staff, audit("grade.record", "grades"), h.Evaluations.RecordGrade)
	cases.GET("/:id/grades", h.Evaluations.ListGrades)
	cases.PUT("/:id/final-grade", operator, audit("grade.final", "grades"), h.Evaluations.SetFinalGrade)

	theses := authed.Group("/theses")
	theses.GET("/:id/roles", h.Evaluations.ListRoles)
	theses.PUT("/:id/defense", staff, audit("thesis.defense", "theses"), h.Evaluations.SetDefenseDate)
	theses.PUT("/:id/reviewer", operator, audit("thesis.reviewer", "theses"), h.Evaluations.AssignReviewer)
	theses.PUT("/:id/committee", operator, audit("thesis.committee", "theses"), h.Evaluations.AssignCommittee)

	enrollments := authed.Group("/enrollments")
	enrollments.GET("", h.Enrollments.List)
	enrollments.GET("/:studentId/:periodId", h.Enrollments.Status)

	students := authed.Group("/students")
	students.GET("", h.Students.List)
	students.GET("/:id", h.Students.Get)
	students.POST("", operator, audit("student.create", "students"), h.Students.Create)
	students.PUT("/:id", operator, audit("student.update", "students"), h.Students.Update)

	teachers := authed.Group("/teachers")
	teachers.GET("", h.Teachers.List)
	teachers.GET("/:id", h.Teachers.Get)
	teachers.POST("", operator, audit("teacher.create", "teachers"), h.Teachers.Create)
	teachers.PUT("/:id", operator, audit("teacher.update", "teachers"), h.Teachers.Update)

	notifications := authed.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.POST("/:id/read", h.Notifications.MarkRead)

	authed.GET("/audit", middleware.RequireRoles(models.RoleAdmin), h.Audit.ListRecent)
}
