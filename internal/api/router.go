package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nursingportal/internal/auth"
	"nursingportal/internal/httpmiddleware"
)

// RouterConfig holds the cross-cutting router settings.
type RouterConfig struct {
	CORSOrigins     []string
	RateLimitPerMin int
	Gatherer        prometheus.Gatherer
}

// NewRouter builds the gin engine with middleware and every route mounted.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.AccessLog(h.log, "/healthz", "/metrics"))
	r.Use(h.metrics.Middleware())
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", h.Healthz)

	if h.devLogin {
		r.POST("/v1/sessions", h.CreateSession)
	}

	v1 := r.Group("/v1", auth.InstructorAuth(h.auth))

	v1.GET("/students", h.ListStudents)
	v1.POST("/students", h.AddStudent)
	v1.GET("/students/:studentId", h.GetStudent)
	v1.GET("/students/:studentId/summary", h.StudentSummary)
	v1.GET("/students/:studentId/attendance", h.StudentAttendance)
	v1.GET("/students/:studentId/messages", h.ListMessages)
	v1.POST("/students/:studentId/messages", h.SendMessage)
	v1.POST("/stats/refresh", h.RefreshStats)

	v1.GET("/attendance/:date", h.GetDay)
	v1.PUT("/attendance/:date/:studentId", h.SetAttendance)
	v1.POST("/attendance/:date/finalize", h.FinalizeDay)
	v1.GET("/attendance/:date/view", h.AttendanceView)

	v1.GET("/documents", h.ListDocuments)
	v1.POST("/documents", h.UploadDocuments)
	v1.DELETE("/documents/:id", h.DeleteDocument)
	v1.PUT("/documents/:id/grade", h.GradeDocument)
	v1.POST("/documents/:id/star", h.StarDocument)

	v1.GET("/resources", h.ListResources)
	v1.POST("/resources", h.UploadResource)
	v1.DELETE("/resources/:id", h.DeleteResource)
	v1.POST("/resources/:id/downloads", h.RecordDownload)

	v1.GET("/announcements", h.ListAnnouncements)
	v1.POST("/announcements", h.SendAnnouncement)
	v1.DELETE("/announcements/:id", h.DeleteAnnouncement)
	v1.POST("/announcements/:id/resend", h.ResendAnnouncement)
	v1.POST("/announcements/:id/read", h.MarkAnnouncementRead)

	return r
}
