// Package api exposes the portal over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nursingportal/internal/announcement"
	"nursingportal/internal/attendance"
	"nursingportal/internal/auth"
	"nursingportal/internal/cloudinary"
	"nursingportal/internal/document"
	"nursingportal/internal/metrics"
	"nursingportal/internal/objectstore"
	"nursingportal/internal/relay"
	"nursingportal/internal/resource"
	"nursingportal/internal/roster"
	"nursingportal/internal/store"
	"nursingportal/internal/validation"
)

// Roster is the student store used by the handlers.
type Roster interface {
	List(ctx context.Context) ([]roster.Student, error)
	Get(ctx context.Context, studentID string) (roster.Student, error)
	Add(ctx context.Context, in roster.NewStudent) (roster.Student, error)
}

// Attendance is the attendance reconciler used by the handlers.
type Attendance interface {
	GetDailyAttendance(ctx context.Context, date string) (attendance.Day, error)
	SetAttendance(ctx context.Context, studentID, date string, present bool, markedBy string) (attendance.Record, error)
	FinalizeDay(ctx context.Context, students []roster.Student, daily attendance.Daily, date, takenBy string) (attendance.Snapshot, error)
	BuildAttendanceView(ctx context.Context, date string, students []roster.Student) (attendance.View, error)
	DayStatus(ctx context.Context, date string) (attendance.Status, error)
	StudentHistory(ctx context.Context, studentID string, limit int) ([]attendance.Record, error)
	StudentRate(ctx context.Context, studentID string) (float64, error)
}

// Documents manages student submissions.
type Documents interface {
	List(ctx context.Context) ([]document.Document, error)
	ForStudent(ctx context.Context, studentID string) ([]document.Document, error)
	Upload(ctx context.Context, st roster.Student, category string, files []document.File) ([]document.Document, error)
	Delete(ctx context.Context, id string) error
	Grade(ctx context.Context, id string, in document.GradeInput) error
	ToggleStar(ctx context.Context, id string) (bool, error)
}

// Resources manages study resources.
type Resources interface {
	List(ctx context.Context) ([]resource.Resource, error)
	Upload(ctx context.Context, in resource.NewResource, file *document.File, uploadedBy string) (resource.Resource, error)
	Delete(ctx context.Context, id string) error
	RecordDownload(ctx context.Context, id string) (int, error)
}

// Announcements manages announcements and direct messages.
type Announcements interface {
	List(ctx context.Context) ([]announcement.Announcement, error)
	Send(ctx context.Context, in announcement.NewAnnouncement, students []roster.Student, createdBy string) (announcement.Announcement, *relay.Report, error)
	Delete(ctx context.Context, id string) error
	Resend(ctx context.Context, id string, students []roster.Student) (relay.Report, error)
	MarkRead(ctx context.Context, id, studentID string) error
	Messages(ctx context.Context, studentID string) ([]announcement.Message, error)
	SendMessage(ctx context.Context, studentID, text string, urgent bool) (announcement.Message, error)
}

// StatsRefresher rewrites the cached per-student counters.
type StatsRefresher interface {
	Refresh(ctx context.Context) ([]roster.Student, error)
}

// Deps wires the handler. Metrics and Checks are optional.
type Deps struct {
	Roster        Roster
	Attendance    Attendance
	Documents     Documents
	Resources     Resources
	Announcements Announcements
	Stats         StatsRefresher
	Auth          auth.Config
	DevLogin      bool
	Metrics       *metrics.Metrics
	Checks        map[string]func(context.Context) bool
	Log           *zap.Logger
}

// Handler serves every portal route.
type Handler struct {
	roster        Roster
	attendance    Attendance
	documents     Documents
	resources     Resources
	announcements Announcements
	stats         StatsRefresher
	auth          auth.Config
	devLogin      bool
	metrics       *metrics.Metrics
	checks        map[string]func(context.Context) bool
	log           *zap.Logger
}

// New creates a handler.
func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		roster:        d.Roster,
		attendance:    d.Attendance,
		documents:     d.Documents,
		resources:     d.Resources,
		announcements: d.Announcements,
		stats:         d.Stats,
		auth:          d.Auth,
		devLogin:      d.DevLogin,
		metrics:       d.Metrics,
		checks:        d.Checks,
		log:           log,
	}
}

// Healthz reports each dependency check. Any failing check yields 503.
func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// fail maps a service error onto a status code. Unknown errors are logged and
// answered with a generic "failed to <action>" message.
func (h *Handler) fail(c *gin.Context, err error, action string) {
	h.failWith(c, err, action, nil)
}

// failWith is fail with extra fields merged into the error body.
func (h *Handler) failWith(c *gin.Context, err error, action string, extra gin.H) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, withFields(gin.H{"error": verr.Error(), "problems": verr.Problems}, extra))
	case errors.Is(err, roster.ErrNotFound),
		errors.Is(err, document.ErrNotFound),
		errors.Is(err, resource.ErrNotFound),
		errors.Is(err, announcement.ErrNotFound):
		c.JSON(http.StatusNotFound, withFields(gin.H{"error": err.Error()}, extra))
	case errors.Is(err, roster.ErrDuplicate), attendance.IsFinalizedErr(err):
		c.JSON(http.StatusConflict, withFields(gin.H{"error": err.Error()}, extra))
	case errors.Is(err, cloudinary.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, withFields(gin.H{"error": "file storage is not configured"}, extra))
	case errors.Is(err, objectstore.ErrFailed):
		h.log.Error(action+" failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, withFields(gin.H{"error": "failed to " + action + ": file storage unavailable"}, extra))
	case errors.Is(err, announcement.ErrRelayFailed):
		h.log.Warn(action+" failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, withFields(gin.H{"error": "failed to " + action + ": relay unavailable"}, extra))
	case store.IsDecodeError(err):
		h.log.Error("malformed stored record", zap.String("action", action), zap.Error(err))
		c.JSON(http.StatusInternalServerError, withFields(gin.H{"error": "failed to " + action + ": stored data is malformed"}, extra))
	default:
		h.log.Error(action+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, withFields(gin.H{"error": "failed to " + action}, extra))
	}
}

func withFields(body, extra gin.H) gin.H {
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// refreshStats recomputes cached counters after a mutation. Failures are
// logged only since the counters can always be rebuilt.
func (h *Handler) refreshStats(ctx context.Context) {
	if h.stats == nil {
		return
	}
	if _, err := h.stats.Refresh(ctx); err != nil {
		h.log.Warn("refresh student stats failed", zap.Error(err))
	}
}

// CreateSession issues instructor tokens. Only mounted when dev login is enabled.
func (h *Handler) CreateSession(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name"`
		Remember bool   `json:"remember"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	tokens, err := h.auth.Issue(auth.Identity{
		Subject: req.Email,
		Email:   req.Email,
		Name:    req.Name,
		Role:    auth.RoleInstructor,
	}, req.Remember)
	if err != nil {
		h.log.Error("issue token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, tokens)
}
