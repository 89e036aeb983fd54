package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nursingportal/internal/announcement"
	"nursingportal/internal/auth"
	"nursingportal/internal/relay"
)

type announcementItem struct {
	announcement.Announcement
	AudienceSize   int    `json:"audience_size"`
	AudienceLabel  string `json:"audience_label"`
	ReadPercentage int    `json:"read_percentage"`
}

// ListAnnouncements returns filtered announcements with read progress.
func (h *Handler) ListAnnouncements(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.announcements.List(ctx)
	if err != nil {
		h.fail(c, err, "load announcements")
		return
	}
	students, err := h.roster.List(ctx)
	if err != nil {
		h.fail(c, err, "load students")
		return
	}
	filter := announcement.Filter{
		Search:  c.Query("q"),
		Type:    c.Query("type"),
		Status:  c.Query("status"),
		Urgency: c.Query("urgency"),
	}
	sortKey := announcement.SortKey(c.DefaultQuery("sort", string(announcement.SortByDate)))
	visible := announcement.Apply(list, filter, sortKey)

	items := make([]announcementItem, 0, len(visible))
	for _, a := range visible {
		items = append(items, announcementItem{
			Announcement:   a,
			AudienceSize:   announcement.AudienceSize(a, students),
			AudienceLabel:  announcement.AudienceLabel(a),
			ReadPercentage: announcement.ReadPercentage(a, students),
		})
	}
	c.JSON(http.StatusOK, gin.H{"announcements": items, "stats": announcement.Summarize(list)})
}

// SendAnnouncement creates an announcement and relays it when requested.
func (h *Handler) SendAnnouncement(c *gin.Context) {
	var in announcement.NewAnnouncement
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid announcement payload")
		return
	}
	ctx := c.Request.Context()
	students, err := h.roster.List(ctx)
	if err != nil {
		h.fail(c, err, "load students")
		return
	}
	a, report, err := h.announcements.Send(ctx, in, students, auth.CallerIdentity(c))
	if err != nil {
		h.fail(c, err, "send announcement")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"announcement": a, "relay": report})
}

// DeleteAnnouncement removes an announcement.
func (h *Handler) DeleteAnnouncement(c *gin.Context) {
	if err := h.announcements.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "delete announcement")
		return
	}
	c.Status(http.StatusNoContent)
}

// ResendAnnouncement relays an existing announcement again.
func (h *Handler) ResendAnnouncement(c *gin.Context) {
	ctx := c.Request.Context()
	students, err := h.roster.List(ctx)
	if err != nil {
		h.fail(c, err, "load students")
		return
	}
	report, err := h.announcements.Resend(ctx, c.Param("id"), students)
	if err != nil {
		h.fail(c, err, "resend announcement")
		return
	}
	status := http.StatusOK
	if report.Mode == relay.ModeQueued {
		status = http.StatusAccepted
	}
	c.JSON(status, report)
}

// MarkAnnouncementRead records a student's read receipt.
func (h *Handler) MarkAnnouncementRead(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid read receipt payload")
		return
	}
	if err := h.announcements.MarkRead(c.Request.Context(), c.Param("id"), req.StudentID); err != nil {
		h.fail(c, err, "mark announcement read")
		return
	}
	c.Status(http.StatusNoContent)
}
