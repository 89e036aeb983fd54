package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nursingportal/internal/attendance"
	"nursingportal/internal/document"
	"nursingportal/internal/roster"
)

// ListStudents returns the roster, optionally narrowed by ?q=.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.roster.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "load students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": roster.Search(students, c.Query("q"))})
}

// AddStudent enrolls a student.
func (h *Handler) AddStudent(c *gin.Context) {
	var in roster.NewStudent
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid student payload")
		return
	}
	st, err := h.roster.Add(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "add student")
		return
	}
	c.JSON(http.StatusCreated, st)
}

// GetStudent returns one student.
func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.roster.Get(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.fail(c, err, "load student")
		return
	}
	c.JSON(http.StatusOK, st)
}

// StudentSummary is the profile view: the student, grade performance and recent attendance.
func (h *Handler) StudentSummary(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.roster.Get(ctx, c.Param("studentId"))
	if err != nil {
		h.fail(c, err, "load student")
		return
	}
	docs, err := h.documents.ForStudent(ctx, st.StudentID)
	if err != nil {
		h.fail(c, err, "load documents")
		return
	}
	history, err := h.attendance.StudentHistory(ctx, st.StudentID, attendance.HistoryLimit)
	if err != nil {
		h.fail(c, err, "load attendance")
		return
	}
	rate, err := h.attendance.StudentRate(ctx, st.StudentID)
	if err != nil {
		h.fail(c, err, "load attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student":           st,
		"performance":       document.ComputePerformance(docs),
		"documents":         document.Apply(docs, document.Filter{}, document.SortByDate),
		"recent_attendance": history,
		"attendance_rate":   rate,
	})
}

// StudentAttendance returns a student's attendance history and overall rate.
func (h *Handler) StudentAttendance(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("studentId")
	if _, err := h.roster.Get(ctx, id); err != nil {
		h.fail(c, err, "load student")
		return
	}
	limit := attendance.HistoryLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	history, err := h.attendance.StudentHistory(ctx, id, limit)
	if err != nil {
		h.fail(c, err, "load attendance")
		return
	}
	rate, err := h.attendance.StudentRate(ctx, id)
	if err != nil {
		h.fail(c, err, "load attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": history, "attendance_rate": rate})
}

// ListMessages returns a student's direct messages, newest first.
func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.announcements.Messages(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.fail(c, err, "load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage stores an instructor message to a student.
func (h *Handler) SendMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
		Urgent  bool   `json:"urgent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid message payload")
		return
	}
	ctx := c.Request.Context()
	st, err := h.roster.Get(ctx, c.Param("studentId"))
	if err != nil {
		h.fail(c, err, "send message")
		return
	}
	msg, err := h.announcements.SendMessage(ctx, st.StudentID, req.Message, req.Urgent)
	if err != nil {
		h.fail(c, err, "send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// RefreshStats recomputes every student's cached counters.
func (h *Handler) RefreshStats(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats refresh is not configured"})
		return
	}
	students, err := h.stats.Refresh(c.Request.Context())
	if err != nil {
		h.fail(c, err, "refresh stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}
