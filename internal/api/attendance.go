package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nursingportal/internal/attendance"
	"nursingportal/internal/auth"
)

// GetDay returns the presence map for a date along with its finalize status.
func (h *Handler) GetDay(c *gin.Context) {
	ctx := c.Request.Context()
	date := c.Param("date")
	day, err := h.attendance.GetDailyAttendance(ctx, date)
	if err != nil {
		h.fail(c, err, "load attendance")
		return
	}
	status, err := h.attendance.DayStatus(ctx, date)
	if err != nil {
		h.fail(c, err, "load attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "status": status})
}

// SetAttendance marks one student present or absent.
func (h *Handler) SetAttendance(c *gin.Context) {
	var req struct {
		Present *bool `json:"present"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Present == nil {
		badRequest(c, "present must be true or false")
		return
	}
	ctx := c.Request.Context()
	st, err := h.roster.Get(ctx, c.Param("studentId"))
	if err != nil {
		h.fail(c, err, "save attendance")
		return
	}
	rec, err := h.attendance.SetAttendance(ctx, st.StudentID, c.Param("date"), *req.Present, auth.CallerIdentity(c))
	if err != nil {
		h.fail(c, err, "save attendance")
		return
	}
	h.refreshStats(ctx)
	c.JSON(http.StatusOK, rec)
}

// FinalizeDay freezes a date into its snapshot. The body may carry an explicit
// attendance map; without one the recorded attendance is used.
func (h *Handler) FinalizeDay(c *gin.Context) {
	var req struct {
		Attendance attendance.Daily `json:"attendance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid finalize payload")
		return
	}
	ctx := c.Request.Context()
	students, err := h.roster.List(ctx)
	if err != nil {
		h.fail(c, err, "load students")
		return
	}
	snap, err := h.attendance.FinalizeDay(ctx, students, req.Attendance, c.Param("date"), auth.CallerIdentity(c))
	if err != nil {
		h.fail(c, err, "finalize attendance")
		return
	}
	h.metrics.DayFinalized()
	h.log.Info("attendance finalized",
		zap.String("date", snap.Date),
		zap.Int("present", snap.PresentCount),
		zap.Int("absent", snap.AbsentCount),
	)
	h.refreshStats(ctx)
	c.JSON(http.StatusCreated, snap)
}

// AttendanceView returns the reconciled present, absent and unmarked lists.
func (h *Handler) AttendanceView(c *gin.Context) {
	ctx := c.Request.Context()
	students, err := h.roster.List(ctx)
	if err != nil {
		h.fail(c, err, "load students")
		return
	}
	view, err := h.attendance.BuildAttendanceView(ctx, c.Param("date"), students)
	if err != nil {
		h.fail(c, err, "load attendance")
		return
	}
	c.JSON(http.StatusOK, view)
}
