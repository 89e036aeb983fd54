package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nursingportal/internal/roster"
	"nursingportal/internal/validation"
)

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestSetThenGetReflectsMark(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.SetAttendance(ctx, "A", "2024-02-01", true, "lead")
	require.NoError(t, err)
	_, err = svc.SetAttendance(ctx, "A", "2024-02-01", false, "lead")
	require.NoError(t, err)
	rec, err := svc.SetAttendance(ctx, "A", "2024-02-01", true, "assistant")
	require.NoError(t, err)
	assert.Equal(t, "A_2024-02-01", rec.ID)
	assert.Equal(t, "assistant", rec.MarkedBy)
	assert.Len(t, repo.records, 1)

	got, err := svc.GetDailyAttendance(ctx, "2024-02-01")
	require.NoError(t, err)
	assert.False(t, got.Finalized)
	assert.Equal(t, Daily{"A": true}, got.Attendance)

	again, err := svc.GetDailyAttendance(ctx, "2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSetAttendanceValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.SetAttendance(ctx, " ", "2024-02-01", true, "lead")
	assert.True(t, validation.Is(err))
	_, err = svc.SetAttendance(ctx, "A", "01-02-2024", true, "lead")
	assert.True(t, validation.Is(err))
}

func TestFinalizeDayFreezesTheDate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	enrolled := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	students := []roster.Student{student("A", "Alice", enrolled), student("B", "Bob", enrolled)}

	status, err := svc.DayStatus(ctx, "2024-02-01")
	require.NoError(t, err)
	assert.False(t, status.Finalized)

	_, err = svc.SetAttendance(ctx, "A", "2024-02-01", true, "lead")
	require.NoError(t, err)

	snap, err := svc.FinalizeDay(ctx, students, nil, "2024-02-01", "lead")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.PresentCount)
	assert.Equal(t, 1, snap.AbsentCount)

	status, err = svc.DayStatus(ctx, "2024-02-01")
	require.NoError(t, err)
	assert.True(t, status.Finalized)
	assert.Equal(t, 2, status.TotalStudents)
	assert.Equal(t, "lead", status.TakenBy)

	got, err := svc.GetDailyAttendance(ctx, "2024-02-01")
	require.NoError(t, err)
	assert.True(t, got.Finalized)
	assert.Equal(t, Daily{"A": true, "B": false}, got.Attendance)

	_, err = svc.SetAttendance(ctx, "B", "2024-02-01", true, "lead")
	assert.ErrorIs(t, err, ErrDayFinalized)

	_, err = svc.FinalizeDay(ctx, students, Daily{"A": true, "B": true}, "2024-02-01", "lead")
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	assert.True(t, IsFinalizedErr(err))

	got, err = svc.GetDailyAttendance(ctx, "2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, Daily{"A": true, "B": false}, got.Attendance)
}

func TestFinalizedSnapshotIgnoresLaterRecords(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	enrolled := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	students := []roster.Student{student("A", "Alice", enrolled), student("B", "Bob", enrolled)}

	_, err := svc.FinalizeDay(ctx, students, Daily{"A": true}, "2024-07-01", "lead")
	require.NoError(t, err)

	// a record written around the service still must not leak into the day
	_, err = repo.UpsertRecord(ctx, Record{ID: RecordID("B", "2024-07-01"), StudentID: "B", Date: "2024-07-01", Present: true})
	require.NoError(t, err)

	view, err := svc.BuildAttendanceView(ctx, "2024-07-01", students)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(view.Present))
	assert.Equal(t, []string{"B"}, ids(view.Absent))
	assert.Equal(t, 2, view.TotalEnrolled)
}

func TestStudentHistoryAndRate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i, present := range []bool{true, false, true, true} {
		date := time.Date(2024, 2, 1+i, 0, 0, 0, 0, time.UTC).Format(DateLayout)
		_, err := svc.SetAttendance(ctx, "A", date, present, "lead")
		require.NoError(t, err)
	}

	hist, err := svc.StudentHistory(ctx, "A", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "2024-02-04", hist[0].Date)

	rate, err := svc.StudentRate(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 75.0, rate)

	rate, err = svc.StudentRate(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestBackendErrorsAreWrapped(t *testing.T) {
	svc, repo := newTestService()
	boom := errors.New("connection refused")
	repo.err = boom

	_, err := svc.GetDailyAttendance(context.Background(), "2024-02-01")
	assert.ErrorIs(t, err, boom)
	_, err = svc.SetAttendance(context.Background(), "A", "2024-02-01", true, "lead")
	assert.ErrorIs(t, err, boom)
	_, err = svc.FinalizeDay(context.Background(), nil, Daily{}, "2024-02-01", "lead")
	assert.ErrorIs(t, err, boom)
}
