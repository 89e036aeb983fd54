package attendance

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nursingportal/internal/store"
)

func integrationRepo(t *testing.T) *PostgresRepository {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := store.NewDB(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db.Client)
}

func TestPostgresRecordUpsertAndSnapshot(t *testing.T) {
	repo := integrationRepo(t)
	ctx := context.Background()
	student := "it-" + uuid.NewString()
	date := "2099-12-31"
	day, err := ParseDate(date)
	require.NoError(t, err)

	_, err = repo.db.ExecContext(ctx, `DELETE FROM attendance_lists WHERE id=$1`, SnapshotKey(day))
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = repo.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE student_id=$1`, student)
		_, _ = repo.db.ExecContext(ctx, `DELETE FROM attendance_lists WHERE id=$1`, SnapshotKey(day))
	})

	at := time.Date(2099, 12, 31, 8, 0, 0, 0, time.UTC)
	rec := Record{ID: RecordID(student, date), StudentID: student, Date: date, Present: true, MarkedAt: at, MarkedBy: "lead"}
	_, err = repo.UpsertRecord(ctx, rec)
	require.NoError(t, err)
	rec.Present = false
	_, err = repo.UpsertRecord(ctx, rec)
	require.NoError(t, err)

	history, err := repo.RecordsForStudent(ctx, student, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Present)

	snap := Snapshot{ID: SnapshotKey(day), Date: FormatDateForID(day), TakenBy: "lead", SubmittedAt: at, TotalStudents: 1, AbsentCount: 1, Records: history, IsFinalized: true}
	inserted, err := repo.InsertSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.True(t, inserted)

	again, err := repo.InsertSnapshot(ctx, snap)
	require.NoError(t, err)
	assert.False(t, again)

	loaded, err := repo.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 1, loaded.AbsentCount)
	assert.Len(t, loaded.Records, 1)

	missing, err := repo.GetSnapshot(ctx, "attendance_01-01-1900")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
