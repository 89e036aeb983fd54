package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"nursingportal/internal/store"
)

// PostgresRepository persists records and snapshots in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetSnapshot loads the finalized list for a key.
func (r *PostgresRepository) GetSnapshot(ctx context.Context, key string) (*Snapshot, error) {
	var snap Snapshot
	var records []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, date, taken_by, submitted_at, total_students, present_count, absent_count, records, is_finalized
		FROM attendance_lists WHERE id=$1
	`, key).Scan(&snap.ID, &snap.Date, &snap.TakenBy, &snap.SubmittedAt, &snap.TotalStudents,
		&snap.PresentCount, &snap.AbsentCount, &records, &snap.IsFinalized)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Records = []Record{}
	if len(records) > 0 {
		if err := store.JSON("attendance_lists", snap.ID, records, &snap.Records); err != nil {
			return nil, err
		}
	}
	if err := store.Check("attendance_lists", snap.ID, snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// InsertSnapshot inserts the snapshot unless one already exists for its key.
func (r *PostgresRepository) InsertSnapshot(ctx context.Context, snap Snapshot) (bool, error) {
	records, err := json.Marshal(snap.Records)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_lists (id, date, taken_by, submitted_at, total_students, present_count, absent_count, records, is_finalized)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING
	`, snap.ID, snap.Date, snap.TakenBy, snap.SubmittedAt, snap.TotalStudents,
		snap.PresentCount, snap.AbsentCount, records, snap.IsFinalized)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpsertRecord writes one record keyed by student and date.
func (r *PostgresRepository) UpsertRecord(ctx context.Context, rec Record) (Record, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, date, present, marked_at, marked_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET present=EXCLUDED.present, marked_at=EXCLUDED.marked_at, marked_by=EXCLUDED.marked_by
		RETURNING marked_at
	`, rec.ID, rec.StudentID, rec.Date, rec.Present, rec.MarkedAt, rec.MarkedBy).Scan(&rec.MarkedAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// RecordsForDate lists the live records of a date in marking order.
func (r *PostgresRepository) RecordsForDate(ctx context.Context, date string) ([]Record, error) {
	return r.query(ctx, `
		SELECT id, student_id, date, present, marked_at, marked_by
		FROM attendance_records WHERE date=$1 ORDER BY marked_at, id
	`, date)
}

// RecordsForStudent lists a student's records newest first. A limit of 0 returns all.
func (r *PostgresRepository) RecordsForStudent(ctx context.Context, studentID string, limit int) ([]Record, error) {
	if limit <= 0 {
		return r.query(ctx, `
			SELECT id, student_id, date, present, marked_at, marked_by
			FROM attendance_records WHERE student_id=$1 ORDER BY date DESC
		`, studentID)
	}
	return r.query(ctx, `
		SELECT id, student_id, date, present, marked_at, marked_by
		FROM attendance_records WHERE student_id=$1 ORDER BY date DESC LIMIT $2
	`, studentID, limit)
}

// AllRecords lists every record.
func (r *PostgresRepository) AllRecords(ctx context.Context) ([]Record, error) {
	return r.query(ctx, `SELECT id, student_id, date, present, marked_at, marked_by FROM attendance_records`)
}

func (r *PostgresRepository) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.Present, &rec.MarkedAt, &rec.MarkedBy); err != nil {
			return nil, err
		}
		if err := store.Check("attendance_records", rec.ID, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
