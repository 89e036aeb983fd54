package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"nursingportal/internal/store"
)

const studentColumns = `id, student_id, name, email, academic_year, nursing_level, clinical_rotation,
	telegram_id, phone_number, created_at, last_active, document_count, overall_grade,
	completed_assignments, total_assignments, attendance_rate`

// PostgresRepository persists students in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListStudents returns all students ordered by name.
func (r *PostgresRepository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// GetStudent returns a single student by student_id.
func (r *PostgresRepository) GetStudent(ctx context.Context, studentID string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE student_id = $1`, studentID)
	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// InsertStudent writes a new student.
func (r *PostgresRepository) InsertStudent(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, student_id, name, email, academic_year, nursing_level,
			clinical_rotation, telegram_id, phone_number, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, s.ID, s.StudentID, s.Name, s.Email, s.AcademicYear, s.Level,
		s.ClinicalRotation, s.TelegramID, s.PhoneNumber, s.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// UpdateStats rewrites the denormalized counters of the given students in one transaction.
func (r *PostgresRepository) UpdateStats(ctx context.Context, students []Student) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, s := range students {
		if _, err := tx.ExecContext(ctx, `
			UPDATE students
			SET document_count = $2, overall_grade = $3, completed_assignments = $4,
				total_assignments = $5, attendance_rate = $6
			WHERE student_id = $1
		`, s.StudentID, s.DocumentCount, s.OverallGrade, s.CompletedAssignments, s.TotalAssignments, s.AttendanceRate); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update %s: %w", s.StudentID, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (Student, error) {
	var (
		st         Student
		lastActive sql.NullTime
	)
	if err := row.Scan(&st.ID, &st.StudentID, &st.Name, &st.Email, &st.AcademicYear, &st.Level,
		&st.ClinicalRotation, &st.TelegramID, &st.PhoneNumber, &st.CreatedAt, &lastActive,
		&st.DocumentCount, &st.OverallGrade, &st.CompletedAssignments, &st.TotalAssignments,
		&st.AttendanceRate); err != nil {
		return Student{}, err
	}
	if lastActive.Valid {
		t := lastActive.Time
		st.LastActive = &t
	}
	if err := store.Check("students", st.ID, st); err != nil {
		return Student{}, err
	}
	return st, nil
}
