package document

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"nursingportal/internal/store"
)

const documentColumns = `id, name, url, size, type, category, uploaded_at, storage_path, student_id,
	student_name, academic_year, nursing_level, grade, max_grade, feedback, date_graded, is_graded, is_starred`

// PostgresRepository persists documents in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListDocuments returns documents newest first, optionally for one student.
func (r *PostgresRepository) ListDocuments(ctx context.Context, studentID string) ([]Document, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if studentID == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM student_documents ORDER BY uploaded_at DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM student_documents WHERE student_id=$1 ORDER BY uploaded_at DESC`, studentID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDocument loads one document.
func (r *PostgresRepository) GetDocument(ctx context.Context, id string) (*Document, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM student_documents WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// InsertDocument stores a new document.
func (r *PostgresRepository) InsertDocument(ctx context.Context, d Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO student_documents (id, name, url, size, type, category, uploaded_at, storage_path, student_id,
			student_name, academic_year, nursing_level, is_graded, is_starred)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,FALSE,FALSE)
	`, d.ID, d.Name, d.URL, d.Size, d.Type, d.Category, d.UploadedAt, d.StoragePath, d.StudentID,
		d.StudentName, d.AcademicYear, d.Level)
	return err
}

// DeleteDocument removes a document row.
func (r *PostgresRepository) DeleteDocument(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM student_documents WHERE id=$1`, id)
	return err
}

// SetGrade stores a grade and reports whether the document existed.
func (r *PostgresRepository) SetGrade(ctx context.Context, id string, grade, maxGrade float64, feedback string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE student_documents
		SET grade=$2, max_grade=$3, feedback=$4, date_graded=$5, is_graded=TRUE
		WHERE id=$1
	`, id, grade, maxGrade, feedback, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ToggleStar flips is_starred in one statement.
func (r *PostgresRepository) ToggleStar(ctx context.Context, id string) (bool, bool, error) {
	var starred bool
	err := r.db.QueryRowContext(ctx, `
		UPDATE student_documents SET is_starred = NOT is_starred WHERE id=$1 RETURNING is_starred
	`, id).Scan(&starred)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return starred, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var (
		d          Document
		grade      sql.NullFloat64
		maxGrade   sql.NullFloat64
		dateGraded sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.Name, &d.URL, &d.Size, &d.Type, &d.Category, &d.UploadedAt, &d.StoragePath,
		&d.StudentID, &d.StudentName, &d.AcademicYear, &d.Level, &grade, &maxGrade, &d.Feedback,
		&dateGraded, &d.IsGraded, &d.IsStarred); err != nil {
		return Document{}, err
	}
	if grade.Valid {
		d.Grade = &grade.Float64
	}
	if maxGrade.Valid {
		d.MaxGrade = &maxGrade.Float64
	}
	if dateGraded.Valid {
		d.DateGraded = &dateGraded.Time
	}
	if err := store.Check("student_documents", d.ID, d); err != nil {
		return Document{}, err
	}
	return d, nil
}
