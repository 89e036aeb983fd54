package announcement

import (
	"context"
	"database/sql"
	"errors"

	"nursingportal/internal/store"
)

const announcementColumns = `id, title, message, message_type, target_audience, target_levels, target_students,
	created_at, urgent, sent_to_telegram, read_by, created_by, resource_id`

// PostgresRepository persists announcements and direct messages in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListAnnouncements returns announcements newest first.
func (r *PostgresRepository) ListAnnouncements(ctx context.Context) ([]Announcement, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+announcementColumns+` FROM announcements ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAnnouncement loads one announcement.
func (r *PostgresRepository) GetAnnouncement(ctx context.Context, id string) (*Announcement, error) {
	a, err := scanAnnouncement(r.db.QueryRowContext(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InsertAnnouncement stores a new announcement.
func (r *PostgresRepository) InsertAnnouncement(ctx context.Context, a Announcement) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO announcements (id, title, message, message_type, target_audience, target_levels,
			target_students, created_at, urgent, sent_to_telegram, read_by, created_by, resource_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, a.ID, a.Title, a.Message, a.MessageType, a.Audience, store.EncodeList(a.TargetLevels),
		store.EncodeList(a.TargetStudents), a.CreatedAt, a.Urgent, a.SentToTelegram,
		store.EncodeList(a.ReadBy), a.CreatedBy, a.ResourceID)
	return err
}

// DeleteAnnouncement removes an announcement row.
func (r *PostgresRepository) DeleteAnnouncement(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AddReader appends studentID to read_by unless already present.
func (r *PostgresRepository) AddReader(ctx context.Context, id, studentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE announcements
		SET read_by = CASE WHEN read_by ? $2 THEN read_by ELSE read_by || to_jsonb($2::text) END
		WHERE id=$1
	`, id, studentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListMessages returns a student's messages newest first.
func (r *PostgresRepository) ListMessages(ctx context.Context, studentID string) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, from_instructor, message, created_at, read, urgent
		FROM student_messages WHERE student_id=$1 ORDER BY created_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.StudentID, &m.FromInstructor, &m.Message, &m.CreatedAt, &m.Read, &m.Urgent); err != nil {
			return nil, err
		}
		if err := store.Check("student_messages", m.ID, m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMessage stores a direct message.
func (r *PostgresRepository) InsertMessage(ctx context.Context, m Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO student_messages (id, student_id, from_instructor, message, created_at, read, urgent)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, m.ID, m.StudentID, m.FromInstructor, m.Message, m.CreatedAt, m.Read, m.Urgent)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnnouncement(row scanner) (Announcement, error) {
	var (
		a                        Announcement
		levels, students, readBy []byte
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Message, &a.MessageType, &a.Audience, &levels, &students,
		&a.CreatedAt, &a.Urgent, &a.SentToTelegram, &readBy, &a.CreatedBy, &a.ResourceID); err != nil {
		return Announcement{}, err
	}
	var err error
	if a.TargetLevels, err = store.StringList("announcements", a.ID, levels); err != nil {
		return Announcement{}, err
	}
	if a.TargetStudents, err = store.StringList("announcements", a.ID, students); err != nil {
		return Announcement{}, err
	}
	if a.ReadBy, err = store.StringList("announcements", a.ID, readBy); err != nil {
		return Announcement{}, err
	}
	if err := store.Check("announcements", a.ID, a); err != nil {
		return Announcement{}, err
	}
	return a, nil
}
