package store

import (
	"context"
	"database/sql"
)

// schema mirrors the collections of the hosted document store: one table per
// collection, JSONB for embedded arrays.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id                    TEXT PRIMARY KEY,
		student_id            TEXT UNIQUE NOT NULL,
		name                  TEXT NOT NULL,
		email                 TEXT NOT NULL,
		academic_year         TEXT NOT NULL,
		nursing_level         TEXT NOT NULL,
		clinical_rotation     TEXT NOT NULL DEFAULT '',
		telegram_id           TEXT NOT NULL DEFAULT '',
		phone_number          TEXT NOT NULL DEFAULT '',
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		document_count        INTEGER NOT NULL DEFAULT 0,
		overall_grade         DOUBLE PRECISION NOT NULL DEFAULT 0,
		completed_assignments INTEGER NOT NULL DEFAULT 0,
		total_assignments     INTEGER NOT NULL DEFAULT 0,
		attendance_rate       DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_active           TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		date       TEXT NOT NULL,
		present    BOOLEAN NOT NULL,
		marked_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		marked_by  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_records_date ON attendance_records(date)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_records_student ON attendance_records(student_id, date DESC)`,
	`CREATE TABLE IF NOT EXISTS attendance_lists (
		id             TEXT PRIMARY KEY,
		date           TEXT NOT NULL,
		taken_by       TEXT NOT NULL,
		submitted_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		total_students INTEGER NOT NULL,
		present_count  INTEGER NOT NULL,
		absent_count   INTEGER NOT NULL,
		records        JSONB NOT NULL,
		is_finalized   BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS student_documents (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		url           TEXT NOT NULL,
		size          BIGINT NOT NULL,
		type          TEXT NOT NULL,
		category      TEXT NOT NULL,
		uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		storage_path  TEXT NOT NULL,
		student_id    TEXT NOT NULL,
		student_name  TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		nursing_level TEXT NOT NULL,
		grade         DOUBLE PRECISION,
		max_grade     DOUBLE PRECISION,
		feedback      TEXT NOT NULL DEFAULT '',
		date_graded   TIMESTAMPTZ,
		is_graded     BOOLEAN NOT NULL DEFAULT FALSE,
		is_starred    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_student_documents_student ON student_documents(student_id)`,
	`CREATE TABLE IF NOT EXISTS study_resources (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		description      TEXT NOT NULL,
		file_name        TEXT NOT NULL,
		url              TEXT NOT NULL,
		size             BIGINT NOT NULL,
		type             TEXT NOT NULL,
		category         TEXT NOT NULL,
		target_levels    JSONB NOT NULL DEFAULT '[]',
		target_rotations JSONB NOT NULL DEFAULT '[]',
		uploaded_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		uploaded_by      TEXT NOT NULL,
		storage_path     TEXT NOT NULL,
		download_count   INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS announcements (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		message          TEXT NOT NULL,
		message_type     TEXT NOT NULL,
		target_audience  TEXT NOT NULL,
		target_levels    JSONB NOT NULL DEFAULT '[]',
		target_students  JSONB NOT NULL DEFAULT '[]',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		urgent           BOOLEAN NOT NULL DEFAULT FALSE,
		sent_to_telegram BOOLEAN NOT NULL DEFAULT FALSE,
		read_by          JSONB NOT NULL DEFAULT '[]',
		created_by       TEXT NOT NULL,
		resource_id      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS student_messages (
		id             TEXT PRIMARY KEY,
		student_id     TEXT NOT NULL,
		from_instructor BOOLEAN NOT NULL,
		message        TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		read           BOOLEAN NOT NULL DEFAULT FALSE,
		urgent         BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_student_messages_student ON student_messages(student_id, created_at DESC)`,
}

// Migrate applies the schema idempotently.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
