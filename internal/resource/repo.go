package resource

import (
	"context"
	"database/sql"
	"errors"

	"nursingportal/internal/store"
)

const resourceColumns = `id, title, description, file_name, url, size, type, category, target_levels,
	target_rotations, uploaded_at, uploaded_by, storage_path, download_count`

// PostgresRepository persists study resources in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListResources returns resources newest first.
func (r *PostgresRepository) ListResources(ctx context.Context) ([]Resource, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resourceColumns+` FROM study_resources ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetResource loads one resource.
func (r *PostgresRepository) GetResource(ctx context.Context, id string) (*Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM study_resources WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// InsertResource stores a new resource.
func (r *PostgresRepository) InsertResource(ctx context.Context, res Resource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO study_resources (id, title, description, file_name, url, size, type, category,
			target_levels, target_rotations, uploaded_at, uploaded_by, storage_path, download_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,0)
	`, res.ID, res.Title, res.Description, res.FileName, res.URL, res.Size, res.Type, res.Category,
		store.EncodeList(res.TargetLevels), store.EncodeList(res.TargetRotations), res.UploadedAt, res.UploadedBy, res.StoragePath)
	return err
}

// DeleteResource removes a resource row.
func (r *PostgresRepository) DeleteResource(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM study_resources WHERE id=$1`, id)
	return err
}

// IncrementDownloads bumps download_count atomically.
func (r *PostgresRepository) IncrementDownloads(ctx context.Context, id string) (int, bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		UPDATE study_resources SET download_count = download_count + 1 WHERE id=$1 RETURNING download_count
	`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(row scanner) (Resource, error) {
	var (
		res       Resource
		levels    []byte
		rotations []byte
	)
	if err := row.Scan(&res.ID, &res.Title, &res.Description, &res.FileName, &res.URL, &res.Size, &res.Type,
		&res.Category, &levels, &rotations, &res.UploadedAt, &res.UploadedBy, &res.StoragePath, &res.DownloadCount); err != nil {
		return Resource{}, err
	}
	var err error
	if res.TargetLevels, err = store.StringList("study_resources", res.ID, levels); err != nil {
		return Resource{}, err
	}
	if res.TargetRotations, err = store.StringList("study_resources", res.ID, rotations); err != nil {
		return Resource{}, err
	}
	if err := store.Check("study_resources", res.ID, res); err != nil {
		return Resource{}, err
	}
	return res, nil
}
