package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert adds a new catalog row, assigning ID and CreatedAt when unset.
func (s *PostgresStore) Insert(ctx context.Context, file *GalleryFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO gallery_files
			(id, filename, original_path, file_type, content_type, file_size, is_converted, object_storage_url, local_path, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, file.ID, file.Filename, file.OriginalPath, file.FileType, file.ContentType,
		file.FileSize, file.IsConverted, file.ObjectStorageURL, file.LocalPath, file.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, file.OriginalPath)
		}
		return fmt.Errorf("insert gallery file: %w", err)
	}
	return nil
}

const selectColumns = `
	id, filename, original_path, file_type, content_type, file_size,
	is_converted, object_storage_url, local_path, created_at`

// List returns every catalog row ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]GalleryFile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM gallery_files ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select gallery files: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// GetByID returns one row or ErrNotFound.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*GalleryFile, error) {
	return s.getByField(ctx, "id", id)
}

// GetByOriginalPath returns the row discovered at the given blob key, or
// ErrNotFound. This is the reconciler's idempotency check.
func (s *PostgresStore) GetByOriginalPath(ctx context.Context, path string) (*GalleryFile, error) {
	return s.getByField(ctx, "original_path", path)
}

func (s *PostgresStore) getByField(ctx context.Context, field, value string) (*GalleryFile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM gallery_files WHERE `+field+`=$1`, value)
	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select gallery file by %s: %w", field, err)
	}
	return file, nil
}

// ListByContentType returns rows with the given MIME type.
func (s *PostgresStore) ListByContentType(ctx context.Context, mime string) ([]GalleryFile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM gallery_files WHERE content_type=$1 ORDER BY created_at, id`, mime)
	if err != nil {
		return nil, fmt.Errorf("select gallery files by content type: %w", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// UpdateConverted rewrites filename, content type, size, URL and the
// converted flag in one statement so the row never shows a half-converted
// state.
func (s *PostgresStore) UpdateConverted(ctx context.Context, id string, upd ConvertedUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE gallery_files
		SET filename=$1, content_type=$2, file_size=$3, is_converted=TRUE,
			object_storage_url=$4, local_path=$5
		WHERE id=$6
	`, upd.Filename, upd.ContentType, upd.FileSize, upd.ObjectStorageURL, upd.LocalPath, id)
	if err != nil {
		return fmt.Errorf("update converted gallery file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByContentType removes every row with the given MIME type and reports
// how many went away. Used by re-sync to clear stale unconverted HEIC rows.
func (s *PostgresStore) DeleteByContentType(ctx context.Context, mime string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM gallery_files WHERE content_type=$1 AND NOT is_converted`, mime)
	if err != nil {
		return 0, fmt.Errorf("delete gallery files by content type: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanFiles(rows pgx.Rows) ([]GalleryFile, error) {
	var out []GalleryFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gallery file: %w", err)
		}
		out = append(out, *file)
	}
	return out, rows.Err()
}

func scanFile(row pgx.Row) (*GalleryFile, error) {
	var file GalleryFile
	if err := row.Scan(
		&file.ID, &file.Filename, &file.OriginalPath, &file.FileType, &file.ContentType,
		&file.FileSize, &file.IsConverted, &file.ObjectStorageURL, &file.LocalPath, &file.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &file, nil
}
