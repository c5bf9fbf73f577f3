// Package uploads stores bill and receipt images on disk with metadata in
// PostgreSQL. Callers store the image first and reference it from the
// financial document, so a lost image can never be referenced.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates a missing upload.
	ErrNotFound = errors.New("uploads: not found")
	// ErrTooLarge occurs when the payload exceeds the configured limit.
	ErrTooLarge = errors.New("uploads: payload too large")
	// ErrUnsupportedType occurs for content types outside the allow list.
	ErrUnsupportedType = errors.New("uploads: unsupported content type")
)

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Reference identifies a stored object.
type Reference struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store writes objects under a root directory and records them in Postgres.
type Store struct {
	pool     *pgxpool.Pool
	root     string
	maxBytes int64
}

func NewStore(pool *pgxpool.Pool, root string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create root: %w", err)
	}
	return &Store{pool: pool, root: root, maxBytes: maxBytes}, nil
}

// Save persists the object. It enforces the size limit while copying, so an
// over-limit body is rejected without buffering it fully.
func (s *Store) Save(ctx context.Context, name, contentType string, r io.Reader) (Reference, error) {
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Reference{}, ErrUnsupportedType
	}

	id := uuid.NewString()
	path := filepath.Join(s.root, id+ext)
	f, err := os.Create(path)
	if err != nil {
		return Reference{}, fmt.Errorf("uploads: create file: %w", err)
	}

	size, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && size > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return Reference{}, err
	}

	ref := Reference{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		URL:         "/api/uploads/" + id,
	}
	err = s.pool.QueryRow(ctx, `INSERT INTO uploads (id, name, content_type, size, path, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING created_at`,
		id, name, contentType, size, path).Scan(&ref.CreatedAt)
	if err != nil {
		_ = os.Remove(path)
		return Reference{}, err
	}
	return ref, nil
}

// Exists reports whether the reference is stored.
func (s *Store) Exists(ctx context.Context, ref string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM uploads WHERE id = $1)`, ref).Scan(&exists)
	return exists, err
}

// Open returns the object's metadata and an open file handle. The caller
// closes the reader.
func (s *Store) Open(ctx context.Context, id string) (Reference, io.ReadCloser, error) {
	var ref Reference
	var path string
	err := s.pool.QueryRow(ctx, `SELECT id, name, content_type, size, path, created_at FROM uploads WHERE id = $1`, id).
		Scan(&ref.ID, &ref.Name, &ref.ContentType, &ref.Size, &path, &ref.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reference{}, nil, ErrNotFound
		}
		return Reference{}, nil, err
	}
	ref.URL = "/api/uploads/" + ref.ID

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Reference{}, nil, ErrNotFound
		}
		return Reference{}, nil, err
	}
	return ref, f, nil
}
