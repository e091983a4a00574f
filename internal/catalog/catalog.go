// Package catalog defines the gallery file catalog: the relational record of
// every known media object and its conversion state.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/onyxenersol/solarsite/internal/contenttype"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("gallery file not found")

	// ErrDuplicatePath is returned when inserting a row whose originalPath
	// already exists; originalPath is the reconciliation join key and must
	// stay unique.
	ErrDuplicatePath = errors.New("original path already cataloged")
)

// GalleryFile is one catalog row. OriginalPath never changes once set;
// Filename, ContentType, FileSize and IsConverted move together when a HEIC
// file is converted.
type GalleryFile struct {
	ID               string               `json:"id"`
	Filename         string               `json:"filename"`
	OriginalPath     string               `json:"originalPath"`
	FileType         contenttype.FileType `json:"fileType"`
	ContentType      string               `json:"contentType"`
	FileSize         string               `json:"fileSize"`
	IsConverted      bool                 `json:"isConverted"`
	ObjectStorageURL *string              `json:"objectStorageUrl,omitempty"`
	LocalPath        *string              `json:"localPath,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
}

// ConvertedUpdate carries the fields rewritten atomically after a successful
// HEIC conversion.
type ConvertedUpdate struct {
	Filename         string
	ContentType      string
	FileSize         string
	ObjectStorageURL string
	LocalPath        *string
}

// Store is the catalog surface the pipeline consumes. The Postgres
// implementation backs production; tests and local development use the
// in-memory one.
type Store interface {
	Insert(ctx context.Context, file *GalleryFile) error
	List(ctx context.Context) ([]GalleryFile, error)
	GetByID(ctx context.Context, id string) (*GalleryFile, error)
	GetByOriginalPath(ctx context.Context, path string) (*GalleryFile, error)
	ListByContentType(ctx context.Context, mime string) ([]GalleryFile, error)
	UpdateConverted(ctx context.Context, id string, upd ConvertedUpdate) error
	DeleteByContentType(ctx context.Context, mime string) (int64, error)
}
