// Package gallery builds the public image/video listing from the catalog.
package gallery

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/onyxenersol/solarsite/internal/catalog"
	"github.com/onyxenersol/solarsite/internal/contenttype"
)

const (
	objectURLPrefix = "/api/objects/"
	webURLPrefix    = "/api/objects/web/"
)

// Item is one displayable gallery entry. DisplayURL is set only for
// HEIC/HEIF rows and points at the on-demand conversion endpoint.
type Item struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	TimeCreated time.Time `json:"timeCreated"`
	URL         string    `json:"url"`
	DisplayURL  string    `json:"displayUrl,omitempty"`
}

// Listing partitions gallery items by media class.
type Listing struct {
	Images []Item `json:"images"`
	Videos []Item `json:"videos"`
}

// Service reads the catalog and produces listings.
type Service struct {
	catalog catalog.Store
	logger  *zap.Logger
}

// NewService constructs a Service.
func NewService(cat catalog.Store, logger *zap.Logger) *Service {
	return &Service{
		catalog: cat,
		logger:  logger.With(zap.String("component", "gallery")),
	}
}

// List returns every catalog row as a display item. A catalog read failure
// degrades to an empty listing with a log entry; the public gallery page
// must render rather than error.
func (s *Service) List(ctx context.Context) Listing {
	listing := Listing{Images: []Item{}, Videos: []Item{}}

	files, err := s.catalog.List(ctx)
	if err != nil {
		s.logger.Error("failed to read gallery catalog", zap.Error(err))
		return listing
	}

	for _, file := range files {
		item := Item{
			Name:        file.Filename,
			Size:        parseSize(file.FileSize),
			ContentType: file.ContentType,
			TimeCreated: file.CreatedAt,
			URL:         displayURL(file),
		}
		if contenttype.IsHEICMIME(file.ContentType) {
			item.DisplayURL = webURLPrefix + url.PathEscape(file.OriginalPath)
		}
		switch file.FileType {
		case contenttype.TypeImage:
			listing.Images = append(listing.Images, item)
		case contenttype.TypeVideo:
			listing.Videos = append(listing.Videos, item)
		}
	}

	s.logger.Debug("gallery listing built",
		zap.Int("images", len(listing.Images)),
		zap.Int("videos", len(listing.Videos)),
	)
	return listing
}

func displayURL(file catalog.GalleryFile) string {
	if file.ObjectStorageURL != nil && *file.ObjectStorageURL != "" {
		return *file.ObjectStorageURL
	}
	return objectURLPrefix + url.PathEscape(file.OriginalPath)
}

func parseSize(size string) int64 {
	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
