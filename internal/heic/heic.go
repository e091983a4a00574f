// Package heic decodes HEIC/HEIF buffers and re-encodes them as JPEG for
// browsers that cannot render the format natively.
package heic

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"go.uber.org/zap"
)

// DefaultQuality is the JPEG quality used when callers pass no override.
const DefaultQuality = 85

var (
	// ErrEmptyInput is returned for nil or zero-length buffers, rejected
	// before any decode attempt.
	ErrEmptyInput = errors.New("empty HEIC buffer")

	// ErrConversion wraps decode or encode failures. Callers must treat it
	// as "conversion unavailable for this object", not as object-missing.
	ErrConversion = errors.New("HEIC conversion failed")
)

// Converter turns HEIC bytes into JPEG bytes.
type Converter struct {
	logger *zap.Logger
}

// NewConverter builds a Converter.
func NewConverter(logger *zap.Logger) *Converter {
	return &Converter{logger: logger.With(zap.String("component", "heic"))}
}

// Convert decodes data as HEIC/HEIF and encodes it as JPEG at the given
// quality (0-100; out-of-range values fall back to DefaultQuality). A
// signature mismatch only logs a warning, because valid HEIC variants carry
// different ftyp subtypes; an actual decode failure returns ErrConversion.
func (c *Converter) Convert(data []byte, quality int) (jpeg []byte, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	if sig, ok := ftypSignature(data); !ok {
		c.logger.Warn("buffer may not be a valid HEIC file, attempting conversion anyway",
			zap.String("signature", sig),
			zap.Int("bytes", len(data)),
		)
	}

	// Corrupt payloads must never take the process down.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("HEIC decode panicked", zap.Any("panic", r))
			jpeg, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrConversion, r)
		}
	}()

	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		c.logger.Error("HEIC decode failed", zap.Int("bytes", len(data)), zap.Error(err))
		return nil, fmt.Errorf("%w: decode: %v", ErrConversion, err)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		c.logger.Error("JPEG encode failed", zap.Error(err))
		return nil, fmt.Errorf("%w: encode: %v", ErrConversion, err)
	}

	c.logger.Debug("HEIC conversion successful",
		zap.Int("input_bytes", len(data)),
		zap.Int("output_bytes", out.Len()),
		zap.Int("quality", quality),
	)
	return out.Bytes(), nil
}

// ftypSignature inspects bytes 4-8, the ISO-BMFF ftyp box type, and reports
// whether it looks like a HEIC/HEIF container ("hei*" or "mif1").
func ftypSignature(data []byte) (string, bool) {
	if len(data) < 8 {
		return "", false
	}
	sig := string(data[4:8])
	return sig, strings.Contains(sig, "hei") || strings.Contains(sig, "mif1")
}
