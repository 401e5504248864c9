// Package extract turns typed file blobs into plain text for the ingestion
// pipeline. Each supported MIME type has its own extractor; everything else
// fails with ErrUnsupportedType.
package extract

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned when no extractor handles the declared MIME type.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrExtraction is returned (wrapped) when a supported file cannot be parsed.
var ErrExtraction = errors.New("extraction failed")

// extractFunc converts a raw file blob into plain text.
type extractFunc func(data []byte) (string, error)

var extractors = map[string]extractFunc{
	"text/plain":    extractPlainText,
	"text/markdown": extractPlainText,
	"text/csv":      extractPlainText,
	"application/pdf": extractPDF,
	"text/html":       extractHTML,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": extractDOCX,
}

// Supported reports whether the given MIME type has an extractor.
func Supported(mimeType string) bool {
	_, ok := extractors[mimeType]
	return ok
}

// SupportedTypes returns the MIME types accepted by Extract.
func SupportedTypes() []string {
	types := make([]string, 0, len(extractors))
	for t := range extractors {
		types = append(types, t)
	}
	return types
}

// Extract returns the plain text of data interpreted as the declared MIME
// type. Unknown types fail with ErrUnsupportedType; corrupt input with a
// wrapped ErrExtraction.
func Extract(data []byte, mimeType string) (string, error) {
	fn, ok := extractors[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	return fn(data)
}

func extractPlainText(data []byte) (string, error) {
	return string(data), nil
}
