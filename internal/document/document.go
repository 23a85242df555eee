// Package document turns uploaded files into the plain text the analyst works on.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/ai"
)

// ErrEmpty is returned for files without content.
var ErrEmpty = errors.New("document is empty")

var textExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".csv":  {},
	".json": {},
}

// Load reads the file at path and detects its MIME type from the content.
func Load(path string) (ai.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ai.Document{}, fmt.Errorf("reading document %q: %w", path, err)
	}
	if len(data) == 0 {
		return ai.Document{}, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	return FromBytes(filepath.Base(path), data), nil
}

// FromBytes wraps in-memory content as a document.
func FromBytes(name string, data []byte) ai.Document {
	mime, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return ai.Document{
		Name:     name,
		MIMEType: strings.TrimSpace(mime),
		Data:     data,
	}
}

// IsText reports whether the document can be used without OCR.
func IsText(doc ai.Document) bool {
	if _, ok := textExtensions[strings.ToLower(filepath.Ext(doc.Name))]; ok {
		return utf8.Valid(doc.Data)
	}

	for m := mimetype.Lookup(doc.MIMEType); m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("application/json") {
			return true
		}
	}
	return strings.HasPrefix(doc.MIMEType, "text/")
}

// Reader returns document text, reading text files directly and sending
// everything else to OCR.
type Reader struct {
	ocr    ai.TextExtractor
	logger *zap.Logger
}

func NewReader(ocr ai.TextExtractor, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{ocr: ocr, logger: logger}
}

func (r *Reader) Text(ctx context.Context, doc ai.Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmpty, doc.Name)
	}

	if IsText(doc) {
		r.logger.Debug("reading text document",
			zap.String("document", doc.Name),
			zap.String("mime_type", doc.MIMEType),
		)
		text := strings.TrimSpace(string(doc.Data))
		if text == "" {
			return "", fmt.Errorf("%w: %s", ErrEmpty, doc.Name)
		}
		return text, nil
	}

	if r.ocr == nil {
		return "", fmt.Errorf("no text extractor configured for %s (%s)", doc.Name, doc.MIMEType)
	}

	r.logger.Info("extracting document text with ocr",
		zap.String("document", doc.Name),
		zap.String("mime_type", doc.MIMEType),
		zap.Int("bytes", len(doc.Data)),
	)

	text, err := r.ocr.ExtractText(ctx, doc)
	if err != nil {
		return "", err
	}
	return text, nil
}

// ReadFile loads path and returns its text.
func (r *Reader) ReadFile(ctx context.Context, path string) (string, error) {
	doc, err := Load(path)
	if err != nil {
		return "", err
	}
	return r.Text(ctx, doc)
}
