package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	// MIMEType is the only accepted upload type.
	MIMEType = "application/pdf"
	// DefaultMaxBytes caps uploads when the encoder is built with a zero limit.
	DefaultMaxBytes int64 = 20 << 20

	previewLimit = 6000
	fallbackName = "document.pdf"
)

// ErrInvalidDocument marks uploads that are missing, empty, too large, or not PDFs.
var ErrInvalidDocument = errors.New("invalid document")

var extraneousWhitespace = regexp.MustCompile(`\s+`)

// Document is a PDF held in memory in a transport-safe encoding.
type Document struct {
	Name    string `json:"name"`
	Encoded string `json:"encoded"`
	Size    int64  `json:"size"`
	Pages   int    `json:"pages"`
	Preview string `json:"preview,omitempty"`
}

// Upload is the raw file a presentation surface hands over.
type Upload struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// Bytes decodes the document back into the original PDF bytes.
func (d Document) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(d.Encoded)
}

// DataURL renders the document as an inline data URL.
func (d Document) DataURL() string {
	return "data:" + MIMEType + ";base64," + d.Encoded
}

// Encoder validates uploads and produces Documents.
type Encoder struct {
	maxBytes int64
}

// NewEncoder returns an Encoder that rejects files above maxBytes.
func NewEncoder(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{maxBytes: maxBytes}
}

// MaxBytes reports the configured upload cap.
func (e *Encoder) MaxBytes() int64 {
	return e.maxBytes
}

// Encode reads the whole upload, checks it is a PDF and base64-encodes it.
func (e *Encoder) Encode(up Upload) (Document, error) {
	if up.Reader == nil {
		return Document{}, fmt.Errorf("%w: no file provided", ErrInvalidDocument)
	}
	if up.ContentType != "" {
		mediaType, _, err := mime.ParseMediaType(up.ContentType)
		if err != nil || mediaType != MIMEType {
			return Document{}, fmt.Errorf("%w: content type %q is not %s", ErrInvalidDocument, up.ContentType, MIMEType)
		}
	}

	data, err := io.ReadAll(io.LimitReader(up.Reader, e.maxBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidDocument)
	}
	if int64(len(data)) > e.maxBytes {
		return Document{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidDocument, e.maxBytes)
	}
	if detected := mimetype.Detect(data); !detected.Is(MIMEType) {
		return Document{}, fmt.Errorf("%w: content looks like %s", ErrInvalidDocument, detected.String())
	}

	pages, preview := inspect(data)
	return Document{
		Name:    cleanName(up.Name),
		Encoded: base64.StdEncoding.EncodeToString(data),
		Size:    int64(len(data)),
		Pages:   pages,
		Preview: preview,
	}, nil
}

// EncodeFile opens a local path and encodes it. The content type is guessed
// from the extension so that, for example, a .txt file is rejected up front.
func (e *Encoder) EncodeFile(path string) (Document, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Document{}, fmt.Errorf("%w: no file provided", ErrInvalidDocument)
	}
	file, err := os.Open(expandHome(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s does not exist", ErrInvalidDocument, path)
		}
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Document{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%w: %s is a directory", ErrInvalidDocument, path)
	}

	return e.Encode(Upload{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Reader:      file,
	})
}

// inspect extracts the page count and a short text preview. Both are best
// effort; ledongthuc/pdf panics on some malformed cross-reference tables.
func inspect(data []byte) (pages int, preview string) {
	defer func() {
		if recover() != nil {
			pages, preview = 0, ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, ""
	}
	pages = reader.NumPage()

	plain, err := reader.GetPlainText()
	if err != nil {
		return pages, ""
	}
	var builder strings.Builder
	if _, err := io.Copy(&builder, io.LimitReader(plain, previewLimit*4)); err != nil {
		return pages, ""
	}
	text := extraneousWhitespace.ReplaceAllString(builder.String(), " ")
	return pages, clipRunes(strings.TrimSpace(text), previewLimit)
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallbackName
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return fallbackName
	}
	return name
}

func clipRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
