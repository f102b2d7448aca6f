// Package export writes analysis documents as downloadable files: PDF, HWPX, Word
// compatible HTML, print HTML and an Excel vocabulary workbook.
package export

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/render"
)

// Format is an export file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHWPX Format = "hwpx"
	FormatWord Format = "doc"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeHWPX = "application/hwp+zip"
	contentTypeWord = "application/msword"
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultTitle = "분석자료"
)

// Section headings shared by every document format.
const (
	headingSentences  = "1. 문장 분석"
	headingStructure  = "2. 구조 분석"
	headingVocabulary = "3. 핵심 어휘"

	emptyStructure  = "구조 분석 자료가 없습니다."
	emptyVocabulary = "어휘 자료가 없습니다."
)

var (
	// ErrNoDocument is returned when there is nothing to export.
	ErrNoDocument = errors.New("no analysis document to export")
	// ErrUnsupportedFormat is returned for unknown format names.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrFontRequired is returned for PDF exports when no UTF-8 font is configured.
	// The PDF core fonts cannot draw Hangul.
	ErrFontRequired = errors.New("pdf export needs a UTF-8 font with Hangul glyphs")
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatPDF, FormatHWPX, FormatWord, FormatHTML, FormatXLSX}
}

// ParseFormat reads a format name such as "pdf" or ".hwpx".
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// File is a generated download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Options configures an Exporter.
type Options struct {
	FontPath   string           // UTF-8 TrueType font with Hangul glyphs; PDF export fails without one
	LegacyHWPX bool             // emit Word-compatible HTML under the .hwpx name
	TempDir    string           // parent of scratch render targets; os.TempDir() if empty
	Now        func() time.Time // document timestamps; time.Now if nil
}

// Exporter renders documents to files. It is safe for concurrent use.
type Exporter struct {
	font       []byte
	fontSum    string
	legacyHWPX bool
	tempDir    string
	now        func() time.Time
}

// NewExporter creates an exporter, loading the PDF font if one is configured.
func NewExporter(opts Options) (*Exporter, error) {
	e := &Exporter{
		legacyHWPX: opts.LegacyHWPX,
		tempDir:    opts.TempDir,
		now:        opts.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if opts.FontPath != "" {
		font, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("reading export font: %w", err)
		}
		e.font = font
		sum := blake2b.Sum256(font)
		e.fontSum = hex.EncodeToString(sum[:4])
	}
	return e, nil
}

// SupportsPDF reports whether a font for PDF output is loaded.
func (e *Exporter) SupportsPDF() bool {
	return len(e.font) > 0
}

// ETag returns the entity tag of exporting doc under title as format. It changes
// with the document content, the title and the exporter settings that shape output.
func (e *Exporter) ETag(doc *analysis.Document, title string, format Format) string {
	h, _ := blake2b.New256(nil)
	for _, part := range []string{
		analysis.Fingerprint(doc),
		Filename(title, format),
		strconv.FormatBool(e.legacyHWPX),
		e.fontSum,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return strconv.Quote(hex.EncodeToString(h.Sum(nil)[:16]) + "-" + string(format))
}

// Export renders doc as format. The file is named "{title}.{ext}".
func (e *Exporter) Export(ctx context.Context, doc *analysis.Document, title string, format Format) (*File, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	view := render.Render(doc, render.ModeFull)
	name := strings.TrimSuffix(Filename(title, format), "."+string(format))

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatPDF:
		if !e.SupportsPDF() {
			return nil, ErrFontRequired
		}
		data, err = e.pdf(view, name)
		contentType = contentTypePDF
	case FormatHWPX:
		if e.legacyHWPX {
			data, err = wordHTML(view, name)
			contentType = contentTypeWord
		} else {
			data, err = e.hwpx(view, name)
			contentType = contentTypeHWPX
		}
	case FormatWord:
		data, err = wordHTML(view, name)
		contentType = contentTypeWord
	case FormatHTML:
		data, err = printHTML(view, name)
		contentType = contentTypeHTML
	case FormatXLSX:
		data, err = vocabularyWorkbook(view)
		contentType = contentTypeXLSX
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("exporting %s: %w", format, err)
	}

	slog.Info("analysis exported",
		"format", string(format),
		"bytes", len(data),
		"sentences", len(view.Sentences),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &File{
		Name:        Filename(title, format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ExportPDF renders doc as "{title}.pdf".
func (e *Exporter) ExportPDF(ctx context.Context, doc *analysis.Document, title string) (*File, error) {
	return e.Export(ctx, doc, title, FormatPDF)
}

// ExportHWPX renders doc as "{title}.hwpx".
func (e *Exporter) ExportHWPX(ctx context.Context, doc *analysis.Document, title string) (*File, error) {
	return e.Export(ctx, doc, title, FormatHWPX)
}

// Filename returns the download name for title in format. Only path separators and
// control characters are replaced; an empty title falls back to a generic name.
func Filename(title string, format Format) string {
	name := strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, title))
	if name == "" {
		name = defaultTitle
	}
	return name + "." + string(format)
}
