package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/xhad/docembed/internal/errortypes"
	"github.com/xhad/docembed/internal/models"
)

var knownEncodings = map[string]encoding.Encoding{
	"latin-1":      charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"iso-8859-15":  charmap.ISO8859_15,
}

type ExtractorConfig struct {
	// FallbackEncodings are tried in order when the input is not UTF-8.
	FallbackEncodings []string
}

type fallback struct {
	name string
	enc  encoding.Encoding
}

// Extractor turns raw document bytes into text.
type Extractor struct {
	fallbacks []fallback
}

func NewWithConfig(config ExtractorConfig) (*Extractor, error) {
	if len(config.FallbackEncodings) == 0 {
		config.FallbackEncodings = []string{"latin-1", "cp1252", "iso-8859-1"}
	}

	fallbacks := make([]fallback, 0, len(config.FallbackEncodings))
	for _, name := range config.FallbackEncodings {
		enc, ok := knownEncodings[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown fallback encoding: %s", name)
		}
		fallbacks = append(fallbacks, fallback{name: name, enc: enc})
	}

	return &Extractor{fallbacks: fallbacks}, nil
}

func New() *Extractor {
	e, _ := NewWithConfig(ExtractorConfig{})
	return e
}

func (e *Extractor) Extract(format models.Format, content []byte) (string, error) {
	switch format {
	case models.FormatText:
		return e.PlainText(content)
	case models.FormatPDF:
		return e.PDFText(content)
	}
	return "", errortypes.UnsupportedFormat(string(format), models.SupportedExtensions())
}

// PlainText decodes UTF-8 and falls back through the legacy encodings in
// order. A legacy decode only counts when it yields no replacement
// characters and no C1 controls (U+0080-U+009F), the range where the
// single-byte encodings disagree.
func (e *Extractor) PlainText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}

	var tried []string
	for _, fb := range e.fallbacks {
		text, err := fb.enc.NewDecoder().Bytes(content)
		if err == nil && isPlausibleText(text) {
			return string(text), nil
		}
		tried = append(tried, fb.name)
	}

	return "", errortypes.Decode(fmt.Errorf("not valid utf-8, tried %s", strings.Join(tried, ", ")))
}

func isPlausibleText(text []byte) bool {
	for _, r := range string(text) {
		if r == utf8.RuneError || (r >= 0x80 && r <= 0x9f) {
			return false
		}
	}
	return true
}

// PDFText reads the document in memory, page by page, prefixing each page
// with a "--- Page N ---" marker.
func (e *Extractor) PDFText(content []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errortypes.Extraction(fmt.Errorf("pdf parser: %v", r))
		}
	}()

	if len(content) == 0 {
		return "", errortypes.Extraction(errors.New("empty pdf"))
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", errortypes.Extraction(err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i)

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", errortypes.Extraction(fmt.Errorf("page %d: %w", i, err))
		}
		b.WriteString(pageText)
	}

	return strings.TrimSpace(b.String()), nil
}
