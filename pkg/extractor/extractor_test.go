package extractor_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/docembed/internal/errortypes"
	"github.com/xhad/docembed/internal/models"
	"github.com/xhad/docembed/pkg/extractor"
)

// buildPDF writes a minimal PDF with one line of Helvetica text per page.
func buildPDF(pages []string) []byte {
	var buf bytes.Buffer
	var offsets []int
	add := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	n := len(pages)
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+i)
	}

	buf.WriteString("%PDF-1.4\n")
	add("<< /Type /Catalog /Pages 2 0 R >>")
	add(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i := range pages {
		add(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 4+n+i))
	}
	for _, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestPlainText(t *testing.T) {
	e := extractor.New()

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"utf-8", []byte("héllo wörld"), "héllo wörld"},
		{"latin-1", []byte("caf\xe9 na\xefve"), "café naïve"},
		{"cp1252 smart quotes", []byte("\x93quoted\x94 text"), "“quoted” text"},
		{"latin-1 with ctrl-z eof", []byte("caf\xe9\x1a"), "café\x1a"},
		{"latin-1 with nul", []byte("caf\xe9\x00x"), "café\x00x"},
		{"latin-1 with ansi escape", []byte("na\xefve\x1b[0m"), "naïve\x1b[0m"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.PlainText(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlainTextUndecodable(t *testing.T) {
	e := extractor.New()

	_, err := e.PlainText([]byte{'a', 0x81, 'b'})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errortypes.ErrDecode))
}

func TestUnknownFallbackEncoding(t *testing.T) {
	_, err := extractor.NewWithConfig(extractor.ExtractorConfig{
		FallbackEncodings: []string{"latin-1", "ebcdic"},
	})
	assert.Error(t, err)
}

func TestPDFTextPageMarkers(t *testing.T) {
	e := extractor.New()

	text, err := e.PDFText(buildPDF([]string{"Hello from page 1", "Hello from page 2", "Hello from page 3"}))
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(text, "--- Page "))
	p1 := strings.Index(text, "--- Page 1 ---")
	p2 := strings.Index(text, "--- Page 2 ---")
	p3 := strings.Index(text, "--- Page 3 ---")
	require.True(t, p1 >= 0 && p2 >= 0 && p3 >= 0)
	assert.True(t, p1 < p2 && p2 < p3)
	assert.True(t, strings.HasPrefix(text, "--- Page 1 ---"))
	assert.Contains(t, text, "Hello from page 2")
}

func TestPDFTextInvalid(t *testing.T) {
	e := extractor.New()

	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("this is plainly not a pdf document")},
		{"truncated", buildPDF([]string{"one"})[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.PDFText(tt.content)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errortypes.ErrExtraction))
		})
	}
}

func TestExtractDispatch(t *testing.T) {
	e := extractor.New()

	text, err := e.Extract(models.FormatText, []byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", text)

	_, err = e.Extract(models.Format("docx"), []byte("x"))
	assert.True(t, errors.Is(err, errortypes.ErrUnsupportedFormat))
}
