package models

import (
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

var extensionFormats = map[string]Format{
	".txt": FormatText,
	".pdf": FormatPDF,
}

// FormatFor maps a lower-cased extension to its format.
func FormatFor(ext string) (Format, bool) {
	f, ok := extensionFormats[ext]
	return f, ok
}

func SupportedExtensions() []string {
	return []string{".txt", ".pdf"}
}

// Document is one uploaded file. It lives for a single request.
type Document struct {
	Filename string
	Content  []byte
}

// Extension returns the lower-cased file extension including the dot.
func (d Document) Extension() string {
	return strings.ToLower(filepath.Ext(d.Filename))
}

// Name returns the declared file name, or "unknown" when none was given.
func (d Document) Name() string {
	if d.Filename == "" {
		return "unknown"
	}
	return d.Filename
}

type ChunkEmbedding struct {
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
	TokenCount int       `json:"token_count"`
}

// PipelineResult is the response for an uploaded document. TotalTokens is
// the sum of per-chunk counts, so overlapping tokens are counted once per
// chunk they appear in.
type PipelineResult struct {
	Filename    string           `json:"filename"`
	FileType    string           `json:"file_type"`
	Format      Format           `json:"format"`
	TotalChunks int              `json:"total_chunks"`
	TotalTokens int              `json:"total_tokens"`
	Embeddings  []ChunkEmbedding `json:"embeddings"`
}

type Preview struct {
	Filename      string `json:"filename"`
	FileType      string `json:"file_type"`
	Format        Format `json:"format"`
	ContentLength int    `json:"content_length"`
	Preview       string `json:"preview"`
}

type Embedding struct {
	Embedding []float32 `json:"embedding"`
	Dim       int       `json:"dim"`
}
