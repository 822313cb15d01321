package processor_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/docembed/pkg/processor"
	"github.com/xhad/docembed/pkg/tokenizer"
)

// runeTokenizer treats every rune as one token, so decoding is lossless.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	tokens := make([]int, 0, len(text))
	for _, r := range text {
		tokens = append(tokens, int(r))
	}
	return tokens
}

func (runeTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}

func (r runeTokenizer) Count(text string) int {
	return len(r.Encode(text))
}

func TestChunkEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t \n"} {
		assert.Empty(t, processor.Chunk(runeTokenizer{}, text, 10, 2))
	}
}

func TestChunkShortTextReturnedVerbatim(t *testing.T) {
	text := "  short text\n"
	chunks := processor.Chunk(runeTokenizer{}, text, len(text), 3)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkCoversInputWithoutGaps(t *testing.T) {
	tests := []struct {
		n, size, overlap int
		want             int
	}{
		{n: 25, size: 10, overlap: 2, want: 3},
		{n: 21, size: 10, overlap: 0, want: 3},
		{n: 20, size: 10, overlap: 0, want: 2},
		{n: 100, size: 10, overlap: 9, want: 91},
		{n: 11, size: 10, overlap: 5, want: 2},
		{n: 1000, size: 800, overlap: 100, want: 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/size=%d/overlap=%d", tt.n, tt.size, tt.overlap), func(t *testing.T) {
			text := strings.Repeat("abcdefghij", tt.n/10+1)[:tt.n]
			chunks := processor.Chunk(runeTokenizer{}, text, tt.size, tt.overlap)
			require.Len(t, chunks, tt.want)

			rebuilt := chunks[0]
			for i, c := range chunks {
				assert.LessOrEqual(t, len(c), tt.size, "chunk %d exceeds window", i)
				if i > 0 {
					assert.Equal(t, chunks[i-1][len(chunks[i-1])-tt.overlap:], c[:tt.overlap], "chunk %d overlap", i)
					rebuilt += c[tt.overlap:]
				}
			}
			assert.Equal(t, text, rebuilt)
		})
	}
}

func TestChunkDegenerateOverlapTerminates(t *testing.T) {
	text := strings.Repeat("x", 50)

	for _, overlap := range []int{10, 11, 500} {
		chunks := processor.Chunk(runeTokenizer{}, text, 10, overlap)
		require.Len(t, chunks, 1)
		assert.Equal(t, strings.Repeat("x", 10), chunks[0])
	}
}

func TestNewWithConfig(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{}, runeTokenizer{})
	require.NoError(t, err)
	assert.Equal(t, 800, p.Config().ChunkSize)
	assert.Equal(t, 100, p.Config().ChunkOverlap)

	p, err = processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 400, ChunkOverlap: 40}, runeTokenizer{})
	require.NoError(t, err)
	assert.Equal(t, processor.ProcessorConfig{ChunkSize: 400, ChunkOverlap: 40}, p.Config())

	_, err = processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: -1}, runeTokenizer{})
	assert.Error(t, err)

	_, err = processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 10, ChunkOverlap: -1}, runeTokenizer{})
	assert.Error(t, err)

	_, err = processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 10}, nil)
	assert.Error(t, err)
}

func TestProcessor_SplitWithTiktoken(t *testing.T) {
	tok, err := tokenizer.New()
	require.NoError(t, err)

	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 800, ChunkOverlap: 100}, tok)
	require.NoError(t, err)

	text := strings.Repeat(" hello", 1000)
	require.Equal(t, 1000, tok.Count(text))

	chunks, err := p.Split(text)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 800, tok.Count(chunks[0]))
	assert.Equal(t, 300, tok.Count(chunks[1]))
}
