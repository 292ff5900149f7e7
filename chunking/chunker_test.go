package chunking

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/sift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBody(tokens int) string {
	words := make([]string, tokens)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func makeDocument(body string) *core.Document {
	return &core.Document{
		Id:          "blog/intro-to-x",
		Title:       "Intro to X",
		Category:    "blog",
		Slug:        "intro-to-x",
		Tags:        []string{"x", "intro"},
		PublishDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Body:        body,
	}
}

func TestNew_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Nil(t, c)
		})
	}
}

func TestChunk_SecondChunkStartsAtStride(t *testing.T) {
	c, err := New(512, 50)
	require.NoError(t, err)

	chunks := c.Chunk(makeDocument(makeBody(600)))
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].StartToken)
	assert.Equal(t, 512, chunks[0].TokenCount)
	assert.Equal(t, 462, chunks[1].StartToken)
	assert.Equal(t, 138, chunks[1].TokenCount)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "w462 "))
	assert.True(t, strings.HasSuffix(chunks[1].Text, " w599"))
}

func TestChunk_SingleChunkWhenBodyFits(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	for _, n := range []int{1, 5, 10} {
		chunks := c.Chunk(makeDocument(makeBody(n)))
		require.Len(t, chunks, 1, "body of %d tokens", n)
		assert.Equal(t, n, chunks[0].TokenCount)
	}
}

func TestChunk_EmptyBody(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	assert.Empty(t, c.Chunk(makeDocument("")))
	assert.Empty(t, c.Chunk(makeDocument(" \n\t ")))
}

func TestChunk_CoverageAndOverlap(t *testing.T) {
	configs := []struct{ size, overlap, tokens int }{
		{10, 3, 57},
		{10, 0, 30},
		{7, 6, 20},
		{512, 50, 2000},
		{4, 1, 5},
	}

	for _, cfg := range configs {
		t.Run(fmt.Sprintf("size=%d overlap=%d tokens=%d", cfg.size, cfg.overlap, cfg.tokens), func(t *testing.T) {
			c, err := New(cfg.size, cfg.overlap)
			require.NoError(t, err)

			body := makeBody(cfg.tokens)
			expected := strings.Fields(body)
			chunks := c.Chunk(makeDocument(body))
			require.NotEmpty(t, chunks)

			var rebuilt []string
			for i, chunk := range chunks {
				words := strings.Fields(chunk.Text)
				assert.Equal(t, chunk.TokenCount, len(words))
				assert.LessOrEqual(t, chunk.TokenCount, cfg.size)
				assert.Equal(t, i, chunk.Ordinal)

				if i == 0 {
					rebuilt = append(rebuilt, words...)
					continue
				}

				// Shared tokens with the previous chunk equal the overlap.
				prev := chunks[i-1]
				shared := prev.StartToken + prev.TokenCount - chunk.StartToken
				assert.Equal(t, cfg.overlap, shared, "chunk %d", i)
				assert.Equal(t, expected[chunk.StartToken:chunk.StartToken+shared], words[:shared])

				rebuilt = append(rebuilt, words[shared:]...)
			}
			assert.Equal(t, expected, rebuilt, "chunks must reconstruct the token sequence")
		})
	}
}

func TestChunk_InheritsMetadata(t *testing.T) {
	c, err := New(3, 1)
	require.NoError(t, err)

	doc := makeDocument("alpha  beta\ngamma delta epsilon")
	chunks := c.Chunk(doc)
	require.Len(t, chunks, 2)

	first := chunks[0]
	assert.Equal(t, "blog/intro-to-x#0000", first.Id)
	assert.Equal(t, doc.Id, first.DocumentId)
	assert.Equal(t, "blog", first.Category)
	assert.Equal(t, "intro-to-x", first.Slug)
	assert.Equal(t, "Intro to X", first.Title)
	assert.Equal(t, doc.Tags, first.Tags)
	assert.Equal(t, doc.PublishDate, first.PublishDate)
	assert.Equal(t, "alpha  beta\ngamma", first.Text, "original spacing is kept")
	assert.Equal(t, core.ContentHash(first.Text), first.ContentHash)

	assert.Equal(t, "gamma delta epsilon", chunks[1].Text)
	assert.Equal(t, "blog/intro-to-x#0001", chunks[1].Id)
}

func TestTokenize(t *testing.T) {
	text := "  héllo\twörld \n"
	tokens := Tokenize(text)
	require.Len(t, tokens, 2)
	assert.Equal(t, "héllo", text[tokens[0].Start:tokens[0].End])
	assert.Equal(t, "wörld", text[tokens[1].Start:tokens[1].End])
}
