package parser

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLExtractor(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Ignored</title><style>p{}</style></head><body>
<h1>Service   Agreement</h1>
<p>Either party may terminate
   this agreement at any time.</p>
<ul><li>Item <b>one</b></li><li><p>Nested paragraph</p></li></ul>
<script>alert("x")</script>
</body></html>`

	text, err := NewHTMLExtractor().Extract(context.Background(), []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Service Agreement\n\nEither party may terminate this agreement at any time.\n\nItem one\n\nNested paragraph", text)
}

func TestHTMLExtractorFallsBackToBody(t *testing.T) {
	t.Parallel()

	text, err := NewHTMLExtractor().Extract(context.Background(), []byte(`<div>Just   some <span>text</span></div>`))
	require.NoError(t, err)
	assert.Equal(t, "Just some text", text)
}

func TestHTMLExtractorHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTMLExtractor().Extract(ctx, []byte("<p>x</p>"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextExtractor(t *testing.T) {
	t.Parallel()

	ex := NewTextExtractor()
	assert.Equal(t, "text", ex.Format())

	text, err := ex.Extract(context.Background(), []byte("\xEF\xBB\xBFline one\r\nline two\rline three"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\nline three", text)

	_, err = ex.Extract(context.Background(), []byte{0xff, 0xfe, 0xfd})
	assert.Error(t, err)
}

func TestSplitterRespectsChunkSize(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("The Supplier shall deliver the services described in Schedule A. ", 8)
	text := strings.Join([]string{paragraph, paragraph, paragraph}, "\n\n")

	chunks, err := NewSplitter(200, 50).SplitText(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}
