package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLTextExtractorStripsTagsScriptsAndStyles(t *testing.T) {
	body := []byte(`<html><head><style>body{color:red}</style></head>
<body><script>alert(1)</script><h1>Title</h1><p>Hello <b>world</b>.</p></body></html>`)

	text, err := htmlTextExtractor{}.extract(body)
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "world")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestParseJSONContentRequiresText(t *testing.T) {
	_, err := parseJSONContent([]byte(`{"title": "no text field"}`))
	assert.Error(t, err)
}

func TestParseJSONContentExtractsFields(t *testing.T) {
	out, err := parseJSONContent([]byte(`{"text": "body text", "title": "T", "abstract": "A"}`))
	require.NoError(t, err)
	assert.Equal(t, "body text", out.Text)
	assert.Equal(t, "T", out.Title)
	assert.Equal(t, "A", out.Abstract)
}

func TestDefaultContentParserDispatchesByContentType(t *testing.T) {
	p := newDefaultContentParser()
	ctx := context.Background()

	text, _, err := p.Parse(ctx, []byte("plain text body"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "plain text body", text)

	_, _, err = p.Parse(ctx, []byte("whatever"), "application/octet-stream")
	require.Error(t, err)
}
