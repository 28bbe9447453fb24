package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/papergraph/paperd/pkg/perrors"
)

// htmlTextExtractor strips tags and scripts/styles from an HTML document,
// keeping only visible text, using golang.org/x/net/html's tokenizer
// rather than a regex strip. PDF/DOCX parsing proper is the out-of-scope
// "external collaborator" the overview calls out; HTML tag-stripping is
// thin enough to implement directly instead of stubbing it.
type htmlTextExtractor struct{}

func (htmlTextExtractor) extract(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", perrors.NewInvalidInput(fmt.Sprintf("parse html: %v", err))
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String()), nil
}

// pdfTextExtractor extracts plain text from a PDF buffer via
// github.com/ledongthuc/pdf. Real PDF parsing is one of the overview's
// explicit external collaborators; this default implementation exists so
// submissions don't hard-fail, but callers needing different fidelity can
// swap it via WithContentParser.
type pdfTextExtractor struct{}

func (pdfTextExtractor) extract(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", perrors.NewInvalidInput(fmt.Sprintf("parse pdf: %v", err))
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", perrors.NewInvalidInput("pdf contained no extractable text")
	}
	return out, nil
}

// defaultContentParser wires the direct HTML/plain-text handling plus the
// PDF default; application/json is handled separately by parseJSONContent
// since it carries structured bibliographic fields, not just body text.
type defaultContentParser struct {
	html htmlTextExtractor
	pdf  pdfTextExtractor
}

func newDefaultContentParser() *defaultContentParser {
	return &defaultContentParser{}
}

func (p *defaultContentParser) Parse(ctx context.Context, body []byte, contentType string) (string, map[string]interface{}, error) {
	switch classifyContentType(contentType, "") {
	case contentPlain:
		return string(body), nil, nil
	case contentHTML:
		text, err := p.html.extract(body)
		return text, nil, err
	case contentPDF:
		text, err := p.pdf.extract(body)
		return text, nil, err
	default:
		return "", nil, perrors.NewUnsupportedContentType(contentType)
	}
}
