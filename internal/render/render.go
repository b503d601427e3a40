// File: internal/render/render.go

// Package render turns formatted message segments into HTML for the chat page.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/altracloud/altrachat/internal/domain"
	"github.com/altracloud/altrachat/internal/services/format"
)

const DefaultStyle = "monokai"

// Renderer writes segments as HTML. Text is treated as Markdown with raw
// HTML dropped, code is syntax highlighted and images become <img> tags.
type Renderer struct {
	md        goldmark.Markdown
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func NewRenderer(styleName string) *Renderer {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		style:     style,
		formatter: chromahtml.New(chromahtml.TabWidth(4)),
	}
}

// Message formats and renders a stored message.
func (r *Renderer) Message(msg domain.Message) (template.HTML, error) {
	return r.Segments(format.FormatMessage(msg))
}

func (r *Renderer) Segments(segments []domain.Segment) (template.HTML, error) {
	var buf bytes.Buffer
	for _, seg := range segments {
		var err error
		switch seg.Kind {
		case domain.SegmentText:
			err = r.text(&buf, seg.Text)
		case domain.SegmentCode:
			err = r.code(&buf, seg.Language, seg.Body)
		case domain.SegmentImage:
			r.image(&buf, seg.Alt, seg.URL)
		default:
			err = fmt.Errorf("unknown segment kind %q", seg.Kind)
		}
		if err != nil {
			return "", err
		}
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) text(buf *bytes.Buffer, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return r.md.Convert([]byte(text), buf)
}

func (r *Renderer) code(buf *bytes.Buffer, language, body string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(body)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, body)
	if err != nil {
		return fmt.Errorf("tokenise code: %w", err)
	}

	label := language
	if label == "" {
		label = "code"
	}
	fmt.Fprintf(buf, `<div class="code-block"><div class="code-header">%s</div>`, template.HTMLEscapeString(label))
	if err := r.formatter.Format(buf, r.style, iterator); err != nil {
		return fmt.Errorf("highlight code: %w", err)
	}
	buf.WriteString(`</div>`)
	return nil
}

func (r *Renderer) image(buf *bytes.Buffer, alt, src string) {
	if !safeImageURL(src) {
		buf.WriteString(`<p>`)
		buf.WriteString(template.HTMLEscapeString(alt))
		buf.WriteString(`</p>`)
		return
	}
	fmt.Fprintf(buf, `<img class="chat-image" src="%s" alt="%s" loading="lazy">`,
		template.HTMLEscapeString(src), template.HTMLEscapeString(alt))
}

func safeImageURL(src string) bool {
	if strings.HasPrefix(src, "data:image/") {
		return true
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
