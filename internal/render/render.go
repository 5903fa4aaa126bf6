// Package render turns markdown replies into HTML for the web page and ANSI text for the terminal.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"buiq-backend/internal/models"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	policy = bluemonday.UGCPolicy()
)

// HTML converts markdown to sanitized HTML. Raw HTML in the source is escaped by
// goldmark and anything that slips through is stripped by the UGC policy.
func HTML(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return policy.Sanitize("<p>" + src + "</p>")
	}
	return policy.Sanitize(buf.String())
}

// BotHTML sets the HTML field on bot messages. It matches services.Presenter.
func BotHTML(msg models.Message) models.Message {
	if msg.Sender == models.SenderBot {
		msg.HTML = HTML(msg.Text)
	}
	return msg
}

// Terminal renders markdown for a terminal of the given width.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal builds a glamour renderer. An empty style picks one from the terminal background.
func NewTerminal(width int, style string) (*Terminal, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Terminal{renderer: r}, nil
}

func (t *Terminal) Render(src string) string {
	out, err := t.renderer.Render(src)
	if err != nil {
		return src
	}
	return strings.TrimRight(out, "\n")
}
