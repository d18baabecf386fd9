package content

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
	"golang.org/x/text/unicode/norm"
)

const markdownExtensions = blackfriday.NoIntraEmphasis |
	blackfriday.Tables |
	blackfriday.FencedCode |
	blackfriday.Autolink |
	blackfriday.Strikethrough |
	blackfriday.SpaceHeadings |
	blackfriday.HardLineBreak

// TextRenderer turns user input into the stored representation: Markdown
// bodies become sanitized HTML, titles become plain text.
type TextRenderer struct {
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
	}
}

// Text renders Markdown to HTML and drops anything the UGC policy does
// not allow.
func (r *TextRenderer) Text(markdown string) string {
	markdown = norm.NFC.String(strings.TrimSpace(markdown))
	if markdown == "" {
		return ""
	}

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.UseXHTML | blackfriday.Smartypants | blackfriday.SmartypantsFractions,
	})
	unsafe := blackfriday.Run([]byte(markdown),
		blackfriday.WithExtensions(markdownExtensions),
		blackfriday.WithRenderer(renderer))

	return strings.TrimSpace(string(r.ugc.SanitizeBytes(unsafe)))
}

// Title strips all markup and collapses whitespace.
func (r *TextRenderer) Title(s string) string {
	stripped := html.UnescapeString(r.strict.Sanitize(norm.NFC.String(s)))
	return strings.Join(strings.Fields(stripped), " ")
}

// Sanitize cleans HTML that did not come from Markdown, such as
// extracted articles.
func (r *TextRenderer) Sanitize(s string) string {
	return r.ugc.Sanitize(s)
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https")
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must have a host")
	}
	return u.String(), nil
}
