// Package moderation screens user-written content and prepares it for
// storage and sharing.
package moderation

import (
	"html"
	"net/url"
	"regexp"
	"slices"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// DefaultFlaggedTerms are rejected wherever they appear, case-insensitively.
var DefaultFlaggedTerms = []string{"inappropriate", "offensive"}

// ErrFlagged is returned for content containing a flagged term.
var ErrFlagged = domainerrors.Validation("Content may be inappropriate")

// Moderator checks and cleans content. It is safe for concurrent use.
type Moderator struct {
	terms []string
	plain *bluemonday.Policy
	rich  *bluemonday.Policy
}

// New returns a moderator rejecting the default terms plus extra.
func New(extra ...string) *Moderator {
	terms := slices.Clone(DefaultFlaggedTerms)
	for _, t := range extra {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && !slices.Contains(terms, t) {
			terms = append(terms, t)
		}
	}

	rich := bluemonday.NewPolicy()
	rich.AllowElements("p", "br", "ul", "ol", "li", "blockquote", "pre", "code", "strong", "em")
	rich.AllowAttrs("href").OnElements("a")
	rich.AllowURLSchemes("https")
	rich.AllowRelativeURLs(false)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	rich.RequireNoReferrerOnLinks(true)

	return &Moderator{terms: terms, plain: bluemonday.StrictPolicy(), rich: rich}
}

// Check rejects content containing a flagged term.
func (m *Moderator) Check(content string) error {
	lower := strings.ToLower(content)
	for _, t := range m.terms {
		if strings.Contains(lower, t) {
			return ErrFlagged
		}
	}
	return nil
}

// Plain strips all markup, leaving plain text.
func (m *Moderator) Plain(content string) string {
	return strings.TrimSpace(html.UnescapeString(m.plain.Sanitize(content)))
}

// Rich keeps a small set of formatting tags and https links.
func (m *Moderator) Rich(content string) string {
	return strings.TrimSpace(m.rich.Sanitize(content))
}

// Clean checks content and returns it as plain text.
func (m *Moderator) Clean(content string) (string, error) {
	if err := m.Check(content); err != nil {
		return "", err
	}
	out := m.Plain(content)
	if out == "" {
		return "", domainerrors.Validation("Content cannot be empty")
	}
	return out, nil
}

var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote|pre|code)[\s>/]`)

// ToMarkdown converts formatted content to Markdown. Text without markup is
// returned unchanged.
func ToMarkdown(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}

// Share is the text and network links for sharing an idea.
type Share struct {
	URL      string `json:"url"`
	Text     string `json:"text"`
	Markdown string `json:"markdown"`
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
	LinkedIn string `json:"linkedin"`
}

// ShareText builds share text and links for an idea page at link.
func ShareText(title, description, link string) Share {
	desc := ToMarkdown(description)
	text := `Check out "` + title + `"`
	if plain := firstLine(desc); plain != "" {
		text += " - " + plain
	}

	md := "**" + title + "**"
	if desc != "" {
		md += "\n\n" + desc
	}
	md += "\n\n" + link

	return Share{
		URL:      link,
		Text:     text,
		Markdown: md,
		Twitter:  "https://twitter.com/intent/tweet?text=" + url.QueryEscape(text) + "&url=" + url.QueryEscape(link),
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + url.QueryEscape(link),
		LinkedIn: "https://www.linkedin.com/sharing/share-offsite/?url=" + url.QueryEscape(link),
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
