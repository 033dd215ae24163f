package ai

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// AllowedTags are the only elements a drafted reply may contain.
var AllowedTags = []string{"p", "strong", "em", "ul", "li"}

var (
	fencePattern      = regexp.MustCompile("(?s)^```[A-Za-z0-9_+-]*[ \t]*\r?\n(.*?)\r?\n?```$")
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	listMarkerPattern = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s+`)
)

// Sanitizer normalizes model output to the allowed HTML subset.
type Sanitizer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewSanitizer builds the markdown renderer and the allowlist policy.
func NewSanitizer() *Sanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements(AllowedTags...)

	return &Sanitizer{
		md:     goldmark.New(goldmark.WithRendererOptions(html.WithUnsafe())),
		policy: policy,
	}
}

// Clean converts markdown output to HTML when needed and strips everything
// outside the allowlist. A surrounding code fence is dropped first, and
// markdown left inside HTML text is rendered as well.
func (s *Sanitizer) Clean(text string) (string, error) {
	text = unfence(strings.TrimSpace(text))
	if text == "" {
		return "", nil
	}
	if !strings.HasPrefix(text, "<") {
		rendered, err := s.render(text)
		if err != nil {
			return "", err
		}
		text = rendered
	}

	text, err := s.renderTextNodes(s.policy.Sanitize(text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s.policy.Sanitize(text)), nil
}

func (s *Sanitizer) render(text string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// renderTextNodes runs markdown over the text between tags of already
// sanitized HTML. List markers directly after <li> are dropped.
func (s *Sanitizer) renderTextNodes(sanitized string) (string, error) {
	var (
		out     strings.Builder
		prevTag string
		last    int
	)
	flush := func(segment string) error {
		core := strings.TrimSpace(segment)
		if core == "" {
			out.WriteString(segment)
			return nil
		}
		lead := segment[:strings.Index(segment, core)]
		trail := segment[len(lead)+len(core):]
		if prevTag == "<li>" {
			core = listMarkerPattern.ReplaceAllString(core, "")
		}
		rendered, err := s.render(core)
		if err != nil {
			return err
		}
		out.WriteString(lead)
		out.WriteString(unwrapParagraph(rendered))
		out.WriteString(trail)
		return nil
	}

	for _, loc := range htmlTagPattern.FindAllStringIndex(sanitized, -1) {
		if err := flush(sanitized[last:loc[0]]); err != nil {
			return "", err
		}
		prevTag = sanitized[loc[0]:loc[1]]
		out.WriteString(prevTag)
		last = loc[1]
	}
	if err := flush(sanitized[last:]); err != nil {
		return "", err
	}
	return out.String(), nil
}

func unfence(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// unwrapParagraph strips the <p> goldmark puts around a single inline run.
func unwrapParagraph(rendered string) string {
	rendered = strings.TrimSpace(rendered)
	inner, ok := strings.CutPrefix(rendered, "<p>")
	if !ok {
		return rendered
	}
	inner, ok = strings.CutSuffix(inner, "</p>")
	if !ok || strings.Contains(inner, "<p>") {
		return rendered
	}
	return inner
}
