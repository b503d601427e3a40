// File: internal/services/format/formatter.go

// Package format turns raw message text into renderable segments. It keeps no
// state; callers run it every time a message is displayed.
package format

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/altracloud/altrachat/internal/domain"
)

// Fence delimits code regions.
const Fence = "```"

var imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true,
}

// Format splits raw into text, code and image segments.
//
// Image references take precedence: when raw contains one, it is split on
// images only and fences are left as literal text. Otherwise fences split the
// text into alternating text (even positions) and code (odd positions).
func Format(raw string) []domain.Segment {
	if imagePattern.MatchString(raw) {
		return splitImages(raw)
	}
	if strings.Contains(raw, Fence) {
		return splitFences(raw)
	}
	return []domain.Segment{domain.TextSegment(raw)}
}

// FormatMessage is Format plus the whole-message image case: an assistant
// reply that is nothing but a data URI, or a URL produced in image mode or
// pointing at an image file, renders as a single image.
func FormatMessage(msg domain.Message) []domain.Segment {
	if msg.Sender == domain.SenderAssistant {
		if ref := strings.TrimSpace(msg.Content); isBareImage(ref, msg.Kind) {
			return []domain.Segment{domain.ImageSegment("", ref)}
		}
	}
	return Format(msg.Content)
}

func splitImages(raw string) []domain.Segment {
	var out []domain.Segment
	last := 0
	for _, m := range imagePattern.FindAllStringSubmatchIndex(raw, -1) {
		if text := raw[last:m[0]]; text != "" {
			out = append(out, domain.TextSegment(text))
		}
		out = append(out, domain.ImageSegment(raw[m[2]:m[3]], raw[m[4]:m[5]]))
		last = m[1]
	}
	if text := raw[last:]; text != "" {
		out = append(out, domain.TextSegment(text))
	}
	return out
}

func splitFences(raw string) []domain.Segment {
	parts := strings.Split(raw, Fence)
	out := make([]domain.Segment, 0, len(parts))
	for i, part := range parts {
		if i%2 == 0 {
			out = append(out, domain.TextSegment(part))
			continue
		}
		language, body, _ := strings.Cut(part, "\n")
		out = append(out, domain.CodeSegment(strings.TrimSpace(language), strings.TrimSpace(body)))
	}
	return out
}

func isBareImage(ref string, kind domain.MessageKind) bool {
	if ref == "" || strings.ContainsAny(ref, " \t\n") {
		return false
	}
	if strings.HasPrefix(ref, "data:image/") {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return kind == domain.KindImage || imageExtensions[strings.ToLower(path.Ext(u.Path))]
}
