// File: internal/domain/segment.go
package domain

// SegmentKind tags one unit of formatted output.
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentCode  SegmentKind = "code"
	SegmentImage SegmentKind = "image"
)

// Segment is a renderable piece of a message. Which fields are meaningful
// depends on Kind: Text uses Text; Code uses Language and Body; Image uses
// Alt and URL. Language and Alt are empty when absent.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Language string      `json:"language,omitempty"`
	Body     string      `json:"body,omitempty"`
	Alt      string      `json:"alt,omitempty"`
	URL      string      `json:"url,omitempty"`
}

func TextSegment(s string) Segment {
	return Segment{Kind: SegmentText, Text: s}
}

func CodeSegment(language, body string) Segment {
	return Segment{Kind: SegmentCode, Language: language, Body: body}
}

func ImageSegment(alt, url string) Segment {
	return Segment{Kind: SegmentImage, Alt: alt, URL: url}
}
