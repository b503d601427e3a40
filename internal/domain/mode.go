// File: internal/domain/mode.go
package domain

import "fmt"

// Mode selects the capability the gateway should use for a request.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeImage Mode = "image"
	ModeCode  Mode = "code"
)

// ParseMode maps a request value onto a Mode. An empty value means chat.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeChat:
		return ModeChat, nil
	case ModeImage:
		return ModeImage, nil
	case ModeCode:
		return ModeCode, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeChat || m == ModeImage || m == ModeCode
}

// MessageKind returns the rendering hint for replies produced in this mode.
func (m Mode) MessageKind() MessageKind {
	switch m {
	case ModeImage:
		return KindImage
	case ModeCode:
		return KindCode
	default:
		return KindText
	}
}
