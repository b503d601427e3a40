// File: internal/services/threads/title.go
package threads

import "unicode/utf8"

const (
	// TitleMaxLength is the number of characters kept from the first user message.
	TitleMaxLength = 30
	// TitleEllipsis is appended when the first message was cut.
	TitleEllipsis = "..."

	maxRenameLength = 100
)

// DeriveTitle turns the first user message into a thread title.
func DeriveTitle(content string) string {
	if utf8.RuneCountInString(content) <= TitleMaxLength {
		return content
	}
	return string([]rune(content)[:TitleMaxLength]) + TitleEllipsis
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
