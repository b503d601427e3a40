// File: internal/domain/user.go
package domain

import (
	"errors"
	"strings"
)

// UserIdentity is what the identity provider tells us about the signed-in user.
// It is read-only for the rest of the application.
type UserIdentity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatarUrl"`
}

// Initial returns the upper-cased first letter of the display name, or "U".
func (u *UserIdentity) Initial() string {
	name := strings.TrimSpace(u.DisplayName)
	if name == "" {
		return "U"
	}
	return strings.ToUpper(string([]rune(name)[0]))
}

func (u *UserIdentity) IsValid() error {
	if strings.TrimSpace(u.UID) == "" {
		return errors.New("identity is missing a user id")
	}
	return nil
}
