// Package model defines the data structures shared by the repository,
// service and handler layers.
package model

import "time"

// User is an account created on first Google sign-in.
//
// GoogleID is the "sub" claim of the Google ID token. It is stable for the
// lifetime of the Google account, so it is the lookup key on every later
// sign-in. Email and names can change on Google's side and are not used as
// identifiers.
type User struct {
	ID          string     `json:"id"`
	GoogleID    string     `json:"-"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	AvatarURL   *string    `json:"avatarUrl"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
