package model

import "time"

// Account is the login record behind a user. It lives outside the social
// state: an account exists from the moment someone registers, while the
// matching User only exists once they complete their profile.
//
// An account is reachable by email + password, by GitHub, or both.
// GitHubID is 0 when the account has never logged in with GitHub, and
// PasswordHash is empty when it was created through GitHub alone.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"githubId,omitempty"`
	GitHubLogin  string    `json:"githubLogin,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
