// Package model holds the records the platform is built from: athletes,
// the connections between them, their messages and the games they organise.
// The types carry small helpers but no rules; those live in internal/engine.
package model

import "time"

// Location is where a user plays. Only City takes part in matching; the
// coordinates are kept for display and as the default location of games
// the user creates.
type Location struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// User is a completed athlete profile.
//
// The ID is fixed when the profile is completed and is the same as the
// Account ID the person logged in with. Every other field can be changed,
// but only by the owner (see session.UpdateProfile).
type User struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Avatar   string          `json:"avatar"`
	Location Location        `json:"location"`
	Sports   []Sport         `json:"sports"`
	Level    ExperienceLevel `json:"experienceLevel"`
	Role     Role            `json:"role"`
	Bio      string          `json:"bio,omitempty"`
	Joined   time.Time       `json:"joined"`
}

// PlaysAny reports whether u plays at least one of the given sports.
func (u User) PlaysAny(sports []Sport) bool {
	for _, mine := range u.Sports {
		for _, theirs := range sports {
			if mine == theirs {
				return true
			}
		}
	}
	return false
}

// Clone returns a copy of u that shares no slices with the original.
func (u User) Clone() User {
	u.Sports = append([]Sport(nil), u.Sports...)
	return u
}

// ExperienceLevel is ordered: beginner < intermediate < advanced.
type ExperienceLevel string

const (
	LevelBeginner     ExperienceLevel = "beginner"
	LevelIntermediate ExperienceLevel = "intermediate"
	LevelAdvanced     ExperienceLevel = "advanced"
)

// Rank returns the position of the level in the ordering, or -1 for an
// unknown level.
func (l ExperienceLevel) Rank() int {
	switch l {
	case LevelBeginner:
		return 0
	case LevelIntermediate:
		return 1
	case LevelAdvanced:
		return 2
	}
	return -1
}

func (l ExperienceLevel) Valid() bool { return l.Rank() >= 0 }

// AtLeast reports whether l is the same as or above min.
func (l ExperienceLevel) AtLeast(min ExperienceLevel) bool {
	return l.Rank() >= min.Rank()
}

type Role string

const (
	RolePlayer Role = "player"
	RoleCoach  Role = "coach"
)

func (r Role) Valid() bool {
	return r == RolePlayer || r == RoleCoach
}
