package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/engine"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/repository"
)

const (
	MaxNameLength = 80
	MaxBioLength  = 500
)

// ProfileInput is what a user fills in on the profile form.
type ProfileInput struct {
	Name      string
	Avatar    string
	City      string
	Latitude  float64
	Longitude float64
	Sports    []model.Sport
	Level     model.ExperienceLevel
	Role      model.Role
	Bio       string
}

// normalize trims the free-text fields, drops repeated sports and checks
// every rule a profile must meet.
func (in ProfileInput) normalize() (ProfileInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.City = strings.TrimSpace(in.City)
	in.Avatar = strings.TrimSpace(in.Avatar)
	in.Bio = strings.TrimSpace(in.Bio)

	if in.Name == "" {
		return in, apperror.ValidationFailed("name", "name is required")
	}
	if len(in.Name) > MaxNameLength {
		return in, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if in.City == "" {
		return in, apperror.ValidationFailed("city", "city is required")
	}
	if in.Latitude < -90 || in.Latitude > 90 {
		return in, apperror.ValidationFailed("latitude", "latitude must be between -90 and 90")
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return in, apperror.ValidationFailed("longitude", "longitude must be between -180 and 180")
	}
	if len(in.Bio) > MaxBioLength {
		return in, apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}

	seen := make(map[model.Sport]bool, len(in.Sports))
	sports := make([]model.Sport, 0, len(in.Sports))
	for _, sp := range in.Sports {
		if !sp.Valid() {
			return in, apperror.ValidationFailed("sports", fmt.Sprintf("unknown sport %q", sp))
		}
		if !seen[sp] {
			seen[sp] = true
			sports = append(sports, sp)
		}
	}
	if len(sports) == 0 {
		return in, apperror.ValidationFailed("sports", "pick at least one sport")
	}
	in.Sports = sports

	if !in.Level.Valid() {
		return in, apperror.ValidationFailed("experienceLevel", fmt.Sprintf("unknown experience level %q", in.Level))
	}
	if !in.Role.Valid() {
		return in, apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", in.Role))
	}
	return in, nil
}

func (in ProfileInput) apply(u model.User) model.User {
	u.Name = in.Name
	u.Avatar = in.Avatar
	u.Location = model.Location{City: in.City, Latitude: in.Latitude, Longitude: in.Longitude}
	u.Sports = in.Sports
	u.Level = in.Level
	u.Role = in.Role
	u.Bio = in.Bio
	return u
}

// CompleteProfile creates the user record for an account that has just
// signed up. userID is the account ID; a second call for the same ID is a
// conflict, after which UpdateProfile is the way to change anything.
func (s *Session) CompleteProfile(ctx context.Context, userID, email string, in ProfileInput) (model.User, error) {
	if strings.TrimSpace(userID) == "" {
		return model.User{}, apperror.ValidationFailed("id", "user ID is required")
	}
	in, err := in.normalize()
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := engine.FindUser(s.state.Users, userID); exists {
		return model.User{}, apperror.Conflict("user", userID)
	}

	u := in.apply(model.User{
		ID:     userID,
		Email:  strings.TrimSpace(email),
		Joined: s.now(),
	})

	next := s.state
	next.Users = engine.PutUser(s.state.Users, u)
	if err := s.commit(next, "user", func(store repository.StateRepository) error {
		return store.SaveUser(ctx, u)
	}); err != nil {
		return model.User{}, err
	}

	s.logger.Info("profile completed",
		slog.String("userID", u.ID),
		slog.String("city", u.Location.City),
	)
	return u.Clone(), nil
}

// UpdateProfile changes the mutable profile fields. Only the owner may do
// this: actorID must equal targetID.
func (s *Session) UpdateProfile(ctx context.Context, actorID, targetID string, in ProfileInput) (model.User, error) {
	if actorID != targetID {
		return model.User{}, apperror.UnauthorizedAction("a profile can only be edited by its owner")
	}
	in, err := in.normalize()
	if err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.user(targetID)
	if err != nil {
		return model.User{}, err
	}
	u := in.apply(current)

	next := s.state
	next.Users = engine.PutUser(s.state.Users, u)
	if err := s.commit(next, "user", func(store repository.StateRepository) error {
		return store.SaveUser(ctx, u)
	}); err != nil {
		return model.User{}, err
	}

	s.logger.Info("profile updated", slog.String("userID", u.ID))
	return u.Clone(), nil
}
