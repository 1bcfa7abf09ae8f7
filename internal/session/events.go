package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/engine"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/repository"
)

const MaxTitleLength = 100

// EventInput is what the creator fills in on the "create game" form.
//
// LocationName, Latitude and Longitude are optional: when left out, the
// game takes place in the creator's own city at the creator's coordinates.
type EventInput struct {
	Title        string
	Sport        model.Sport
	Description  string
	LocationName string
	Latitude     *float64
	Longitude    *float64
	ScheduledAt  time.Time
	Capacity     int
	MinLevel     model.ExperienceLevel
}

// EventFilter selects one of the event lists.
type EventFilter string

const (
	FilterUpcoming  EventFilter = "upcoming"
	FilterMine      EventFilter = "mine"
	FilterAvailable EventFilter = "available"
)

func (s *Session) eventSpec(creator model.User, in EventInput) (engine.EventSpec, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return engine.EventSpec{}, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return engine.EventSpec{}, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if !in.Sport.Valid() {
		return engine.EventSpec{}, apperror.ValidationFailed("sport", fmt.Sprintf("unknown sport %q", in.Sport))
	}
	if in.ScheduledAt.IsZero() {
		return engine.EventSpec{}, apperror.ValidationFailed("scheduledAt", "scheduled time is required")
	}
	if !in.ScheduledAt.After(s.now()) {
		return engine.EventSpec{}, apperror.ValidationFailed("scheduledAt", "scheduled time must be in the future")
	}

	minLevel := in.MinLevel
	if minLevel == "" {
		minLevel = model.LevelBeginner
	}
	if !minLevel.Valid() {
		return engine.EventSpec{}, apperror.ValidationFailed("minLevel", fmt.Sprintf("unknown experience level %q", in.MinLevel))
	}

	loc := model.EventLocation{
		Name:      strings.TrimSpace(in.LocationName),
		Latitude:  creator.Location.Latitude,
		Longitude: creator.Location.Longitude,
	}
	if loc.Name == "" {
		loc.Name = creator.Location.City
	}
	if in.Latitude != nil {
		if *in.Latitude < -90 || *in.Latitude > 90 {
			return engine.EventSpec{}, apperror.ValidationFailed("latitude", "latitude must be between -90 and 90")
		}
		loc.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		if *in.Longitude < -180 || *in.Longitude > 180 {
			return engine.EventSpec{}, apperror.ValidationFailed("longitude", "longitude must be between -180 and 180")
		}
		loc.Longitude = *in.Longitude
	}

	return engine.EventSpec{
		Title:       title,
		Sport:       in.Sport,
		Description: strings.TrimSpace(in.Description),
		Location:    loc,
		ScheduledAt: in.ScheduledAt.UTC(),
		Capacity:    in.Capacity,
		MinLevel:    minLevel,
	}, nil
}

// CreateEvent schedules a new game with the creator as its first player.
func (s *Session) CreateEvent(ctx context.Context, creatorID string, in EventInput) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creator, err := s.user(creatorID)
	if err != nil {
		return model.Event{}, err
	}
	def, err := s.eventSpec(creator, in)
	if err != nil {
		return model.Event{}, err
	}

	events, event, err := engine.CreateEvent(s.state.Events, creatorID, def, s.newID())
	if err != nil {
		return model.Event{}, err
	}

	next := s.state
	next.Events = events
	if err := s.commit(next, "event", func(store repository.StateRepository) error {
		return store.SaveEvent(ctx, event)
	}); err != nil {
		return model.Event{}, err
	}

	s.logger.Info("event created",
		slog.String("id", event.ID),
		slog.String("creator", creatorID),
		slog.String("sport", string(event.Sport)),
		slog.Int("capacity", event.Capacity),
	)
	return event, nil
}

// JoinEvent adds userID to the game's roster.
//
// The game's minimum level is shown to players but not enforced here, and
// neither is the scheduled time. Joining a past game is left to the client
// to prevent.
func (s *Session) JoinEvent(ctx context.Context, eventID, userID string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.user(userID); err != nil {
		return model.Event{}, err
	}

	events, event, err := engine.Join(s.state.Events, eventID, userID)
	if err != nil {
		s.logger.Debug("join refused",
			slog.String("event", eventID),
			slog.String("user", userID),
			slog.String("reason", err.Error()),
		)
		return model.Event{}, err
	}

	next := s.state
	next.Events = events
	if err := s.commit(next, "event", func(store repository.StateRepository) error {
		return store.SaveEvent(ctx, event)
	}); err != nil {
		return model.Event{}, err
	}

	s.logger.Info("event joined",
		slog.String("event", eventID),
		slog.String("user", userID),
		slog.Int("remaining", event.Remaining()),
	)
	return event, nil
}

// Event returns a single event.
func (s *Session) Event(id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := engine.FindEvent(s.state.Events, id)
	if !ok {
		return model.Event{}, apperror.NotFound("event", id)
	}
	return e, nil
}

// Events returns one of the event lists for userID. An empty filter means
// upcoming.
func (s *Session) Events(userID string, filter EventFilter) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch filter {
	case FilterUpcoming, "":
		return engine.Upcoming(s.state.Events, s.now()), nil
	case FilterMine:
		return engine.Mine(s.state.Events, userID), nil
	case FilterAvailable:
		return engine.Available(s.state.Events, userID, s.now()), nil
	}
	return nil, apperror.ValidationFailed("filter",
		fmt.Sprintf("unknown filter %q (want upcoming, mine or available)", filter))
}
