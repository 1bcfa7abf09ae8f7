package engine

import (
	"time"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/model"
)

// EventSpec is everything the creator decides about a game.
type EventSpec struct {
	Title       string
	Sport       model.Sport
	Description string
	Location    model.EventLocation
	ScheduledAt time.Time
	Capacity    int
	MinLevel    model.ExperienceLevel
}

// FindEvent returns the event with the given ID.
func FindEvent(events []model.Event, id string) (model.Event, bool) {
	for _, e := range events {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return model.Event{}, false
}

// CreateEvent adds a game with the creator as its only participant.
// A capacity below model.MinEventCapacity is rejected: a game nobody else
// can join is not a game.
func CreateEvent(events []model.Event, creatorID string, def EventSpec, id string) ([]model.Event, model.Event, error) {
	if def.Capacity < model.MinEventCapacity {
		return events, model.Event{}, apperror.InvalidCapacity(def.Capacity, model.MinEventCapacity)
	}

	event := model.Event{
		ID:           id,
		Title:        def.Title,
		Sport:        def.Sport,
		Description:  def.Description,
		CreatorID:    creatorID,
		Location:     def.Location,
		ScheduledAt:  def.ScheduledAt,
		Capacity:     def.Capacity,
		Participants: []string{creatorID},
		MinLevel:     def.MinLevel,
	}

	out := make([]model.Event, 0, len(events)+1)
	out = append(out, events...)
	out = append(out, event)
	return out, event.Clone(), nil
}

// Join appends userID to the event's participants.
//
// A repeat join fails with AlreadyJoined even when the event is also full;
// otherwise a full event fails with EventFull. On failure the events slice
// is returned as it was.
func Join(events []model.Event, eventID, userID string) ([]model.Event, model.Event, error) {
	idx := -1
	for i, e := range events {
		if e.ID == eventID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return events, model.Event{}, apperror.NotFound("event", eventID)
	}

	event := events[idx]
	if event.HasParticipant(userID) {
		return events, model.Event{}, apperror.AlreadyJoined(eventID, userID)
	}
	if event.IsFull() {
		return events, model.Event{}, apperror.EventFull(eventID)
	}

	// Build a fresh participants slice so the old snapshot keeps its own.
	updated := event.Clone()
	updated.Participants = append(updated.Participants, userID)

	out := append([]model.Event(nil), events...)
	out[idx] = updated
	return out, updated.Clone(), nil
}

// Upcoming returns the events scheduled strictly after now, in stored order.
func Upcoming(events []model.Event, now time.Time) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range events {
		if e.ScheduledAt.After(now) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Mine returns the events userID takes part in, past ones included.
func Mine(events []model.Event, userID string) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range events {
		if e.HasParticipant(userID) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Available returns the upcoming events userID could still join.
func Available(events []model.Event, userID string, now time.Time) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range events {
		if e.ScheduledAt.After(now) && !e.HasParticipant(userID) && !e.IsFull() {
			out = append(out, e.Clone())
		}
	}
	return out
}
