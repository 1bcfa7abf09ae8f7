package model

import "time"

// MinEventCapacity is the smallest number of players a game can be created for.
const MinEventCapacity = 2

// EventLocation is where a game takes place.
type EventLocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Event is a scheduled game that users can join until it is full.
//
// Participants keeps join order and always starts with the creator.
// After creation the only change an Event sees is a participant being
// appended, so len(Participants) never exceeds Capacity.
type Event struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Sport        Sport           `json:"sport"`
	Description  string          `json:"description"`
	CreatorID    string          `json:"creatorId"`
	Location     EventLocation   `json:"location"`
	ScheduledAt  time.Time       `json:"scheduledAt"`
	Capacity     int             `json:"capacity"`
	Participants []string        `json:"participants"`
	MinLevel     ExperienceLevel `json:"minLevel"`
}

func (e Event) HasParticipant(userID string) bool {
	for _, id := range e.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

func (e Event) IsFull() bool {
	return len(e.Participants) >= e.Capacity
}

// Remaining returns how many places are left.
func (e Event) Remaining() int {
	if n := e.Capacity - len(e.Participants); n > 0 {
		return n
	}
	return 0
}

// Clone returns a copy of e that shares no slices with the original.
func (e Event) Clone() Event {
	e.Participants = append([]string(nil), e.Participants...)
	return e
}
