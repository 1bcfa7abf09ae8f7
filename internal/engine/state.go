// Package engine holds the social-state rules of the app: who matches whom,
// how connection requests move through their lifecycle, how threads are
// derived from the message log, and how game rosters fill up.
//
// PURE FUNCTIONS:
// Nothing in this package keeps state, reads the clock, or generates IDs.
// Every operation takes the current collection plus explicit inputs and
// returns a NEW collection; the slice passed in is never modified. That is
// what lets the session swap a whole snapshot in one step and simply keep
// the old one when an operation fails.
//
// The four parts (matcher.go, connections.go, threads.go, roster.go) never
// call each other. They only share the model types.
package engine

import "github.com/sakif/common-ground/internal/model"

// State is the full social snapshot: the four collections everything else
// is derived from.
type State struct {
	Users       []model.User
	Connections []model.Connection
	Messages    []model.Message
	Events      []model.Event
}

// Clone returns a deep copy, so a caller can hand the snapshot out without
// exposing slices the session will later replace.
func (s State) Clone() State {
	out := State{
		Users:       make([]model.User, len(s.Users)),
		Connections: append([]model.Connection(nil), s.Connections...),
		Messages:    append([]model.Message(nil), s.Messages...),
		Events:      make([]model.Event, len(s.Events)),
	}
	for i, u := range s.Users {
		out.Users[i] = u.Clone()
	}
	for i, e := range s.Events {
		out.Events[i] = e.Clone()
	}
	return out
}

// FindUser returns the user with the given ID.
func FindUser(users []model.User, id string) (model.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u.Clone(), true
		}
	}
	return model.User{}, false
}

// PutUser returns users with u added, or with the existing entry for u.ID
// replaced in place.
func PutUser(users []model.User, u model.User) []model.User {
	out := make([]model.User, 0, len(users)+1)
	replaced := false
	for _, existing := range users {
		if existing.ID == u.ID {
			out = append(out, u.Clone())
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, u.Clone())
	}
	return out
}
