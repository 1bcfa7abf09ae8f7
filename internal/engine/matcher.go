package engine

import "github.com/sakif/common-ground/internal/model"

// FindMatches returns the users the viewer could play with: everyone else
// in the same city who shares at least one sport.
//
// City comparison is exact and case-sensitive; there is no distance
// calculation. Results keep the order of users, and an empty slice (not
// nil) is returned when nobody qualifies.
func FindMatches(viewer model.User, users []model.User) []model.User {
	matches := make([]model.User, 0)
	for _, candidate := range users {
		if candidate.ID == viewer.ID {
			continue
		}
		if candidate.Location.City != viewer.Location.City {
			continue
		}
		if !viewer.PlaysAny(candidate.Sports) {
			continue
		}
		matches = append(matches, candidate.Clone())
	}
	return matches
}
