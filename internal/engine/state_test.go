package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/common-ground/internal/model"
)

func TestStateClone(t *testing.T) {
	s := State{
		Users:  []model.User{testUser("a", "Pune", model.SportTennis)},
		Events: []model.Event{{ID: "e1", Capacity: 2, Participants: []string{"a"}}},
	}

	c := s.Clone()
	c.Users[0].Sports[0] = model.SportCricket
	c.Events[0].Participants[0] = "z"

	assert.Equal(t, model.SportTennis, s.Users[0].Sports[0])
	assert.Equal(t, "a", s.Events[0].Participants[0])
}

func TestPutUser(t *testing.T) {
	users := []model.User{testUser("a", "Pune"), testUser("b", "Pune")}

	updated := testUser("a", "Goa")
	out := PutUser(users, updated)
	assert.Len(t, out, 2)
	assert.Equal(t, "Goa", out[0].Location.City)
	assert.Equal(t, "Pune", users[0].Location.City)

	out = PutUser(out, testUser("c", "Pune"))
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))

	got, ok := FindUser(out, "c")
	assert.True(t, ok)
	assert.Equal(t, "c", got.ID)

	_, ok = FindUser(out, "zzz")
	assert.False(t, ok)
}
