package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/model"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// mustRequest creates a connection and fails the test if that errors.
func mustRequest(t *testing.T, conns []model.Connection, from, to, id string) ([]model.Connection, model.Connection) {
	t.Helper()
	out, conn, err := RequestConnection(conns, from, to, id, t0)
	require.NoError(t, err)
	return out, conn
}

// =========================================================================
// REQUEST TESTS
// =========================================================================

func TestRequestConnection_CreatesPending(t *testing.T) {
	conns, conn := mustRequest(t, nil, "a", "b", "c1")

	require.Len(t, conns, 1)
	assert.Equal(t, model.Connection{
		ID:         "c1",
		FromUserID: "a",
		ToUserID:   "b",
		Status:     model.StatusPending,
		CreatedAt:  t0,
	}, conn)
	assert.Equal(t, conn, conns[0])
}

func TestRequestConnection_Duplicate(t *testing.T) {
	conns, original := mustRequest(t, nil, "a", "b", "c1")

	tests := []struct {
		name     string
		from, to string
	}{
		{"same direction", "a", "b"},
		{"reverse direction", "b", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := RequestConnection(conns, tt.from, tt.to, "c2", t0.Add(time.Hour))
			assert.True(t, errors.Is(err, apperror.ErrDuplicateConnection))
			assert.True(t, errors.Is(err, apperror.ErrConflict))
			require.Len(t, out, 1)
			assert.Equal(t, original, out[0])
		})
	}
}

func TestRequestConnection_Validation(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
	}{
		{"self request", "a", "a"},
		{"missing requester", "", "b"},
		{"missing recipient", "a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := RequestConnection(nil, tt.from, tt.to, "c1", t0)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Empty(t, out)
		})
	}
}

func TestRequestConnection_DoesNotModifyInput(t *testing.T) {
	conns, _ := mustRequest(t, nil, "a", "b", "c1")
	before := append([]model.Connection(nil), conns...)

	_, _ = mustRequest(t, conns, "a", "c", "c2")

	assert.Equal(t, before, conns)
}

// =========================================================================
// RESPOND TESTS
// =========================================================================

func TestRespond(t *testing.T) {
	tests := []struct {
		name       string
		decision   model.Decision
		wantStatus model.ConnectionStatus
	}{
		{"accept", model.DecisionAccept, model.StatusAccepted},
		{"reject", model.DecisionReject, model.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conns, _ := mustRequest(t, nil, "a", "b", "c1")

			out, conn, err := Respond(conns, "c1", tt.decision, "b")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, conn.Status)
			assert.Equal(t, tt.wantStatus, out[0].Status)
			assert.Equal(t, model.StatusPending, conns[0].Status, "input slice must not change")
		})
	}
}

func TestRespond_AtMostOnce(t *testing.T) {
	conns, _ := mustRequest(t, nil, "a", "b", "c1")
	conns, _, err := Respond(conns, "c1", model.DecisionAccept, "b")
	require.NoError(t, err)

	for _, d := range []model.Decision{model.DecisionAccept, model.DecisionReject} {
		out, _, err := Respond(conns, "c1", d, "b")
		assert.True(t, errors.Is(err, apperror.ErrInvalidTransition), "decision %s", d)
		assert.Equal(t, model.StatusAccepted, out[0].Status)
	}
}

func TestRespond_Errors(t *testing.T) {
	conns, _ := mustRequest(t, nil, "a", "b", "c1")

	tests := []struct {
		name     string
		id       string
		decision model.Decision
		actor    string
		wantErr  error
	}{
		{"unknown connection", "nope", model.DecisionAccept, "b", apperror.ErrNotFound},
		{"requester cannot accept own request", "c1", model.DecisionAccept, "a", apperror.ErrUnauthorizedAction},
		{"third party cannot reject", "c1", model.DecisionReject, "z", apperror.ErrUnauthorizedAction},
		{"unknown decision", "c1", model.Decision("maybe"), "b", apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := Respond(conns, tt.id, tt.decision, tt.actor)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, model.StatusPending, out[0].Status)
		})
	}
}

func TestRejectedPairCannotBeRequestedAgain(t *testing.T) {
	conns, _ := mustRequest(t, nil, "a", "b", "c1")
	conns, _, err := Respond(conns, "c1", model.DecisionReject, "b")
	require.NoError(t, err)

	_, _, err = RequestConnection(conns, "a", "b", "c2", t0)
	assert.True(t, errors.Is(err, apperror.ErrDuplicateConnection))

	_, _, err = RequestConnection(conns, "b", "a", "c3", t0)
	assert.True(t, errors.Is(err, apperror.ErrDuplicateConnection))
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListFor(t *testing.T) {
	var conns []model.Connection
	conns, _ = mustRequest(t, conns, "a", "b", "out-pending")
	conns, _ = mustRequest(t, conns, "c", "a", "in-pending")
	conns, _ = mustRequest(t, conns, "a", "d", "out-accepted")
	conns, _ = mustRequest(t, conns, "e", "a", "in-accepted")
	conns, _ = mustRequest(t, conns, "f", "a", "in-rejected")
	conns, _ = mustRequest(t, conns, "x", "y", "unrelated")

	var err error
	conns, _, err = Respond(conns, "out-accepted", model.DecisionAccept, "d")
	require.NoError(t, err)
	conns, _, err = Respond(conns, "in-accepted", model.DecisionAccept, "a")
	require.NoError(t, err)
	conns, _, err = Respond(conns, "in-rejected", model.DecisionReject, "a")
	require.NoError(t, err)

	lists := ListFor(conns, "a")

	connIDs := func(cs []model.Connection) []string {
		out := []string{}
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}
	assert.Equal(t, []string{"out-accepted", "in-accepted"}, connIDs(lists.Accepted))
	assert.Equal(t, []string{"in-pending"}, connIDs(lists.IncomingPending))
	assert.Equal(t, []string{"out-pending"}, connIDs(lists.OutgoingPending))
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.NotEqual(t, PairKey("a", "b"), PairKey("a", "c"))
}
