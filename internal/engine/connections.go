package engine

import (
	"time"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/model"
)

// PairKey returns the key shared by both directions of a connection:
// PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// FindConnection returns the connection with the given ID.
func FindConnection(conns []model.Connection, id string) (model.Connection, bool) {
	for _, c := range conns {
		if c.ID == id {
			return c, true
		}
	}
	return model.Connection{}, false
}

// RequestConnection records a new pending request from one user to another.
//
// The pair is checked in both directions: if A→B exists in any state, B→A
// is a duplicate as well. A rejected request still occupies the pair, so
// the same two users can never be connected again once one of them says no.
func RequestConnection(conns []model.Connection, fromID, toID, id string, now time.Time) ([]model.Connection, model.Connection, error) {
	if fromID == "" {
		return conns, model.Connection{}, apperror.ValidationFailed("fromUserId", "requesting user is required")
	}
	if toID == "" {
		return conns, model.Connection{}, apperror.ValidationFailed("toUserId", "recipient is required")
	}
	if fromID == toID {
		return conns, model.Connection{}, apperror.ValidationFailed("toUserId", "cannot send a connection request to yourself")
	}

	key := PairKey(fromID, toID)
	for _, c := range conns {
		if PairKey(c.FromUserID, c.ToUserID) == key {
			return conns, model.Connection{}, apperror.DuplicateConnection(fromID, toID)
		}
	}

	conn := model.Connection{
		ID:         id,
		FromUserID: fromID,
		ToUserID:   toID,
		Status:     model.StatusPending,
		CreatedAt:  now,
	}

	out := make([]model.Connection, 0, len(conns)+1)
	out = append(out, conns...)
	out = append(out, conn)
	return out, conn, nil
}

// Respond resolves a pending request. Only the recipient may respond, and
// only once: accepted and rejected are both final.
//
// Checks run in this order: the connection must exist, the actor must be
// the recipient, then the connection must still be pending.
func Respond(conns []model.Connection, connectionID string, decision model.Decision, actorID string) ([]model.Connection, model.Connection, error) {
	if !decision.Valid() {
		return conns, model.Connection{}, apperror.ValidationFailed("decision", `decision must be "accept" or "reject"`)
	}

	idx := -1
	for i, c := range conns {
		if c.ID == connectionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return conns, model.Connection{}, apperror.NotFound("connection", connectionID)
	}

	conn := conns[idx]
	if conn.ToUserID != actorID {
		return conns, model.Connection{}, apperror.UnauthorizedAction("only the recipient can respond to a connection request")
	}
	if conn.Status != model.StatusPending {
		return conns, model.Connection{}, apperror.InvalidTransition(conn.ID, string(conn.Status))
	}

	conn.Status = decision.Status()

	out := append([]model.Connection(nil), conns...)
	out[idx] = conn
	return out, conn, nil
}

// ConnectionLists splits the connections touching one user.
type ConnectionLists struct {
	Accepted        []model.Connection `json:"accepted"`
	IncomingPending []model.Connection `json:"incomingPending"`
	OutgoingPending []model.Connection `json:"outgoingPending"`
}

// ListFor partitions the connections touching userID. Accepted connections
// are listed regardless of direction; rejected ones are left out.
func ListFor(conns []model.Connection, userID string) ConnectionLists {
	lists := ConnectionLists{
		Accepted:        []model.Connection{},
		IncomingPending: []model.Connection{},
		OutgoingPending: []model.Connection{},
	}
	for _, c := range conns {
		if !c.Involves(userID) {
			continue
		}
		switch {
		case c.Status == model.StatusAccepted:
			lists.Accepted = append(lists.Accepted, c)
		case c.Status == model.StatusPending && c.ToUserID == userID:
			lists.IncomingPending = append(lists.IncomingPending, c)
		case c.Status == model.StatusPending && c.FromUserID == userID:
			lists.OutgoingPending = append(lists.OutgoingPending, c)
		}
	}
	return lists
}
