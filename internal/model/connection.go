package model

import "time"

// ConnectionStatus is the lifecycle state of a connection request.
// pending is the only state that can change; accepted and rejected are final.
type ConnectionStatus string

const (
	StatusPending  ConnectionStatus = "pending"
	StatusAccepted ConnectionStatus = "accepted"
	StatusRejected ConnectionStatus = "rejected"
)

// Decision is what the recipient of a pending request chooses.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// Status returns the connection status the decision leads to.
func (d Decision) Status() ConnectionStatus {
	if d == DecisionAccept {
		return StatusAccepted
	}
	return StatusRejected
}

// Connection is a directed request from FromUserID to ToUserID.
// There is at most one Connection per unordered pair of users.
type Connection struct {
	ID         string           `json:"id"`
	FromUserID string           `json:"fromUserId"`
	ToUserID   string           `json:"toUserId"`
	Status     ConnectionStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Involves reports whether userID is either side of the connection.
func (c Connection) Involves(userID string) bool {
	return c.FromUserID == userID || c.ToUserID == userID
}

// Other returns the user on the opposite side from userID.
func (c Connection) Other(userID string) string {
	if c.FromUserID == userID {
		return c.ToUserID
	}
	return c.FromUserID
}
