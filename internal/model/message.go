package model

import "time"

// Message is a direct message between two users. Only Read ever changes,
// and only from false to true.
type Message struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

// Thread summarises every message exchanged between the viewer and one
// counterpart. It is always derived from the message log, never stored.
//
// Counterpart is nil when the other user has no profile in the directory.
type Thread struct {
	CounterpartID string  `json:"counterpartId"`
	Counterpart   *User   `json:"counterpart,omitempty"`
	LastMessage   Message `json:"lastMessage"`
	UnreadCount   int     `json:"unreadCount"`
}
