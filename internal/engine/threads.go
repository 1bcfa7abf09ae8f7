package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/sakif/common-ground/internal/model"
)

// ThreadsFor derives the viewer's inbox from the flat message log: one
// thread per counterpart the viewer has exchanged at least one message
// with, newest first.
//
// lastMessage is the message with the latest timestamp; when two share it,
// the one earlier in the log wins. Threads with equal lastMessage times
// keep the order their counterpart first shows up in the log.
func ThreadsFor(viewerID string, messages []model.Message, users []model.User) []model.Thread {
	threads := make([]model.Thread, 0)
	index := make(map[string]int)

	for _, msg := range messages {
		var counterpart string
		switch viewerID {
		case msg.FromUserID:
			counterpart = msg.ToUserID
		case msg.ToUserID:
			counterpart = msg.FromUserID
		default:
			continue
		}

		i, ok := index[counterpart]
		if !ok {
			index[counterpart] = len(threads)
			threads = append(threads, model.Thread{CounterpartID: counterpart, LastMessage: msg})
			i = len(threads) - 1
		} else if msg.Timestamp.After(threads[i].LastMessage.Timestamp) {
			threads[i].LastMessage = msg
		}

		if msg.ToUserID == viewerID && !msg.Read {
			threads[i].UnreadCount++
		}
	}

	for i := range threads {
		if u, ok := FindUser(users, threads[i].CounterpartID); ok {
			threads[i].Counterpart = &u
		}
	}

	sort.SliceStable(threads, func(a, b int) bool {
		return threads[a].LastMessage.Timestamp.After(threads[b].LastMessage.Timestamp)
	})
	return threads
}

// Conversation returns every message between viewer and counterpart,
// oldest first. Messages with the same timestamp keep log order.
func Conversation(viewerID, counterpartID string, messages []model.Message) []model.Message {
	out := make([]model.Message, 0)
	for _, msg := range messages {
		if (msg.FromUserID == viewerID && msg.ToUserID == counterpartID) ||
			(msg.FromUserID == counterpartID && msg.ToUserID == viewerID) {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.Before(out[b].Timestamp)
	})
	return out
}

// Send appends a message to the log. Content is trimmed first, and blank
// content is not an error: the log comes back unchanged with a nil message.
func Send(messages []model.Message, fromID, toID, content, id string, now time.Time) ([]model.Message, *model.Message) {
	content = strings.TrimSpace(content)
	if content == "" {
		return messages, nil
	}

	msg := model.Message{
		ID:         id,
		FromUserID: fromID,
		ToUserID:   toID,
		Content:    content,
		Timestamp:  now,
		Read:       false,
	}

	out := make([]model.Message, 0, len(messages)+1)
	out = append(out, messages...)
	out = append(out, msg)
	return out, &msg
}

// MarkRead sets Read on the listed messages that are addressed to readerID.
// IDs that are unknown, already read, or addressed to someone else are
// skipped. It returns the new log and how many messages changed.
func MarkRead(messages []model.Message, ids []string, readerID string) ([]model.Message, int) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	out := append([]model.Message(nil), messages...)
	changed := 0
	for i, msg := range out {
		if !wanted[msg.ID] || msg.ToUserID != readerID || msg.Read {
			continue
		}
		out[i].Read = true
		changed++
	}
	return out, changed
}

// UnreadIDs returns the IDs of unread messages sent from counterpartID to
// readerID, in log order.
func UnreadIDs(messages []model.Message, readerID, counterpartID string) []string {
	var ids []string
	for _, msg := range messages {
		if msg.ToUserID == readerID && msg.FromUserID == counterpartID && !msg.Read {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}

// UnreadCount returns how many unread messages are addressed to readerID.
func UnreadCount(messages []model.Message, readerID string) int {
	n := 0
	for _, msg := range messages {
		if msg.ToUserID == readerID && !msg.Read {
			n++
		}
	}
	return n
}
