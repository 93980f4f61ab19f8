package services

import (
	"log"
	"sync"
	"time"
)

// TrackedMessage records a sent notification message pending auto-retraction
type TrackedMessage struct {
	UserID string
	Text   string
	SentAt time.Time
	ReadAt *time.Time
}

// MessageTracker keeps sent messages in memory and retracts them after a
// delay. The transport has no read receipts over webhook, so retraction is
// scheduled from send time; a "mark as read" signal reschedules it from the
// read time instead. State is process-local and lost on restart.
type MessageTracker struct {
	mu          sync.Mutex
	messages    map[string]*TrackedMessage
	deleter     interface{ DeleteMessage(messageID string) bool }
	deleteAfter time.Duration
}

// NewMessageTracker builds a tracker retracting messages through deleter
// after deleteAfter.
func NewMessageTracker(deleter interface{ DeleteMessage(messageID string) bool }, deleteAfter time.Duration) *MessageTracker {
	return &MessageTracker{
		messages:    make(map[string]*TrackedMessage),
		deleter:     deleter,
		deleteAfter: deleteAfter,
	}
}

// Track registers a sent message and schedules its auto-retraction
func (t *MessageTracker) Track(messageID, userID, text string) {
	if messageID == "" {
		return
	}

	t.mu.Lock()
	t.messages[messageID] = &TrackedMessage{
		UserID: userID,
		Text:   text,
		SentAt: time.Now(),
	}
	t.mu.Unlock()

	time.AfterFunc(t.deleteAfter, func() {
		t.autoRetract(messageID)
	})
}

// autoRetract runs when the send-time timer fires. If the message was marked
// as read in the meantime, the read-time timer owns the retraction instead.
func (t *MessageTracker) autoRetract(messageID string) {
	t.mu.Lock()
	info, ok := t.messages[messageID]
	if !ok || info.ReadAt != nil {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.retract(messageID)
}

// MarkRead stamps the message as read and reschedules its retraction from
// the read time. Returns false if the message is not tracked.
func (t *MessageTracker) MarkRead(messageID string) bool {
	t.mu.Lock()
	info, ok := t.messages[messageID]
	if !ok {
		t.mu.Unlock()
		return false
	}
	if info.ReadAt != nil {
		t.mu.Unlock()
		return true
	}
	now := time.Now()
	info.ReadAt = &now
	t.mu.Unlock()

	time.AfterFunc(t.deleteAfter, func() {
		t.retract(messageID)
	})
	return true
}

// retract deletes the message through the transport and drops the tracking
// entry. A missing entry is a silent no-op: the message was already removed.
func (t *MessageTracker) retract(messageID string) {
	t.mu.Lock()
	_, ok := t.messages[messageID]
	t.mu.Unlock()
	if !ok {
		return
	}

	if !t.deleter.DeleteMessage(messageID) {
		log.Printf("Failed to retract message %s", messageID)
		return
	}

	t.mu.Lock()
	delete(t.messages, messageID)
	t.mu.Unlock()
}

// Info returns a copy of the tracking entry for a message
func (t *MessageTracker) Info(messageID string) (TrackedMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.messages[messageID]
	if !ok {
		return TrackedMessage{}, false
	}
	return *info, true
}

// Remove drops a message from tracking, e.g. after a manual deletion.
// Removing an untracked message is a no-op.
func (t *MessageTracker) Remove(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.messages, messageID)
}
