package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	mu      sync.Mutex
	deleted []string
	fail    bool
}

func (d *fakeDeleter) DeleteMessage(messageID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return false
	}
	d.deleted = append(d.deleted, messageID)
	return true
}

func (d *fakeDeleter) deletedIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.deleted...)
}

func TestTrackerAutoRetract(t *testing.T) {
	deleter := &fakeDeleter{}
	tracker := NewMessageTracker(deleter, 20*time.Millisecond)

	tracker.Track("mid.1", "user-1", "text")
	info, ok := tracker.Info("mid.1")
	require.True(t, ok)
	assert.Equal(t, "user-1", info.UserID)
	assert.Nil(t, info.ReadAt)

	assert.Eventually(t, func() bool {
		_, ok := tracker.Info("mid.1")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"mid.1"}, deleter.deletedIDs())
}

func TestTrackerMarkReadReschedules(t *testing.T) {
	deleter := &fakeDeleter{}
	tracker := NewMessageTracker(deleter, 150*time.Millisecond)

	tracker.Track("mid.2", "user-1", "text")
	time.Sleep(30 * time.Millisecond)
	require.True(t, tracker.MarkRead("mid.2"))

	// The send-time timer fires first but yields to the read-time timer
	time.Sleep(130 * time.Millisecond)
	_, ok := tracker.Info("mid.2")
	assert.True(t, ok, "message retracted before the read-time delay elapsed")

	assert.Eventually(t, func() bool {
		_, ok := tracker.Info("mid.2")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"mid.2"}, deleter.deletedIDs())
}

func TestTrackerMarkReadUnknownMessage(t *testing.T) {
	tracker := NewMessageTracker(&fakeDeleter{}, time.Minute)
	assert.False(t, tracker.MarkRead("mid.unknown"))
}

func TestTrackerRemoveSkipsRetraction(t *testing.T) {
	deleter := &fakeDeleter{}
	tracker := NewMessageTracker(deleter, 20*time.Millisecond)

	tracker.Track("mid.3", "user-1", "text")
	tracker.Remove("mid.3")
	tracker.Remove("mid.3") // removing twice is a no-op

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, deleter.deletedIDs())
}

func TestTrackerFailedRetractionKeepsEntry(t *testing.T) {
	deleter := &fakeDeleter{fail: true}
	tracker := NewMessageTracker(deleter, 10*time.Millisecond)

	tracker.Track("mid.4", "user-1", "text")
	time.Sleep(50 * time.Millisecond)

	_, ok := tracker.Info("mid.4")
	assert.True(t, ok)
}

func TestTrackerIgnoresEmptyMessageID(t *testing.T) {
	tracker := NewMessageTracker(&fakeDeleter{}, time.Minute)
	tracker.Track("", "user-1", "text")
	_, ok := tracker.Info("")
	assert.False(t, ok)
}
