package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/TaCeiN/max-task-mvp/internal/models"

	"gorm.io/gorm"
)

// NotificationWorker periodically scans deadlines and pushes graduated
// reminders through the bot. One instance per process; running several
// scanners concurrently can produce duplicate sends, which the unique index
// on (deadline_id, tag) then absorbs.
type NotificationWorker struct {
	db       *gorm.DB
	bot      Sender
	tracker  *MessageTracker
	interval time.Duration
	imageURL string
	stop     chan struct{}
	stopOnce sync.Once
}

// NewNotificationWorker builds the scanner with a 1-minute tick. The optional
// NOTIFICATION_IMAGE_URL is attached to every reminder message.
func NewNotificationWorker(db *gorm.DB, bot Sender, tracker *MessageTracker) *NotificationWorker {
	return &NotificationWorker{
		db:       db,
		bot:      bot,
		tracker:  tracker,
		interval: time.Minute,
		imageURL: os.Getenv("NOTIFICATION_IMAGE_URL"),
		stop:     make(chan struct{}),
	}
}

// Start launches the scan loop on its own goroutine
func (w *NotificationWorker) Start() {
	go w.run()
	log.Printf("Deadline notification worker started (interval %v)", w.interval)
}

// Stop terminates the scan loop. In-flight deliveries finish on their own
// per-call timeout.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	log.Println("Deadline notification worker stopped")
}

func (w *NotificationWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkDeadlines()
		case <-w.stop:
			return
		}
	}
}

// checkDeadlines is one scan tick: first the expired pass, then the
// threshold pass.
func (w *NotificationWorker) checkDeadlines() {
	now := time.Now().UTC()
	w.checkExpired(now)
	w.checkUpcoming(now)
}

// checkExpired sends the one-time past-due notice for every enabled deadline
// that has crossed its due instant without an "expired" record yet.
func (w *NotificationWorker) checkExpired(now time.Time) {
	var deadlines []models.Deadline
	if err := w.db.Where("notification_enabled = ? AND due_at <= ?", true, now).Find(&deadlines).Error; err != nil {
		log.Printf("Failed to load expired deadlines: %v", err)
		return
	}

	for _, deadline := range deadlines {
		if w.hasRecord(deadline.ID, models.NotificationTagExpired) {
			continue
		}

		note, user, ok := w.loadTarget(deadline)
		if !ok {
			continue
		}

		// Policy: say that it expired, not how overdue it is
		text := fmt.Sprintf("Дедлайн %q истек", note.Title)
		if w.deliver(deadline.ID, models.NotificationTagExpired, user.UUID, text) {
			log.Printf("Expired notification sent for deadline %d", deadline.ID)
		}
	}
}

// checkUpcoming fires at most one threshold reminder per deadline per tick
func (w *NotificationWorker) checkUpcoming(now time.Time) {
	var deadlines []models.Deadline
	if err := w.db.Where("notification_enabled = ? AND due_at > ?", true, now).Find(&deadlines).Error; err != nil {
		log.Printf("Failed to load active deadlines: %v", err)
		return
	}

	for _, deadline := range deadlines {
		note, user, ok := w.loadTarget(deadline)
		if !ok {
			continue
		}

		remaining := int(deadline.DueAt.Sub(now) / time.Minute)
		if remaining < 0 {
			// Crossed the due instant mid-tick; the expired pass handles it
			continue
		}

		gradations := ResolveGradations(w.userReminderMinutes(deadline.UserID))
		sent, err := w.sentTags(deadline.ID)
		if err != nil {
			log.Printf("Failed to load sent notifications for deadline %d: %v", deadline.ID, err)
			continue
		}

		gradation, due := nextDueGradation(gradations, sent, remaining)
		if !due {
			continue
		}

		text := fmt.Sprintf("До окончания дедлайна %q осталось %s", note.Title, gradation.Label)
		if w.deliver(deadline.ID, gradation.Tag, user.UUID, text) {
			log.Printf("Notification %s sent for deadline %d", gradation.Tag, deadline.ID)
		}
	}
}

// nextDueGradation walks thresholds farthest first and picks the first one
// that has not been sent and matches the remaining time within a ±1 minute
// tolerance. At most one gradation is picked per call, so a single tick never
// fires a backlog of thresholds at once.
func nextDueGradation(gradations []Gradation, sent map[string]bool, remainingMinutes int) (Gradation, bool) {
	for _, g := range gradations {
		if sent[g.Tag] {
			continue
		}
		if remainingMinutes >= g.Minutes-1 && remainingMinutes <= g.Minutes+1 {
			return g, true
		}
	}
	return Gradation{}, false
}

// loadTarget fetches the note and owning user of a deadline. A missing note
// or user, or a note that is no longer a todo note, is expected drift and
// skips the deadline for this tick.
func (w *NotificationWorker) loadTarget(deadline models.Deadline) (*models.Note, *models.User, bool) {
	var note models.Note
	if err := w.db.First(&note, deadline.NoteID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load note %d: %v", deadline.NoteID, err)
		}
		return nil, nil, false
	}
	if !note.IsTodo() {
		return nil, nil, false
	}

	var user models.User
	if err := w.db.First(&user, deadline.UserID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load user %d: %v", deadline.UserID, err)
		}
		return nil, nil, false
	}

	return &note, &user, true
}

// userReminderMinutes returns the user's configured offsets, or nil when the
// default ladder should apply
func (w *NotificationWorker) userReminderMinutes(userID uint) []int {
	var settings models.UserSettings
	if err := w.db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil
	}
	if len(settings.ReminderMinutes) == 0 {
		return nil
	}
	return settings.ReminderMinutes
}

// hasRecord checks whether a notification with this tag was already sent
func (w *NotificationWorker) hasRecord(deadlineID uint, tag string) bool {
	var count int64
	w.db.Model(&models.NotificationRecord{}).
		Where("deadline_id = ? AND tag = ?", deadlineID, tag).
		Count(&count)
	return count > 0
}

// sentTags collects the tags already recorded for a deadline
func (w *NotificationWorker) sentTags(deadlineID uint) (map[string]bool, error) {
	var records []models.NotificationRecord
	if err := w.db.Where("deadline_id = ?", deadlineID).Find(&records).Error; err != nil {
		return nil, err
	}
	sent := make(map[string]bool, len(records))
	for _, record := range records {
		sent[record.Tag] = true
	}
	return sent, nil
}

// deliver sends one notification and, only after a confirmed send, records it
// and tracks the message for retraction. A failed send leaves no record, so
// the threshold stays eligible on the next tick.
func (w *NotificationWorker) deliver(deadlineID uint, tag, userUUID, text string) bool {
	result, err := w.bot.SendMessage(userUUID, text, w.imageURL)
	if err != nil {
		var sendErr *SendError
		if errors.As(err, &sendErr) {
			log.Printf("Failed to send notification %s for deadline %d (%s): %s", tag, deadlineID, sendErr.Kind, sendErr.Message)
		} else {
			log.Printf("Failed to send notification %s for deadline %d: %v", tag, deadlineID, err)
		}
		return false
	}

	record := models.NotificationRecord{
		DeadlineID: deadlineID,
		Tag:        tag,
		SentAt:     time.Now().UTC(),
	}
	if err := w.db.Create(&record).Error; err != nil {
		// A duplicate key means a concurrent scanner already recorded this
		// send; the message went out twice but the record stays unique
		if strings.Contains(err.Error(), "duplicate key") {
			log.Printf("Notification %s for deadline %d was already recorded", tag, deadlineID)
		} else {
			log.Printf("Failed to record notification %s for deadline %d: %v", tag, deadlineID, err)
		}
	}

	if result.MessageID != "" {
		w.tracker.Track(result.MessageID, userUUID, text)
	}
	return true
}
