package services

import (
	"testing"
	"time"

	"github.com/TaCeiN/max-task-mvp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func newInvalidateTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Deadline{}, &models.NotificationRecord{}))
	return db
}

func createDeadline(t *testing.T, db *gorm.DB, noteID, userID uint) models.Deadline {
	t.Helper()
	deadline := models.Deadline{
		NoteID:              noteID,
		UserID:              userID,
		DueAt:               time.Now().UTC().Add(time.Hour),
		NotificationEnabled: true,
	}
	require.NoError(t, db.Create(&deadline).Error)
	return deadline
}

func createRecord(t *testing.T, db *gorm.DB, deadlineID uint, tag string) {
	t.Helper()
	record := models.NotificationRecord{DeadlineID: deadlineID, Tag: tag, SentAt: time.Now().UTC()}
	require.NoError(t, db.Create(&record).Error)
}

func recordTags(t *testing.T, db *gorm.DB, deadlineID uint) []string {
	t.Helper()
	var tags []string
	require.NoError(t, db.Model(&models.NotificationRecord{}).
		Where("deadline_id = ?", deadlineID).Order("tag").Pluck("tag", &tags).Error)
	return tags
}

func TestResetDeadlineNotificationsKeepsExpired(t *testing.T) {
	db := newInvalidateTestDB(t)
	target := createDeadline(t, db, 1, 1)
	other := createDeadline(t, db, 2, 1)

	createRecord(t, db, target.ID, "1h")
	createRecord(t, db, target.ID, "30m")
	createRecord(t, db, target.ID, models.NotificationTagExpired)
	createRecord(t, db, other.ID, "3d")

	require.NoError(t, ResetDeadlineNotifications(db, target.ID))

	// Only the expired record survives; a deadline expires once
	assert.Equal(t, []string{models.NotificationTagExpired}, recordTags(t, db, target.ID))
	// Other deadlines are untouched
	assert.Equal(t, []string{"3d"}, recordTags(t, db, other.ID))
}

func TestResetUserNotificationsScopedToUser(t *testing.T) {
	db := newInvalidateTestDB(t)
	first := createDeadline(t, db, 1, 1)
	second := createDeadline(t, db, 2, 1)
	foreign := createDeadline(t, db, 3, 2)

	createRecord(t, db, first.ID, "1h")
	createRecord(t, db, first.ID, models.NotificationTagExpired)
	createRecord(t, db, second.ID, "14d")
	createRecord(t, db, foreign.ID, "1h")
	createRecord(t, db, foreign.ID, models.NotificationTagExpired)

	require.NoError(t, ResetUserNotifications(db, 1))

	assert.Equal(t, []string{models.NotificationTagExpired}, recordTags(t, db, first.ID))
	assert.Empty(t, recordTags(t, db, second.ID))
	// The other user's records survive in full
	assert.Equal(t, []string{"1h", models.NotificationTagExpired}, recordTags(t, db, foreign.ID))
}
