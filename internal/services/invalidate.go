package services

import (
	"github.com/TaCeiN/max-task-mvp/internal/models"

	"gorm.io/gorm"
)

// ResetDeadlineNotifications deletes every sent-notification record for one
// deadline except the "expired" one, so the next scan recomputes against the
// current schedule and due time. Called when the due time moves by more than
// a second or when notifications flip from disabled to enabled.
func ResetDeadlineNotifications(db *gorm.DB, deadlineID uint) error {
	return db.Where("deadline_id = ? AND tag <> ?", deadlineID, models.NotificationTagExpired).
		Delete(&models.NotificationRecord{}).Error
}

// ResetUserNotifications performs the same invalidation for every deadline a
// user owns. Called when the user's reminder schedule actually changes.
func ResetUserNotifications(db *gorm.DB, userID uint) error {
	deadlineIDs := db.Model(&models.Deadline{}).Select("id").Where("user_id = ?", userID)
	return db.Where("deadline_id IN (?) AND tag <> ?", deadlineIDs, models.NotificationTagExpired).
		Delete(&models.NotificationRecord{}).Error
}
