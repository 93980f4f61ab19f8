package handlers

import (
	"log"
	"net/http"

	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/services"
	"github.com/TaCeiN/max-task-mvp/internal/utils"

	"github.com/gin-gonic/gin"
)

// webhookUpdate is the subset of a Max Bot API update the backend cares about
type webhookUpdate struct {
	UpdateType string        `json:"update_type"`
	User       *initDataUser `json:"user"`
	Message    *struct {
		Sender *initDataUser `json:"sender"`
		Body   *struct {
			Mid string `json:"mid"`
		} `json:"body"`
	} `json:"message"`
}

// sender returns whichever user object the update carries
func (u *webhookUpdate) sender() *initDataUser {
	if u.User != nil {
		return u.User
	}
	if u.Message != nil {
		return u.Message.Sender
	}
	return nil
}

// NewWebhookHandler returns the bot webhook endpoint. Any user seen in an
// update is upserted so they exist before ever opening the mini-app. The
// handler always answers 200: a bot platform retries non-2xx responses and
// there is nothing a retry would fix.
func NewWebhookHandler(tracker *services.MessageTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var update webhookUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			log.Printf("Webhook: unparseable update from %s: %v", utils.ClientIP(c), err)
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}

		log.Printf("Webhook: %s from %s", update.UpdateType, utils.ClientIP(c))

		if update.UpdateType == "message_seen" && update.Message != nil && update.Message.Body != nil {
			tracker.MarkRead(update.Message.Body.Mid)
		}

		if sender := update.sender(); sender != nil && sender.platformID() != "" {
			username := sender.Username
			if username == "" {
				username = "max_" + sender.platformID() + "_" + sender.displayName()
			}
			if _, err := insertOrFetchUser(database.GetDB(), sender.platformID(), username); err != nil {
				log.Printf("Webhook: failed to upsert user %s: %v", sender.platformID(), err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
