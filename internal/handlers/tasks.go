package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/TaCeiN/max-task-mvp/internal/auth"
	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// loadUserTask fetches a task owned by the current user, writing the error
// response itself when the task cannot be served
func loadUserTask(c *gin.Context, userID uint) (*models.Task, bool) {
	taskID, err := strconv.ParseUint(c.Param("task_id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid task ID", err)
		return nil, false
	}

	var task models.Task
	err = database.GetDB().Preload("Tags").
		Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "Task not found", err)
		} else {
			handleError(c, http.StatusInternalServerError, "Failed to fetch task", err)
		}
		return nil, false
	}
	return &task, true
}

// ListTasks returns the current user's tasks, optionally filtered by tag
func ListTasks(c *gin.Context) {
	user := auth.CurrentUser(c)
	db := database.GetDB()

	query := db.Preload("Tags").Where("user_id = ?", user.ID)
	if tagID := c.Query("tag_id"); tagID != "" {
		id, err := strconv.ParseUint(tagID, 10, 32)
		if err != nil {
			handleError(c, http.StatusBadRequest, "Invalid tag ID", err)
			return
		}
		query = query.Joins("JOIN task_tag ON task_tag.task_id = task.id").
			Where("task_tag.tag_id = ?", id)
	}

	var tasks []models.Task
	if err := query.Order("is_completed ASC, created_at DESC").Find(&tasks).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch tasks", err)
		return
	}

	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// CreateTask creates a task and attaches tags found in the tags text
func CreateTask(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	task := models.Task{
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueAt != nil && *req.DueAt != "" {
		due, err := parseDeadlineTime(*req.DueAt)
		if err != nil {
			handleError(c, http.StatusBadRequest, "Invalid due date format", err)
			return
		}
		task.DueAt = &due
	}

	db := database.GetDB()
	if err := db.Create(&task).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create task", err)
		return
	}

	if req.TagsText != "" {
		if err := syncTagsFromText(db, &task, req.TagsText); err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to attach tags", err)
			return
		}
	}

	db.Preload("Tags").First(&task, task.ID)
	c.JSON(http.StatusCreated, task)
}

// UpdateTask applies a partial update to a task
func UpdateTask(c *gin.Context) {
	user := auth.CurrentUser(c)
	task, ok := loadUserTask(c, user.ID)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueAt != nil {
		if *req.DueAt == "" {
			task.DueAt = nil
		} else {
			due, err := parseDeadlineTime(*req.DueAt)
			if err != nil {
				handleError(c, http.StatusBadRequest, "Invalid due date format", err)
				return
			}
			task.DueAt = &due
		}
	}
	if req.IsCompleted != nil {
		task.IsCompleted = *req.IsCompleted
	}

	db := database.GetDB()
	if err := db.Save(task).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update task", err)
		return
	}

	if req.TagsText != nil {
		if err := syncTagsFromText(db, task, *req.TagsText); err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to update tags", err)
			return
		}
	}

	db.Preload("Tags").First(task, task.ID)
	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task
func DeleteTask(c *gin.Context) {
	user := auth.CurrentUser(c)
	task, ok := loadUserTask(c, user.ID)
	if !ok {
		return
	}

	db := database.GetDB()
	if err := db.Select("Tags").Delete(task).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}
