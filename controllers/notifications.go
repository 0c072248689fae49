package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/utils"
)

type NotificationController struct{}

// List returns the caller's notifications, filterable by read state and
// type, newest first.
func (nc *NotificationController) List(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := database.DB.Model(&models.Notification{}).Where("user_id = ?", user.ID)
	if read := c.Query("read"); read == "true" {
		query = query.Where("read = ?", true)
	} else if read == "false" {
		query = query.Where("read = ?", false)
	}
	if notificationType := c.Query("type"); notificationType != "" {
		if !utils.IsValidNotificationType(notificationType) {
			return utils.Error(c, fiber.StatusBadRequest, "Invalid notification type")
		}
		query = query.Where("type = ?", notificationType)
	}

	var total int64
	query.Count(&total)

	var rows []models.Notification
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch notifications")
	}

	dtos := make([]utils.NotificationDTO, 0, len(rows))
	for _, n := range rows {
		dtos = append(dtos, utils.ToNotificationDTO(n))
	}
	return utils.Success(c, fiber.Map{
		"notifications": dtos,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// Get returns one notification owned by the caller.
func (nc *NotificationController) Get(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid notification ID")
	}

	var notification models.Notification
	if err := database.DB.Where("id = ? AND user_id = ?", uint(id), user.ID).
		First(&notification).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Notification not found")
	}
	return utils.Success(c, fiber.Map{"notification": utils.ToNotificationDTO(notification)})
}

// UnreadCount returns how many unread notifications the caller has.
func (nc *NotificationController) UnreadCount(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	var count int64
	if err := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", user.ID, false).
		Count(&count).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to count notifications")
	}
	return utils.Success(c, fiber.Map{"unread": count})
}

// MarkRead marks one notification read. Marking an already-read row again
// succeeds without changing read_at.
func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid notification ID")
	}

	var notification models.Notification
	if err := database.DB.Where("id = ? AND user_id = ?", uint(id), user.ID).
		First(&notification).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Notification not found")
	}

	if !notification.Read {
		now := time.Now()
		if err := database.DB.Model(&notification).
			Updates(map[string]interface{}{"read": true, "read_at": &now}).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to mark notification read")
		}
	}
	return utils.Success(c, fiber.Map{"notification": utils.ToNotificationDTO(notification)})
}

// MarkAllRead marks every unread notification read.
func (nc *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	now := time.Now()
	res := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", user.ID, false).
		Updates(map[string]interface{}{"read": true, "read_at": &now})
	if res.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to mark notifications read")
	}
	return utils.Success(c, fiber.Map{"marked": res.RowsAffected})
}
