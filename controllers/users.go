package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/storage"
	"edumesh/utils"
)

type UserController struct{}

// GetProfile returns a user in the caller's school.
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var user models.User
	if err := database.DB.Preload("Student").Preload("Teacher").
		Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		First(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "User not found")
	}

	return utils.Success(c, fiber.Map{"user": user})
}

// UpdateProfile lets users edit their own basic fields.
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	var req struct {
		Name  string `json:"name" validate:"omitempty,min=2,max=255"`
		Phone string `json:"phone" validate:"omitempty,max=20"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = utils.SanitizeString(req.Name)
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "Nothing to update")
	}

	if err := database.DB.Model(user).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to update profile")
	}
	return utils.Success(c, fiber.Map{"user": userProfile(user)})
}

// Directory lists users in the school, filterable by role and search term.
// Staff only.
func (uc *UserController) Directory(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := database.DB.Model(&models.User{}).Where("school_id = ?", claims.SchoolID)
	if role := c.Query("role"); role != "" {
		if !utils.IsValidRole(role) {
			return utils.Error(c, fiber.StatusBadRequest, "Invalid role filter")
		}
		query = query.Where("role = ?", role)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + utils.SanitizeString(search) + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", like, like)
	}

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Preload("Student").Preload("Teacher").
		Order("name ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch users")
	}

	return utils.Success(c, fiber.Map{
		"users": users,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// ToggleStatus soft activates or deactivates a user. Admin only. A
// deactivated user fails the per-request active check on their next call.
func (uc *UserController) ToggleStatus(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid user ID")
	}
	if uint(id) == claims.UserID {
		return utils.Error(c, fiber.StatusBadRequest, "Cannot change your own status")
	}

	var user models.User
	if err := database.DB.Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		First(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "User not found")
	}

	if err := database.DB.Model(&user).Update("active", !user.Active).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to update user status")
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"active":  !user.Active,
		"by":      claims.UserID,
	}).Info("User status changed")

	return utils.Success(c, fiber.Map{"id": user.ID, "active": !user.Active})
}

// UploadAvatar stores a profile image in S3 and saves its URL.
func (uc *UserController) UploadAvatar(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Avatar file is required")
	}

	storageService, err := storage.NewStorageService()
	if err != nil {
		logrus.WithError(err).Error("Storage service unavailable")
		return utils.Error(c, fiber.StatusInternalServerError, "Storage service unavailable")
	}

	url, err := storageService.UploadFile(file, storage.FolderAvatars, user.SchoolID, user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	// Best effort cleanup of the previous avatar
	if user.AvatarURL != "" {
		if err := storageService.DeleteFile(user.AvatarURL); err != nil {
			logrus.WithError(err).Warn("Failed to delete previous avatar")
		}
	}

	if err := database.DB.Model(user).Update("avatar_url", url).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to save avatar")
	}
	return utils.Success(c, fiber.Map{"avatar_url": url})
}
