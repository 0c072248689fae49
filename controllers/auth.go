package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"edumesh/config"
	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/services/otp"
	"edumesh/utils"
)

type AuthController struct {
	otp *otp.Service
}

func NewAuthController() *AuthController {
	return &AuthController{otp: otp.NewService()}
}

// SendOTP issues a one-time code to a phone number or email address.
func (ac *AuthController) SendOTP(c *fiber.Ctx) error {
	var req struct {
		Contact string `json:"contact" validate:"required,min=5"`
		Method  string `json:"method" validate:"omitempty,oneof=sms email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}
	if req.Method == "" {
		req.Method = "sms"
	}

	contact := normalizeContact(req.Contact)
	if err := ac.otp.Send(c.Context(), contact, req.Method); err != nil {
		logrus.WithError(err).Error("Failed to send OTP")
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to send OTP")
	}

	return utils.Success(c, fiber.Map{
		"contact":    contact,
		"expires_in": int(ac.otp.TTL().Seconds()),
	})
}

// VerifyOTP checks a code. Known contacts get a token pair; unknown contacts
// are told to register.
func (ac *AuthController) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		Contact string `json:"contact" validate:"required"`
		Code    string `json:"code" validate:"required,len=6"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	contact := normalizeContact(req.Contact)
	if !ac.otp.Verify(c.Context(), contact, req.Code) {
		return utils.Error(c, fiber.StatusUnauthorized, "Invalid or expired code")
	}

	user, err := findUserByContact(contact)
	if err != nil {
		// Verified but not registered yet
		return utils.Success(c, fiber.Map{
			"verified":   true,
			"registered": false,
			"contact":    contact,
		})
	}
	if !user.Active {
		return utils.Error(c, fiber.StatusForbidden, "Account is deactivated")
	}

	pair, err := issueTokens(user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to issue tokens")
	}
	return utils.Success(c, fiber.Map{
		"verified":   true,
		"registered": true,
		"tokens":     pair,
		"user":       userProfile(user),
	})
}

// Register creates a user. Admins may create a new school (code generated)
// or join an existing one by code; all other roles must join by code.
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req struct {
		Name   string `json:"name" validate:"required,min=2,max=255"`
		Email  string `json:"email" validate:"omitempty,email"`
		Phone  string `json:"phone"`
		Role   string `json:"role" validate:"required,oneof=admin teacher parent student"`
		School *struct {
			Name    string `json:"name" validate:"required,min=2,max=255"`
			Region  string `json:"region"`
			Address string `json:"address"`
		} `json:"school"`
		SchoolCode string `json:"school_code"`
		ClassName  string `json:"class_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}
	if req.Email == "" && req.Phone == "" {
		return utils.Error(c, fiber.StatusBadRequest, "Either email or phone is required")
	}
	if req.Role != models.RoleAdmin && req.SchoolCode == "" {
		return utils.Error(c, fiber.StatusBadRequest, "A school code is required to join")
	}
	if req.Role == models.RoleAdmin && req.School == nil && req.SchoolCode == "" {
		return utils.Error(c, fiber.StatusBadRequest, "Provide a school to create or a school code to join")
	}

	var user models.User
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var school models.School
		if req.Role == models.RoleAdmin && req.School != nil {
			school = models.School{
				Name:       req.School.Name,
				Code:       generateSchoolCode(),
				Region:     req.School.Region,
				Address:    req.School.Address,
				AdminEmail: strings.ToLower(req.Email),
			}
			if err := tx.Create(&school).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("code = ?", strings.ToUpper(req.SchoolCode)).First(&school).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "School not found for that code")
			}
		}

		// No duplicate contacts within a school
		var existing int64
		tx.Model(&models.User{}).
			Where("school_id = ? AND (email = ? OR phone = ?)", school.ID,
				nonEmpty(strings.ToLower(req.Email)), nonEmpty(req.Phone)).
			Count(&existing)
		if existing > 0 {
			return fiber.NewError(fiber.StatusConflict, "An account with that contact already exists")
		}

		user = models.User{
			Name:     utils.SanitizeString(req.Name),
			Email:    strings.ToLower(req.Email),
			Phone:    req.Phone,
			Role:     req.Role,
			SchoolID: school.ID,
			Active:   true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		switch req.Role {
		case models.RoleStudent:
			return tx.Create(&models.Student{
				UserID:    user.ID,
				SchoolID:  school.ID,
				ClassName: req.ClassName,
			}).Error
		case models.RoleTeacher:
			return tx.Create(&models.Teacher{
				UserID:   user.ID,
				SchoolID: school.ID,
			}).Error
		}
		return nil
	})
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return utils.Error(c, fe.Code, fe.Message)
		}
		logrus.WithError(err).Error("Registration failed")
		return utils.Error(c, fiber.StatusInternalServerError, "Registration failed")
	}

	pair, err := issueTokens(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to issue tokens")
	}
	return utils.Created(c, "Account created", fiber.Map{
		"tokens": pair,
		"user":   userProfile(&user),
	})
}

// Login issues a token pair for an existing contact.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req struct {
		Contact string `json:"contact" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	user, err := findUserByContact(normalizeContact(req.Contact))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, "No account found for that contact")
	}
	if !user.Active {
		return utils.Error(c, fiber.StatusForbidden, "Account is deactivated")
	}

	pair, err := issueTokens(user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to issue tokens")
	}
	return utils.Success(c, fiber.Map{
		"tokens": pair,
		"user":   userProfile(user),
	})
}

// Refresh exchanges a refresh token for a new token pair.
func (ac *AuthController) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	claims, err := middleware.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Invalid or expired refresh token")
	}

	var user models.User
	if err := database.DB.Where("id = ? AND active = ?", claims.UserID, true).First(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found or inactive")
	}

	pair, err := middleware.GenerateTokenPair(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to issue tokens")
	}
	return utils.Success(c, fiber.Map{"tokens": pair})
}

// Logout blacklists the presented access token until it would have expired.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	if rc := database.GetRedisClient(); rc != nil && tokenString != "" {
		ttl := config.AppConfig.AccessExpiresIn
		if claims, err := middleware.ParseToken(tokenString, config.AppConfig.JWTSecret); err == nil && claims.ExpiresAt != nil {
			if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
				ttl = remaining
			}
		}
		if err := rc.Set(context.Background(), "blacklist:jwt:"+tokenString, "1", ttl).Err(); err != nil {
			logrus.WithError(err).Warn("Failed to blacklist token")
		}
	}

	return utils.Message(c, "Logged out")
}

// Profile returns the authenticated user with their role profile.
func (ac *AuthController) Profile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	var full models.User
	if err := database.DB.Preload("School").Preload("Student").Preload("Teacher").
		First(&full, user.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "User not found")
	}
	return utils.Success(c, fiber.Map{"user": full})
}

func issueTokens(user *models.User) (*middleware.TokenPair, error) {
	pair, err := middleware.GenerateTokenPair(user)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	database.DB.Model(user).Update("last_login", &now)
	return pair, nil
}

// findUserByContact looks a contact up across schools. First orders by
// primary key, so when the same contact is registered in two schools the
// oldest account wins.
func findUserByContact(contact string) (*models.User, error) {
	var user models.User
	err := database.DB.
		Where("email = ? OR phone = ?", strings.ToLower(contact), contact).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func userProfile(u *models.User) fiber.Map {
	return fiber.Map{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"phone":      u.Phone,
		"role":       u.Role,
		"school_id":  u.SchoolID,
		"avatar_url": u.AvatarURL,
	}
}

func normalizeContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if strings.Contains(contact, "@") {
		return strings.ToLower(contact)
	}
	return strings.ReplaceAll(contact, " ", "")
}

func nonEmpty(s string) string {
	if s == "" {
		// Never match rows on an empty contact column
		return "\x00"
	}
	return s
}

func generateSchoolCode() string {
	return "SCH-" + strings.ToUpper(uuid.New().String()[:8])
}
