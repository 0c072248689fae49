package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// Success renders the standard response envelope with data.
func Success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

// Created renders a 201 envelope with a message and data.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// Message renders a success envelope with only a message.
func Message(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"success": true, "message": message})
}

// Error renders the failure envelope.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}

// ValidationError renders a 400 with field-level messages.
func ValidationError(c *fiber.Ctx, errors map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Validation failed",
		"errors":  errors,
	})
}

// ValidateStruct runs validator tags on a request DTO and returns field-keyed
// messages, or nil when the struct is valid.
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	out := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				out[field] = field + " is required"
			case "email":
				out[field] = field + " must be a valid email"
			case "oneof":
				out[field] = field + " must be one of: " + fe.Param()
			case "min":
				out[field] = field + " must be at least " + fe.Param()
			case "max":
				out[field] = field + " must be at most " + fe.Param()
			default:
				out[field] = field + " is invalid"
			}
		}
	} else {
		out["_"] = err.Error()
	}
	return out
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	switch role {
	case "admin", "teacher", "parent", "student":
		return true
	}
	return false
}

// IsValidAttendanceStatus checks an attendance status value
func IsValidAttendanceStatus(status string) bool {
	switch status {
	case "present", "absent", "late", "excused":
		return true
	}
	return false
}

// IsValidExamStatus checks an exam status value
func IsValidExamStatus(status string) bool {
	switch status {
	case "upcoming", "ongoing", "completed", "cancelled":
		return true
	}
	return false
}

// IsValidNotificationType checks a notification type value
func IsValidNotificationType(t string) bool {
	switch t {
	case "homework", "exam", "attendance", "fee", "announcement", "message":
		return true
	}
	return false
}

// IsValidFileExtension checks if file extension is allowed
func IsValidFileExtension(filename string, allowedExtensions []string) bool {
	if filename == "" {
		return false
	}

	parts := strings.Split(filename, ".")
	if len(parts) < 2 {
		return false
	}

	ext := strings.ToLower(parts[len(parts)-1])
	for _, allowedExt := range allowedExtensions {
		if ext == strings.ToLower(allowedExt) {
			return true
		}
	}
	return false
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
