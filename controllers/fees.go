package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/services/notifications"
	"edumesh/services/scope"
	"edumesh/utils"
)

type FeeController struct {
	notifier *notifications.Service
}

func NewFeeController(notifier *notifications.Service) *FeeController {
	return &FeeController{notifier: notifier}
}

// List returns fees visible to the caller.
func (fc *FeeController) List(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	spec, err := scope.Resolve(database.DB, claims.UserID, claims.SchoolID, claims.Role)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to resolve access scope")
	}

	query := spec.Fees(database.DB.Model(&models.Fee{}))
	if status := c.Query("status"); status != "" {
		query = query.Where("fees.status = ?", status)
	}
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("fees.student_id = ?", studentID)
	}

	var fees []models.Fee
	if err := query.Preload("Student.User").
		Order("fees.due_date ASC").
		Find(&fees).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch fees")
	}
	return utils.Success(c, fiber.Map{"fees": fees})
}

// Create adds a fee for a student and notifies the parent. Admin only.
func (fc *FeeController) Create(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var req struct {
		StudentID   uint    `json:"student_id" validate:"required"`
		Title       string  `json:"title" validate:"required,min=1,max=255"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount" validate:"required,gt=0"`
		DueDate     string  `json:"due_date" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "due_date must be YYYY-MM-DD")
	}

	var student models.Student
	if err := database.DB.Where("id = ? AND school_id = ?", req.StudentID, claims.SchoolID).
		First(&student).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Student not found")
	}

	fee := models.Fee{
		SchoolID:    claims.SchoolID,
		StudentID:   student.ID,
		Title:       utils.SanitizeString(req.Title),
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     dueDate,
		Status:      models.FeeStatusPending,
	}
	if err := database.DB.Create(&fee).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create fee")
	}

	recipients, err := notifications.StudentAudience(database.DB, []uint{student.ID}, notifications.ParentsOnly)
	if err != nil {
		logrus.WithError(err).Warn("Failed to resolve fee audience")
	} else {
		fc.notifier.FanOut(c.Context(), recipients, notifications.Payload{
			SchoolID: claims.SchoolID,
			Type:     models.NotificationTypeFee,
			Title:    "New fee: " + fee.Title,
			Body:     fmt.Sprintf("%.2f due by %s", fee.Amount, req.DueDate),
			Data:     models.JSON(fmt.Sprintf(`{"fee_id": %d}`, fee.ID)),
		})
	}

	return utils.Created(c, "Fee created", fiber.Map{"fee": fee})
}

// Pay settles a fee. The update is a check-and-set on pending/overdue status
// so a double pay loses the race and gets a 404.
func (fc *FeeController) Pay(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid fee ID")
	}

	var req struct {
		PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=card upi netbanking cash"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "card"
	}

	var fee models.Fee
	if err := database.DB.Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		First(&fee).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Fee not found")
	}

	// Parents may only pay their own students' fees
	if claims.Role == models.RoleParent {
		spec, err := scope.Resolve(database.DB, claims.UserID, claims.SchoolID, claims.Role)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to resolve access scope")
		}
		if !spec.OwnsStudent(fee.StudentID) {
			return utils.Error(c, fiber.StatusForbidden, "This fee belongs to another family")
		}
	}

	now := time.Now()
	transactionID := "TXN-" + uuid.New().String()[:12]
	res := payableFee(database.DB.Model(&models.Fee{}), fee.ID).
		Updates(map[string]interface{}{
			"status":         models.FeeStatusPaid,
			"payment_method": req.PaymentMethod,
			"transaction_id": transactionID,
			"paid_at":        &now,
		})
	if res.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to record payment")
	}
	if res.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "Fee not found or already paid")
	}

	recipients, err := notifications.StudentAudience(database.DB, []uint{fee.StudentID}, notifications.ParentsOnly)
	if err != nil {
		logrus.WithError(err).Warn("Failed to resolve payment audience")
	} else {
		fc.notifier.FanOut(c.Context(), recipients, notifications.Payload{
			SchoolID: claims.SchoolID,
			Type:     models.NotificationTypeFee,
			Title:    "Payment received: " + fee.Title,
			Body:     fmt.Sprintf("%.2f paid via %s (%s)", fee.Amount, req.PaymentMethod, transactionID),
			Data:     models.JSON(fmt.Sprintf(`{"fee_id": %d, "transaction_id": %q}`, fee.ID, transactionID)),
		})
	}

	database.DB.First(&fee, fee.ID)
	return utils.Success(c, fiber.Map{"fee": fee})
}

// payableFee narrows q to the fee only while it still awaits payment. The
// status guard is what makes Pay a check-and-set: a second payer matches
// zero rows instead of double-settling.
func payableFee(q *gorm.DB, feeID uint) *gorm.DB {
	return q.Where("id = ? AND status IN ?", feeID,
		[]string{models.FeeStatusPending, models.FeeStatusOverdue})
}

// Summary aggregates the caller's visible fees by status.
func (fc *FeeController) Summary(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	spec, err := scope.Resolve(database.DB, claims.UserID, claims.SchoolID, claims.Role)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to resolve access scope")
	}

	var fees []models.Fee
	if err := spec.Fees(database.DB.Model(&models.Fee{})).Find(&fees).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch fees")
	}

	return utils.Success(c, fiber.Map{"summary": SummarizeFees(fees)})
}

// FeeSummary aggregates amounts and counts by fee status.
type FeeSummary struct {
	TotalAmount   float64 `json:"total_amount"`
	PaidAmount    float64 `json:"paid_amount"`
	PendingAmount float64 `json:"pending_amount"`
	OverdueAmount float64 `json:"overdue_amount"`
	TotalCount    int     `json:"total_count"`
	PaidCount     int     `json:"paid_count"`
	PendingCount  int     `json:"pending_count"`
	OverdueCount  int     `json:"overdue_count"`
}

// SummarizeFees folds fee rows into totals. Cancelled fees are excluded
// entirely.
func SummarizeFees(fees []models.Fee) FeeSummary {
	var s FeeSummary
	for _, fee := range fees {
		switch fee.Status {
		case models.FeeStatusPaid:
			s.PaidAmount += fee.Amount
			s.PaidCount++
		case models.FeeStatusPending:
			s.PendingAmount += fee.Amount
			s.PendingCount++
		case models.FeeStatusOverdue:
			s.OverdueAmount += fee.Amount
			s.OverdueCount++
		default:
			continue
		}
		s.TotalAmount += fee.Amount
		s.TotalCount++
	}
	return s
}
