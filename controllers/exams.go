package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/services/notifications"
	"edumesh/services/scope"
	"edumesh/utils"
)

type ExamController struct {
	notifier *notifications.Service
}

func NewExamController(notifier *notifications.Service) *ExamController {
	return &ExamController{notifier: notifier}
}

// List returns exams visible to the caller.
func (ec *ExamController) List(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	spec, err := scope.Resolve(database.DB, claims.UserID, claims.SchoolID, claims.Role)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to resolve access scope")
	}

	query := spec.Exams(database.DB.Model(&models.Exam{}))
	if status := c.Query("status"); status != "" {
		if !utils.IsValidExamStatus(status) {
			return utils.Error(c, fiber.StatusBadRequest, "Invalid exam status")
		}
		query = query.Where("exams.status = ?", status)
	}
	if subjectID := c.Query("subject_id"); subjectID != "" {
		query = query.Where("exams.subject_id = ?", subjectID)
	}
	if className := c.Query("class_name"); className != "" {
		query = query.Where("exams.class_name = ?", className)
	}

	var exams []models.Exam
	if err := query.Preload("Subject").
		Order("exams.exam_date ASC").
		Find(&exams).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch exams")
	}
	return utils.Success(c, fiber.Map{"exams": exams})
}

// Create schedules an exam and notifies the class.
func (ec *ExamController) Create(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var req struct {
		Title        string `json:"title" validate:"required,min=1,max=255"`
		SubjectID    uint   `json:"subject_id" validate:"required"`
		ClassName    string `json:"class_name" validate:"required,min=1,max=100"`
		ExamDate     string `json:"exam_date" validate:"required"`
		StartTime    string `json:"start_time" validate:"omitempty,len=5"`
		EndTime      string `json:"end_time" validate:"omitempty,len=5"`
		Location     string `json:"location" validate:"omitempty,max=255"`
		MaxMarks     int    `json:"max_marks" validate:"omitempty,min=1,max=1000"`
		Instructions string `json:"instructions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	examDate, err := time.Parse("2006-01-02", req.ExamDate)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "exam_date must be YYYY-MM-DD")
	}

	var subject models.Subject
	if err := database.DB.Where("id = ? AND school_id = ?", req.SubjectID, claims.SchoolID).
		First(&subject).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Subject not found")
	}

	maxMarks := req.MaxMarks
	if maxMarks == 0 {
		maxMarks = 100
	}

	exam := models.Exam{
		SchoolID:     claims.SchoolID,
		SubjectID:    subject.ID,
		ClassName:    req.ClassName,
		Title:        utils.SanitizeString(req.Title),
		ExamDate:     examDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Location:     req.Location,
		MaxMarks:     maxMarks,
		Instructions: req.Instructions,
		Status:       models.ExamStatusUpcoming,
	}
	if err := database.DB.Create(&exam).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create exam")
	}

	recipients, err := notifications.ClassAudience(database.DB, claims.SchoolID, exam.ClassName, notifications.StudentsAndParents)
	if err != nil {
		logrus.WithError(err).Warn("Failed to resolve exam audience")
	} else {
		ec.notifier.FanOut(c.Context(), recipients, notifications.Payload{
			SchoolID: claims.SchoolID,
			Type:     models.NotificationTypeExam,
			Title:    "Exam scheduled: " + exam.Title,
			Body:     fmt.Sprintf("%s exam for %s on %s", subject.Name, exam.ClassName, req.ExamDate),
			Data:     models.JSON(fmt.Sprintf(`{"exam_id": %d}`, exam.ID)),
		})
	}

	return utils.Created(c, "Exam created", fiber.Map{"exam": exam})
}

// Update edits an exam. Staff only.
func (ec *ExamController) Update(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid exam ID")
	}

	var exam models.Exam
	if err := database.DB.Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		First(&exam).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Exam not found")
	}

	var req struct {
		Title        string  `json:"title" validate:"omitempty,min=1,max=255"`
		ExamDate     string  `json:"exam_date"`
		StartTime    string  `json:"start_time" validate:"omitempty,len=5"`
		EndTime      string  `json:"end_time" validate:"omitempty,len=5"`
		Location     *string `json:"location"`
		MaxMarks     *int    `json:"max_marks" validate:"omitempty,min=1,max=1000"`
		Instructions *string `json:"instructions"`
		Status       string  `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = utils.SanitizeString(req.Title)
	}
	if req.ExamDate != "" {
		examDate, err := time.Parse("2006-01-02", req.ExamDate)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "exam_date must be YYYY-MM-DD")
		}
		updates["exam_date"] = examDate
	}
	if req.StartTime != "" {
		updates["start_time"] = req.StartTime
	}
	if req.EndTime != "" {
		updates["end_time"] = req.EndTime
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.MaxMarks != nil {
		updates["max_marks"] = *req.MaxMarks
	}
	if req.Instructions != nil {
		updates["instructions"] = *req.Instructions
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "Nothing to update")
	}

	if err := database.DB.Model(&exam).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to update exam")
	}
	return utils.Success(c, fiber.Map{"exam": exam})
}

// Delete removes an exam. Admin only.
func (ec *ExamController) Delete(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid exam ID")
	}

	res := database.DB.Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		Delete(&models.Exam{})
	if res.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to delete exam")
	}
	if res.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "Exam not found")
	}
	return utils.Message(c, "Exam deleted")
}
