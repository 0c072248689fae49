package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/services/notifications"
	"edumesh/services/scope"
	"edumesh/utils"
)

type HomeworkController struct {
	notifier *notifications.Service
}

func NewHomeworkController(notifier *notifications.Service) *HomeworkController {
	return &HomeworkController{notifier: notifier}
}

// List returns homework visible to the caller. Students and parents get the
// submission status for each row embedded.
func (hc *HomeworkController) List(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	spec, err := scope.Resolve(database.DB, claims.UserID, claims.SchoolID, claims.Role)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to resolve access scope")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := spec.Homework(database.DB.Model(&models.Homework{})).
		Where("homework.active = ?", true)

	if subjectID := c.Query("subject_id"); subjectID != "" {
		query = query.Where("homework.subject_id = ?", subjectID)
	}
	if className := c.Query("class_name"); className != "" {
		query = query.Where("homework.class_name = ?", className)
	}
	if c.Query("due") == "upcoming" {
		query = query.Where("homework.due_date >= ?", time.Now())
	}

	var total int64
	query.Count(&total)

	var homework []models.Homework
	if err := query.Preload("Subject").Preload("Teacher.User").
		Order("homework.due_date ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&homework).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch homework")
	}

	payload := fiber.Map{
		"homework": homework,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	}
	if claims.Role == models.RoleStudent || claims.Role == models.RoleParent {
		payload["submissions"] = hc.submissionStatuses(homework, spec.StudentIDs)
	}
	return utils.Success(c, payload)
}

// submissionStatuses maps homework id -> submissions by the caller's linked
// students.
func (hc *HomeworkController) submissionStatuses(homework []models.Homework, studentIDs []uint) map[uint][]models.HomeworkSubmission {
	out := make(map[uint][]models.HomeworkSubmission)
	if len(homework) == 0 || len(studentIDs) == 0 {
		return out
	}
	ids := make([]uint, 0, len(homework))
	for _, hw := range homework {
		ids = append(ids, hw.ID)
	}
	var submissions []models.HomeworkSubmission
	if err := database.DB.
		Where("homework_id IN ? AND student_id IN ?", ids, studentIDs).
		Find(&submissions).Error; err != nil {
		logrus.WithError(err).Warn("Failed to load submission statuses")
		return out
	}
	for _, sub := range submissions {
		out[sub.HomeworkID] = append(out[sub.HomeworkID], sub)
	}
	return out
}

// Create adds homework and notifies the class's students and parents.
func (hc *HomeworkController) Create(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var req struct {
		Title       string      `json:"title" validate:"required,min=1,max=255"`
		Description string      `json:"description"`
		SubjectID   uint        `json:"subject_id" validate:"required"`
		ClassName   string      `json:"class_name" validate:"required,min=1,max=100"`
		DueDate     time.Time   `json:"due_date" validate:"required"`
		MaxMarks    int         `json:"max_marks" validate:"omitempty,min=0,max=1000"`
		TeacherID   uint        `json:"teacher_id"`
		Attachments models.JSON `json:"attachments"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	var subject models.Subject
	if err := database.DB.Where("id = ? AND school_id = ?", req.SubjectID, claims.SchoolID).
		First(&subject).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Subject not found")
	}

	teacherID := req.TeacherID
	if claims.Role == models.RoleTeacher {
		var teacher models.Teacher
		if err := database.DB.Where("user_id = ?", claims.UserID).First(&teacher).Error; err != nil {
			return utils.Error(c, fiber.StatusForbidden, "No teacher profile for this account")
		}
		teacherID = teacher.ID
	} else if teacherID == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "teacher_id is required")
	}

	homework := models.Homework{
		SchoolID:    claims.SchoolID,
		TeacherID:   teacherID,
		SubjectID:   subject.ID,
		ClassName:   req.ClassName,
		Title:       utils.SanitizeString(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate,
		MaxMarks:    req.MaxMarks,
		Attachments: req.Attachments,
		Active:      true,
	}
	if err := database.DB.Create(&homework).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create homework")
	}

	// Fan-out after commit, best effort
	recipients, err := notifications.ClassAudience(database.DB, claims.SchoolID, homework.ClassName, notifications.StudentsAndParents)
	if err != nil {
		logrus.WithError(err).Warn("Failed to resolve homework audience")
	} else {
		hc.notifier.FanOut(c.Context(), recipients, notifications.Payload{
			SchoolID: claims.SchoolID,
			Type:     models.NotificationTypeHomework,
			Title:    "New homework: " + homework.Title,
			Body:     fmt.Sprintf("%s homework for %s due %s", subject.Name, homework.ClassName, homework.DueDate.Format("2006-01-02")),
			Data:     models.JSON(fmt.Sprintf(`{"homework_id": %d}`, homework.ID)),
		})
	}

	return utils.Created(c, "Homework created", fiber.Map{"homework": homework})
}

// Submit records a student's submission. One per student per homework; past
// the due date the submission is flagged late.
func (hc *HomeworkController) Submit(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	homeworkID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid homework ID")
	}

	var req struct {
		Notes       string      `json:"notes"`
		Attachments models.JSON `json:"attachments"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var student models.Student
	if err := database.DB.Where("user_id = ?", claims.UserID).First(&student).Error; err != nil {
		return utils.Error(c, fiber.StatusForbidden, "No student profile for this account")
	}

	// Inactive homework is invisible to submitters
	var homework models.Homework
	if err := database.DB.
		Where("id = ? AND school_id = ? AND active = ?", uint(homeworkID), claims.SchoolID, true).
		First(&homework).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Homework not found")
	}

	var existing int64
	database.DB.Model(&models.HomeworkSubmission{}).
		Where("homework_id = ? AND student_id = ?", homework.ID, student.ID).
		Count(&existing)
	if existing > 0 {
		return utils.Error(c, fiber.StatusConflict, "Homework already submitted")
	}

	now := time.Now()
	status := models.SubmissionSubmitted
	if now.After(homework.DueDate) {
		status = models.SubmissionLate
	}

	submission := models.HomeworkSubmission{
		HomeworkID:  homework.ID,
		StudentID:   student.ID,
		Notes:       req.Notes,
		Attachments: req.Attachments,
		Status:      status,
		SubmittedAt: now,
	}
	if err := database.DB.Create(&submission).Error; err != nil {
		// A concurrent duplicate slips past the count above and lands on the
		// unique (homework, student) index instead.
		if isDuplicateKey(err) {
			return utils.Error(c, fiber.StatusConflict, "Homework already submitted")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to submit homework")
	}

	// Tell the teacher
	if teacherUser := notifications.TeacherUser(database.DB, homework.TeacherID); teacherUser != 0 {
		hc.notifier.FanOut(c.Context(), []uint{teacherUser}, notifications.Payload{
			SchoolID: claims.SchoolID,
			Type:     models.NotificationTypeHomework,
			Title:    "New submission: " + homework.Title,
			Body:     fmt.Sprintf("A student submitted %q", homework.Title),
			Data:     models.JSON(fmt.Sprintf(`{"homework_id": %d, "submission_id": %d}`, homework.ID, submission.ID)),
		})
	}

	return utils.Created(c, "Homework submitted", fiber.Map{"submission": submission})
}

// Submissions lists submissions for one homework. Staff only; teachers see
// their own homework only.
func (hc *HomeworkController) Submissions(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	homeworkID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid homework ID")
	}

	homework, status := hc.ownedHomework(claims, uint(homeworkID))
	if status != 0 {
		return utils.Error(c, status, homeworkAccessMessage(status))
	}

	var submissions []models.HomeworkSubmission
	if err := database.DB.Where("homework_id = ?", homework.ID).
		Preload("Student.User").
		Order("submitted_at ASC").
		Find(&submissions).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch submissions")
	}
	return utils.Success(c, fiber.Map{
		"homework":    homework,
		"submissions": submissions,
	})
}

// Grade records marks and feedback for a submission. Marks above the
// homework's max are rejected before anything is written.
func (hc *HomeworkController) Grade(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	submissionID, err := strconv.ParseUint(c.Params("submissionId"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid submission ID")
	}

	var req struct {
		MarksObtained *int   `json:"marks_obtained" validate:"required"`
		Feedback      string `json:"feedback"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	var submission models.HomeworkSubmission
	if err := database.DB.Preload("Homework").
		First(&submission, uint(submissionID)).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Submission not found")
	}
	if submission.Homework.SchoolID != claims.SchoolID {
		return utils.Error(c, fiber.StatusNotFound, "Submission not found")
	}
	if _, status := hc.ownedHomework(claims, submission.HomeworkID); status != 0 {
		return utils.Error(c, status, homeworkAccessMessage(status))
	}

	if err := ValidateMarks(*req.MarksObtained, submission.Homework.MaxMarks); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}

	updates := map[string]interface{}{
		"marks_obtained": *req.MarksObtained,
		"feedback":       req.Feedback,
		"status":         models.SubmissionGraded,
	}
	if err := database.DB.Model(&submission).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to grade submission")
	}

	recipients, err := notifications.StudentAudience(database.DB, []uint{submission.StudentID}, notifications.StudentsAndParents)
	if err != nil {
		logrus.WithError(err).Warn("Failed to resolve grading audience")
	} else {
		hc.notifier.FanOut(c.Context(), recipients, notifications.Payload{
			SchoolID: claims.SchoolID,
			Type:     models.NotificationTypeHomework,
			Title:    "Homework graded: " + submission.Homework.Title,
			Body:     fmt.Sprintf("Scored %d out of %d", *req.MarksObtained, submission.Homework.MaxMarks),
			Data:     models.JSON(fmt.Sprintf(`{"homework_id": %d, "submission_id": %d}`, submission.HomeworkID, submission.ID)),
		})
	}

	return utils.Success(c, fiber.Map{"submission": submission})
}

// Update edits homework fields. Staff only; teachers edit their own.
func (hc *HomeworkController) Update(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	homeworkID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid homework ID")
	}

	homework, status := hc.ownedHomework(claims, uint(homeworkID))
	if status != 0 {
		return utils.Error(c, status, homeworkAccessMessage(status))
	}

	var req struct {
		Title       string     `json:"title" validate:"omitempty,min=1,max=255"`
		Description *string    `json:"description"`
		DueDate     *time.Time `json:"due_date"`
		MaxMarks    *int       `json:"max_marks" validate:"omitempty,min=0,max=1000"`
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
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.MaxMarks != nil {
		updates["max_marks"] = *req.MaxMarks
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "Nothing to update")
	}

	if err := database.DB.Model(homework).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to update homework")
	}
	return utils.Success(c, fiber.Map{"homework": homework})
}

// Delete deactivates homework. Submissions are kept; the row disappears from
// lists and rejects new submissions.
func (hc *HomeworkController) Delete(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	homeworkID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid homework ID")
	}

	homework, status := hc.ownedHomework(claims, uint(homeworkID))
	if status != 0 {
		return utils.Error(c, status, homeworkAccessMessage(status))
	}

	if err := database.DB.Model(homework).Update("active", false).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to delete homework")
	}
	return utils.Message(c, "Homework deleted")
}

// ownedHomework loads homework the caller may manage. Returns a non-zero
// fiber status on failure.
func (hc *HomeworkController) ownedHomework(claims *middleware.Claims, homeworkID uint) (*models.Homework, int) {
	var homework models.Homework
	if err := database.DB.
		Where("id = ? AND school_id = ?", homeworkID, claims.SchoolID).
		First(&homework).Error; err != nil {
		return nil, fiber.StatusNotFound
	}
	if claims.Role == models.RoleTeacher {
		var teacher models.Teacher
		if err := database.DB.Where("user_id = ?", claims.UserID).First(&teacher).Error; err != nil {
			return nil, fiber.StatusForbidden
		}
		if homework.TeacherID != teacher.ID {
			return nil, fiber.StatusForbidden
		}
	}
	return &homework, 0
}

func homeworkAccessMessage(status int) string {
	if status == fiber.StatusForbidden {
		return "You do not manage this homework"
	}
	return "Homework not found"
}

// isDuplicateKey reports whether err is a translated unique-constraint
// violation, however deeply wrapped.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// ValidateMarks rejects marks outside [0, maxMarks].
func ValidateMarks(marks, maxMarks int) error {
	if marks < 0 {
		return fmt.Errorf("marks cannot be negative")
	}
	if maxMarks > 0 && marks > maxMarks {
		return fmt.Errorf("marks cannot exceed the maximum of %d", maxMarks)
	}
	return nil
}
