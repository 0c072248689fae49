package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/utils"
)

type SchoolController struct{}

// GetSchool returns the caller's school.
func (sc *SchoolController) GetSchool(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var school models.School
	if err := database.DB.First(&school, claims.SchoolID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "School not found")
	}
	return utils.Success(c, fiber.Map{"school": school})
}

// UpdateSchool edits school details. Admin only.
func (sc *SchoolController) UpdateSchool(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var req struct {
		Name    string `json:"name" validate:"omitempty,min=2,max=255"`
		Region  string `json:"region" validate:"omitempty,max=100"`
		Address string `json:"address" validate:"omitempty,max=500"`
		Phone   string `json:"phone" validate:"omitempty,max=20"`
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
	if req.Region != "" {
		updates["region"] = req.Region
	}
	if req.Address != "" {
		updates["address"] = req.Address
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "Nothing to update")
	}

	var school models.School
	if err := database.DB.First(&school, claims.SchoolID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "School not found")
	}
	if err := database.DB.Model(&school).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to update school")
	}
	return utils.Success(c, fiber.Map{"school": school})
}

// ListSubjects returns all subjects in the school.
func (sc *SchoolController) ListSubjects(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var subjects []models.Subject
	if err := database.DB.Where("school_id = ?", claims.SchoolID).
		Order("name ASC").Find(&subjects).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch subjects")
	}
	return utils.Success(c, fiber.Map{"subjects": subjects})
}

// CreateSubject adds a subject. Codes are unique per school.
func (sc *SchoolController) CreateSubject(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var req struct {
		Name  string `json:"name" validate:"required,min=1,max=100"`
		Code  string `json:"code" validate:"required,min=1,max=50"`
		Color string `json:"color" validate:"omitempty,max=20"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	code := strings.ToUpper(utils.SanitizeString(req.Code))

	var existing int64
	database.DB.Model(&models.Subject{}).
		Where("school_id = ? AND code = ?", claims.SchoolID, code).
		Count(&existing)
	if existing > 0 {
		return utils.Error(c, fiber.StatusConflict, "A subject with that code already exists")
	}

	subject := models.Subject{
		SchoolID: claims.SchoolID,
		Name:     utils.SanitizeString(req.Name),
		Code:     code,
		Color:    req.Color,
	}
	if err := database.DB.Create(&subject).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create subject")
	}
	return utils.Created(c, "Subject created", fiber.Map{"subject": subject})
}

// UpdateSubject edits a subject. Admin only.
func (sc *SchoolController) UpdateSubject(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid subject ID")
	}

	var subject models.Subject
	if err := database.DB.Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		First(&subject).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Subject not found")
	}

	var req struct {
		Name  string `json:"name" validate:"omitempty,min=1,max=100"`
		Color string `json:"color" validate:"omitempty,max=20"`
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
	if req.Color != "" {
		updates["color"] = req.Color
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "Nothing to update")
	}

	if err := database.DB.Model(&subject).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to update subject")
	}
	return utils.Success(c, fiber.Map{"subject": subject})
}

// DeleteSubject soft deletes a subject. Admin only.
func (sc *SchoolController) DeleteSubject(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid subject ID")
	}

	res := database.DB.Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		Delete(&models.Subject{})
	if res.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to delete subject")
	}
	if res.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "Subject not found")
	}
	return utils.Message(c, "Subject deleted")
}

// ListClasses returns the school's classes with subject and teacher.
func (sc *SchoolController) ListClasses(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var classes []models.Class
	if err := database.DB.Where("school_id = ?", claims.SchoolID).
		Preload("Subject").Preload("Teacher.User").
		Order("name ASC").Find(&classes).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch classes")
	}
	return utils.Success(c, fiber.Map{"classes": classes})
}

// CreateClass adds a class. Admin only. Subject and teacher must belong to
// the same school.
func (sc *SchoolController) CreateClass(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var req struct {
		Name      string `json:"name" validate:"required,min=1,max=100"`
		SubjectID uint   `json:"subject_id" validate:"required"`
		TeacherID uint   `json:"teacher_id" validate:"required"`
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
	var teacher models.Teacher
	if err := database.DB.Where("id = ? AND school_id = ?", req.TeacherID, claims.SchoolID).
		First(&teacher).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Teacher not found")
	}

	class := models.Class{
		SchoolID:  claims.SchoolID,
		Name:      utils.SanitizeString(req.Name),
		SubjectID: subject.ID,
		TeacherID: teacher.ID,
	}
	if err := database.DB.Create(&class).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to create class")
	}
	return utils.Created(c, "Class created", fiber.Map{"class": class})
}

// UpdateClass reassigns a class's subject or teacher. Admin only.
func (sc *SchoolController) UpdateClass(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid class ID")
	}

	var class models.Class
	if err := database.DB.Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		First(&class).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Class not found")
	}

	var req struct {
		Name      string `json:"name" validate:"omitempty,min=1,max=100"`
		SubjectID uint   `json:"subject_id"`
		TeacherID uint   `json:"teacher_id"`
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
	if req.SubjectID != 0 {
		var subject models.Subject
		if err := database.DB.Where("id = ? AND school_id = ?", req.SubjectID, claims.SchoolID).
			First(&subject).Error; err != nil {
			return utils.Error(c, fiber.StatusNotFound, "Subject not found")
		}
		updates["subject_id"] = req.SubjectID
	}
	if req.TeacherID != 0 {
		var teacher models.Teacher
		if err := database.DB.Where("id = ? AND school_id = ?", req.TeacherID, claims.SchoolID).
			First(&teacher).Error; err != nil {
			return utils.Error(c, fiber.StatusNotFound, "Teacher not found")
		}
		updates["teacher_id"] = req.TeacherID
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "Nothing to update")
	}

	if err := database.DB.Model(&class).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to update class")
	}
	return utils.Success(c, fiber.Map{"class": class})
}

// DeleteClass removes a class. Admin only.
func (sc *SchoolController) DeleteClass(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid class ID")
	}

	res := database.DB.Where("id = ? AND school_id = ?", uint(id), claims.SchoolID).
		Delete(&models.Class{})
	if res.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to delete class")
	}
	if res.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "Class not found")
	}
	return utils.Message(c, "Class deleted")
}

// Stats returns headline counts for the school dashboard. Admin only.
func (sc *SchoolController) Stats(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	counts := fiber.Map{}
	type countRow struct {
		model interface{}
		key   string
		where []interface{}
	}
	rows := []countRow{
		{&models.User{}, "students", []interface{}{"school_id = ? AND role = ?", claims.SchoolID, models.RoleStudent}},
		{&models.User{}, "teachers", []interface{}{"school_id = ? AND role = ?", claims.SchoolID, models.RoleTeacher}},
		{&models.User{}, "parents", []interface{}{"school_id = ? AND role = ?", claims.SchoolID, models.RoleParent}},
		{&models.Class{}, "classes", []interface{}{"school_id = ?", claims.SchoolID}},
		{&models.Subject{}, "subjects", []interface{}{"school_id = ?", claims.SchoolID}},
		{&models.Homework{}, "active_homework", []interface{}{"school_id = ? AND active = ?", claims.SchoolID, true}},
		{&models.Exam{}, "upcoming_exams", []interface{}{"school_id = ? AND status = ?", claims.SchoolID, models.ExamStatusUpcoming}},
		{&models.Fee{}, "pending_fees", []interface{}{"school_id = ? AND status = ?", claims.SchoolID, models.FeeStatusPending}},
	}
	for _, row := range rows {
		var n int64
		if err := database.DB.Model(row.model).Where(row.where[0], row.where[1:]...).Count(&n).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to compute stats")
		}
		counts[row.key] = n
	}

	var feeTotals struct {
		Collected float64
		Due       float64
	}
	database.DB.Model(&models.Fee{}).
		Where("school_id = ? AND status = ?", claims.SchoolID, models.FeeStatusPaid).
		Select("COALESCE(SUM(amount), 0)").Scan(&feeTotals.Collected)
	database.DB.Model(&models.Fee{}).
		Where("school_id = ? AND status IN ?", claims.SchoolID,
			[]string{models.FeeStatusPending, models.FeeStatusOverdue}).
		Select("COALESCE(SUM(amount), 0)").Scan(&feeTotals.Due)
	counts["fees_collected"] = feeTotals.Collected
	counts["fees_due"] = feeTotals.Due

	return utils.Success(c, fiber.Map{"stats": counts})
}
