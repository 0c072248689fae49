package controllers

import (
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

type AttendanceController struct {
	notifier *notifications.Service
}

func NewAttendanceController(notifier *notifications.Service) *AttendanceController {
	return &AttendanceController{notifier: notifier}
}

// List returns attendance rows visible to the caller, filterable by class,
// student and date range.
func (ac *AttendanceController) List(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	spec, err := scope.Resolve(database.DB, claims.UserID, claims.SchoolID, claims.Role)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to resolve access scope")
	}

	query := spec.Attendance(database.DB.Model(&models.Attendance{}))
	if classID := c.Query("class_id"); classID != "" {
		query = query.Where("attendances.class_id = ?", classID)
	}
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("attendances.student_id = ?", studentID)
	}
	if from := c.Query("from"); from != "" {
		query = query.Where("attendances.date >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		query = query.Where("attendances.date <= ?", to)
	}

	var rows []models.Attendance
	if err := query.Preload("Student.User").Preload("Class").
		Order("attendances.date DESC").
		Limit(500).
		Find(&rows).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch attendance")
	}
	return utils.Success(c, fiber.Map{"attendance": rows})
}

// Mark records attendance for a class on a date. Any existing rows for that
// (class, date) are replaced in the same transaction, so re-marking a day is
// safe. Absent students' parents are notified afterwards.
func (ac *AttendanceController) Mark(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	var req struct {
		ClassID uint              `json:"class_id" validate:"required"`
		Date    string            `json:"date" validate:"required"`
		Entries []attendanceEntry `json:"entries" validate:"required,min=1,dive"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}
	req.Entries = dedupeEntries(req.Entries)

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	var class models.Class
	if err := database.DB.Where("id = ? AND school_id = ?", req.ClassID, claims.SchoolID).
		First(&class).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Class not found")
	}

	// Teachers may only mark classes they teach
	if claims.Role == models.RoleTeacher {
		spec, err := scope.Resolve(database.DB, claims.UserID, claims.SchoolID, claims.Role)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "Failed to resolve access scope")
		}
		if !spec.OwnsClass(class.ID) {
			return utils.Error(c, fiber.StatusForbidden, "You do not teach this class")
		}
	}

	// Validate students before touching anything
	studentIDs := make([]uint, 0, len(req.Entries))
	for _, e := range req.Entries {
		studentIDs = append(studentIDs, e.StudentID)
	}
	var known int64
	database.DB.Model(&models.Student{}).
		Where("id IN ? AND school_id = ?", studentIDs, claims.SchoolID).
		Count(&known)
	if known != int64(len(studentIDs)) {
		return utils.Error(c, fiber.StatusBadRequest, "One or more students do not belong to this school")
	}

	rows := make([]models.Attendance, 0, len(req.Entries))
	absentIDs := make([]uint, 0)
	for _, e := range req.Entries {
		rows = append(rows, models.Attendance{
			SchoolID:  claims.SchoolID,
			StudentID: e.StudentID,
			ClassID:   class.ID,
			Date:      date,
			Status:    e.Status,
			Notes:     e.Notes,
			MarkedBy:  claims.UserID,
		})
		if e.Status == models.AttendanceAbsent {
			absentIDs = append(absentIDs, e.StudentID)
		}
	}

	// Replace the day atomically
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := attendanceForDay(tx.Unscoped(), class.ID, date).
			Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		logrus.WithError(err).Error("Attendance replacement failed")
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to mark attendance")
	}

	// Parents of absent students, after commit
	if len(absentIDs) > 0 {
		recipients, err := notifications.StudentAudience(database.DB, absentIDs, notifications.ParentsOnly)
		if err != nil {
			logrus.WithError(err).Warn("Failed to resolve absence audience")
		} else {
			ac.notifier.FanOut(c.Context(), recipients, notifications.Payload{
				SchoolID: claims.SchoolID,
				Type:     models.NotificationTypeAttendance,
				Title:    "Absence recorded",
				Body:     fmt.Sprintf("Your child was marked absent from %s on %s", class.Name, req.Date),
				Data:     models.JSON(fmt.Sprintf(`{"class_id": %d, "date": %q}`, class.ID, req.Date)),
			})
		}
	}

	return utils.Created(c, "Attendance marked", fiber.Map{
		"class_id": class.ID,
		"date":     req.Date,
		"count":    len(rows),
	})
}

// attendanceEntry is one student's status in a Mark payload.
type attendanceEntry struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent late excused"`
	Notes     string `json:"notes"`
}

// dedupeEntries keeps one entry per student, the last occurrence winning,
// preserving first-seen order. The replacement insert must never write two
// rows for one (student, class, date).
func dedupeEntries(entries []attendanceEntry) []attendanceEntry {
	index := map[uint]int{}
	out := make([]attendanceEntry, 0, len(entries))
	for _, e := range entries {
		if i, seen := index[e.StudentID]; seen {
			out[i] = e
			continue
		}
		index[e.StudentID] = len(out)
		out = append(out, e)
	}
	return out
}

// attendanceForDay narrows q to one class's rows on one date.
func attendanceForDay(q *gorm.DB, classID uint, date time.Time) *gorm.DB {
	return q.Where("class_id = ? AND date = ?", classID, date)
}

// Summary returns per-student counts and percentages for a month.
func (ac *AttendanceController) Summary(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	spec, err := scope.Resolve(database.DB, claims.UserID, claims.SchoolID, claims.Role)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to resolve access scope")
	}

	year, _ := strconv.Atoi(c.Query("year", strconv.Itoa(time.Now().Year())))
	month, _ := strconv.Atoi(c.Query("month", strconv.Itoa(int(time.Now().Month()))))
	if month < 1 || month > 12 {
		return utils.Error(c, fiber.StatusBadRequest, "month must be 1-12")
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	query := spec.Attendance(database.DB.Model(&models.Attendance{})).
		Where("attendances.date >= ? AND attendances.date < ?", start, end)
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("attendances.student_id = ?", studentID)
	}

	var rows []models.Attendance
	if err := query.Find(&rows).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch attendance")
	}

	return utils.Success(c, fiber.Map{
		"year":    year,
		"month":   month,
		"summary": SummarizeAttendance(rows),
	})
}

// StudentAttendanceSummary aggregates one student's month.
type StudentAttendanceSummary struct {
	StudentID  uint    `json:"student_id"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Excused    int     `json:"excused"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// SummarizeAttendance folds raw rows into per-student summaries. Present and
// late both count toward the attendance percentage; excused days are removed
// from the denominator.
func SummarizeAttendance(rows []models.Attendance) []StudentAttendanceSummary {
	byStudent := map[uint]*StudentAttendanceSummary{}
	order := []uint{}
	for _, row := range rows {
		s, ok := byStudent[row.StudentID]
		if !ok {
			s = &StudentAttendanceSummary{StudentID: row.StudentID}
			byStudent[row.StudentID] = s
			order = append(order, row.StudentID)
		}
		s.Total++
		switch row.Status {
		case models.AttendancePresent:
			s.Present++
		case models.AttendanceAbsent:
			s.Absent++
		case models.AttendanceLate:
			s.Late++
		case models.AttendanceExcused:
			s.Excused++
		}
	}

	out := make([]StudentAttendanceSummary, 0, len(order))
	for _, id := range order {
		s := byStudent[id]
		denominator := s.Total - s.Excused
		if denominator > 0 {
			s.Percentage = float64(s.Present+s.Late) / float64(denominator) * 100
		}
		out = append(out, *s)
	}
	return out
}
