package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/utils"
)

type ImportController struct{}

type importRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportStudents creates student accounts from an uploaded XLSX. Admin only.
// Expected columns: name, email, phone, class_name, roll_number,
// parent_email. Rows that fail validation are reported and skipped; valid
// rows are committed.
func (ic *ImportController) ImportStudents(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	rows, status, msg := readSheet(c)
	if status != 0 {
		return utils.Error(c, status, msg)
	}

	created := 0
	errors := []importRowError{}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rowNum := i + 1

		name := cell(row, 0)
		email := strings.ToLower(cell(row, 1))
		phone := cell(row, 2)
		className := cell(row, 3)
		rollNumber := cell(row, 4)
		parentEmail := strings.ToLower(cell(row, 5))

		if name == "" || (email == "" && phone == "") {
			errors = append(errors, importRowError{rowNum, "name and a contact are required"})
			continue
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			var dup int64
			tx.Model(&models.User{}).
				Where("school_id = ? AND (email = ? OR phone = ?)", claims.SchoolID,
					nonEmpty(email), nonEmpty(phone)).
				Count(&dup)
			if dup > 0 {
				return fmt.Errorf("contact already registered")
			}

			user := models.User{
				Name:     utils.SanitizeString(name),
				Email:    email,
				Phone:    phone,
				Role:     models.RoleStudent,
				SchoolID: claims.SchoolID,
				Active:   true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}

			student := models.Student{
				UserID:     user.ID,
				SchoolID:   claims.SchoolID,
				ClassName:  className,
				RollNumber: rollNumber,
			}
			if parentEmail != "" {
				var parent models.User
				if err := tx.Where("school_id = ? AND email = ? AND role = ?",
					claims.SchoolID, parentEmail, models.RoleParent).
					First(&parent).Error; err == nil {
					student.ParentID = &parent.ID
				}
			}
			return tx.Create(&student).Error
		})
		if err != nil {
			errors = append(errors, importRowError{rowNum, err.Error()})
			continue
		}
		created++
	}

	logrus.WithFields(logrus.Fields{
		"school_id": claims.SchoolID,
		"created":   created,
		"failed":    len(errors),
	}).Info("Student import finished")

	return utils.Success(c, fiber.Map{
		"created": created,
		"errors":  errors,
	})
}

// ImportTeachers creates teacher accounts from an uploaded XLSX. Admin only.
// Expected columns: name, email, phone, employee_id, subjects.
func (ic *ImportController) ImportTeachers(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing user claims")
	}

	rows, status, msg := readSheet(c)
	if status != 0 {
		return utils.Error(c, status, msg)
	}

	created := 0
	errors := []importRowError{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rowNum := i + 1

		name := cell(row, 0)
		email := strings.ToLower(cell(row, 1))
		phone := cell(row, 2)
		employeeID := cell(row, 3)
		subjects := cell(row, 4)

		if name == "" || (email == "" && phone == "") {
			errors = append(errors, importRowError{rowNum, "name and a contact are required"})
			continue
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			var dup int64
			tx.Model(&models.User{}).
				Where("school_id = ? AND (email = ? OR phone = ?)", claims.SchoolID,
					nonEmpty(email), nonEmpty(phone)).
				Count(&dup)
			if dup > 0 {
				return fmt.Errorf("contact already registered")
			}

			user := models.User{
				Name:     utils.SanitizeString(name),
				Email:    email,
				Phone:    phone,
				Role:     models.RoleTeacher,
				SchoolID: claims.SchoolID,
				Active:   true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return tx.Create(&models.Teacher{
				UserID:     user.ID,
				SchoolID:   claims.SchoolID,
				EmployeeID: employeeID,
				Subjects:   subjects,
			}).Error
		})
		if err != nil {
			errors = append(errors, importRowError{rowNum, err.Error()})
			continue
		}
		created++
	}

	logrus.WithFields(logrus.Fields{
		"school_id": claims.SchoolID,
		"created":   created,
		"failed":    len(errors),
	}).Info("Teacher import finished")

	return utils.Success(c, fiber.Map{
		"created": created,
		"errors":  errors,
	})
}

// readSheet parses the first sheet of the uploaded "file" form field.
func readSheet(c *fiber.Ctx) ([][]string, int, string) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.StatusBadRequest, "An XLSX file is required"
	}
	if !utils.IsValidFileExtension(fileHeader.Filename, []string{"xlsx"}) {
		return nil, fiber.StatusBadRequest, "Only .xlsx files are supported"
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fiber.StatusBadRequest, "Failed to open uploaded file"
	}
	defer src.Close()

	book, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fiber.StatusBadRequest, "Failed to parse XLSX file"
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fiber.StatusBadRequest, "Workbook has no sheets"
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fiber.StatusBadRequest, "Failed to read sheet"
	}
	if len(rows) < 2 {
		return nil, fiber.StatusBadRequest, "Sheet has no data rows"
	}
	return rows, 0, ""
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
