package seeders

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"edumesh/database"
	"edumesh/models"
)

// SeedDemoData creates a demo school with one user per role, a class, a
// subject and sample homework. Safe to run repeatedly: it keys off the demo
// school code and skips when present.
func SeedDemoData() error {
	db := database.DB

	var existing int64
	db.Model(&models.School{}).Where("code = ?", "SCH-DEMO0001").Count(&existing)
	if existing > 0 {
		logrus.Info("Demo data already present, skipping seed")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		school := models.School{
			Name:       "Greenfield Public School",
			Code:       "SCH-DEMO0001",
			Region:     "Bengaluru",
			Address:    "12 MG Road",
			AdminEmail: "admin@greenfield.example",
		}
		if err := tx.Create(&school).Error; err != nil {
			return err
		}

		admin := models.User{
			Name: "Asha Verma", Email: "admin@greenfield.example",
			Phone: "+919800000001", Role: models.RoleAdmin,
			SchoolID: school.ID, Active: true,
		}
		teacherUser := models.User{
			Name: "Ravi Iyer", Email: "ravi@greenfield.example",
			Phone: "+919800000002", Role: models.RoleTeacher,
			SchoolID: school.ID, Active: true,
		}
		parentUser := models.User{
			Name: "Meena Rao", Email: "meena@greenfield.example",
			Phone: "+919800000003", Role: models.RoleParent,
			SchoolID: school.ID, Active: true,
		}
		studentUser := models.User{
			Name: "Kiran Rao", Email: "kiran@greenfield.example",
			Phone: "+919800000004", Role: models.RoleStudent,
			SchoolID: school.ID, Active: true,
		}
		for _, u := range []*models.User{&admin, &teacherUser, &parentUser, &studentUser} {
			if err := tx.Create(u).Error; err != nil {
				return err
			}
		}

		teacher := models.Teacher{
			UserID: teacherUser.ID, SchoolID: school.ID,
			EmployeeID: "EMP-001", Subjects: "Mathematics",
		}
		if err := tx.Create(&teacher).Error; err != nil {
			return err
		}

		student := models.Student{
			UserID: studentUser.ID, SchoolID: school.ID,
			StudentCode: "STU-001", ClassName: "Grade 7A",
			RollNumber: "07", ParentID: &parentUser.ID,
		}
		if err := tx.Create(&student).Error; err != nil {
			return err
		}

		subject := models.Subject{
			SchoolID: school.ID, Name: "Mathematics", Code: "MATH", Color: "#2d6cdf",
		}
		if err := tx.Create(&subject).Error; err != nil {
			return err
		}

		class := models.Class{
			SchoolID: school.ID, Name: "Grade 7A",
			SubjectID: subject.ID, TeacherID: teacher.ID,
		}
		if err := tx.Create(&class).Error; err != nil {
			return err
		}

		homework := models.Homework{
			SchoolID: school.ID, TeacherID: teacher.ID, SubjectID: subject.ID,
			ClassName: "Grade 7A", Title: "Fractions worksheet",
			Description: "Complete exercises 1-20",
			DueDate:     time.Now().AddDate(0, 0, 7),
			MaxMarks:    20, Active: true,
		}
		if err := tx.Create(&homework).Error; err != nil {
			return err
		}

		fee := models.Fee{
			SchoolID: school.ID, StudentID: student.ID,
			Title: "Term 1 tuition", Amount: 12500,
			DueDate: time.Now().AddDate(0, 1, 0),
			Status:  models.FeeStatusPending,
		}
		if err := tx.Create(&fee).Error; err != nil {
			return err
		}

		logrus.WithField("school_code", school.Code).Info("Demo data seeded")
		return nil
	})
}
