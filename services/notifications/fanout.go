package notifications

import (
	"gorm.io/gorm"

	"edumesh/models"
)

// Recipient resolution for fan-out. The rules mirror who cares about each
// event: class-wide events reach students and their linked parents, absence
// reaches the parent only, grading reaches the student and parent, and a
// submission reaches the teacher who set the work.

// AudienceMode selects which side of the student/parent pair receives a
// class or student scoped event.
type AudienceMode int

const (
	// StudentsAndParents targets every student plus every linked parent.
	StudentsAndParents AudienceMode = iota
	// ParentsOnly targets linked parents, skipping students entirely.
	ParentsOnly
	// StudentsOnly targets students without their parents.
	StudentsOnly
)

// ClassAudience resolves recipient user IDs for an event that concerns a
// whole class (new homework, new exam).
func ClassAudience(db *gorm.DB, schoolID uint, className string, mode AudienceMode) ([]uint, error) {
	var students []models.Student
	err := db.Where("school_id = ? AND class_name = ?", schoolID, className).
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return AssembleAudience(students, mode), nil
}

// StudentAudience resolves recipients for an event about specific students
// (absence, grading, fee).
func StudentAudience(db *gorm.DB, studentIDs []uint, mode AudienceMode) ([]uint, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var students []models.Student
	if err := db.Where("id IN ?", studentIDs).Find(&students).Error; err != nil {
		return nil, err
	}
	return AssembleAudience(students, mode), nil
}

// TeacherUser resolves the user behind a teacher profile; returns 0 when the
// profile does not exist.
func TeacherUser(db *gorm.DB, teacherID uint) uint {
	var teacher models.Teacher
	if err := db.First(&teacher, teacherID).Error; err != nil {
		return 0
	}
	return teacher.UserID
}

// AssembleAudience flattens student rows into a deduplicated recipient list
// according to the audience mode. Students without a linked parent simply
// contribute no parent entry.
func AssembleAudience(students []models.Student, mode AudienceMode) []uint {
	seen := make(map[uint]bool, len(students)*2)
	recipients := make([]uint, 0, len(students)*2)
	add := func(id uint) {
		if id == 0 || seen[id] {
			return
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	for _, st := range students {
		if mode != ParentsOnly {
			add(st.UserID)
		}
		if mode != StudentsOnly && st.ParentID != nil {
			add(*st.ParentID)
		}
	}
	return recipients
}
