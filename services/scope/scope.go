// Package scope narrows data queries to the rows a role may see. It is the
// single authorization policy for homework, attendance, exams and fees;
// controllers resolve a Spec once per request and apply it instead of
// branching on roles themselves.
package scope

import (
	"fmt"

	"edumesh/models"

	"gorm.io/gorm"
)

// Spec describes the caller's visibility for domain queries.
//
// Exactly one of All / Empty / the linkage fields drives each Apply method:
// admins see the whole school, teachers see rows they own through their
// classes, parents and students see rows of their linked student profiles.
type Spec struct {
	SchoolID uint
	Role     string

	// All marks an unrestricted (within-school) scope.
	All bool

	// Empty marks a caller with zero linked rows. Applying an Empty spec
	// always yields an empty result set, never an unscoped query.
	Empty bool

	TeacherID  uint
	StudentIDs []uint
	ClassIDs   []uint
	ClassNames []string
}

// Resolve loads the caller's linkage rows and builds the visibility spec.
func Resolve(db *gorm.DB, userID, schoolID uint, role string) (*Spec, error) {
	switch role {
	case "admin":
		return &Spec{SchoolID: schoolID, Role: role, All: true}, nil

	case "teacher":
		var teacher models.Teacher
		if err := db.Where("user_id = ?", userID).First(&teacher).Error; err != nil {
			return &Spec{SchoolID: schoolID, Role: role, Empty: true}, nil
		}
		var classes []models.Class
		if err := db.Where("teacher_id = ? AND school_id = ?", teacher.ID, schoolID).Find(&classes).Error; err != nil {
			return nil, err
		}
		classIDs := make([]uint, 0, len(classes))
		classNames := make([]string, 0, len(classes))
		for _, cl := range classes {
			classIDs = append(classIDs, cl.ID)
			classNames = append(classNames, cl.Name)
		}
		return buildSpec(schoolID, role, teacher.ID, nil, classIDs, classNames), nil

	case "parent":
		var students []models.Student
		if err := db.Where("parent_id = ? AND school_id = ?", userID, schoolID).Find(&students).Error; err != nil {
			return nil, err
		}
		return buildSpec(schoolID, role, 0, studentLinks(students), nil, classNames(students)), nil

	case "student":
		var students []models.Student
		if err := db.Where("user_id = ? AND school_id = ?", userID, schoolID).Limit(1).Find(&students).Error; err != nil {
			return nil, err
		}
		return buildSpec(schoolID, role, 0, studentLinks(students), nil, classNames(students)), nil
	}

	return nil, fmt.Errorf("unknown role: %s", role)
}

// buildSpec is the pure policy step: given the caller's linkage it decides
// between an empty and a constrained scope. A teacher keeps their TeacherID
// even with no classes, since homework rows link to teachers directly.
func buildSpec(schoolID uint, role string, teacherID uint, studentIDs []uint, classIDs []uint, names []string) *Spec {
	s := &Spec{
		SchoolID:   schoolID,
		Role:       role,
		TeacherID:  teacherID,
		StudentIDs: studentIDs,
		ClassIDs:   classIDs,
		ClassNames: names,
	}
	if teacherID == 0 && len(studentIDs) == 0 {
		s.Empty = true
	}
	return s
}

func studentLinks(students []models.Student) []uint {
	ids := make([]uint, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids
}

func classNames(students []models.Student) []string {
	names := make([]string, 0, len(students))
	seen := map[string]struct{}{}
	for _, st := range students {
		if st.ClassName == "" {
			continue
		}
		if _, dup := seen[st.ClassName]; dup {
			continue
		}
		names = append(names, st.ClassName)
		seen[st.ClassName] = struct{}{}
	}
	return names
}

// none forces an explicitly empty result set. Passing an empty slice to a
// query-builder IN clause can degrade to no filter at all, so an exhausted
// scope must never reach the builder.
func none(q *gorm.DB) *gorm.DB {
	return q.Where("1 = 0")
}

// Homework scopes a homework query.
func (s *Spec) Homework(q *gorm.DB) *gorm.DB {
	q = q.Where("homework.school_id = ?", s.SchoolID)
	if s.All {
		return q
	}
	if s.Empty {
		return none(q)
	}
	if s.Role == "teacher" {
		return q.Where("homework.teacher_id = ?", s.TeacherID)
	}
	if len(s.ClassNames) == 0 {
		return none(q)
	}
	return q.Where("homework.class_name IN ?", s.ClassNames)
}

// Attendance scopes an attendance query.
func (s *Spec) Attendance(q *gorm.DB) *gorm.DB {
	q = q.Where("attendances.school_id = ?", s.SchoolID)
	if s.All {
		return q
	}
	if s.Empty {
		return none(q)
	}
	if s.Role == "teacher" {
		if len(s.ClassIDs) == 0 {
			return none(q)
		}
		return q.Where("attendances.class_id IN ?", s.ClassIDs)
	}
	return q.Where("attendances.student_id IN ?", s.StudentIDs)
}

// Exams scopes an exam query. Teachers see exams for the classes they teach.
func (s *Spec) Exams(q *gorm.DB) *gorm.DB {
	q = q.Where("exams.school_id = ?", s.SchoolID)
	if s.All {
		return q
	}
	if s.Empty || len(s.ClassNames) == 0 {
		return none(q)
	}
	return q.Where("exams.class_name IN ?", s.ClassNames)
}

// Fees scopes a fee query. Teachers have no fee visibility.
func (s *Spec) Fees(q *gorm.DB) *gorm.DB {
	q = q.Where("fees.school_id = ?", s.SchoolID)
	if s.All {
		return q
	}
	if s.Empty || s.Role == "teacher" || len(s.StudentIDs) == 0 {
		return none(q)
	}
	return q.Where("fees.student_id IN ?", s.StudentIDs)
}

// OwnsClass reports whether the spec covers the given class id.
func (s *Spec) OwnsClass(classID uint) bool {
	if s.All {
		return true
	}
	for _, id := range s.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// OwnsStudent reports whether the spec covers the given student id.
func (s *Spec) OwnsStudent(studentID uint) bool {
	if s.All {
		return true
	}
	for _, id := range s.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
