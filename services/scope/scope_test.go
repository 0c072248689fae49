package scope

import (
	"strings"
	"testing"

	"edumesh/models"

	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestBuildSpecEmptyLinkage(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		teacherID  uint
		studentIDs []uint
		wantEmpty  bool
	}{
		{
			name:      "parent with no linked students",
			role:      "parent",
			wantEmpty: true,
		},
		{
			name:      "student with no profile",
			role:      "student",
			wantEmpty: true,
		},
		{
			name:       "parent with children",
			role:       "parent",
			studentIDs: []uint{4, 7},
			wantEmpty:  false,
		},
		{
			name:      "teacher with no classes keeps teacher linkage",
			role:      "teacher",
			teacherID: 3,
			wantEmpty: false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := buildSpec(1, tc.role, tc.teacherID, tc.studentIDs, nil, nil)
			if s.Empty != tc.wantEmpty {
				t.Fatalf("expected Empty=%v, got %v", tc.wantEmpty, s.Empty)
			}
			if s.SchoolID != 1 {
				t.Fatalf("spec lost school id")
			}
		})
	}
}

func TestPolicyPerRoleAndResource(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	admin := &Spec{SchoolID: 1, Role: "admin", All: true}
	teacher := &Spec{SchoolID: 1, Role: "teacher", TeacherID: 3, ClassIDs: []uint{2}, ClassNames: []string{"10A"}}
	parent := &Spec{SchoolID: 1, Role: "parent", StudentIDs: []uint{11}, ClassNames: []string{"10A"}}
	exhausted := &Spec{SchoolID: 1, Role: "parent", Empty: true}

	cases := []struct {
		name   string
		sql    string
		want   string
		forbid string
	}{
		{"admin homework is school-wide", homeworkSQL(db, admin), "homework.school_id", "1 = 0"},
		{"teacher homework filters by teacher", homeworkSQL(db, teacher), "homework.teacher_id", "1 = 0"},
		{"parent homework filters by class", homeworkSQL(db, parent), "homework.class_name IN", "1 = 0"},
		{"exhausted homework yields nothing", homeworkSQL(db, exhausted), "1 = 0", "class_name IN"},
		{"teacher attendance filters by class", attendanceSQL(db, teacher), "attendances.class_id IN", "1 = 0"},
		{"parent attendance filters by student", attendanceSQL(db, parent), "attendances.student_id IN", "1 = 0"},
		{"exhausted attendance yields nothing", attendanceSQL(db, exhausted), "1 = 0", "student_id IN"},
		{"teacher has no fee visibility", feesSQL(db, teacher), "1 = 0", "student_id IN"},
		{"parent fees filter by student", feesSQL(db, parent), "fees.student_id IN", "1 = 0"},
		{"admin fees are school-wide", feesSQL(db, admin), "fees.school_id", "1 = 0"},
		{"parent exams filter by class", examsSQL(db, parent), "exams.class_name IN", "1 = 0"},
		{"exhausted exams yield nothing", examsSQL(db, exhausted), "1 = 0", "class_name IN"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if !strings.Contains(tc.sql, tc.want) {
				t.Fatalf("expected %q in query, got: %s", tc.want, tc.sql)
			}
			if strings.Contains(tc.sql, tc.forbid) {
				t.Fatalf("unexpected %q in query: %s", tc.forbid, tc.sql)
			}
		})
	}
}

func homeworkSQL(db *gorm.DB, s *Spec) string {
	var rows []models.Homework
	return s.Homework(db.Session(&gorm.Session{DryRun: true}).Model(&models.Homework{})).Find(&rows).Statement.SQL.String()
}

func attendanceSQL(db *gorm.DB, s *Spec) string {
	var rows []models.Attendance
	return s.Attendance(db.Session(&gorm.Session{DryRun: true}).Model(&models.Attendance{})).Find(&rows).Statement.SQL.String()
}

func examsSQL(db *gorm.DB, s *Spec) string {
	var rows []models.Exam
	return s.Exams(db.Session(&gorm.Session{DryRun: true}).Model(&models.Exam{})).Find(&rows).Statement.SQL.String()
}

func feesSQL(db *gorm.DB, s *Spec) string {
	var rows []models.Fee
	return s.Fees(db.Session(&gorm.Session{DryRun: true}).Model(&models.Fee{})).Find(&rows).Statement.SQL.String()
}

func TestClassNamesDeduplicates(t *testing.T) {
	students := []models.Student{
		{ClassName: "10A"},
		{ClassName: "10A"},
		{ClassName: "9B"},
		{ClassName: ""},
	}
	names := classNames(students)
	if len(names) != 2 {
		t.Fatalf("expected 2 unique class names, got %v", names)
	}
	if names[0] != "10A" || names[1] != "9B" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestOwnsClass(t *testing.T) {
	s := &Spec{ClassIDs: []uint{2, 5}}
	if !s.OwnsClass(5) {
		t.Fatal("expected class 5 to be owned")
	}
	if s.OwnsClass(9) {
		t.Fatal("class 9 should not be owned")
	}
	admin := &Spec{All: true}
	if !admin.OwnsClass(9) {
		t.Fatal("admin owns every class in school")
	}
}

func TestOwnsStudent(t *testing.T) {
	s := &Spec{StudentIDs: []uint{11}}
	if !s.OwnsStudent(11) {
		t.Fatal("expected student 11 to be owned")
	}
	if s.OwnsStudent(12) {
		t.Fatal("student 12 should not be owned")
	}
}
