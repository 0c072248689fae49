package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = append((*j)[0:0], v...)
	}
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// School is the root tenant. Every other row carries a SchoolID.
type School struct {
	BaseModel
	Name       string `json:"name" gorm:"size:255;not null"`
	Code       string `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Region     string `json:"region" gorm:"size:100"`
	Address    string `json:"address" gorm:"size:500"`
	Phone      string `json:"phone" gorm:"size:20"`
	AdminEmail string `json:"admin_email" gorm:"size:255"`

	// Relationships
	Users    []User    `json:"users,omitempty" gorm:"foreignKey:SchoolID"`
	Subjects []Subject `json:"subjects,omitempty" gorm:"foreignKey:SchoolID"`
	Classes  []Class   `json:"classes,omitempty" gorm:"foreignKey:SchoolID"`
}

// User model. Role is fixed at creation; deactivation is a soft flag.
type User struct {
	BaseModel
	Name      string     `json:"name" gorm:"size:255;not null"`
	Email     string     `json:"email" gorm:"size:255;index:idx_users_school_email,unique"`
	Phone     string     `json:"phone" gorm:"size:20;index"`
	Role      string     `json:"role" gorm:"size:20;not null;default:'student'"` // admin, teacher, parent, student
	SchoolID  uint       `json:"school_id" gorm:"not null;index;index:idx_users_school_email,unique"`
	Active    bool       `json:"active" gorm:"default:true"`
	AvatarURL string     `json:"avatar_url" gorm:"size:500"`
	LastLogin *time.Time `json:"last_login"`

	// Relationships
	School  School   `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
	Student *Student `json:"student,omitempty" gorm:"foreignKey:UserID"`
	Teacher *Teacher `json:"teacher,omitempty" gorm:"foreignKey:UserID"`
}

// Student profile, one-to-one with a User. ParentID links to a parent User.
type Student struct {
	BaseModel
	UserID      uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	SchoolID    uint   `json:"school_id" gorm:"not null;index"`
	StudentCode string `json:"student_code" gorm:"size:50"`
	ClassName   string `json:"class_name" gorm:"size:100;index"`
	RollNumber  string `json:"roll_number" gorm:"size:50"`
	ParentID    *uint  `json:"parent_id" gorm:"index;default:null"`

	// Relationships
	User   User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Parent *User `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
}

// Teacher profile, one-to-one with a User.
type Teacher struct {
	BaseModel
	UserID     uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	SchoolID   uint   `json:"school_id" gorm:"not null;index"`
	EmployeeID string `json:"employee_id" gorm:"size:50"`
	Subjects   string `json:"subjects" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Subject model
type Subject struct {
	BaseModel
	SchoolID uint   `json:"school_id" gorm:"not null;index:idx_subjects_school_code,unique"`
	Name     string `json:"name" gorm:"size:100;not null"`
	Code     string `json:"code" gorm:"size:50;not null;index:idx_subjects_school_code,unique"`
	Color    string `json:"color" gorm:"size:20"`
}

// Class model: a named class taught by one teacher for one subject.
type Class struct {
	BaseModel
	SchoolID  uint   `json:"school_id" gorm:"not null;index"`
	Name      string `json:"name" gorm:"size:100;not null"`
	SubjectID uint   `json:"subject_id" gorm:"index"`
	TeacherID uint   `json:"teacher_id" gorm:"index"`

	// Relationships
	Subject Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Teacher Teacher `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// Homework model. Soft-deleted via the Active flag, never removed.
// Table name pinned since "homework" has no plural.
type Homework struct {
	BaseModel
	SchoolID    uint      `json:"school_id" gorm:"not null;index"`
	TeacherID   uint      `json:"teacher_id" gorm:"not null;index"`
	SubjectID   uint      `json:"subject_id" gorm:"not null;index"`
	ClassName   string    `json:"class_name" gorm:"size:100;not null;index"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Description string    `json:"description" gorm:"type:text"`
	DueDate     time.Time `json:"due_date" gorm:"not null"`
	MaxMarks    int       `json:"max_marks" gorm:"default:0"`
	Attachments JSON      `json:"attachments" gorm:"type:jsonb"`
	Active      bool      `json:"active" gorm:"default:true"`

	// Relationships
	Subject     Subject              `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Teacher     Teacher              `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Submissions []HomeworkSubmission `json:"submissions,omitempty" gorm:"foreignKey:HomeworkID"`
}

func (Homework) TableName() string { return "homework" }

// HomeworkSubmission: at most one per (homework, student).
type HomeworkSubmission struct {
	BaseModel
	HomeworkID    uint      `json:"homework_id" gorm:"not null;index:idx_submissions_homework_student,unique"`
	StudentID     uint      `json:"student_id" gorm:"not null;index:idx_submissions_homework_student,unique"`
	Notes         string    `json:"notes" gorm:"type:text"`
	Attachments   JSON      `json:"attachments" gorm:"type:jsonb"`
	Status        string    `json:"status" gorm:"size:20;not null;default:'submitted'"` // submitted, late, graded
	MarksObtained *int      `json:"marks_obtained"`
	Feedback      string    `json:"feedback" gorm:"type:text"`
	SubmittedAt   time.Time `json:"submitted_at"`

	// Relationships
	Homework Homework `json:"homework,omitempty" gorm:"foreignKey:HomeworkID"`
	Student  Student  `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Attendance: one row per (student, class, date). Re-marking a (class, date)
// replaces the whole day's rows inside one transaction.
type Attendance struct {
	BaseModel
	SchoolID  uint      `json:"school_id" gorm:"not null;index"`
	StudentID uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_attendance_day"`
	ClassID   uint      `json:"class_id" gorm:"not null;uniqueIndex:idx_attendance_day"`
	Date      time.Time `json:"date" gorm:"type:date;not null;uniqueIndex:idx_attendance_day"`
	Status    string    `json:"status" gorm:"size:20;not null"` // present, absent, late, excused
	Notes     string    `json:"notes" gorm:"size:500"`
	MarkedBy  uint      `json:"marked_by"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Class   Class   `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

// Exam model
type Exam struct {
	BaseModel
	SchoolID     uint      `json:"school_id" gorm:"not null;index"`
	SubjectID    uint      `json:"subject_id" gorm:"not null;index"`
	ClassName    string    `json:"class_name" gorm:"size:100;not null;index"`
	Title        string    `json:"title" gorm:"size:255;not null"`
	ExamDate     time.Time `json:"exam_date" gorm:"type:date;not null"`
	StartTime    string    `json:"start_time" gorm:"size:5"`
	EndTime      string    `json:"end_time" gorm:"size:5"`
	Location     string    `json:"location" gorm:"size:255"`
	MaxMarks     int       `json:"max_marks" gorm:"default:100"`
	Instructions string    `json:"instructions" gorm:"type:text"`
	Status       string    `json:"status" gorm:"size:20;not null;default:'upcoming'"` // upcoming, ongoing, completed, cancelled

	// Relationships
	Subject Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

// Fee: per-student billable item. Only transition is pending -> paid.
type Fee struct {
	BaseModel
	SchoolID      uint       `json:"school_id" gorm:"not null;index"`
	StudentID     uint       `json:"student_id" gorm:"not null;index"`
	Title         string     `json:"title" gorm:"size:255;not null"`
	Description   string     `json:"description" gorm:"type:text"`
	Amount        float64    `json:"amount" gorm:"not null"`
	DueDate       time.Time  `json:"due_date" gorm:"type:date;not null"`
	Status        string     `json:"status" gorm:"size:20;not null;default:'pending'"` // pending, paid, overdue, cancelled
	PaymentMethod string     `json:"payment_method" gorm:"size:50"`
	TransactionID string     `json:"transaction_id" gorm:"size:100"`
	PaidAt        *time.Time `json:"paid_at"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Message: directed chat row. No edit or delete.
type Message struct {
	BaseModel
	SchoolID    uint       `json:"school_id" gorm:"not null;index"`
	SenderID    uint       `json:"sender_id" gorm:"not null;index"`
	ReceiverID  uint       `json:"receiver_id" gorm:"not null;index"`
	Content     string     `json:"content" gorm:"type:text;not null"`
	MessageType string     `json:"message_type" gorm:"size:20;not null;default:'text'"` // text, image, file
	Attachments JSON       `json:"attachments" gorm:"type:jsonb"`
	Read        bool       `json:"read" gorm:"default:false"`
	ReadAt      *time.Time `json:"read_at"`

	// Relationships
	Sender   User `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Receiver User `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID"`
}

// Notification: per-user inbox row, created only as a side effect of another
// entity's mutation. Read state is one-way.
type Notification struct {
	BaseModel
	SchoolID uint       `json:"school_id" gorm:"not null;index"`
	UserID   uint       `json:"user_id" gorm:"not null;index"`
	Title    string     `json:"title" gorm:"size:255;not null"`
	Message  string     `json:"message" gorm:"type:text;not null"`
	Type     string     `json:"type" gorm:"size:20;not null"` // homework, exam, attendance, fee, announcement, message
	Data     JSON       `json:"data" gorm:"type:jsonb"`
	Read     bool       `json:"read" gorm:"default:false"`
	ReadAt   *time.Time `json:"read_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
