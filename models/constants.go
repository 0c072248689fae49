package models

// User roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleParent  = "parent"
	RoleStudent = "student"
)

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

// Homework submission statuses
const (
	SubmissionSubmitted = "submitted"
	SubmissionLate      = "late"
	SubmissionGraded    = "graded"
)

// Exam statuses
const (
	ExamStatusUpcoming  = "upcoming"
	ExamStatusOngoing   = "ongoing"
	ExamStatusCompleted = "completed"
	ExamStatusCancelled = "cancelled"
)

// Fee statuses
const (
	FeeStatusPending   = "pending"
	FeeStatusPaid      = "paid"
	FeeStatusOverdue   = "overdue"
	FeeStatusCancelled = "cancelled"
)

// Notification types
const (
	NotificationTypeHomework     = "homework"
	NotificationTypeExam         = "exam"
	NotificationTypeAttendance   = "attendance"
	NotificationTypeFee          = "fee"
	NotificationTypeAnnouncement = "announcement"
	NotificationTypeMessage      = "message"
)
