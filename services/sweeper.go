package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"edumesh/database"
	"edumesh/models"
	"edumesh/services/notifications"
)

// Sweeper runs the daily maintenance jobs: flagging pending fees past their
// due date as overdue and rolling exam statuses forward by date.
type Sweeper struct {
	db       *gorm.DB
	notifier *notifications.Service
	cron     *cron.Cron
}

func NewSweeper(notifier *notifications.Service) *Sweeper {
	return &Sweeper{
		db:       database.DB,
		notifier: notifier,
		cron:     cron.New(),
	}
}

// Start registers the jobs and starts the scheduler. Both jobs also run once
// at startup so a restarted service catches up immediately.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("0 1 * * *", s.SweepOverdueFees); err != nil {
		return fmt.Errorf("schedule overdue fee sweep: %w", err)
	}
	if _, err := s.cron.AddFunc("30 1 * * *", s.SweepExamStatuses); err != nil {
		return fmt.Errorf("schedule exam status sweep: %w", err)
	}
	s.cron.Start()

	go func() {
		s.SweepOverdueFees()
		s.SweepExamStatuses()
	}()

	logrus.Info("Maintenance sweeper started")
	return nil
}

// Stop halts the scheduler, waiting for running jobs to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SweepOverdueFees marks pending fees with a past due date as overdue and
// notifies each affected student's parent.
func (s *Sweeper) SweepOverdueFees() {
	today := time.Now().Truncate(24 * time.Hour)

	var fees []models.Fee
	err := s.db.Where("status = ? AND due_date < ?", models.FeeStatusPending, today).
		Find(&fees).Error
	if err != nil {
		logrus.WithError(err).Error("Overdue fee sweep query failed")
		return
	}
	if len(fees) == 0 {
		return
	}

	flipped := 0
	for _, fee := range fees {
		res := s.db.Model(&models.Fee{}).
			Where("id = ? AND status = ?", fee.ID, models.FeeStatusPending).
			Update("status", models.FeeStatusOverdue)
		if res.Error != nil {
			logrus.WithError(res.Error).WithField("fee_id", fee.ID).Error("Failed to flag overdue fee")
			continue
		}
		if res.RowsAffected == 0 {
			continue // paid or cancelled since the query
		}
		flipped++

		recipients, err := notifications.StudentAudience(s.db, []uint{fee.StudentID}, notifications.ParentsOnly)
		if err != nil {
			logrus.WithError(err).WithField("fee_id", fee.ID).Warn("Failed to resolve overdue fee audience")
			continue
		}
		s.notifier.FanOut(context.Background(), recipients, notifications.Payload{
			SchoolID: fee.SchoolID,
			Type:     models.NotificationTypeFee,
			Title:    "Fee overdue",
			Body:     fmt.Sprintf("%s of %.2f was due on %s", fee.Title, fee.Amount, fee.DueDate.Format("2006-01-02")),
			Data:     models.JSON(fmt.Sprintf(`{"fee_id": %d}`, fee.ID)),
		})
	}

	logrus.WithField("count", flipped).Info("Flagged overdue fees")
}

// dayWindow returns the half-open [midnight, next midnight) interval
// containing now. Exam dates are stored as midnights, so tomorrow's exam sits
// exactly on the window's end and must stay outside it.
func dayWindow(now time.Time) (time.Time, time.Time) {
	start := now.Truncate(24 * time.Hour)
	return start, start.Add(24 * time.Hour)
}

// SweepExamStatuses rolls upcoming exams whose date has arrived to ongoing,
// and ongoing exams whose date has passed to completed. Cancelled exams are
// never touched.
func (s *Sweeper) SweepExamStatuses() {
	today, tomorrow := dayWindow(time.Now())

	res := s.db.Model(&models.Exam{}).
		Where("status = ? AND exam_date >= ? AND exam_date < ?",
			models.ExamStatusUpcoming, today, tomorrow).
		Update("status", models.ExamStatusOngoing)
	if res.Error != nil {
		logrus.WithError(res.Error).Error("Exam ongoing sweep failed")
	} else if res.RowsAffected > 0 {
		logrus.WithField("count", res.RowsAffected).Info("Exams moved to ongoing")
	}

	res = s.db.Model(&models.Exam{}).
		Where("status IN ? AND exam_date < ?",
			[]string{models.ExamStatusUpcoming, models.ExamStatusOngoing}, today).
		Update("status", models.ExamStatusCompleted)
	if res.Error != nil {
		logrus.WithError(res.Error).Error("Exam completed sweep failed")
	} else if res.RowsAffected > 0 {
		logrus.WithField("count", res.RowsAffected).Info("Exams moved to completed")
	}
}
