package jobs

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
	"github.com/bakeprint/bakeprint-api/workflow"
)

// CompletionReminderJob periodically nudges bakers whose orders have finished
// printing but whose collection details are still unconfirmed.
type CompletionReminderJob struct {
	db        *gorm.DB
	emails    services.EmailService
	schedule  string
	afterDays int
	cron      *cron.Cron
}

// NewCompletionReminderJob creates the reminder job. schedule is a standard
// cron expression; afterDays is how long details may sit unconfirmed before a
// reminder goes out.
func NewCompletionReminderJob(db *gorm.DB, emails services.EmailService, schedule string, afterDays int) *CompletionReminderJob {
	return &CompletionReminderJob{
		db:        db,
		emails:    emails,
		schedule:  schedule,
		afterDays: afterDays,
		cron:      cron.New(),
	}
}

// Start schedules the job
func (j *CompletionReminderJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, j.Run)
	if err != nil {
		return err
	}

	j.cron.Start()
	log.Printf("Completion reminder job started (schedule %q)", j.schedule)
	return nil
}

// Stop stops the job
func (j *CompletionReminderJob) Stop() {
	j.cron.Stop()
	log.Println("Completion reminder job stopped")
}

// Run performs one reminder sweep. Exported so tests and operators can
// trigger it directly.
func (j *CompletionReminderJob) Run() {
	orders, err := j.FindUnconfirmed(time.Now())
	if err != nil {
		log.Printf("completion reminder sweep failed: %v", err)
		return
	}

	for _, order := range orders {
		if order.Baker.Email == "" {
			continue
		}
		if err := j.emails.SendCompletionReminderEmail(order.Baker.Email, order.OrderNumber); err != nil {
			log.Printf("completion reminder for order %s failed: %v", order.OrderNumber, err)
		}
	}
}

// FindUnconfirmed returns Completed orders whose details have been left
// unconfirmed for longer than the configured window
func (j *CompletionReminderJob) FindUnconfirmed(now time.Time) ([]models.Order, error) {
	cutoff := now.AddDate(0, 0, -j.afterDays)
	var orders []models.Order
	err := j.db.
		Preload("Baker").
		Where("stage = ? AND details_confirmed = ? AND updated_at < ?", workflow.StageCompleted, false, cutoff).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
