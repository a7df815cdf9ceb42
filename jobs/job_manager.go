package jobs

import (
	"log"

	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/config"
	"github.com/bakeprint/bakeprint-api/services"
)

// JobManager owns the background jobs for the service
type JobManager struct {
	reminder *CompletionReminderJob
}

// NewJobManager wires the jobs from config
func NewJobManager(cfg *config.Config, db *gorm.DB) *JobManager {
	return &JobManager{
		reminder: NewCompletionReminderJob(db, services.GetEmailService(), cfg.ReminderSchedule, cfg.ReminderAfterDays),
	}
}

// Start starts all jobs
func (m *JobManager) Start() {
	if err := m.reminder.Start(); err != nil {
		log.Printf("failed to start completion reminder job: %v", err)
	}
}

// Stop stops all jobs
func (m *JobManager) Stop() {
	m.reminder.Stop()
}
