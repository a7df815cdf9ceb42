package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
	"github.com/bakeprint/bakeprint-api/tests/testutil"
	"github.com/bakeprint/bakeprint-api/workflow"
)

func setupJobDB(t *testing.T) *gorm.DB {
	testutil.MustSetTestEnvironment(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.OrderItem{}, &models.ItemImage{}, &models.StageHistoryEntry{}, &models.UpdateRequest{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func seedReminderOrder(t *testing.T, db *gorm.DB, baker *models.User, stage string, confirmed bool, age time.Duration) *models.Order {
	t.Helper()
	order := models.Order{
		Stage:            stage,
		BakerID:          baker.ID,
		DetailsConfirmed: confirmed,
	}
	require.NoError(t, db.Create(&order).Error)

	// Backdate the row past gorm's automatic timestamp
	stamp := time.Now().Add(-age)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).UpdateColumn("updated_at", stamp).Error)
	return &order
}

func TestFindUnconfirmed(t *testing.T) {
	db := setupJobDB(t)
	baker := models.User{Auth0ID: "auth0|baker", Name: "Baker", Email: "baker@example.com", Role: models.RoleBaker}
	require.NoError(t, db.Create(&baker).Error)

	stale := seedReminderOrder(t, db, &baker, workflow.StageCompleted, false, 72*time.Hour)
	seedReminderOrder(t, db, &baker, workflow.StageCompleted, false, time.Hour)   // too fresh
	seedReminderOrder(t, db, &baker, workflow.StageCompleted, true, 72*time.Hour) // already confirmed
	seedReminderOrder(t, db, &baker, workflow.StagePrinting, false, 72*time.Hour) // not completed yet

	job := NewCompletionReminderJob(db, services.NewMockEmailService(), "0 9 * * *", 2)

	orders, err := job.FindUnconfirmed(time.Now())
	require.NoError(t, err)

	require.Len(t, orders, 1)
	assert.Equal(t, stale.ID, orders[0].ID)
	assert.Equal(t, baker.Email, orders[0].Baker.Email, "baker must be preloaded for the email")
}

func TestRun_SendsReminderEmails(t *testing.T) {
	db := setupJobDB(t)
	baker := models.User{Auth0ID: "auth0|baker", Name: "Baker", Email: "baker@example.com", Role: models.RoleBaker}
	require.NoError(t, db.Create(&baker).Error)

	stale := seedReminderOrder(t, db, &baker, workflow.StageCompleted, false, 72*time.Hour)

	emails := services.NewMockEmailService()
	job := NewCompletionReminderJob(db, emails, "0 9 * * *", 2)

	job.Run()

	require.Equal(t, 1, emails.SentCount())
	sent := emails.Sent()[0]
	assert.Equal(t, baker.Email, sent.To)
	assert.Equal(t, stale.OrderNumber, sent.OrderNumber)
	assert.Equal(t, "completion_reminder", sent.Kind)
}

func TestRun_SendFailureDoesNotAbortSweep(t *testing.T) {
	db := setupJobDB(t)
	baker := models.User{Auth0ID: "auth0|baker", Name: "Baker", Email: "baker@example.com", Role: models.RoleBaker}
	require.NoError(t, db.Create(&baker).Error)

	seedReminderOrder(t, db, &baker, workflow.StageCompleted, false, 72*time.Hour)
	seedReminderOrder(t, db, &baker, workflow.StageCompleted, false, 96*time.Hour)

	emails := services.NewMockEmailService()
	emails.Fail = true
	job := NewCompletionReminderJob(db, emails, "0 9 * * *", 2)

	// Both sends fail; the sweep itself must not panic or stop early
	job.Run()
	assert.Zero(t, emails.SentCount())
}
