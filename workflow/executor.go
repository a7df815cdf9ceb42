package workflow

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
)

// Executor applies a validated stage change: it persists the new stage and
// the stage-history entry in one compare-and-swap transaction, then signals
// the collaborators. Persistence failure aborts the whole operation; email
// and broadcast failures are logged and never roll back the committed change.
type Executor struct {
	db          *gorm.DB
	emails      services.EmailService
	broadcaster services.Broadcaster
	now         func() time.Time
	async       bool
}

// NewExecutor creates an executor over the given collaborators
func NewExecutor(db *gorm.DB, emails services.EmailService, broadcaster services.Broadcaster) *Executor {
	return &Executor{
		db:          db,
		emails:      emails,
		broadcaster: broadcaster,
		now:         time.Now,
		async:       true,
	}
}

// Synchronous makes side effects run inline instead of in goroutines, so
// tests can assert on them deterministically
func (e *Executor) Synchronous() *Executor {
	e.async = false
	return e
}

// WithClock overrides the executor's clock (for tests)
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// Apply moves the order to the validated target stage. A request whose target
// equals the current stage is an idempotent no-op: nothing is written, no
// history entry is added and no notification fires. On an actual change the
// write is a compare-and-swap on the order's version; a lost race surfaces a
// ConflictError and the caller must re-fetch and resubmit.
func (e *Executor) Apply(order *models.Order, change *StageChange, actor Actor) (*models.Order, error) {
	if order.Stage == change.Target {
		return order, nil
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"stage":   change.Target,
			"version": order.Version + 1,
		}
		if change.Target == StageRequiresApproval && change.Price != nil {
			updates["price"] = *change.Price
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{}
		}

		entry := models.StageHistoryEntry{
			OrderID:     order.ID,
			Stage:       change.Target,
			ChangedByID: actor.UserID,
			ChangedAt:   e.now(),
			Comments:    change.Comments,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := e.reload(order.ID)
	if err != nil {
		return nil, err
	}

	notify := func() {
		if updated.Baker.Email != "" {
			if mailErr := e.emails.SendStageChangeEmail(updated.Baker.Email, updated.OrderNumber, updated.Stage, change.Comments); mailErr != nil {
				log.Printf("stage change email for order %s failed: %v", updated.OrderNumber, mailErr)
			}
		}
		event := services.OrderEvent{
			OrderID:     updated.ID,
			OrderNumber: updated.OrderNumber,
			BakerID:     updated.BakerID,
			EventType:   "stage_changed",
			Stage:       updated.Stage,
			ActorID:     actor.UserID,
			ActorEmail:  actor.Email,
			OccurredAt:  e.now(),
		}
		if bcErr := e.broadcaster.EmitOrderUpdate(event); bcErr != nil {
			log.Printf("stage change broadcast for order %s failed: %v", updated.OrderNumber, bcErr)
		}
	}
	if e.async {
		go notify()
	} else {
		notify()
	}

	return updated, nil
}

// reload fetches the order with its associations after a write
func (e *Executor) reload(orderID uint) (*models.Order, error) {
	var order models.Order
	err := e.db.
		Preload("Baker").
		Preload("Items.Images").
		Preload("StageHistory").
		Preload("UpdateRequests").
		First(&order, orderID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, &NotFoundError{Entity: "order"}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
