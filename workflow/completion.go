package workflow

import (
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
)

// Layouts for the pickup schedule fields
const (
	pickupDateLayout = "2006-01-02"
	pickupTimeLayout = "15:04"
)

var auPostcodePattern = regexp.MustCompile(`^\d{4}$`)

// CompletionPayload carries the delivery and payment details collected once
// an order reaches Completed. Exactly one of the pickup or address payloads
// applies, selected by DeliveryMethod.
type CompletionPayload struct {
	DeliveryMethod string `json:"delivery_method"`
	PaymentMethod  string `json:"payment_method"`
	PickupDate     string `json:"pickup_date"`
	PickupTime     string `json:"pickup_time"`
	AddressLine1   string `json:"address_line1"`
	AddressLine2   string `json:"address_line2"`
	City           string `json:"city"`
	State          string `json:"state"`
	Postcode       string `json:"postcode"`
	Country        string `json:"country"`
}

// Completion runs the sub-workflow that governs collection and payment
// details after the order reaches its terminal production stage.
type Completion struct {
	db          *gorm.DB
	emails      services.EmailService
	broadcaster services.Broadcaster
	now         func() time.Time
	async       bool
}

// NewCompletion creates the completion workflow over the given collaborators
func NewCompletion(db *gorm.DB, emails services.EmailService, broadcaster services.Broadcaster) *Completion {
	return &Completion{
		db:          db,
		emails:      emails,
		broadcaster: broadcaster,
		now:         time.Now,
		async:       true,
	}
}

// Synchronous makes side effects run inline instead of in goroutines
func (c *Completion) Synchronous() *Completion {
	c.async = false
	return c
}

// WithClock overrides the workflow's clock (for tests)
func (c *Completion) WithClock(now func() time.Time) *Completion {
	c.now = now
	return c
}

// UpdateDetails sets or replaces the order's completion details. Setting the
// pickup payload clears any delivery payload and vice versa, so the two can
// never coexist. A baker editing confirmed details needs an approved,
// not-yet-applied update request; the update consumes the approval and
// re-locks nothing (DetailsConfirmed resets to false until re-confirmed).
func (c *Completion) UpdateDetails(order *models.Order, actor Actor, payload CompletionPayload) (*models.Order, error) {
	if err := c.gate(order, actor); err != nil {
		return nil, err
	}

	var approval *models.UpdateRequest
	if actor.Role == models.RoleBaker {
		approval = order.ApprovedUnappliedRequest()
		if order.DetailsConfirmed && approval == nil {
			return nil, &ValidationError{
				Code:    CodeRequiresApprovalToEdit,
				Message: "details are confirmed; raise an update request and wait for approval before editing",
			}
		}
	}

	if err := c.validatePayload(payload); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"delivery_method":         payload.DeliveryMethod,
		"payment_method":          payload.PaymentMethod,
		"details_confirmed":       false,
		"details_confirmed_by_id": nil,
		"details_confirmed_at":    nil,
		"version":                 order.Version + 1,
	}
	if payload.DeliveryMethod == models.DeliveryMethodPickup {
		updates["pickup_date"] = payload.PickupDate
		updates["pickup_time"] = payload.PickupTime
		updates["address_line1"] = nil
		updates["address_line2"] = nil
		updates["city"] = nil
		updates["state"] = nil
		updates["postcode"] = nil
		updates["country"] = nil
	} else {
		updates["pickup_date"] = nil
		updates["pickup_time"] = nil
		updates["address_line1"] = payload.AddressLine1
		updates["address_line2"] = nullable(payload.AddressLine2)
		updates["city"] = payload.City
		updates["state"] = payload.State
		updates["postcode"] = payload.Postcode
		updates["country"] = payload.Country
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{}
		}
		if approval != nil {
			return tx.Model(&models.UpdateRequest{}).
				Where("id = ?", approval.ID).
				Update("applied", true).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := c.reload(order.ID)
	if err != nil {
		return nil, err
	}
	c.emit(updated, actor, "details_updated")
	return updated, nil
}

// Confirm locks the completion details. Baker-only: confirmation is the
// baker's sign-off on collection and payment. All mandatory fields must be
// present and still valid.
func (c *Completion) Confirm(order *models.Order, actor Actor) (*models.Order, error) {
	if actor.Role != models.RoleBaker {
		return nil, &AccessDeniedError{}
	}
	if err := c.gate(order, actor); err != nil {
		return nil, err
	}

	if err := c.validatePayload(payloadFromOrder(order)); err != nil {
		return nil, err
	}

	now := c.now()
	res := c.db.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"details_confirmed":       true,
			"details_confirmed_by_id": actor.UserID,
			"details_confirmed_at":    now,
			"version":                 order.Version + 1,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &ConflictError{}
	}

	updated, err := c.reload(order.ID)
	if err != nil {
		return nil, err
	}

	c.run(func() {
		if updated.Baker.Email != "" {
			if mailErr := c.emails.SendCompletionConfirmedEmail(updated.Baker.Email, updated.OrderNumber); mailErr != nil {
				log.Printf("completion confirmation email for order %s failed: %v", updated.OrderNumber, mailErr)
			}
		}
	})
	c.emit(updated, actor, "details_confirmed")
	return updated, nil
}

// CreateUpdateRequest opens a baker's petition to reopen confirmed details.
// Only one request may be pending per order at a time.
func (c *Completion) CreateUpdateRequest(order *models.Order, actor Actor, reason, requestedChanges string) (*models.Order, error) {
	if actor.Role != models.RoleBaker {
		return nil, &AccessDeniedError{}
	}
	if err := c.gate(order, actor); err != nil {
		return nil, err
	}
	if !order.DetailsConfirmed {
		return nil, &ValidationError{
			Code:    CodeDetailsNotConfirmed,
			Message: "details are not confirmed; edit them directly instead of raising an update request",
		}
	}
	if order.PendingUpdateRequest() != nil {
		return nil, &ValidationError{
			Code:    CodeUpdateRequestPending,
			Message: "an update request is already pending on this order",
		}
	}
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{
			Code:    CodeValidation,
			Message: "a reason is required for an update request",
		}
	}

	request := models.UpdateRequest{
		OrderID:          order.ID,
		RequestedByID:    actor.UserID,
		Reason:           reason,
		RequestedChanges: requestedChanges,
		Status:           models.UpdateRequestPending,
	}
	if err := c.db.Create(&request).Error; err != nil {
		return nil, err
	}

	updated, err := c.reload(order.ID)
	if err != nil {
		return nil, err
	}

	c.run(func() {
		var admins []models.User
		if err := c.db.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
			log.Printf("failed to load admins for update request notification: %v", err)
			return
		}
		for _, admin := range admins {
			if mailErr := c.emails.SendUpdateRequestNotification(admin.Email, updated.OrderNumber, reason); mailErr != nil {
				log.Printf("update request notification to %s failed: %v", admin.Email, mailErr)
			}
		}
	})
	c.emit(updated, actor, "update_requested")
	return updated, nil
}

// ResolveUpdateRequest approves or rejects the pending request. Admin-only.
// Approval clears DetailsConfirmed, reopening the completion fields; a
// rejection leaves them locked. Either way the record is archived and the
// order version advances, so a resolution racing on a stale snapshot fails
// with ConflictError instead of acting on an already-resolved request.
func (c *Completion) ResolveUpdateRequest(order *models.Order, actor Actor, action, adminNote string) (*models.Order, error) {
	if actor.Role != models.RoleAdmin {
		return nil, &AccessDeniedError{}
	}
	if action != "approve" && action != "reject" {
		return nil, &ValidationError{
			Code:    CodeValidation,
			Message: `action must be "approve" or "reject"`,
		}
	}

	pending := order.PendingUpdateRequest()
	if pending == nil {
		return nil, &NotFoundError{Entity: "pending update request"}
	}

	status := models.UpdateRequestApproved
	if action == "reject" {
		status = models.UpdateRequestRejected
	}
	now := c.now()

	err := c.db.Transaction(func(tx *gorm.DB) error {
		requestUpdates := map[string]interface{}{
			"status":         status,
			"resolved_by_id": actor.UserID,
			"resolved_at":    now,
		}
		if adminNote != "" {
			requestUpdates["admin_note"] = adminNote
		}
		res := tx.Model(&models.UpdateRequest{}).
			Where("id = ? AND status = ?", pending.ID, models.UpdateRequestPending).
			Updates(requestUpdates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{}
		}

		orderUpdates := map[string]interface{}{
			"version": order.Version + 1,
		}
		if status == models.UpdateRequestApproved {
			orderUpdates["details_confirmed"] = false
		}
		res = tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(orderUpdates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &ConflictError{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := c.reload(order.ID)
	if err != nil {
		return nil, err
	}

	c.run(func() {
		if updated.Baker.Email != "" {
			if mailErr := c.emails.SendUpdateRequestResponseEmail(updated.Baker.Email, updated.OrderNumber, status, adminNote); mailErr != nil {
				log.Printf("update request response email for order %s failed: %v", updated.OrderNumber, mailErr)
			}
		}
	})
	c.emit(updated, actor, "update_request_resolved")
	return updated, nil
}

// gate rejects completion operations on orders that are not Completed and
// enforces baker ownership
func (c *Completion) gate(order *models.Order, actor Actor) error {
	if actor.Role == models.RoleBaker && order.BakerID != actor.UserID {
		return &AccessDeniedError{}
	}
	if order.Stage != StageCompleted {
		return &ValidationError{
			Code:    CodeOrderNotCompleted,
			Message: "completion details are only available once the order is Completed",
		}
	}
	return nil
}

// validatePayload enforces the completion invariants: recognised method
// enums, a pickup schedule that parses and is not in the past, and a
// well-formed delivery address with a country-appropriate postcode.
func (c *Completion) validatePayload(p CompletionPayload) error {
	switch p.DeliveryMethod {
	case models.DeliveryMethodPickup, models.DeliveryMethodDelivery:
	default:
		return &ValidationError{
			Code:    CodeValidation,
			Message: `delivery_method must be "Pickup" or "Delivery"`,
		}
	}

	switch p.PaymentMethod {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodBankTransfer:
	default:
		return &ValidationError{
			Code:    CodeValidation,
			Message: `payment_method must be "Cash", "Card" or "Bank Transfer"`,
		}
	}

	if p.DeliveryMethod == models.DeliveryMethodPickup {
		if p.PickupDate == "" || p.PickupTime == "" {
			return &ValidationError{
				Code:    CodeValidation,
				Message: "pickup_date and pickup_time are required for pickup",
			}
		}
		at, err := time.ParseInLocation(pickupDateLayout+" "+pickupTimeLayout, p.PickupDate+" "+p.PickupTime, time.Local)
		if err != nil {
			return &ValidationError{
				Code:    CodeValidation,
				Message: "pickup_date must be YYYY-MM-DD and pickup_time must be HH:MM",
			}
		}
		if at.Before(c.now()) {
			return &ValidationError{
				Code:    CodePickupInPast,
				Message: "the pickup schedule cannot be in the past",
			}
		}
		return nil
	}

	if strings.TrimSpace(p.AddressLine1) == "" || len(p.AddressLine1) > 120 {
		return &ValidationError{
			Code:    CodeInvalidAddressFormat,
			Message: "address_line1 is required and must be at most 120 characters",
		}
	}
	if len(p.AddressLine2) > 120 {
		return &ValidationError{
			Code:    CodeInvalidAddressFormat,
			Message: "address_line2 must be at most 120 characters",
		}
	}
	if strings.TrimSpace(p.City) == "" || strings.TrimSpace(p.State) == "" || strings.TrimSpace(p.Country) == "" {
		return &ValidationError{
			Code:    CodeInvalidAddressFormat,
			Message: "city, state and country are required for delivery",
		}
	}
	if isAustralia(p.Country) {
		if !auPostcodePattern.MatchString(p.Postcode) {
			return &ValidationError{
				Code:    CodeInvalidAddressFormat,
				Message: "Australian postcodes must be exactly 4 digits",
			}
		}
	} else if len(p.Postcode) < 3 || len(p.Postcode) > 10 {
		return &ValidationError{
			Code:    CodeInvalidAddressFormat,
			Message: "postcode must be between 3 and 10 characters",
		}
	}
	return nil
}

func isAustralia(country string) bool {
	switch strings.ToLower(strings.TrimSpace(country)) {
	case "au", "aus", "australia":
		return true
	}
	return false
}

// payloadFromOrder rebuilds the payload from the stored completion fields so
// Confirm can re-run full validation
func payloadFromOrder(order *models.Order) CompletionPayload {
	p := CompletionPayload{}
	if order.DeliveryMethod != nil {
		p.DeliveryMethod = *order.DeliveryMethod
	}
	if order.PaymentMethod != nil {
		p.PaymentMethod = *order.PaymentMethod
	}
	if order.PickupDate != nil {
		p.PickupDate = *order.PickupDate
	}
	if order.PickupTime != nil {
		p.PickupTime = *order.PickupTime
	}
	if order.AddressLine1 != nil {
		p.AddressLine1 = *order.AddressLine1
	}
	if order.AddressLine2 != nil {
		p.AddressLine2 = *order.AddressLine2
	}
	if order.City != nil {
		p.City = *order.City
	}
	if order.State != nil {
		p.State = *order.State
	}
	if order.Postcode != nil {
		p.Postcode = *order.Postcode
	}
	if order.Country != nil {
		p.Country = *order.Country
	}
	return p
}

// nullable converts an empty string to NULL for optional columns
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (c *Completion) run(fn func()) {
	if c.async {
		go fn()
	} else {
		fn()
	}
}

func (c *Completion) emit(order *models.Order, actor Actor, eventType string) {
	c.run(func() {
		event := services.OrderEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			BakerID:     order.BakerID,
			EventType:   eventType,
			Stage:       order.Stage,
			ActorID:     actor.UserID,
			ActorEmail:  actor.Email,
			OccurredAt:  c.now(),
		}
		if err := c.broadcaster.EmitOrderUpdate(event); err != nil {
			log.Printf("broadcast %s for order %s failed: %v", eventType, order.OrderNumber, err)
		}
	})
}

// reload fetches the order with its associations after a write
func (c *Completion) reload(orderID uint) (*models.Order, error) {
	var order models.Order
	err := c.db.
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
