package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Delivery and payment method values
const (
	DeliveryMethodPickup   = "Pickup"
	DeliveryMethodDelivery = "Delivery"

	PaymentMethodCash         = "Cash"
	PaymentMethodCard         = "Card"
	PaymentMethodBankTransfer = "Bank Transfer"
)

// Order represents a fabrication order in the system
type Order struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	OrderNumber string   `gorm:"uniqueIndex;not null" json:"order_number"` // "<bakerID>-<zero-padded sequence>"
	Stage       string   `gorm:"not null;default:'Draft'" json:"stage"`
	Price       *float64 `json:"price"` // nullable, required entering Requires Approval
	BakerID     uint     `gorm:"not null;index" json:"baker_id"`
	Baker       User     `gorm:"foreignKey:BakerID" json:"baker"`

	// Completion details, set only once the order reaches Completed.
	// Pickup and delivery payloads are mutually exclusive.
	DeliveryMethod *string `json:"delivery_method,omitempty"` // "Pickup" or "Delivery"
	PaymentMethod  *string `json:"payment_method,omitempty"`  // "Cash", "Card" or "Bank Transfer"
	PickupDate     *string `json:"pickup_date,omitempty"`     // YYYY-MM-DD
	PickupTime     *string `json:"pickup_time,omitempty"`     // HH:MM
	AddressLine1   *string `json:"address_line1,omitempty"`
	AddressLine2   *string `json:"address_line2,omitempty"`
	City           *string `json:"city,omitempty"`
	State          *string `json:"state,omitempty"`
	Postcode       *string `json:"postcode,omitempty"`
	Country        *string `json:"country,omitempty"`

	DetailsConfirmed     bool       `gorm:"not null;default:false" json:"details_confirmed"`
	DetailsConfirmedByID *uint      `json:"details_confirmed_by_id,omitempty"`
	DetailsConfirmedAt   *time.Time `json:"details_confirmed_at,omitempty"`

	// Version is the optimistic concurrency token. Every order write is a
	// compare-and-swap on (id, version); a mismatch surfaces a conflict.
	Version int `gorm:"not null;default:0" json:"version"`

	Items          []OrderItem         `gorm:"foreignKey:OrderID" json:"items"`
	StageHistory   []StageHistoryEntry `gorm:"foreignKey:OrderID" json:"stage_history"`
	UpdateRequests []UpdateRequest     `gorm:"foreignKey:OrderID" json:"update_requests,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// StageHistoryEntry is one row of an order's append-only stage log.
// Entries are written only when the stage actually changes, never on creation.
type StageHistoryEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	Stage       string    `gorm:"not null" json:"stage"`
	ChangedByID uint      `gorm:"not null" json:"changed_by_id"`
	ChangedAt   time.Time `gorm:"not null" json:"changed_at"`
	Comments    string    `json:"comments"`
}

// TableName specifies the table name for the StageHistoryEntry model
func (StageHistoryEntry) TableName() string {
	return "stage_history"
}

// BeforeCreate generates the order number on first insert. The number is the
// owning baker's ID plus a per-baker monotonic sequence; when the last order
// number cannot be parsed the suffix falls back to a timestamp.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderNumber != "" {
		return nil
	}

	var last Order
	seq := 1
	err := tx.Unscoped().
		Where("baker_id = ?", o.BakerID).
		Order("id DESC").
		First(&last).Error
	switch {
	case err == nil:
		parsed, perr := parseOrderSequence(last.OrderNumber)
		if perr != nil {
			// Unparseable legacy number: derive a unique suffix from the clock
			o.OrderNumber = fmt.Sprintf("%d-%d", o.BakerID, time.Now().Unix())
			return nil
		}
		seq = parsed + 1
	case err == gorm.ErrRecordNotFound:
		// first order for this baker
	default:
		return err
	}

	o.OrderNumber = fmt.Sprintf("%d-%04d", o.BakerID, seq)
	return nil
}

// parseOrderSequence extracts the numeric suffix from an order number
func parseOrderSequence(orderNumber string) (int, error) {
	idx := strings.LastIndex(orderNumber, "-")
	if idx < 0 || idx == len(orderNumber)-1 {
		return 0, fmt.Errorf("order number %q has no sequence suffix", orderNumber)
	}
	return strconv.Atoi(orderNumber[idx+1:])
}

// HasPickupDetails reports whether any pickup payload fields are set
func (o *Order) HasPickupDetails() bool {
	return o.PickupDate != nil || o.PickupTime != nil
}

// HasDeliveryDetails reports whether any delivery payload fields are set
func (o *Order) HasDeliveryDetails() bool {
	return o.AddressLine1 != nil || o.AddressLine2 != nil || o.City != nil ||
		o.State != nil || o.Postcode != nil || o.Country != nil
}

// ClearPickupDetails removes the pickup payload
func (o *Order) ClearPickupDetails() {
	o.PickupDate = nil
	o.PickupTime = nil
}

// ClearDeliveryDetails removes the delivery payload
func (o *Order) ClearDeliveryDetails() {
	o.AddressLine1 = nil
	o.AddressLine2 = nil
	o.City = nil
	o.State = nil
	o.Postcode = nil
	o.Country = nil
}

// PendingUpdateRequest returns the order's pending update request, if any
func (o *Order) PendingUpdateRequest() *UpdateRequest {
	for i := range o.UpdateRequests {
		if o.UpdateRequests[i].Status == UpdateRequestPending {
			return &o.UpdateRequests[i]
		}
	}
	return nil
}

// ApprovedUnappliedRequest returns an approved update request that has not yet
// been consumed by a completion-detail update, if any
func (o *Order) ApprovedUnappliedRequest() *UpdateRequest {
	for i := range o.UpdateRequests {
		if o.UpdateRequests[i].Status == UpdateRequestApproved && !o.UpdateRequests[i].Applied {
			return &o.UpdateRequests[i]
		}
	}
	return nil
}
