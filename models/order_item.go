package models

import (
	"time"

	"gorm.io/gorm"
)

// Item type values
const (
	ItemTypeCutter   = "Cutter"
	ItemTypeStamp    = "Stamp"
	ItemTypeEmbosser = "Embosser"
	ItemTypeImprint  = "Imprint"
)

// Measurement unit values
const (
	UnitMillimetre = "mm"
	UnitCentimetre = "cm"
	UnitInch       = "inch"
)

// Image kind values for ItemImage.Kind
const (
	ImageKindInspiration = "inspiration" // reference images supplied by the baker
	ImageKindPreview     = "preview"     // renders produced by the admin
	ImageKindModel       = "model"       // uploaded STL files
)

// OrderItem is one line item on an order: a single cutter, stamp or embosser
// with its measurement and attached images. Items are mutable only while the
// order is in a baker-editable stage.
type OrderItem struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	OrderID          uint           `gorm:"not null;index" json:"order_id"`
	Type             string         `gorm:"not null" json:"type"`
	MeasurementValue float64        `gorm:"not null;check:measurement_value > 0" json:"measurement_value"`
	MeasurementUnit  string         `gorm:"not null" json:"measurement_unit"`
	Comments         string         `json:"comments"`
	Images           []ItemImage    `gorm:"foreignKey:OrderItemID" json:"images"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// InspirationImageCount returns the number of inspiration images on the item
func (i *OrderItem) InspirationImageCount() int {
	count := 0
	for _, img := range i.Images {
		if img.Kind == ImageKindInspiration {
			count++
		}
	}
	return count
}

// ValidItemType reports whether t is a recognised item type
func ValidItemType(t string) bool {
	switch t {
	case ItemTypeCutter, ItemTypeStamp, ItemTypeEmbosser, ItemTypeImprint:
		return true
	}
	return false
}

// ValidMeasurementUnit reports whether u is a recognised measurement unit
func ValidMeasurementUnit(u string) bool {
	switch u {
	case UnitMillimetre, UnitCentimetre, UnitInch:
		return true
	}
	return false
}

// ItemImage is the stored metadata for one uploaded file on an item. The
// binary lives in S3; URL is a presigned link computed on read, never persisted.
type ItemImage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderItemID uint      `gorm:"not null;index" json:"order_item_id"`
	Kind        string    `gorm:"not null" json:"kind"` // inspiration, preview or model
	S3Key       string    `gorm:"not null" json:"s3_key"`
	URL         string    `gorm:"-" json:"url,omitempty"`
	UploadedAt  time.Time `gorm:"not null" json:"uploaded_at"`
}

// TableName specifies the table name for the ItemImage model
func (ItemImage) TableName() string {
	return "item_images"
}

// ValidImageKind reports whether k is a recognised image kind
func ValidImageKind(k string) bool {
	switch k {
	case ImageKindInspiration, ImageKindPreview, ImageKindModel:
		return true
	}
	return false
}
