package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupModelDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&User{}, &Order{}, &OrderItem{}, &ItemImage{}, &StageHistoryEntry{}, &UpdateRequest{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func TestOrderNumber_SequencePerBaker(t *testing.T) {
	db := setupModelDB(t)

	first := Order{BakerID: 3}
	require.NoError(t, db.Create(&first).Error)
	assert.Equal(t, "3-0001", first.OrderNumber)

	second := Order{BakerID: 3}
	require.NoError(t, db.Create(&second).Error)
	assert.Equal(t, "3-0002", second.OrderNumber)

	// A different baker gets an independent sequence
	other := Order{BakerID: 9}
	require.NoError(t, db.Create(&other).Error)
	assert.Equal(t, "9-0001", other.OrderNumber)
}

func TestOrderNumber_PresetNumberKept(t *testing.T) {
	db := setupModelDB(t)

	order := Order{BakerID: 3, OrderNumber: "3-9999"}
	require.NoError(t, db.Create(&order).Error)
	assert.Equal(t, "3-9999", order.OrderNumber)
}

func TestOrderNumber_UnparseableSuffixFallsBackToTimestamp(t *testing.T) {
	db := setupModelDB(t)

	legacy := Order{BakerID: 3, OrderNumber: "3-legacy"}
	require.NoError(t, db.Create(&legacy).Error)

	next := Order{BakerID: 3}
	require.NoError(t, db.Create(&next).Error)

	assert.NotEqual(t, legacy.OrderNumber, next.OrderNumber)
	assert.Regexp(t, fmt.Sprintf(`^%d-\d+$`, next.BakerID), next.OrderNumber)
}

func TestParseOrderSequence(t *testing.T) {
	seq, err := parseOrderSequence("7-0012")
	require.NoError(t, err)
	assert.Equal(t, 12, seq)

	_, err = parseOrderSequence("nodash")
	assert.Error(t, err)

	_, err = parseOrderSequence("7-")
	assert.Error(t, err)
}

func TestOrderCompletionHelpers(t *testing.T) {
	date := "2026-09-01"
	city := "Melbourne"

	order := Order{PickupDate: &date}
	assert.True(t, order.HasPickupDetails())
	assert.False(t, order.HasDeliveryDetails())

	order.ClearPickupDetails()
	assert.False(t, order.HasPickupDetails())

	order.City = &city
	assert.True(t, order.HasDeliveryDetails())
	order.ClearDeliveryDetails()
	assert.False(t, order.HasDeliveryDetails())
}

func TestOrderUpdateRequestHelpers(t *testing.T) {
	order := Order{
		UpdateRequests: []UpdateRequest{
			{ID: 1, Status: UpdateRequestRejected},
			{ID: 2, Status: UpdateRequestApproved, Applied: true},
			{ID: 3, Status: UpdateRequestApproved},
			{ID: 4, Status: UpdateRequestPending},
		},
	}

	pending := order.PendingUpdateRequest()
	require.NotNil(t, pending)
	assert.Equal(t, uint(4), pending.ID)

	approval := order.ApprovedUnappliedRequest()
	require.NotNil(t, approval)
	assert.Equal(t, uint(3), approval.ID)

	empty := Order{}
	assert.Nil(t, empty.PendingUpdateRequest())
	assert.Nil(t, empty.ApprovedUnappliedRequest())
}

func TestInspirationImageCount(t *testing.T) {
	item := OrderItem{
		Images: []ItemImage{
			{Kind: ImageKindInspiration},
			{Kind: ImageKindPreview},
			{Kind: ImageKindInspiration},
			{Kind: ImageKindModel},
		},
	}
	assert.Equal(t, 2, item.InspirationImageCount())
	assert.Zero(t, (&OrderItem{}).InspirationImageCount())
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidItemType(ItemTypeCutter))
	assert.True(t, ValidItemType(ItemTypeImprint))
	assert.False(t, ValidItemType("Mold"))

	assert.True(t, ValidMeasurementUnit(UnitInch))
	assert.False(t, ValidMeasurementUnit("m"))

	assert.True(t, ValidImageKind(ImageKindModel))
	assert.False(t, ValidImageKind("thumbnail"))
}
