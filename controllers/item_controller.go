package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/config"
	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
	"github.com/bakeprint/bakeprint-api/utils"
	"github.com/bakeprint/bakeprint-api/workflow"
)

// ItemRequest represents the request body for creating or updating an item
type ItemRequest struct {
	Type             string   `json:"type"`
	MeasurementValue *float64 `json:"measurement_value"`
	MeasurementUnit  string   `json:"measurement_unit"`
	Comments         *string  `json:"comments"`
}

// AddItem handles POST /api/v1/orders/:id/items
func AddItem(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	if err := workflow.CanEditItems(order, actorFor(user)); err != nil {
		respondWorkflowError(c, err)
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data: "+err.Error())
		return
	}
	if !models.ValidItemType(req.Type) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown item type: "+req.Type)
		return
	}
	if req.MeasurementValue == nil || *req.MeasurementValue <= 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "measurement_value must be greater than zero")
		return
	}
	if !models.ValidMeasurementUnit(req.MeasurementUnit) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown measurement unit: "+req.MeasurementUnit)
		return
	}

	item := models.OrderItem{
		OrderID:          order.ID,
		Type:             req.Type,
		MeasurementValue: *req.MeasurementValue,
		MeasurementUnit:  req.MeasurementUnit,
	}
	if req.Comments != nil {
		item.Comments = *req.Comments
	}

	if err := config.GetDB().Create(&item).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create item")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// UpdateItem handles PUT /api/v1/orders/:id/items/:itemId
func UpdateItem(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	if err := workflow.CanEditItems(order, actorFor(user)); err != nil {
		respondWorkflowError(c, err)
		return
	}

	item, ok := loadItem(c, order.ID, c.Param("itemId"))
	if !ok {
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Type != "" {
		if !models.ValidItemType(req.Type) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown item type: "+req.Type)
			return
		}
		updates["type"] = req.Type
	}
	if req.MeasurementValue != nil {
		if *req.MeasurementValue <= 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "measurement_value must be greater than zero")
			return
		}
		updates["measurement_value"] = *req.MeasurementValue
	}
	if req.MeasurementUnit != "" {
		if !models.ValidMeasurementUnit(req.MeasurementUnit) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown measurement unit: "+req.MeasurementUnit)
			return
		}
		updates["measurement_unit"] = req.MeasurementUnit
	}
	if req.Comments != nil {
		updates["comments"] = *req.Comments
	}
	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Nothing to update")
		return
	}

	db := config.GetDB()
	if err := db.Model(item).Updates(updates).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update item")
		return
	}

	if err := db.Preload("Images").First(item, item.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// DeleteItem handles DELETE /api/v1/orders/:id/items/:itemId
func DeleteItem(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	if err := workflow.CanEditItems(order, actorFor(user)); err != nil {
		respondWorkflowError(c, err)
		return
	}

	item, ok := loadItem(c, order.ID, c.Param("itemId"))
	if !ok {
		return
	}

	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("order_item_id = ?", item.ID).Delete(&models.ItemImage{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.OrderItem{}, item.ID).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete item")
		return
	}

	if imageService := services.GetImageService(); imageService != nil {
		for i := range item.Images {
			if delErr := imageService.DeleteFile(item.Images[i].S3Key); delErr != nil {
				log.Printf("failed to delete stored file %s: %v", item.Images[i].S3Key, delErr)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Item deleted",
	})
}

// UploadItemFile handles POST /api/v1/orders/:id/items/:itemId/images -
// multipart upload of an inspiration image, preview render or STL model.
// The binary goes to S3; only the key metadata is stored on the item.
func UploadItemFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	kind := c.DefaultPostForm("kind", models.ImageKindInspiration)
	if !models.ValidImageKind(kind) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown upload kind: "+kind)
		return
	}

	// Preview renders are produced by the admin during review; everything
	// else follows the item-editing rules.
	actor := actorFor(user)
	if kind == models.ImageKindPreview {
		if !user.IsAdmin() {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "Only admins can upload preview images")
			return
		}
	} else if err := workflow.CanEditItems(order, actor); err != nil {
		respondWorkflowError(c, err)
		return
	}

	item, ok := loadItem(c, order.ID, c.Param("itemId"))
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "A file is required")
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", "File storage is not configured")
		return
	}

	key, err := imageService.UploadItemFile(fileHeader, kind)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
			return
		}
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to store file")
		return
	}

	image := models.ItemImage{
		OrderItemID: item.ID,
		Kind:        kind,
		S3Key:       key,
		UploadedAt:  time.Now(),
	}
	db := config.GetDB()
	if err := db.Create(&image).Error; err != nil {
		// One retry; the metadata insert is cheap and the file is already
		// stored.
		if err := db.Create(&image).Error; err != nil {
			if delErr := imageService.DeleteFile(key); delErr != nil {
				log.Printf("failed to clean up stored file %s: %v", key, delErr)
			}
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record upload")
			return
		}
	}

	if url, urlErr := imageService.GetFileURL(key); urlErr == nil {
		image.URL = url
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    image,
	})
}

// DeleteItemFile handles DELETE /api/v1/orders/:id/items/:itemId/images/:imageId
func DeleteItemFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	if err := workflow.CanEditItems(order, actorFor(user)); err != nil {
		respondWorkflowError(c, err)
		return
	}

	item, ok := loadItem(c, order.ID, c.Param("itemId"))
	if !ok {
		return
	}

	db := config.GetDB()
	var image models.ItemImage
	if err := db.Where("id = ? AND order_item_id = ?", c.Param("imageId"), item.ID).First(&image).Error; err != nil {
		respondError(c, http.StatusNotFound, "IMAGE_NOT_FOUND", "Image not found")
		return
	}

	if err := db.Unscoped().Delete(&image).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete image")
		return
	}

	if imageService := services.GetImageService(); imageService != nil {
		if delErr := imageService.DeleteFile(image.S3Key); delErr != nil {
			log.Printf("failed to delete stored file %s: %v", image.S3Key, delErr)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Image deleted",
	})
}

// loadItem fetches an item scoped to the order. Writes the error response and
// returns false when the item does not exist on that order.
func loadItem(c *gin.Context, orderID uint, itemID string) (*models.OrderItem, bool) {
	db := config.GetDB()
	var item models.OrderItem
	err := db.Preload("Images").Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load item")
		}
		return nil, false
	}
	return &item, true
}
