package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/config"
	"github.com/bakeprint/bakeprint-api/middleware"
	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
	"github.com/bakeprint/bakeprint-api/workflow"
)

// NewItemRequest is one line item supplied on order creation
type NewItemRequest struct {
	Type             string  `json:"type" binding:"required"`
	MeasurementValue float64 `json:"measurement_value" binding:"required,gt=0"`
	MeasurementUnit  string  `json:"measurement_unit" binding:"required"`
	Comments         string  `json:"comments"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	Items []NewItemRequest `json:"items"`
}

// ChangeStageRequest represents the request body for a stage transition
type ChangeStageRequest struct {
	TargetStage string   `json:"target_stage" binding:"required"`
	Comments    string   `json:"comments"`
	Price       *float64 `json:"price"`
}

// UpdateOrderRequest represents the request body for updating order fields
type UpdateOrderRequest struct {
	Price *float64 `json:"price" binding:"required,gt=0"`
}

// CreateOrder handles POST /api/v1/orders - creates a new order (bakers only).
// Orders start in Draft with an empty stage history.
func CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !user.IsBaker() {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Only bakers can create orders")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data: "+err.Error())
		return
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if !models.ValidItemType(item.Type) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown item type: "+item.Type)
			return
		}
		if !models.ValidMeasurementUnit(item.MeasurementUnit) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown measurement unit: "+item.MeasurementUnit)
			return
		}
		items = append(items, models.OrderItem{
			Type:             item.Type,
			MeasurementValue: item.MeasurementValue,
			MeasurementUnit:  item.MeasurementUnit,
			Comments:         item.Comments,
		})
	}

	order := models.Order{
		Stage:   workflow.StageDraft,
		BakerID: user.ID,
		Items:   items,
	}

	db := config.GetDB()
	if err := db.Create(&order).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create order")
		return
	}

	if err := db.Preload("Baker").Preload("Items.Images").Preload("StageHistory").First(&order, order.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order details")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists orders with pagination.
// Bakers see only their own orders; admins see everything. An optional
// ?stage= filter narrows the result.
func ListOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	db := config.GetDB()
	query := db.Model(&models.Order{})
	if user.IsBaker() {
		query = query.Where("baker_id = ?", user.ID)
	}
	if stage := c.Query("stage"); stage != "" {
		if !workflow.ValidStage(stage) {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown stage: "+stage)
			return
		}
		query = query.Where("stage = ?", stage)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count orders")
		return
	}

	var orders []models.Order
	err := query.
		Preload("Baker").
		Preload("Items.Images").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list orders")
		return
	}

	for i := range orders {
		populateFileURLs(&orders[i])
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	if err := workflow.CanView(order, actorFor(user)); err != nil {
		respondWorkflowError(c, err)
		return
	}

	populateFileURLs(order)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrder handles PUT /api/v1/orders/:id - admin price adjustment while
// the order is under review or awaiting approval
func UpdateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if !user.IsAdmin() {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Only admins can update order pricing")
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	if order.Stage != workflow.StageUnderReview && order.Stage != workflow.StageRequiresApproval {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Price can only be adjusted while the order is Under Review or Requires Approval")
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data: "+err.Error())
		return
	}

	db := config.GetDB()
	res := db.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{"price": *req.Price, "version": order.Version + 1})
	if res.Error != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order")
		return
	}
	if res.RowsAffected == 0 {
		respondWorkflowError(c, &workflow.ConflictError{})
		return
	}

	updated, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}
	populateFileURLs(updated)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id. Bakers may delete their own
// orders while still editable; admins may delete any order. Deletion is
// terminal: rows are removed, not soft-deleted, and stored files are cleaned
// up best-effort.
func DeleteOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	if err := workflow.CanDelete(order, actorFor(user)); err != nil {
		respondWorkflowError(c, err)
		return
	}

	db := config.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		for i := range order.Items {
			if err := tx.Unscoped().Where("order_item_id = ?", order.Items[i].ID).Delete(&models.ItemImage{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Unscoped().Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.StageHistoryEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.UpdateRequest{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Order{}, order.ID).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete order")
		return
	}

	// Stored files are removed best-effort; a leftover object never blocks
	// the deletion.
	if imageService := services.GetImageService(); imageService != nil {
		for i := range order.Items {
			for j := range order.Items[i].Images {
				if delErr := imageService.DeleteFile(order.Items[i].Images[j].S3Key); delErr != nil {
					log.Printf("failed to delete stored file %s: %v", order.Items[i].Images[j].S3Key, delErr)
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}

// ChangeStage handles PUT /api/v1/orders/:id/stage - the stage transition
// endpoint. Validation happens entirely before any mutation; the executor
// persists the change and fires notifications exactly once per actual
// transition.
func ChangeStage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	var req ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data: "+err.Error())
		return
	}

	actor := actorFor(user)
	change, err := workflow.ValidateTransition(stageTable, order, actor, req.TargetStage, workflow.StagePayload{
		Price:    req.Price,
		Comments: req.Comments,
	})
	if err != nil {
		middleware.RecordStageTransition(req.TargetStage, false)
		respondWorkflowError(c, err)
		return
	}

	updated, err := newExecutor().Apply(order, change, actor)
	if err != nil {
		middleware.RecordStageTransition(req.TargetStage, false)
		respondWorkflowError(c, err)
		return
	}
	middleware.RecordStageTransition(req.TargetStage, true)

	populateFileURLs(updated)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}
