package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/config"
	"github.com/bakeprint/bakeprint-api/middleware"
	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
	"github.com/bakeprint/bakeprint-api/workflow"
)

// stageTable is the transition graph consulted by the stage handlers. It is
// set once at startup; tests may substitute an alternate graph.
var stageTable = workflow.DefaultTransitionTable()

// SetTransitionTable installs the transition graph used by the stage handlers
func SetTransitionTable(table *workflow.TransitionTable) {
	stageTable = table
}

// respondError writes the standard error envelope
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondWorkflowError maps a workflow error to its HTTP status
func respondWorkflowError(c *gin.Context, err error) {
	var wfErr workflow.WorkflowError
	if !errors.As(err, &wfErr) {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	status := http.StatusBadRequest
	switch wfErr.ErrorCode() {
	case workflow.CodeAccessDenied:
		status = http.StatusForbidden
	case workflow.CodeConflict:
		status = http.StatusConflict
	case workflow.CodeNotFound:
		status = http.StatusNotFound
	}

	var invalid *workflow.InvalidTransitionError
	if errors.As(err, &invalid) {
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    invalid.ErrorCode(),
				"message": invalid.Error(),
				"details": gin.H{"allowed_stages": invalid.Allowed},
			},
		})
		return
	}

	var incomplete *workflow.IncompleteSubmissionError
	if errors.As(err, &incomplete) {
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    incomplete.ErrorCode(),
				"message": incomplete.Error(),
				"details": gin.H{"items_missing_images": incomplete.ItemCount},
			},
		})
		return
	}

	respondError(c, status, wfErr.ErrorCode(), wfErr.Error())
}

// currentUser resolves the authenticated user from the JWT subject. Writes
// the error response and returns false when resolution fails.
func currentUser(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.")
		return nil, false
	}

	return &user, true
}

// actorFor converts a user row into the workflow actor identity
func actorFor(user *models.User) workflow.Actor {
	return workflow.Actor{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
	}
}

// loadOrder fetches the order with associations. Writes the error response
// and returns false when the order does not exist.
func loadOrder(c *gin.Context, orderID string) (*models.Order, bool) {
	db := config.GetDB()
	var order models.Order
	err := db.
		Preload("Baker").
		Preload("Items.Images").
		Preload("StageHistory").
		Preload("UpdateRequests").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		} else {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order")
		}
		return nil, false
	}
	return &order, true
}

// populateFileURLs fills in presigned URLs for every image on the order
func populateFileURLs(order *models.Order) {
	imageService := services.GetImageService()
	if imageService == nil {
		return
	}
	for i := range order.Items {
		for j := range order.Items[i].Images {
			url, err := imageService.GetFileURL(order.Items[i].Images[j].S3Key)
			if err != nil {
				continue
			}
			order.Items[i].Images[j].URL = url
		}
	}
}

// newExecutor builds the stage executor over the current collaborators.
// In the test environment side effects run inline so tests can observe them.
func newExecutor() *workflow.Executor {
	executor := workflow.NewExecutor(config.GetDB(), services.GetEmailService(), services.GetBroadcaster())
	if cfg := config.GetConfig(); cfg != nil && cfg.IsTest() {
		executor.Synchronous()
	}
	return executor
}

// newCompletion builds the completion workflow over the current collaborators
func newCompletion() *workflow.Completion {
	completion := workflow.NewCompletion(config.GetDB(), services.GetEmailService(), services.GetBroadcaster())
	if cfg := config.GetConfig(); cfg != nil && cfg.IsTest() {
		completion.Synchronous()
	}
	return completion
}
