package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakeprint/bakeprint-api/workflow"
)

// UpdateRequestBody represents the request body for raising an update request
type UpdateRequestBody struct {
	Reason           string `json:"reason" binding:"required"`
	RequestedChanges string `json:"requested_changes"`
}

// ResolveRequestBody represents the request body for resolving an update request
type ResolveRequestBody struct {
	Action    string `json:"action" binding:"required"` // "approve" or "reject"
	AdminNote string `json:"admin_note"`
}

// UpdateCompletion handles PUT /api/v1/orders/:id/completion - sets or
// replaces the delivery and payment details on a completed order
func UpdateCompletion(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	var payload workflow.CompletionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data: "+err.Error())
		return
	}

	updated, err := newCompletion().UpdateDetails(order, actorFor(user), payload)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	populateFileURLs(updated)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}

// ConfirmCompletion handles POST /api/v1/orders/:id/completion/confirm -
// the baker's sign-off that locks the completion details
func ConfirmCompletion(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	updated, err := newCompletion().Confirm(order, actorFor(user))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	populateFileURLs(updated)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}

// CreateCompletionUpdateRequest handles POST
// /api/v1/orders/:id/completion/update-request
func CreateCompletionUpdateRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	var req UpdateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data: "+err.Error())
		return
	}

	updated, err := newCompletion().CreateUpdateRequest(order, actorFor(user), req.Reason, req.RequestedChanges)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    updated,
	})
}

// ResolveCompletionUpdateRequest handles POST
// /api/v1/orders/:id/completion/update-request/resolve
func ResolveCompletionUpdateRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	order, ok := loadOrder(c, c.Param("id"))
	if !ok {
		return
	}

	var req ResolveRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data: "+err.Error())
		return
	}

	updated, err := newCompletion().ResolveUpdateRequest(order, actorFor(user), req.Action, req.AdminNote)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}
