package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/workflow"
)

func pickupBody() map[string]interface{} {
	return map[string]interface{}{
		"delivery_method": models.DeliveryMethodPickup,
		"payment_method":  models.PaymentMethodCash,
		"pickup_date":     time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"pickup_time":     "10:00",
	}
}

func deliveryBody() map[string]interface{} {
	return map[string]interface{}{
		"delivery_method": models.DeliveryMethodDelivery,
		"payment_method":  models.PaymentMethodCard,
		"address_line1":   "12 Flour St",
		"city":            "Melbourne",
		"state":           "VIC",
		"postcode":        "3000",
		"country":         "Australia",
	}
}

func TestUpdateCompletion_RejectedBeforeCompleted(t *testing.T) {
	db := setupTestDB(t)
	installMockServices()
	baker := seedUser(t, db, "auth0|baker1", "baker1@example.com", models.RoleBaker)
	order := seedOrderTree(t, db, baker.ID, workflow.StagePrinting)

	router := setupTestRouter()
	orderRoutes(router, baker.Auth0ID)

	w := doJSON(router, http.MethodPut, fmt.Sprintf("/orders/%d/completion", order.ID), pickupBody())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeResponse(t, w)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, workflow.CodeOrderNotCompleted, errorData["code"])
}

func TestUpdateCompletion_DeliveryDetails(t *testing.T) {
	db := setupTestDB(t)
	installMockServices()
	baker := seedUser(t, db, "auth0|baker1", "baker1@example.com", models.RoleBaker)
	order := seedOrderTree(t, db, baker.ID, workflow.StageCompleted)

	router := setupTestRouter()
	orderRoutes(router, baker.Auth0ID)

	w := doJSON(router, http.MethodPut, fmt.Sprintf("/orders/%d/completion", order.ID), deliveryBody())
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, models.DeliveryMethodDelivery, data["delivery_method"])
	assert.Equal(t, "3000", data["postcode"])
	assert.Nil(t, data["pickup_date"])
}

func TestUpdateCompletion_BadAustralianPostcode(t *testing.T) {
	db := setupTestDB(t)
	installMockServices()
	baker := seedUser(t, db, "auth0|baker1", "baker1@example.com", models.RoleBaker)
	order := seedOrderTree(t, db, baker.ID, workflow.StageCompleted)

	router := setupTestRouter()
	orderRoutes(router, baker.Auth0ID)

	body := deliveryBody()
	body["postcode"] = "ABCD"
	w := doJSON(router, http.MethodPut, fmt.Sprintf("/orders/%d/completion", order.ID), body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeResponse(t, w)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, workflow.CodeInvalidAddressFormat, errorData["code"])
}

func TestConfirmCompletion_AndUpdateRequestFlow(t *testing.T) {
	db := setupTestDB(t)
	emails, _, _ := installMockServices()
	baker := seedUser(t, db, "auth0|baker1", "baker1@example.com", models.RoleBaker)
	admin := seedUser(t, db, "auth0|admin1", "admin1@example.com", models.RoleAdmin)
	order := seedOrderTree(t, db, baker.ID, workflow.StageCompleted)

	bakerRouter := setupTestRouter()
	orderRoutes(bakerRouter, baker.Auth0ID)
	adminRouter := setupTestRouter()
	orderRoutes(adminRouter, admin.Auth0ID)

	// Set and confirm pickup details
	w := doJSON(bakerRouter, http.MethodPut, fmt.Sprintf("/orders/%d/completion", order.ID), pickupBody())
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	w = doJSON(bakerRouter, http.MethodPost, fmt.Sprintf("/orders/%d/completion/confirm", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["details_confirmed"])

	// Confirmed details are locked for the baker
	w = doJSON(bakerRouter, http.MethodPut, fmt.Sprintf("/orders/%d/completion", order.ID), pickupBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errorData := decodeResponse(t, w)["error"].(map[string]interface{})
	assert.Equal(t, workflow.CodeRequiresApprovalToEdit, errorData["code"])

	// Baker raises an update request; the admin is notified
	w = doJSON(bakerRouter, http.MethodPost, fmt.Sprintf("/orders/%d/completion/update-request", order.ID), map[string]interface{}{
		"reason": "pickup day no longer works",
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var adminNotified bool
	for _, sent := range emails.Sent() {
		if sent.Kind == "update_request" && sent.To == admin.Email {
			adminNotified = true
		}
	}
	assert.True(t, adminNotified)

	// Admin approves; the details reopen
	w = doJSON(adminRouter, http.MethodPost, fmt.Sprintf("/orders/%d/completion/update-request/resolve", order.ID), map[string]interface{}{
		"action":     "approve",
		"admin_note": "fine",
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	data = decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["details_confirmed"])

	// The baker's next edit goes through and consumes the approval
	body := pickupBody()
	body["pickup_time"] = "15:30"
	w = doJSON(bakerRouter, http.MethodPut, fmt.Sprintf("/orders/%d/completion", order.ID), body)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	data = decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "15:30", data["pickup_time"])

	var request models.UpdateRequest
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&request).Error)
	assert.Equal(t, models.UpdateRequestApproved, request.Status)
	assert.True(t, request.Applied)
}

func TestCreateCompletionUpdateRequest_RequiresReason(t *testing.T) {
	db := setupTestDB(t)
	installMockServices()
	baker := seedUser(t, db, "auth0|baker1", "baker1@example.com", models.RoleBaker)
	order := seedOrderTree(t, db, baker.ID, workflow.StageCompleted)

	router := setupTestRouter()
	orderRoutes(router, baker.Auth0ID)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/orders/%d/completion/update-request", order.ID), map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveCompletionUpdateRequest_BakerForbidden(t *testing.T) {
	db := setupTestDB(t)
	installMockServices()
	baker := seedUser(t, db, "auth0|baker1", "baker1@example.com", models.RoleBaker)
	order := seedOrderTree(t, db, baker.ID, workflow.StageCompleted)

	router := setupTestRouter()
	orderRoutes(router, baker.Auth0ID)

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/orders/%d/completion/update-request/resolve", order.ID), map[string]interface{}{
		"action": "approve",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
