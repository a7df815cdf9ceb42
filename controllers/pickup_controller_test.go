package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakeprint/bakeprint-api/config"
)

func TestGetPickupLocations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/pickup-locations", GetPickupLocations)

	req := httptest.NewRequest("GET", "/api/v1/pickup-locations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp["success"].(bool))

	locations := resp["data"].([]interface{})
	require.Len(t, locations, 2)

	first := locations[0].(map[string]interface{})
	assert.Equal(t, "Bakery Counter", first["name"])
	assert.NotEmpty(t, first["address"])
	assert.NotEmpty(t, first["days"])
	assert.NotEmpty(t, first["hours"])
}

func TestSetPickupLocations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	original := pickupLocations
	defer SetPickupLocations(original)

	SetPickupLocations([]config.PickupLocation{
		{Name: "Pop-up Stall", Address: "1 Test St, Fitzroy VIC 3065", Days: "Monday", Hours: "10:00 - 12:00"},
	})

	router := gin.New()
	router.GET("/api/v1/pickup-locations", GetPickupLocations)

	req := httptest.NewRequest("GET", "/api/v1/pickup-locations", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	locations := resp["data"].([]interface{})
	require.Len(t, locations, 1)
	assert.Equal(t, "Pop-up Stall", locations[0].(map[string]interface{})["name"])
}
