package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakeprint/bakeprint-api/config"
)

// pickupLocations is the static set served by GetPickupLocations, fixed at
// process start
var pickupLocations = config.DefaultPickupLocations()

// SetPickupLocations installs the pickup locations served by the API
func SetPickupLocations(locations []config.PickupLocation) {
	pickupLocations = locations
}

// GetPickupLocations handles GET /api/v1/pickup-locations
func GetPickupLocations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    pickupLocations,
	})
}
