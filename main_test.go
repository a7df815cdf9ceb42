package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/config"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", healthCheck)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))
}

func TestDatabaseStatus_Connected(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	config.SetDB(db)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/database/status", databaseStatus)

	req := httptest.NewRequest(http.MethodGet, "/database/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// sqlite has no pg_tables; the ping succeeds but the table query fails
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	if w.Code == http.StatusOK {
		assert.True(t, response["success"].(bool))
	} else {
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "DATABASE_QUERY_ERROR", errorData["code"])
	}
}
