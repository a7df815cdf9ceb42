package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bakeprint/bakeprint-api/config"
	"github.com/bakeprint/bakeprint-api/middleware"
	"github.com/bakeprint/bakeprint-api/models"
	"github.com/bakeprint/bakeprint-api/services"
	"github.com/bakeprint/bakeprint-api/tests/testutil"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testutil.MustSetTestEnvironment(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.ItemImage{},
		&models.StageHistoryEntry{},
		&models.UpdateRequest{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	config.SetConfig(&config.Config{GoEnv: "test"})
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// installMockServices swaps every external collaborator for a recording mock
func installMockServices() (*services.MockEmailService, *services.MockBroadcaster, *services.MockS3Service) {
	emails := services.NewMockEmailService()
	emails.SetAsMockForTesting()

	broadcaster := services.NewMockBroadcaster()
	broadcaster.SetAsMockForTesting()

	s3 := services.NewMockS3Service()
	s3.SetAsMockForTesting()
	services.InitImageService(s3)

	return emails, broadcaster, s3
}

// mockAuthMiddleware simulates the Auth0 JWT middleware for testing.
// It sets up the context exactly as the real EnsureValidToken middleware does.
func mockAuthMiddleware(auth0ID, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)

		mockClaims := &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: auth0ID},
			CustomClaims:     &middleware.CustomClaims{},
		}
		c.Set("validated_claims", mockClaims)

		c.Next()
	}
}

// seedUser inserts a user row and returns it
func seedUser(t *testing.T, db *gorm.DB, auth0ID, email, role string) *models.User {
	t.Helper()
	user := models.User{
		Auth0ID: auth0ID,
		Name:    "Test " + role,
		Email:   email,
		Role:    role,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// setupMockAuth0Server creates a mock HTTP server that simulates Auth0's
// /userinfo endpoint
func setupMockAuth0Server(userInfoMap map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < 8 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		token := authHeader[7:]

		userInfo, exists := userInfoMap[token]
		if !exists {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	}))
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

func TestCreateUser_ProvisionsFromAuth0(t *testing.T) {
	setupTestDB(t)

	accessToken := "token-new-baker"
	mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
		accessToken: {
			Sub:   "auth0|newbaker",
			Email: "New.Baker@Example.com",
			Name:  "New Baker",
		},
	})
	defer mockServer.Close()

	config.SetConfig(&config.Config{GoEnv: "test", Auth0Domain: mockServer.URL})

	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|newbaker", accessToken), CreateUser)

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	response := decodeResponse(t, w)
	assert.True(t, response["success"].(bool))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "auth0|newbaker", data["auth0_id"])
	assert.Equal(t, "new.baker@example.com", data["email"], "email should be lowercased")
	assert.Equal(t, "New Baker", data["name"])
	assert.Equal(t, models.RoleBaker, data["role"], "new users default to baker")
}

func TestCreateUser_IdempotentForExistingProfile(t *testing.T) {
	db := setupTestDB(t)
	existing := seedUser(t, db, "auth0|existing", "existing@example.com", models.RoleBaker)

	accessToken := "token-existing"
	mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{
		accessToken: {
			Sub:   "auth0|existing",
			Email: "different@example.com",
			Name:  "Different Name",
		},
	})
	defer mockServer.Close()

	config.SetConfig(&config.Config{GoEnv: "test", Auth0Domain: mockServer.URL})

	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|existing", accessToken), CreateUser)

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, existing.Email, data["email"], "the stored profile wins")

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateUser_Auth0Unavailable(t *testing.T) {
	setupTestDB(t)

	mockServer := setupMockAuth0Server(map[string]*services.Auth0UserInfo{})
	defer mockServer.Close()

	config.SetConfig(&config.Config{GoEnv: "test", Auth0Domain: mockServer.URL})

	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|nobody", "unknown-token"), CreateUser)

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	response := decodeResponse(t, w)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "AUTH0_ERROR", errorData["code"])
}

func TestGetMe(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "auth0|me", "me@example.com", models.RoleBaker)

	router := setupTestRouter()
	router.GET("/users/me", mockAuthMiddleware(user.Auth0ID, "token"), GetMe)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "me@example.com", data["email"])
}

func TestGetMe_NoProfile(t *testing.T) {
	setupTestDB(t)

	router := setupTestRouter()
	router.GET("/users/me", mockAuthMiddleware("auth0|ghost", "token"), GetMe)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	response := decodeResponse(t, w)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "USER_NOT_FOUND", errorData["code"])
}

func TestUpdateMe(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "auth0|update", "update@example.com", models.RoleBaker)

	router := setupTestRouter()
	router.PUT("/users/me", mockAuthMiddleware(user.Auth0ID, "token"), UpdateMe)

	body := jsonBody(t, map[string]string{"name": "Renamed Baker", "email": "Renamed@Example.com"})
	req := httptest.NewRequest(http.MethodPut, "/users/me", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, "Renamed Baker", stored.Name)
	assert.Equal(t, "renamed@example.com", stored.Email)
}

func TestUpdateMe_EmptyBodyRejected(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db, "auth0|noop", "noop@example.com", models.RoleBaker)

	router := setupTestRouter()
	router.PUT("/users/me", mockAuthMiddleware(user.Auth0ID, "token"), UpdateMe)

	req := httptest.NewRequest(http.MethodPut, "/users/me", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
