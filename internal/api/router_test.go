package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illineats/internal/infrastructure/config"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

const pastDate = "Monday, March 04, 2024"

func testConfig() *config.Config {
	return &config.Config{
		App:            config.AppConfig{Debug: true, Version: "test", AllowedOrigins: []string{"http://localhost:3000"}},
		Server:         config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		Store:          config.StoreConfig{Driver: config.DriverMemory},
		Recommendation: config.RecommendationConfig{Limit: 20, DefaultType: "dashboard"},
		DedupWindow:    time.Nanosecond,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := store.NewMemoryStore()
	r, err := SetupRouter(cfg, Deps{Store: s})
	require.NoError(t, err)
	return r, s
}

func perform(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func reconcileBody(date string) gin.H {
	return gin.H{"foods": []gin.H{
		{
			"name":        "Grilled Chicken",
			"ingredients": "chicken breast, salt",
			"calories":    300,
			"protein":     40,
			"mealEntries": []gin.H{
				{"diningFacility": "Ikenberry Dining Center (Ike)", "mealType": "Lunch", "dateServed": date},
			},
		},
		{
			"name":        "Peanut Noodles",
			"allergens":   "Peanuts, Wheat",
			"preferences": "vegan vegetarian",
			"calories":    500,
			"protein":     12,
			"mealEntries": []gin.H{
				{"diningFacility": "Field of Greens (LAR)", "mealType": "Dinner", "dateServed": date},
			},
		},
	}}
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		w := perform(r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := perform(r, http.MethodGet, "/health", nil)
	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRecommendationFlow(t *testing.T) {
	r, s := newTestRouter(t, testConfig())

	w := perform(r, http.MethodPut, "/api/v1/users/u1", gin.H{"allergies": []string{"peanuts"}, "goal": "bulk"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(r, http.MethodPost, "/api/v1/catalog/reconcile", reconcileBody(pastDate))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report map[string]interface{}
	decode(t, w, &report)
	assert.EqualValues(t, 2, report["foods_created"])
	assert.EqualValues(t, 2, report["entries_inserted"])
	assert.Empty(t, report["errors"])

	chicken, err := s.FindFoodByName(context.Background(), "Grilled Chicken")
	require.NoError(t, err)
	require.NotNil(t, chicken)
	assert.Empty(t, chicken.Preferences)

	w = perform(r, http.MethodPost, "/api/v1/recommendations", gin.H{"user_id": "u1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rec struct {
		ID      string   `json:"id"`
		Type    string   `json:"type"`
		FoodIDs []string `json:"food_ids"`
	}
	decode(t, w, &rec)
	assert.Equal(t, "dashboard", rec.Type)
	assert.Equal(t, []string{chicken.ID}, rec.FoodIDs)

	w = perform(r, http.MethodGet, "/api/v1/recommendations/u1?type=dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		ID      string   `json:"id"`
		FoodIDs []string `json:"food_ids"`
	}
	decode(t, w, &got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.FoodIDs, got.FoodIDs)

	w = perform(r, http.MethodGet, "/api/v1/recommendations/u1/explain", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var explain struct {
		Scores []map[string]interface{} `json:"scores"`
	}
	decode(t, w, &explain)
	assert.Len(t, explain.Scores, 1)
}

func TestRecommendationErrors(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := perform(r, http.MethodPost, "/api/v1/recommendations", gin.H{"type": "dashboard"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/recommendations", gin.H{"user_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp common.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, "USER_NOT_FOUND", resp.Code)

	w = perform(r, http.MethodGet, "/api/v1/recommendations/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "RECOMMENDATION_NOT_FOUND", resp.Code)
}

func TestUsers(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := perform(r, http.MethodPut, "/api/v1/users/u2", gin.H{"goal": "get_swole"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPut, "/api/v1/users/u2", gin.H{"dietary_restrictions": []string{"vegan", "vegan"}, "locations": []string{"Sky Garden"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(r, http.MethodGet, "/api/v1/users/u2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var u common.UserProfile
	decode(t, w, &u)
	assert.Equal(t, "u2", u.ID)
	assert.Equal(t, []string{"vegan"}, u.DietaryRestrictions)
	assert.Equal(t, []string{"Sky Garden"}, u.Locations)
}

func TestReconcileRejectsUnknownFields(t *testing.T) {
	r, s := newTestRouter(t, testConfig())

	body := reconcileBody(pastDate)
	body["foods"].([]gin.H)[0]["colour"] = "brown"
	w := perform(r, http.MethodPost, "/api/v1/catalog/reconcile", body)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = perform(r, http.MethodPost, "/api/v1/catalog/reconcile", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	foods, err := s.ListCatalog(context.Background())
	require.NoError(t, err)
	assert.Empty(t, foods)

	w = perform(r, http.MethodPost, "/api/v1/catalog/reconcile", reconcileBody(pastDate))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCatalogFoodsAndCleanup(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	future := time.Now().AddDate(0, 0, 7).Format("Monday, January 02, 2006")
	w := perform(r, http.MethodPost, "/api/v1/catalog/reconcile", reconcileBody(pastDate))
	require.Equal(t, http.StatusOK, w.Code)
	body := reconcileBody(future)
	w = perform(r, http.MethodPost, "/api/v1/catalog/reconcile", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/catalog/foods?name=noodle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int               `json:"count"`
		Foods []common.FoodItem `json:"foods"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "Peanut Noodles", list.Foods[0].Name)

	w = perform(r, http.MethodPost, "/api/v1/catalog/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cleaned struct {
		Deleted int64    `json:"deleted"`
		Dates   []string `json:"dates"`
	}
	decode(t, w, &cleaned)
	assert.EqualValues(t, 2, cleaned.Deleted)
	assert.Equal(t, []string{pastDate}, cleaned.Dates)

	w = perform(r, http.MethodGet, "/api/v1/catalog/foods", nil)
	decode(t, w, &list)
	assert.Equal(t, 2, list.Count)
}

func TestClassify(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := perform(r, http.MethodPost, "/api/v1/classify", gin.H{"name": "Halal Rice Bowl", "ingredients": "rice, beans"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Tags        []string `json:"tags"`
		Preferences string   `json:"preferences"`
		NonVegan    []string `json:"non_vegan"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []string{"halal", "vegan", "vegetarian"}, resp.Tags)
	assert.Equal(t, "halal vegan vegetarian", resp.Preferences)
	assert.Empty(t, resp.NonVegan)

	w = perform(r, http.MethodPost, "/api/v1/classify", gin.H{"name": "Kosher Grilled Cheese", "ingredients": "bread, butter"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, []string{"kosher"}, resp.Tags)
	assert.Contains(t, resp.NonVegan, "butter")

	w = perform(r, http.MethodPost, "/api/v1/classify", gin.H{"name": "Water"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicatePostRejected(t *testing.T) {
	cfg := testConfig()
	cfg.DedupWindow = time.Minute
	r, _ := newTestRouter(t, cfg)

	body := gin.H{"name": "Toast", "ingredients": "bread"}
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/v1/classify", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(r, http.MethodPost, "/api/v1/classify", body).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/v1/classify", gin.H{"name": "Jam", "ingredients": "fruit"}).Code)
}

func TestSetupRouter_RequiresStore(t *testing.T) {
	_, err := SetupRouter(testConfig(), Deps{})
	assert.Error(t, err)
}
