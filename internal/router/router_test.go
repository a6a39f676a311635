package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"supermock/internal/apperrors"
	"supermock/internal/auth"
	"supermock/internal/db/dbtest"
	"supermock/internal/events"
	"supermock/internal/handlers"
	"supermock/internal/models"
	"supermock/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	reg    *services.Registry
	conn   *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := dbtest.New(t)
	reg, err := services.NewRegistry(services.Deps{
		DB:        conn,
		Publisher: &events.Recorder{},
		Mail:      &services.MailService{},
	})
	require.NoError(t, err)

	r := gin.New()
	RegisterRoutes(r, reg, auth.NewTokenManager("test-secret", time.Hour))
	return &testServer{t: t, engine: r, reg: reg, conn: conn}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// register 注册并返回令牌和用户
func (s *testServer) register(email string) (string, *models.User) {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"email": email, "password": "secret123", "name": "Tester"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[handlers.TokenResponse](s.t, w)
	require.NotEmpty(s.t, resp.AccessToken)
	return resp.AccessToken, resp.User
}

func (s *testServer) admin() string {
	s.t.Helper()
	_, _, err := s.reg.Users.EnsureAdmin(context.Background(), "admin@supermock.com", "admin123", "Admin")
	require.NoError(s.t, err)
	w := s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "admin@supermock.com", "password": "admin123"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[handlers.TokenResponse](s.t, w).AccessToken
}

func (s *testServer) createCard(token string) models.Card {
	s.t.Helper()
	w := s.do(http.MethodPost, "/cards", token, gin.H{
		"profession": "Backend Engineer",
		"skills":     []string{"Go"},
		"datetime":   time.Now().Add(24 * time.Hour).UTC().Truncate(time.Minute).Format(time.RFC3339),
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Card](s.t, w)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token, user := s.register("alice@example.com")
	assert.Equal(t, models.PlanFree, user.Plan)

	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"email": "alice@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	errResp := decode[apperrors.Response](t, w)
	assert.Equal(t, 409, errResp.StatusCode)
	assert.Equal(t, "Conflict", errResp.Error)
	assert.Equal(t, "Email already registered", errResp.Message)

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]any](t, w)
	assert.Equal(t, "alice@example.com", profile["email"])
	assert.EqualValues(t, 0, profile["unread_count"])
	assert.NotContains(t, profile, "password")

	w = s.do(http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodGet, "/auth/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/auth/register", "", gin.H{"email": "bad", "password": "123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[apperrors.Response](t, w)
	assert.Equal(t, "Validation failed", resp.Message)
	assert.Contains(t, resp.Details, "email")
	assert.Contains(t, resp.Details, "password")

	w = s.do(http.MethodPost, "/auth/login", "", gin.H{"email": "a@example.com", "password": "x", "remember": true})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown fields are rejected")

	token, _ := s.register("bob@example.com")
	w = s.do(http.MethodPatch, "/users/profile", token, gin.H{"contacts": gin.H{"myspace": "bob"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[apperrors.Response](t, w).Details, "contacts")

	w = s.do(http.MethodGet, "/cards/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchScenario(t *testing.T) {
	s := newTestServer(t)
	ownerToken, _ := s.register("owner@example.com")
	reqToken, _ := s.register("req@example.com")

	w := s.do(http.MethodPatch, "/users/profile", ownerToken, gin.H{"contacts": gin.H{"telegram": "@owner"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	card := s.createCard(ownerToken)

	w = s.do(http.MethodGet, "/cards", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cards := decode[[]models.Card](t, w)
	require.Len(t, cards, 1)
	assert.Nil(t, cards[0].Owner.Contacts)

	w = s.do(http.MethodPost, "/matches", ownerToken, gin.H{"card_id": card.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/matches", reqToken, gin.H{"card_id": card.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	match := decode[models.Match](t, w)
	assert.Equal(t, models.MatchPending, match.Status)

	w = s.do(http.MethodPatch, "/matches/"+match.ID.String()+"/confirm", reqToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/matches/"+match.ID.String()+"/confirm", ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.MatchConfirmed, decode[models.Match](t, w).Status)

	w = s.do(http.MethodGet, "/cards/"+card.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CardMatched, decode[models.Card](t, w).Status)

	w = s.do(http.MethodGet, "/matches", reqToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.Match](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "@owner", list[0].Card.Owner.Contacts["telegram"])

	w = s.do(http.MethodPatch, "/matches/"+match.ID.String(), reqToken, gin.H{"rating": 5, "feedback": "Great session"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rated := decode[models.Match](t, w)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 5, *rated.Rating)
	assert.Equal(t, models.MatchCompleted, rated.Status)

	w = s.do(http.MethodPatch, "/matches/"+match.ID.String(), reqToken, gin.H{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFreePlanQuotaOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ownerToken, _ := s.register("owner@example.com")
	reqToken, _ := s.register("req@example.com")

	for i := 0; i < 3; i++ {
		card := s.createCard(ownerToken)
		w := s.do(http.MethodPost, "/matches", reqToken, gin.H{"card_id": card.ID})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	card := s.createCard(ownerToken)
	w := s.do(http.MethodPost, "/matches", reqToken, gin.H{"card_id": card.ID})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.QuotaMessage(3), decode[apperrors.Response](t, w).Message)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("user@example.com")

	for _, path := range []string{"/users/admin/all", "/payments/admin/transactions", "/payments/admin/purchase-requests"} {
		w := s.do(http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		w = s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	adminToken := s.admin()
	w := s.do(http.MethodGet, "/users/admin/all", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.User](t, w), 2)
}

func TestPurchaseApprovalScenario(t *testing.T) {
	s := newTestServer(t)
	token, user := s.register("buyer@example.com")
	adminToken := s.admin()

	w := s.do(http.MethodPost, "/payments/purchase-request", token, gin.H{"amount": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Amount must be a positive number", decode[apperrors.Response](t, w).Message)

	w = s.do(http.MethodPost, "/payments/purchase-request", token, gin.H{"amount": 50, "description": "Starter"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pr := decode[models.PurchaseRequest](t, w)

	w = s.do(http.MethodPost, "/payments/admin/purchase-requests/"+pr.ID.String()+"/approve", adminToken, gin.H{"admin_notes": "ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decode[models.PurchaseRequest](t, w)
	assert.Equal(t, models.PurchaseApproved, approved.Status)
	require.NotNil(t, approved.AdminNotes)
	assert.Equal(t, "ok", *approved.AdminNotes)

	w = s.do(http.MethodGet, "/payments/transactions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	txns := decode[[]models.Transaction](t, w)
	require.Len(t, txns, 1)
	assert.Equal(t, 50, txns[0].Amount)
	assert.Equal(t, models.TransactionDeposit, txns[0].Type)

	w = s.do(http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 50, decode[map[string]any](t, w)["points"])

	// 已处理的申请不能删除
	w = s.do(http.MethodDelete, "/payments/purchase-requests/"+pr.ID.String(), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/payments/admin/transactions/"+user.ID.String(), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Transaction](t, w), 1)
}

func TestAdminPointAdjustments(t *testing.T) {
	s := newTestServer(t)
	token, user := s.register("u@example.com")
	adminToken := s.admin()

	w := s.do(http.MethodPost, "/payments/admin/add-points", adminToken, gin.H{"amount": 10})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UserId is required", decode[apperrors.Response](t, w).Message)

	w = s.do(http.MethodPost, "/payments/admin/add-points", adminToken, gin.H{"user_id": user.ID, "amount": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	adjusted := decode[handlers.AdjustPointsResponse](t, w)
	assert.Equal(t, 10, adjusted.User.Points)
	assert.Equal(t, services.DefaultAdjustmentDescription, adjusted.Transaction.Description)

	w = s.do(http.MethodPost, "/payments/admin/deduct-points", adminToken, gin.H{"user_id": user.ID, "amount": 20})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Insufficient points", decode[apperrors.Response](t, w).Message)

	w = s.do(http.MethodGet, "/payments/transactions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Transaction](t, w), 1)

	w = s.do(http.MethodPatch, "/users/admin/"+user.ID.String()+"/plan", adminToken, gin.H{"plan": "premium"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PlanPremium, decode[models.User](t, w).Plan)

	w = s.do(http.MethodPatch, "/users/admin/"+user.ID.String()+"/plan", adminToken, gin.H{"plan": "gold"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode[[]models.Notification](t, w)
	require.Len(t, notes, 1)

	w = s.do(http.MethodPost, "/notifications/read-all", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListCardsFilters(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("owner@example.com")
	card := s.createCard(token)

	w := s.do(http.MethodGet, "/cards?profession=backend&skill=go", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cards := decode[[]models.Card](t, w)
	require.Len(t, cards, 1)
	assert.Equal(t, card.ID, cards[0].ID)

	w = s.do(http.MethodGet, "/cards?skill=rust", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Card](t, w))

	from := card.Datetime.Add(time.Minute).Format(time.RFC3339)
	w = s.do(http.MethodGet, "/cards?from="+from, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[[]models.Card](t, w))

	w = s.do(http.MethodDelete, "/cards/"+card.ID.String(), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/cards/"+card.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContactsHiddenFromListings(t *testing.T) {
	s := newTestServer(t)
	token, user := s.register("private@example.com")
	adminToken := s.admin()

	w := s.do(http.MethodPatch, "/users/profile", token, gin.H{"contacts": gin.H{"telegram": "@secret"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "@secret")
	s.createCard(token)

	w = s.do(http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "@secret")

	for _, path := range []string{
		"/users/admin/all",
		"/users/admin/" + user.ID.String(),
		"/cards",
	} {
		w = s.do(http.MethodGet, path, adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.NotContains(t, w.Body.String(), "@secret", path)
		assert.NotContains(t, w.Body.String(), `"contacts"`, path)
	}

	w = s.do(http.MethodPatch, "/users/admin/"+user.ID.String()+"/plan", adminToken, gin.H{"plan": "premium"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "@secret")
}

func TestDatabaseFailureIsNotUnauthorized(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register("outage@example.com")

	// 已删除的用户按未登录处理
	other, otherUser := s.register("gone@example.com")
	require.NoError(t, s.conn.Exec("DELETE FROM users WHERE id = ?", otherUser.ID).Error)
	w := s.do(http.MethodGet, "/auth/profile", other, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	sqlDB, err := s.conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = s.do(http.MethodGet, "/auth/profile", token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	errResp := decode[apperrors.Response](t, w)
	assert.Equal(t, "Internal server error", errResp.Message)
}
