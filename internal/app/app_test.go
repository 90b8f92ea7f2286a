package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *apiClient) do(method, path string, body interface{}) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func newTestApp(t *testing.T) (*App, *apiClient) {
	t.Helper()
	cfg := &config.Config{
		GinMode:            gin.TestMode,
		DatabaseURI:        "sqlite://" + filepath.Join(t.TempDir(), "portal.db"),
		JWTSecret:          "test-secret",
		CORSOrigins:        []string{"http://localhost:3000"},
		DefaultFromAddress: "office@example.com",
	}
	db, err := database.NewConnection(cfg.DatabaseURI, zap.NewNop())
	require.NoError(t, err)

	a := New(cfg, db, zap.NewNop())
	return a, &apiClient{t: t, router: a.Router()}
}

func login(t *testing.T, c *apiClient, username, password string) {
	t.Helper()
	code, env := c.do(http.MethodPost, "/login", service.LoginUserRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, code, env.Error)
	var tokens service.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	c.token = tokens.AccessToken
}

func TestRouter_Health(t *testing.T) {
	_, c := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequiresAuth(t *testing.T) {
	_, c := newTestApp(t)
	code, env := c.do(http.MethodGet, "/api/time-entries", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "error", env.Status)

	c.token = "garbage"
	code, _ = c.do(http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_BillingFlow(t *testing.T) {
	a, c := newTestApp(t)
	ctx := t.Context()
	_, err := a.Users.CreateUser(ctx, service.System, service.CreateUserRequest{Username: "admin", Password: "secret1", IsSuperuser: true})
	require.NoError(t, err)
	_, err = a.Users.CreateUser(ctx, service.System, service.CreateUserRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	code, env := c.do(http.MethodPost, "/login", service.LoginUserRequest{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid username or password", env.Error)

	login(t, c, "admin", "secret1")
	code, env = c.do(http.MethodPost, "/api/tasks", service.TaskRequest{Name: ptr("Development"), BillingRate: ptr("100")})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var task struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &task))

	login(t, c, "alice", "secret1")
	code, _ = c.do(http.MethodPost, "/api/tasks", service.TaskRequest{Name: ptr("Nope")})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = c.do(http.MethodPost, "/api/invoices", service.CreateInvoiceRequest{})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var invoice service.InvoiceResponse
	require.NoError(t, json.Unmarshal(env.Data, &invoice))

	for _, h := range []string{"2", "1.5"} {
		code, env = c.do(http.MethodPost, "/api/time-entries", service.CreateTimeEntryRequest{
			Hours:     h,
			TaskID:    ptr(task.ID),
			InvoiceID: ptr(invoice.ID),
		})
		require.Equal(t, http.StatusCreated, code, env.Error)
	}

	code, env = c.do(http.MethodGet, "/api/invoices/"+invoice.ID, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &invoice))
	assert.Equal(t, "3.50", invoice.Hours)
	assert.Equal(t, "350.00", invoice.Amount)

	code, env = c.do(http.MethodGet, "/api/time-entries?invoice_id="+invoice.ID, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var list struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 2, list.Total)

	code, env = c.do(http.MethodPost, "/api/time-entries", service.CreateTimeEntryRequest{Hours: "-2"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", env.Status)

	code, _ = c.do(http.MethodGet, "/api/audit-logs", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func ptr[T any](v T) *T { return &v }
