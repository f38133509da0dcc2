package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanconnect/backend/internal/catalog"
)

func post(t *testing.T, h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestSignupAndLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	store := catalog.NewMemoryStore()
	h := NewHandlers(store, nil)

	rec := post(t, h.Signup, `{"name":"Ade","email":"ade@example.com","password":"sekrit1","role":"ARTISAN"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	parsed, err := jwt.Parse(resp.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, catalog.RoleArtisan, claims["role"])

	user, err := store.GetUserByEmail(context.Background(), "ade@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "sekrit1", user.Password, "password is stored hashed")

	rec = post(t, h.Login, `{"email":"ade@example.com","password":"sekrit1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h.Login, `{"email":"ade@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, h.Login, `{"email":"nobody@example.com","password":"whatever"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "unknown users are never auto-registered")
}

func TestSignupValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	store := catalog.NewMemoryStore()
	h := NewHandlers(store, nil)

	rec := post(t, h.Signup, `{"name":"Ade","email":"ade@example.com","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "password too short")

	rec = post(t, h.Signup, `{"name":"Ade","email":"ade@example.com","password":"sekrit1","role":"ADMIN"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "admins cannot self-register")

	rec = post(t, h.Signup, `{"name":"Ade","email":"ade@example.com","password":"sekrit1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h.Signup, `{"name":"Bode","email":"ade@example.com","password":"sekrit2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate email")
	assert.Contains(t, rec.Body.String(), "email already exists")

	// Omitted role defaults to OWNER.
	rec = post(t, h.Signup, `{"name":"Cee","email":"cee@example.com","password":"sekrit3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	user, err := store.GetUserByEmail(context.Background(), "cee@example.com")
	require.NoError(t, err)
	assert.Equal(t, catalog.RoleOwner, user.Role)
}
