package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("pass123")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NoError(t, verifyPassword(hash, "pass123"))
	assert.Error(t, verifyPassword(hash, "wrong-pass"))
}

func TestHashPasswordLengthLimits(t *testing.T) {
	hash, err := HashPassword(strings.Repeat("a", 72))
	require.NoError(t, err)
	assert.NoError(t, verifyPassword(hash, strings.Repeat("a", 72)))

	_, err = HashPassword(strings.Repeat("a", 73))
	assert.EqualError(t, err, "password must be at most 72 bytes")

	_, err = HashPassword("12345")
	assert.EqualError(t, err, "password must be at least 6 characters")
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Ana Pérez",
		"email":    "  Ana@Example.com ",
		"password": "secret1",
		"phone":    "+34 600-123-456",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := body["user"].(map[string]any)
	assert.Equal(t, "ana@example.com", user["email"])
	assert.Equal(t, "client", user["role"])
	assert.NotContains(t, rec.Body.String(), "password")

	stored, err := ts.users.GetByEmail(t.Context(), "ana@example.com")
	require.NoError(t, err)
	assert.NoError(t, verifyPassword(stored.PasswordHash, "secret1"))

	rec, body = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Other", "email": "ana@example.com", "password": "secret2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already registered", body["error"])
}

func TestRegisterValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing name":   {"email": "a@b.co", "password": "secret1"},
		"bad email":      {"name": "A", "email": "not-an-email", "password": "secret1"},
		"short password": {"name": "A", "email": "a@b.co", "password": "12345"},
		"long password":  {"name": "A", "email": "a@b.co", "password": strings.Repeat("a", 73)},
		"bad phone":      {"name": "A", "email": "a@b.co", "password": "secret1", "phone": "call me"},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)
			rec, body := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}

	ts := newTestServer(t)
	rec, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	ts := newTestServer(t)
	rec, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ANA@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bearer", body["token_type"])
	assert.EqualValues(t, 3600, body["expires_in"])

	claims, err := auth.ParseAndVerifyHS256(body["token"].(string), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Sub)
	assert.Equal(t, "client", claims.Role)

	rec, body = ts.do(t, http.MethodGet, "/api/v1/auth/profile", body["token"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", body["user"].(map[string]any)["name"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1",
	})

	rec, body := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", body["error"])

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ana@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "access token required", body["error"])

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/auth/profile", "garbage.token.value", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/auth/profile", tokenFor(t, 42, "client"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
