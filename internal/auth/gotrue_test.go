package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/shared"
)

func newGoTrue(t *testing.T, h http.HandlerFunc) *GoTrueProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewGoTrueProvider(srv.Client(), srv.URL+"/", "anon-key")
}

func TestGoTrueSignIn(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "segredo1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"t","user":{"id":"9f1c","email":"ana@loja.com"}}`))
	})

	user, err := p.SignIn(context.Background(), "ana@loja.com", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "9f1c", Email: "ana@loja.com"}, user)

	_, err = p.SignIn(context.Background(), "ana@loja.com", "errada")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestGoTrueSignUpShapes(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["email"] {
		case "pending@loja.com":
			_, _ = w.Write([]byte(`{"id":"u1","email":"pending@loja.com","confirmation_sent_at":"2024-01-01T00:00:00Z"}`))
		case "auto@loja.com":
			_, _ = w.Write([]byte(`{"access_token":"t","user":{"id":"u2","email":"auto@loja.com"}}`))
		case "taken@loja.com":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"msg":"User already registered"}`))
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"msg":"Password should be at least 6 characters"}`))
		}
	})

	user, err := p.SignUp(context.Background(), "pending@loja.com", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	user, err = p.SignUp(context.Background(), "auto@loja.com", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, "u2", user.ID)

	_, err = p.SignUp(context.Background(), "taken@loja.com", "segredo1")
	assert.ErrorIs(t, err, shared.ErrDuplicate)

	_, err = p.SignUp(context.Background(), "weak@loja.com", "1")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, shared.UserSafeMessage(err), "at least 6 characters")
}

func TestGoTrueOutageIsBackendFailure(t *testing.T) {
	p := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	_, err := p.SignIn(context.Background(), "ana@loja.com", "segredo1")
	assert.ErrorIs(t, err, shared.ErrBackend)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}
