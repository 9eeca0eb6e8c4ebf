package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/shared"
)

func TestResponderFillsFlashAndToken(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rs := NewResponder(engine, shared.NewCSRFManager("secret"), nil)

	sess := &shared.Session{ID: "s1"}
	sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Email ou senha inválidos."})
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()

	rs.Render(res, req, "login.html", "Entrar", map[string]any{"Email": "a@b.com"}, http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Entrar")
	assert.Contains(t, body, "Email ou senha inválidos.")
	assert.Contains(t, body, sess.Get(shared.CSRFSessionKey))
	assert.Nil(t, sess.PopFlash(), "rendering consumes the flash")
}

func TestResponderShowsEveryQueuedFlash(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rs := NewResponder(engine, shared.NewCSRFManager("secret"), nil)

	sess := &shared.Session{ID: "s1"}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Login realizado com sucesso!"})
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Logout realizado com sucesso."})
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()

	rs.Render(res, req, "login.html", "Entrar", map[string]any{"Email": ""}, http.StatusOK)

	body := res.Body.String()
	assert.Contains(t, body, "Login realizado com sucesso!")
	assert.Contains(t, body, "Logout realizado com sucesso.")
	assert.Empty(t, sess.PopFlashes())
}

func TestRenderUnknownTemplateFails(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	assert.Error(t, engine.Render(httptest.NewRecorder(), http.StatusOK, "missing.html", TemplateData{}))
}
