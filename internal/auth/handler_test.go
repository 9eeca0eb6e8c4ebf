package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/auth"
	"github.com/bizdesk/bizdesk/internal/shared"
	"github.com/bizdesk/bizdesk/internal/view"
	_ "github.com/bizdesk/bizdesk/testing"
)

type stubProvider struct {
	password string
}

func (s *stubProvider) SignIn(_ context.Context, email, password string) (auth.User, error) {
	if password != s.password {
		return auth.User{}, shared.ErrInvalidCredentials
	}
	return auth.User{ID: "owner-1", Email: email}, nil
}

func (s *stubProvider) SignUp(_ context.Context, email, _ string) (auth.User, error) {
	if email == "taken@loja.com" {
		return auth.User{}, shared.ErrDuplicate
	}
	return auth.User{ID: "owner-2", Email: email}, nil
}

type harness struct {
	router   chi.Router
	sessions *shared.SessionManager
	owners   *auth.OwnerSet
	cookie   *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	engine, err := view.NewEngine()
	require.NoError(t, err)
	owners := auth.NewOwnerSet(client)
	handler := auth.NewHandler(nil, auth.NewService(&stubProvider{password: "segredo1"}, owners, nil),
		sessions, view.NewResponder(engine, csrf, nil))

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			require.NoError(t, err)
			buf := &bufferedWriter{ResponseWriter: w}
			next.ServeHTTP(buf, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
			require.NoError(t, sessions.Commit(r.Context(), w, sess))
			buf.flush()
		})
	})
	router.Route("/auth", handler.MountRoutes)
	return &harness{router: router, sessions: sessions, owners: owners}
}

// bufferedWriter holds the response so the session cookie can still be set.
type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   strings.Builder
}

func (b *bufferedWriter) WriteHeader(status int) { b.status = status }

func (b *bufferedWriter) Write(p []byte) (int, error) { return b.body.Write(p) }

func (b *bufferedWriter) flush() {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.ResponseWriter.WriteHeader(b.status)
	_, _ = b.ResponseWriter.Write([]byte(b.body.String()))
}

func (h *harness) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	res := httptest.NewRecorder()
	h.router.ServeHTTP(res, req)
	for _, c := range res.Result().Cookies() {
		if c.Name == h.sessions.CookieName() {
			h.cookie = c
		}
	}
	return res
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t)
	res := h.do(http.MethodGet, "/auth/login", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
	assert.Contains(t, res.Body.String(), `name="csrf_token"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t)
	res := h.do(http.MethodPost, "/auth/login", url.Values{"email": {"ana@loja.com"}, "password": {"errada"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Email ou senha inválidos.")
	assert.Contains(t, res.Body.String(), `value="ana@loja.com"`)
}

func TestLoginRotatesSessionAndTracksOwner(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/auth/login", nil)
	anonymous := h.cookie.Value

	res := h.do(http.MethodPost, "/auth/login", url.Values{"email": {"ana@loja.com"}, "password": {"segredo1"}})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))
	assert.NotEqual(t, anonymous, h.cookie.Value)

	members, err := h.owners.Members(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-1"}, members)

	// Signed in users skip the login form.
	res = h.do(http.MethodGet, "/auth/login", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
}

func TestRegisterFlow(t *testing.T) {
	h := newHarness(t)

	res := h.do(http.MethodPost, "/auth/register", url.Values{"email": {"ana@loja"}, "password": {"segredo1"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Email inválido. Certifique-se de incluir um domínio válido.")

	res = h.do(http.MethodPost, "/auth/register", url.Values{"email": {"taken@loja.com"}, "password": {"segredo1"}})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = h.do(http.MethodPost, "/auth/register", url.Values{"email": {"nova@loja.com"}, "password": {"segredo1"}})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))

	res = h.do(http.MethodGet, "/auth/login", nil)
	assert.Contains(t, res.Body.String(), auth.MessageRegistered)
}

func TestLogoutClearsOwner(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/auth/login", url.Values{"email": {"ana@loja.com"}, "password": {"segredo1"}})
	signedIn := h.cookie.Value

	res := h.do(http.MethodPost, "/auth/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.NotEqual(t, signedIn, h.cookie.Value)

	res = h.do(http.MethodGet, "/auth/login", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), auth.MessageLoggedOut)
}
