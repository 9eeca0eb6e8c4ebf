package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bizdesk/bizdesk/internal/shared"
	"github.com/bizdesk/bizdesk/internal/view"
)

// Flash texts of the auth flows.
const (
	MessageLoggedIn    = "Login realizado com sucesso!"
	MessageBadLogin    = "Email ou senha inválidos."
	MessageRegistered  = "Usuário registrado com sucesso! Confirme o email recebido."
	MessageLoggedOut   = "Logout realizado com sucesso."
	MessageEmailExists = "Email já cadastrado."
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	pages    *view.Responder
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, pages *view.Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, sessions: sessions, pages: pages}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := shared.OwnerFromContext(r.Context()); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.pages.Render(w, r, "login.html", "Entrar", map[string]any{"Email": ""}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	user, err := h.service.Authenticate(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		status, message := http.StatusBadRequest, MessageBadLogin
		if errors.Is(err, shared.ErrBackend) {
			h.logger.Error("sign in failed", slog.Any("error", err))
			status, message = http.StatusServiceUnavailable, shared.UserSafeMessage(err)
		}
		view.Flash(r, "error", message)
		h.pages.Render(w, r, "login.html", "Entrar", map[string]any{"Email": email}, status)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.sessions.Renew(sess)
	sess.SetUser(user.ID, user.Email)
	h.logger.Info("owner signed in", slog.String("owner", user.ID))
	h.pages.Redirect(w, r, "/", "success", MessageLoggedIn)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "register.html", "Criar conta", map[string]any{"Email": ""}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	_, err := h.service.Register(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		status, message := http.StatusBadRequest, shared.UserSafeMessage(err)
		switch {
		case errors.Is(err, shared.ErrDuplicate):
			status, message = http.StatusConflict, MessageEmailExists
		case errors.Is(err, shared.ErrInvalidInput):
		default:
			h.logger.Error("sign up failed", slog.Any("error", err))
			status = http.StatusServiceUnavailable
		}
		view.Flash(r, "error", message)
		h.pages.Render(w, r, "register.html", "Criar conta", map[string]any{"Email": email}, status)
		return
	}
	h.pages.Redirect(w, r, "/auth/login", "success", MessageRegistered)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Renew(sess)
		sess.Clear()
	}
	h.pages.Redirect(w, r, "/auth/login", "success", MessageLoggedOut)
}
