package view

import (
	"log/slog"
	"net/http"

	"github.com/bizdesk/bizdesk/internal/shared"
)

// Responder bundles the page helpers every HTML handler needs.
type Responder struct {
	engine *Engine
	csrf   *shared.CSRFManager
	logger *slog.Logger
}

// NewResponder constructs a Responder.
func NewResponder(engine *Engine, csrf *shared.CSRFManager, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{engine: engine, csrf: csrf, logger: logger}
}

// Render writes a page with the session flash and CSRF token filled in.
func (rs *Responder) Render(w http.ResponseWriter, r *http.Request, tmpl, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())

	viewData := TemplateData{
		Title:       title,
		CSRFToken:   rs.csrf.EnsureToken(sess),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if sess != nil {
		viewData.Flashes = sess.PopFlashes()
		viewData.UserEmail = sess.Email()
	}

	if err := rs.engine.Render(w, status, tmpl, viewData); err != nil {
		rs.logger.Error("template render failed", slog.Any("error", err), slog.String("template", tmpl))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Redirect queues a flash message and answers 303 See Other.
func (rs *Responder) Redirect(w http.ResponseWriter, r *http.Request, url, kind, message string) {
	Flash(r, kind, message)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// Flash queues a message on the request session, if any.
func Flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && message != "" {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}
