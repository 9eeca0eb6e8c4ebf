package investments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bizdesk/bizdesk/internal/shared"
	"github.com/bizdesk/bizdesk/internal/view"
)

// Handler serves the investment pages and the payment API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pages   *view.Responder
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, pages *view.Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, pages: pages}
}

// MountRoutes registers the HTML routes. The router must already require an owner.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/investments", h.list)
	r.Post("/investments", h.create)
	r.Post("/investments/{id}/payments", h.pay)
	r.Post("/investments/{id}/close", h.close)
	r.Post("/investments/{id}/delete", h.delete)
}

// MountAPI registers the JSON routes. Anonymous callers get 401 instead of a redirect.
func (h *Handler) MountAPI(r chi.Router) {
	r.Post("/api/investments/payments", h.apiPay)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, _ := shared.OwnerFromContext(r.Context())
	portfolio, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.logger.Error("list investments failed", slog.Any("error", err))
		view.Flash(r, "error", shared.UserSafeMessage(err))
	}
	h.pages.Render(w, r, "investments.html", "Investimentos", map[string]any{
		"Portfolio": portfolio,
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	owner, _ := shared.OwnerFromContext(r.Context())
	_, err := h.service.Create(r.Context(), owner, CreateInput{
		Name:        r.PostFormValue("nome"),
		Description: r.PostFormValue("descricao"),
		UnitValue:   r.PostFormValue("valor_unitario"),
		PaymentType: r.PostFormValue("tipo_pagamento"),
		Duration:    r.PostFormValue("duracao"),
	})
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidInput) {
			h.logger.Error("create investment failed", slog.Any("error", err))
		}
		h.pages.Redirect(w, r, "/investments", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/investments", "success", "Investimento cadastrado com sucesso!")
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	owner, _ := shared.OwnerFromContext(r.Context())
	in := PaymentInput{
		InvestmentID: chi.URLParam(r, "id"),
		Date:         r.PostFormValue("payment_date"),
		Amount:       r.PostFormValue("payment_amount"),
		Close:        r.PostFormValue("close") == "on" || r.PostFormValue("close") == "true",
	}
	if raw := r.PostFormValue("direction"); raw != "" {
		direction := raw != "false"
		in.Direction = &direction
	}

	outcome, err := h.service.RecordPayment(r.Context(), owner, in)
	if err != nil {
		h.logPaymentError(err)
		h.pages.Redirect(w, r, "/investments", "error", paymentErrorMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/investments", "success", outcome.Message)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	owner, _ := shared.OwnerFromContext(r.Context())
	if err := h.service.Close(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("close investment failed", slog.Any("error", err))
		}
		h.pages.Redirect(w, r, "/investments", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/investments", "success", MessageClosed)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner, _ := shared.OwnerFromContext(r.Context())
	if err := h.service.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("delete investment failed", slog.Any("error", err))
		}
		h.pages.Redirect(w, r, "/investments", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/investments", "success", "Investimento excluído.")
}

func (h *Handler) logPaymentError(err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrConflict):
		h.logger.Info("payment rejected", slog.Any("error", err))
	default:
		h.logger.Error("record payment failed", slog.Any("error", err))
	}
}

func paymentErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Informe o investimento, a data e o valor do pagamento."
	case errors.Is(err, ErrInvalidAmount):
		return "Valor do pagamento deve ser um número positivo."
	case errors.Is(err, ErrClosed):
		return "Investimento já está fechado."
	default:
		return shared.UserSafeMessage(err)
	}
}
