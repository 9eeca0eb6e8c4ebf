package sales

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bizdesk/bizdesk/internal/shared"
	"github.com/bizdesk/bizdesk/internal/view"
)

// Handler serves the sales pages.
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

// MountRoutes registers sales routes. The router must already require an owner.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.list)
	r.Post("/sales", h.create)
	r.Post("/sales/{id}/delete", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, _ := shared.OwnerFromContext(ctx)

	list, err := h.service.List(ctx, owner)
	if err != nil {
		h.logger.Error("list sales failed", slog.Any("error", err))
		view.Flash(r, "error", shared.UserSafeMessage(err))
	} else if len(list) == 0 {
		view.Flash(r, "info", "Nenhuma venda encontrada.")
	}

	opts, err := h.service.Options(ctx, owner)
	if err != nil {
		h.logger.Error("load sale options failed", slog.Any("error", err))
	} else if len(opts.Customers) == 0 {
		view.Flash(r, "info", "Nenhum cliente encontrado. Cadastre clientes primeiro.")
	}

	h.pages.Render(w, r, "sales.html", "Vendas", map[string]any{
		"Sales":   list,
		"Options": opts,
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	owner, _ := shared.OwnerFromContext(ctx)

	in, err := inputFromForm(r)
	if err != nil {
		h.pages.Redirect(w, r, "/sales", "error", shared.UserSafeMessage(err))
		return
	}
	products, err := h.service.Products(ctx, owner)
	if err != nil {
		h.logger.Error("load products failed", slog.Any("error", err))
		h.pages.Redirect(w, r, "/sales", "error", shared.UserSafeMessage(err))
		return
	}

	sale, err := h.service.Record(ctx, owner, in, products)
	switch {
	case err == nil:
		h.pages.Redirect(w, r, "/sales", "success",
			fmt.Sprintf("Venda registrada com sucesso! Valor: %s", shared.FormatBRL(sale.Value)))
	case errors.Is(err, ErrProductNotFound):
		h.pages.Redirect(w, r, "/sales", "error", "Produto não encontrado.")
	case errors.Is(err, shared.ErrInvalidInput):
		h.pages.Redirect(w, r, "/sales", "error", shared.UserSafeMessage(err))
	default:
		h.logger.Error("record sale failed", slog.Any("error", err))
		h.pages.Redirect(w, r, "/sales", "error", shared.UserSafeMessage(err))
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner, _ := shared.OwnerFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("delete sale failed", slog.Any("error", err))
		}
		h.pages.Redirect(w, r, "/sales", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/sales", "success", fmt.Sprintf("Venda '%s' excluída com sucesso.", id))
}

func inputFromForm(r *http.Request) (SaleInput, error) {
	in := SaleInput{
		ProductName:   r.PostFormValue("produto"),
		CustomerName:  r.PostFormValue("cliente"),
		SellerName:    r.PostFormValue("vendedor"),
		Date:          r.PostFormValue("data_venda"),
		PaymentMethod: r.PostFormValue("forma_pagamento"),
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("quantidade")), 10, 64)
	if err != nil {
		return in, shared.Invalid("Quantity", "Quantidade deve ser um número inteiro.")
	}
	in.Quantity = qty
	if raw := strings.TrimSpace(r.PostFormValue("desconto")); raw != "" {
		d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
		if err != nil {
			return in, shared.Invalid("Discount", "Desconto deve ser numérico.")
		}
		in.Discount = d
	}
	return in, nil
}
