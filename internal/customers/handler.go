package customers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bizdesk/bizdesk/internal/shared"
	"github.com/bizdesk/bizdesk/internal/view"
)

const maxUploadBytes = shared.MaxFormBytes

// Handler serves the customer pages.
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

// MountRoutes registers customer routes. The router must already require an owner.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.list)
	r.Get("/customers/new", h.showForm)
	r.Post("/customers", h.create)
	r.Post("/customers/import", h.importCSV)
	r.Post("/customers/{id}", h.update)
	r.Post("/customers/{id}/active", h.setActive)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, _ := shared.OwnerFromContext(r.Context())
	list, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.logger.Error("list customers failed", slog.Any("error", err))
		view.Flash(r, "error", shared.UserSafeMessage(err))
	}
	h.pages.Render(w, r, "customers_list.html", "Clientes", map[string]any{
		"Customers":    list,
		"MinBirthDate": minBirthDate.Format("2006-01-02"),
	}, http.StatusOK)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "customers_form.html", "Cadastro de cliente", map[string]any{
		"Form":   CustomerInput{},
		"Errors": map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	owner, _ := shared.OwnerFromContext(r.Context())
	in := inputFromForm(r)

	_, err := h.service.Register(r.Context(), owner, in)
	switch {
	case err == nil:
		h.pages.Redirect(w, r, "/customers/new", "success", "Cliente cadastrado com sucesso!")
	case errors.Is(err, shared.ErrDuplicate):
		h.pages.Redirect(w, r, "/customers/new", "error", "Cliente já cadastrado!")
	case errors.Is(err, shared.ErrInvalidInput):
		h.pages.Render(w, r, "customers_form.html", "Cadastro de cliente", map[string]any{
			"Form":   in,
			"Errors": map[string]string{"general": shared.UserSafeMessage(err)},
		}, http.StatusUnprocessableEntity)
	default:
		h.logger.Error("register customer failed", slog.Any("error", err))
		h.pages.Redirect(w, r, "/customers/new", "error", shared.UserSafeMessage(err))
	}
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.pages.Redirect(w, r, "/customers/new", "error", "Por favor, envie um arquivo CSV válido.")
		return
	}
	file, header, err := r.FormFile("csv_file")
	if err != nil || !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		h.pages.Redirect(w, r, "/customers/new", "error", "Por favor, envie um arquivo CSV válido.")
		return
	}
	defer file.Close()

	rows, err := ParseCSV(file)
	if err != nil {
		h.pages.Redirect(w, r, "/customers/new", "error", "Erro ao processar o CSV: "+shared.UserSafeMessage(err))
		return
	}
	owner, _ := shared.OwnerFromContext(r.Context())
	report, err := h.service.Import(r.Context(), owner, rows)
	if err != nil {
		h.logger.Error("import customers failed", slog.Any("error", err))
		h.pages.Redirect(w, r, "/customers/new", "error", shared.UserSafeMessage(err))
		return
	}
	h.logger.Info("customers imported",
		slog.Int("total", report.Total),
		slog.Int("inserted", report.Inserted),
		slog.Int("skipped", len(report.Skipped)),
	)
	h.pages.Redirect(w, r, "/customers/new", "success", importSummary(report))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	owner, _ := shared.OwnerFromContext(r.Context())
	in := inputFromForm(r)
	active := r.PostFormValue("ativo") == "on" || r.PostFormValue("ativo") == "true"
	in.Active = &active

	if err := h.service.Update(r.Context(), owner, chi.URLParam(r, "id"), in); err != nil {
		if !errors.Is(err, shared.ErrInvalidInput) && !errors.Is(err, shared.ErrDuplicate) {
			h.logger.Error("update customer failed", slog.Any("error", err))
		}
		h.pages.Redirect(w, r, "/customers", "error", shared.UserSafeMessage(err))
		return
	}
	h.pages.Redirect(w, r, "/customers", "success", "Cliente atualizado com sucesso!")
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	owner, _ := shared.OwnerFromContext(r.Context())
	active := r.PostFormValue("ativo") == "true"
	if err := h.service.SetActive(r.Context(), owner, chi.URLParam(r, "id"), active); err != nil {
		h.logger.Warn("set customer active failed", slog.Any("error", err))
		h.pages.Redirect(w, r, "/customers", "error", shared.UserSafeMessage(err))
		return
	}
	msg := "Cliente desativado."
	if active {
		msg = "Cliente ativado."
	}
	h.pages.Redirect(w, r, "/customers", "success", msg)
}

func inputFromForm(r *http.Request) CustomerInput {
	return CustomerInput{
		Name:         r.PostFormValue("nome"),
		Contact:      r.PostFormValue("contato"),
		Address:      r.PostFormValue("endereco"),
		Email:        r.PostFormValue("email"),
		Neighborhood: r.PostFormValue("bairro"),
		City:         r.PostFormValue("cidade"),
		State:        r.PostFormValue("estado"),
		PostalCode:   r.PostFormValue("cep"),
		Gender:       r.PostFormValue("genero"),
		BirthDate:    r.PostFormValue("data_nascimento"),
	}
}

func importSummary(report ImportReport) string {
	msg := fmt.Sprintf("Importação concluída! %d de %d clientes cadastrados.", report.Inserted, report.Total)
	if len(report.Skipped) == 0 {
		return msg
	}
	var parts []string
	for i, issue := range report.Skipped {
		if i == 5 {
			parts = append(parts, fmt.Sprintf("e mais %d", len(report.Skipped)-i))
			break
		}
		parts = append(parts, fmt.Sprintf("linha %d: %s", issue.Line, issue.Reason))
	}
	return msg + " Ignorados: " + strings.Join(parts, "; ")
}
