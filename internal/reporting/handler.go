package reporting

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bizdesk/bizdesk/internal/reporting/svg"
	"github.com/bizdesk/bizdesk/internal/shared"
	"github.com/bizdesk/bizdesk/internal/view"
)

// Handler serves the dashboard page.
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

// MountRoutes registers the dashboard. The router must already require an owner.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.dashboard)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	owner, _ := shared.OwnerFromContext(r.Context())
	d, err := h.service.Dashboard(r.Context(), owner)
	if err != nil {
		h.logger.Error("build dashboard failed", slog.Any("error", err))
		view.Flash(r, "error", shared.UserSafeMessage(err))
		d = Build(nil, nil)
	}
	monthly, perCustomer := h.charts(d)
	h.pages.Render(w, r, "dashboard.html", "Painel", map[string]any{
		"Dashboard":        d,
		"MonthlyChart":     monthly,
		"CustomerChart":    perCustomer,
		"HasMonthlySales":  len(d.MonthlySales) > 0,
		"HasCustomerSales": len(d.SalesPerCustomer) > 0,
	}, http.StatusOK)
}

func (h *Handler) charts(d Dashboard) (template.HTML, template.HTML) {
	var monthly, perCustomer template.HTML
	if len(d.MonthlySales) > 0 {
		chart, err := svg.Bars(0, 0, d.MonthValues(), d.MonthLabels(), svg.BarOpts{
			Title:       "Vendas por mês",
			Description: "Valor total vendido em cada mês",
			ValueLabel: func(v float64) string {
				return shared.FormatBRL(decimal.NewFromFloat(v))
			},
		})
		if err != nil {
			h.logger.Warn("monthly chart failed", slog.Any("error", err))
		}
		monthly = chart
	}
	if len(d.SalesPerCustomer) > 0 {
		labels := make([]string, len(d.SalesPerCustomer))
		values := make([]float64, len(d.SalesPerCustomer))
		for i, c := range d.SalesPerCustomer {
			labels[i] = c.Name
			values[i] = float64(c.Sales)
		}
		chart, err := svg.Bars(0, 0, values, labels, svg.BarOpts{
			Title:       "Vendas por cliente",
			Description: "Quantidade de vendas de cada cliente",
			Color:       "#f97316",
		})
		if err != nil {
			h.logger.Warn("customer chart failed", slog.Any("error", err))
		}
		perCustomer = chart
	}
	return monthly, perCustomer
}
