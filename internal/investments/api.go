package investments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/platform/httpx"
	"github.com/bizdesk/bizdesk/internal/shared"
)

type paymentRequest struct {
	InvestmentID  any    `json:"investment_id"`
	PaymentDate   string `json:"payment_date"`
	PaymentAmount any    `json:"payment_amount"`
	Direction     *bool  `json:"direction,omitempty"`
	Close         bool   `json:"close,omitempty"`
}

type paymentResponse struct {
	Message   string      `json:"message"`
	Closed    bool        `json:"closed"`
	Remaining json.Number `json:"remaining"`
}

// apiPay answers 200 on success, 401 without a session user, 400 for bodies
// that are not JSON, 422 for missing fields or a bad amount, 404 for an
// unknown investment, 409 for a closed one and 503 when storage fails.
func (h *Handler) apiPay(w http.ResponseWriter, r *http.Request) {
	owner, err := shared.OwnerFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	outcome, err := h.service.RecordPayment(r.Context(), owner, PaymentInput{
		InvestmentID: gateway.ValueString(req.InvestmentID),
		Date:         req.PaymentDate,
		Amount:       gateway.ValueString(req.PaymentAmount),
		Direction:    req.Direction,
		Close:        req.Close,
	})
	if err != nil {
		h.logPaymentError(err)
		status := httpx.StatusFor(err)
		httpx.Problem(w, status, problemTitle(err, status), paymentErrorMessage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, paymentResponse{
		Message:   outcome.Message,
		Closed:    outcome.Closed,
		Remaining: json.Number(outcome.Remaining.StringFixed(2)),
	})
}

func problemTitle(err error, status int) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "missing-fields"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid-amount"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return http.StatusText(status)
	}
}
