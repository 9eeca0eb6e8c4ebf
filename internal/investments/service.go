// Package investments manages installment investments: creation, payment
// bookkeeping, closure and removal.
package investments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/observability"
	"github.com/bizdesk/bizdesk/internal/shared"
)

var (
	// ErrMissingFields is returned when a payment lacks id, date or amount.
	ErrMissingFields = fmt.Errorf("missing fields: %w", shared.ErrInvalidInput)
	// ErrInvalidAmount is returned when the amount is not a positive number.
	ErrInvalidAmount = fmt.Errorf("invalid amount: %w", shared.ErrInvalidInput)
	// ErrClosed is returned when a payment targets a closed investment.
	ErrClosed = fmt.Errorf("investment closed: %w", shared.ErrConflict)
)

// Outcome messages shown to the user after a payment.
const (
	MessageClosed  = "Investimento fechado."
	messagePayment = "Pagamento adicionado. Valor restante: %s"
)

// CreateInput carries the raw values of the creation form.
type CreateInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=1000"`
	UnitValue   string `validate:"required"`
	PaymentType string `validate:"max=50"`
	Duration    string `validate:"required"`
}

// PaymentInput carries one payment. Direction defaults to true; false closes
// the investment, as does Close.
type PaymentInput struct {
	InvestmentID string
	Date         string
	Amount       string
	Direction    *bool
	Close        bool
}

// PaymentOutcome describes the investment after a payment.
type PaymentOutcome struct {
	Investment Investment
	Closed     bool
	Remaining  decimal.Decimal
	Message    string
}

var fieldLabels = map[string]string{
	"Name":        "Nome",
	"Description": "Descrição",
	"UnitValue":   "Valor unitário",
	"PaymentType": "Tipo de pagamento",
	"Duration":    "Duração",
}

// Service implements the investment lifecycle.
type Service struct {
	gw       gateway.Gateway
	validate *validator.Validate
	metrics  *observability.Metrics
	changes  shared.ChangeListener
}

// NewService constructs a Service. metrics and changes may be nil.
func NewService(gw gateway.Gateway, metrics *observability.Metrics, changes shared.ChangeListener) *Service {
	return &Service{gw: gw, validate: shared.NewValidator(), metrics: metrics, changes: changes}
}

// ParseDuration accepts whole numbers of installments greater than zero.
func ParseDuration(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return 0, shared.Invalid("Duration", "Duração deve ser um número inteiro maior que zero.")
	}
	return n, nil
}

// ParseAmount accepts positive decimal amounts, with "." or "," as separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Create stores a new open investment with total = duration * unit value.
func (s *Service) Create(ctx context.Context, owner string, in CreateInput) (Investment, error) {
	if owner == "" {
		return Investment{}, shared.ErrUnauthenticated
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.PaymentType = strings.TrimSpace(in.PaymentType)
	if err := shared.CheckStruct(s.validate, in, fieldLabels); err != nil {
		return Investment{}, err
	}
	duration, err := ParseDuration(in.Duration)
	if err != nil {
		return Investment{}, err
	}
	unit, err := ParseAmount(in.UnitValue)
	if err != nil {
		return Investment{}, shared.Invalid("UnitValue", "Valor unitário deve ser um número positivo.")
	}
	total := unit.Mul(decimal.NewFromInt(duration))

	history, err := EncodeHistory(nil)
	if err != nil {
		return Investment{}, err
	}
	rec := gateway.Record{
		gateway.OwnerField: owner,
		fieldName:          in.Name,
		fieldDescription:   in.Description,
		fieldUnitValue:     unit,
		fieldPaymentType:   in.PaymentType,
		fieldDuration:      duration,
		fieldTotalValue:    total,
		fieldStatus:        true,
		fieldPaymentsMade:  int64(0),
		fieldClosed:        false,
		fieldRemaining:     total,
		fieldHistory:       history,
	}
	stored, err := s.gw.Insert(ctx, gateway.Investments, rec)
	if err != nil {
		return Investment{}, fmt.Errorf("create investment: %w", err)
	}
	shared.NotifyChanged(ctx, s.changes, owner)
	return investmentFromRecord(stored), nil
}

// Get loads one investment of owner.
func (s *Service) Get(ctx context.Context, owner, id string) (Investment, error) {
	rows, err := s.gw.Fetch(ctx, gateway.Investments, owner, gateway.Eq(gateway.IDField, id)).Rows()
	if err != nil {
		return Investment{}, fmt.Errorf("get investment %s: %w", id, err)
	}
	if len(rows) == 0 {
		return Investment{}, fmt.Errorf("get investment %s: %w", id, shared.ErrNotFound)
	}
	return investmentFromRecord(rows[0]), nil
}

// RecordPayment appends a payment, recomputes the remaining balance and closes
// the investment when asked to. Closed investments accept no payment.
func (s *Service) RecordPayment(ctx context.Context, owner string, in PaymentInput) (PaymentOutcome, error) {
	if owner == "" {
		return PaymentOutcome{}, shared.ErrUnauthenticated
	}
	in.InvestmentID = strings.TrimSpace(in.InvestmentID)
	in.Date = strings.TrimSpace(in.Date)
	if in.InvestmentID == "" || in.Date == "" || strings.TrimSpace(in.Amount) == "" {
		return PaymentOutcome{}, ErrMissingFields
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return PaymentOutcome{}, err
	}
	if _, err := time.Parse(gateway.DateLayout, in.Date); err != nil {
		return PaymentOutcome{}, shared.Invalid("payment_date", "Data do pagamento deve estar no formato AAAA-MM-DD.")
	}

	inv, err := s.Get(ctx, owner, in.InvestmentID)
	if err != nil {
		return PaymentOutcome{}, err
	}
	if inv.Closed {
		return PaymentOutcome{}, fmt.Errorf("pay investment %s: %w", inv.ID, ErrClosed)
	}
	if inv.HistoryErr != nil {
		return PaymentOutcome{}, fmt.Errorf("pay investment %s: %w: unreadable history: %v", inv.ID,
			shared.ErrConflict, inv.HistoryErr)
	}

	direction := true
	if in.Direction != nil {
		direction = *in.Direction
	}
	inv.History = append(inv.History, Payment{Date: in.Date, Amount: amount})
	inv.PaymentsMade++
	inv.Remaining = remainingAfter(inv.Duration, inv.PaymentsMade, inv.UnitValue)
	inv.Closed = in.Close || !direction
	if inv.Closed {
		inv.Remaining = decimal.Zero
		inv.Status = false
	}

	history, err := EncodeHistory(inv.History)
	if err != nil {
		return PaymentOutcome{}, err
	}
	patch := gateway.Record{
		fieldHistory:      history,
		fieldPaymentsMade: inv.PaymentsMade,
		fieldRemaining:    inv.Remaining,
		fieldClosed:       inv.Closed,
		fieldStatus:       inv.Status,
	}
	n, err := s.gw.Update(ctx, gateway.Investments, gateway.IDField, inv.ID, owner, patch)
	if err != nil {
		return PaymentOutcome{}, fmt.Errorf("pay investment %s: %w", inv.ID, err)
	}
	if n == 0 {
		return PaymentOutcome{}, fmt.Errorf("pay investment %s: %w", inv.ID, shared.ErrNotFound)
	}
	s.metrics.PaymentApplied(inv.Closed)
	shared.NotifyChanged(ctx, s.changes, owner)

	out := PaymentOutcome{Investment: inv, Closed: inv.Closed, Remaining: inv.Remaining}
	if inv.Closed {
		out.Message = MessageClosed
	} else {
		out.Message = fmt.Sprintf(messagePayment, shared.FormatBRL(inv.Remaining))
	}
	return out, nil
}

// Close marks the investment closed with nothing left to pay. Closing a closed
// investment is a no-op.
func (s *Service) Close(ctx context.Context, owner, id string) error {
	inv, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if inv.Closed {
		return nil
	}
	if err := s.markClosed(ctx, owner, inv.ID); err != nil {
		return err
	}
	s.metrics.InvestmentClosed()
	shared.NotifyChanged(ctx, s.changes, owner)
	return nil
}

// Delete removes an investment in any state.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	n, err := s.gw.Delete(ctx, gateway.Investments, gateway.IDField, id, owner)
	if err != nil {
		return fmt.Errorf("delete investment %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete investment %s: %w", id, shared.ErrNotFound)
	}
	shared.NotifyChanged(ctx, s.changes, owner)
	return nil
}

// List returns the owner's investments split by state.
func (s *Service) List(ctx context.Context, owner string) (Portfolio, error) {
	rows, err := s.gw.Fetch(ctx, gateway.Investments, owner).Rows()
	if err != nil {
		return Portfolio{}, fmt.Errorf("list investments: %w", err)
	}
	var p Portfolio
	for _, rec := range rows {
		inv := investmentFromRecord(rec)
		if inv.Closed {
			p.Closed = append(p.Closed, inv)
		} else {
			p.Active = append(p.Active, inv)
		}
	}
	return p, nil
}

// Reconcile closes open investments whose installments are all paid and
// returns how many were closed.
func (s *Service) Reconcile(ctx context.Context, owner string) (int, error) {
	rows, err := s.gw.Fetch(ctx, gateway.Investments, owner, gateway.Eq(fieldClosed, false)).Rows()
	if err != nil {
		return 0, fmt.Errorf("reconcile investments: %w", err)
	}
	closed := 0
	for _, rec := range rows {
		inv := investmentFromRecord(rec)
		if inv.Duration <= 0 || inv.PaymentsMade < inv.Duration {
			continue
		}
		if err := s.markClosed(ctx, owner, inv.ID); err != nil {
			return closed, err
		}
		closed++
	}
	if closed > 0 {
		shared.NotifyChanged(ctx, s.changes, owner)
	}
	return closed, nil
}

func (s *Service) markClosed(ctx context.Context, owner, id string) error {
	patch := gateway.Record{
		fieldClosed:    true,
		fieldStatus:    false,
		fieldRemaining: decimal.Zero,
	}
	n, err := s.gw.Update(ctx, gateway.Investments, gateway.IDField, id, owner, patch)
	if err != nil {
		return fmt.Errorf("close investment %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("close investment %s: %w", id, shared.ErrNotFound)
	}
	return nil
}
