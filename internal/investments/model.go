package investments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/shared"
)

// Storage fields of the investimento collection.
const (
	fieldName         = "nome"
	fieldDescription  = "descricao"
	fieldUnitValue    = "valor_unitario"
	fieldPaymentType  = "tipo_pagamento"
	fieldDuration     = "duracao"
	fieldTotalValue   = "valor_total"
	fieldStatus       = "status"
	fieldPaymentsMade = "pagamentos_realizados"
	fieldClosed       = "fechado"
	fieldRemaining    = "valor_restante"
	fieldHistory      = "historico_pagamentos"
)

// Investment is an installment plan of Duration payments of UnitValue.
type Investment struct {
	ID           string
	Name         string
	Description  string
	PaymentType  string
	UnitValue    decimal.Decimal
	Duration     int64
	TotalValue   decimal.Decimal
	Status       bool
	PaymentsMade int64
	Closed       bool
	Remaining    decimal.Decimal
	History      []Payment
	// HistoryErr is set when the stored history could not be decoded.
	HistoryErr error
}

// Payment is one entry of the payment history.
type Payment struct {
	Date   string
	Amount decimal.Decimal
}

// Portfolio splits the owner's investments by state.
type Portfolio struct {
	Active []Investment
	Closed []Investment
}

type historyEntry struct {
	Date   string          `json:"data"`
	Amount decimal.Decimal `json:"valor"`
}

type historyEntryOut struct {
	Date   string      `json:"data"`
	Amount json.Number `json:"valor"`
}

// EncodeHistory renders the history as the stored JSON text,
// e.g. [{"data":"2024-01-05","valor":100}].
func EncodeHistory(history []Payment) (string, error) {
	out := make([]historyEntryOut, 0, len(history))
	for _, p := range history {
		out = append(out, historyEntryOut{Date: p.Date, Amount: json.Number(p.Amount.String())})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode payment history: %w", err)
	}
	return string(data), nil
}

// DecodeHistory parses the stored history. Empty or blank text is an empty
// history; amounts may be JSON numbers or numeric strings.
func DecodeHistory(raw any) ([]Payment, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return []Payment{}, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: payment history: %w", shared.ErrInvalidInput, err)
		}
		data = encoded
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return []Payment{}, nil
	}
	var entries []historyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: payment history: %w", shared.ErrInvalidInput, err)
	}
	out := make([]Payment, 0, len(entries))
	for _, e := range entries {
		out = append(out, Payment{Date: strings.TrimSpace(e.Date), Amount: e.Amount})
	}
	return out, nil
}

func investmentFromRecord(rec gateway.Record) Investment {
	inv := Investment{
		ID:           rec.ID(),
		Name:         rec.String(fieldName),
		Description:  rec.String(fieldDescription),
		PaymentType:  rec.String(fieldPaymentType),
		UnitValue:    rec.Decimal(fieldUnitValue),
		Duration:     rec.Int(fieldDuration),
		TotalValue:   rec.Decimal(fieldTotalValue),
		Status:       rec.Bool(fieldStatus),
		PaymentsMade: rec.Int(fieldPaymentsMade),
		Closed:       rec.Bool(fieldClosed),
		Remaining:    rec.Decimal(fieldRemaining),
	}
	history, err := DecodeHistory(rec[fieldHistory])
	if err != nil {
		inv.HistoryErr = err
		history = []Payment{}
	}
	inv.History = history
	return inv
}

// remainingAfter computes max(0, (duration - paymentsMade) * unitValue).
func remainingAfter(duration, paymentsMade int64, unitValue decimal.Decimal) decimal.Decimal {
	left := duration - paymentsMade
	if left <= 0 {
		return decimal.Zero
	}
	r := unitValue.Mul(decimal.NewFromInt(left))
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}
