package sales

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bizdesk/bizdesk/internal/gateway"
)

// Storage fields of the vendas collection.
const (
	fieldProduct       = "produto"
	fieldProductID     = "produto_id"
	fieldCustomer      = "cliente"
	fieldCustomerID    = "cliente_id"
	fieldSeller        = "vendedor"
	fieldDate          = "data_venda"
	fieldPaymentMethod = "forma_pagamento"
	fieldQuantity      = "quantidade"
	fieldDiscount      = "desconto"
	fieldValue         = "valor"
	fieldLineItems     = "produtos"
)

// Lookup collections share the name and price fields.
const (
	fieldName  = "nome"
	fieldPrice = "preco"
)

// Product is a catalogue entry of the owner.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Sale is a recorded sale. Value is the amount charged at recording time.
type Sale struct {
	ID            string
	Product       string
	ProductID     string
	Customer      string
	CustomerID    string
	Seller        string
	Date          string
	PaymentMethod string
	Quantity      int64
	Discount      decimal.Decimal
	Value         decimal.Decimal
	Items         string
}

// ParsedDate returns the sale date; ok is false for malformed stored dates.
func (s Sale) ParsedDate() (time.Time, bool) {
	t, err := time.Parse(gateway.DateLayout, s.Date)
	return t, err == nil
}

// Options feeds the selects of the sale form.
type Options struct {
	Customers []string
	Products  []Product
	Sellers   []string
}

func saleFromRecord(rec gateway.Record) Sale {
	return Sale{
		ID:            rec.ID(),
		Product:       rec.String(fieldProduct),
		ProductID:     rec.String(fieldProductID),
		Customer:      rec.String(fieldCustomer),
		CustomerID:    rec.String(fieldCustomerID),
		Seller:        rec.String(fieldSeller),
		Date:          dateText(rec),
		PaymentMethod: rec.String(fieldPaymentMethod),
		Quantity:      rec.Int(fieldQuantity),
		Discount:      rec.Decimal(fieldDiscount),
		Value:         rec.Decimal(fieldValue),
		Items:         FormatLineItems(rec[fieldLineItems]),
	}
}

func productFromRecord(rec gateway.Record) Product {
	return Product{ID: rec.ID(), Name: rec.String(fieldName), Price: rec.Decimal(fieldPrice)}
}

// dateText reduces timestamps to their date and keeps malformed legacy values
// verbatim so reporting can see them.
func dateText(rec gateway.Record) string {
	if t, ok := rec.Date(fieldDate); ok {
		return t.Format(gateway.DateLayout)
	}
	return strings.TrimSpace(rec.String(fieldDate))
}

// FormatLineItems renders the produtos list of a sale as
// "<nome> - Quantidade: <q> - Desconto: <d>% - Preço: R$<p>" joined by ", ".
// Entries missing one of the four keys are left out; nil renders as "".
func FormatLineItems(raw any) string {
	items, ok := decodeLineItems(raw)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if !hasKeys(item, "nome", "quantidade", "desconto", "preco") {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s - Quantidade: %s - Desconto: %s%% - Preço: R$%s",
			scalar(item["nome"]), scalar(item["quantidade"]), scalar(item["desconto"]), scalar(item["preco"])))
	}
	return strings.Join(parts, ", ")
}

func decodeLineItems(raw any) ([]map[string]any, bool) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, false
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case []map[string]any:
		return v, true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		data = encoded
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, false
	}
	return items, true
}

func hasKeys(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

func scalar(v any) string {
	return gateway.ValueString(v)
}
