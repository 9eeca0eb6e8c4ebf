// Package sales records sales against the owner's product catalogue and lists
// them with their line items.
package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/observability"
	"github.com/bizdesk/bizdesk/internal/shared"
)

// ErrProductNotFound is returned when the sold product is not in the catalogue.
var ErrProductNotFound = fmt.Errorf("product not found: %w", shared.ErrNotFound)

var hundred = decimal.NewFromInt(100)

// SaleInput carries the sale form.
type SaleInput struct {
	ProductName   string `validate:"required"`
	CustomerName  string `validate:"required"`
	SellerName    string
	Date          string `validate:"required,datetime=2006-01-02"`
	PaymentMethod string
	Quantity      int64 `validate:"gte=1"`
	Discount      decimal.Decimal
}

var fieldLabels = map[string]string{
	"ProductName":  "Produto",
	"CustomerName": "Cliente",
	"Date":         "Data da venda",
	"Quantity":     "Quantidade",
}

// Service implements sale recording.
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

// Value computes round2((price - price*discount/100) * quantity).
func Value(price, discountPct decimal.Decimal, quantity int64) decimal.Decimal {
	net := price.Sub(price.Mul(discountPct).Div(hundred))
	return net.Mul(decimal.NewFromInt(quantity)).Round(2)
}

// Record stores a sale priced from products, usually the owner's catalogue as
// returned by Products. The product is matched by exact name; an unknown name
// yields ErrProductNotFound and nothing is written.
func (s *Service) Record(ctx context.Context, owner string, in SaleInput, products []Product) (Sale, error) {
	if owner == "" {
		return Sale{}, shared.ErrUnauthenticated
	}
	in.ProductName = strings.TrimSpace(in.ProductName)
	// Customers are stored NFC-normalised; match them the same way.
	in.CustomerName = norm.NFC.String(strings.TrimSpace(in.CustomerName))
	in.SellerName = strings.TrimSpace(in.SellerName)
	in.Date = strings.TrimSpace(in.Date)
	if err := shared.CheckStruct(s.validate, in, fieldLabels); err != nil {
		return Sale{}, err
	}
	if in.Discount.IsNegative() || in.Discount.GreaterThan(hundred) {
		return Sale{}, shared.Invalid("Discount", "Desconto deve estar entre 0 e 100.")
	}

	product, ok := findProduct(products, in.ProductName)
	if !ok {
		return Sale{}, fmt.Errorf("record sale of %q: %w", in.ProductName, ErrProductNotFound)
	}

	customerID := ""
	matches, err := s.gw.Fetch(ctx, gateway.Customers, owner, gateway.Eq(fieldName, in.CustomerName)).Rows()
	if err != nil {
		return Sale{}, fmt.Errorf("record sale: resolve customer: %w", err)
	}
	if len(matches) > 0 {
		customerID = matches[0].ID()
	}

	rec := gateway.Record{
		gateway.OwnerField: owner,
		fieldProduct:       product.Name,
		fieldProductID:     product.ID,
		fieldCustomer:      in.CustomerName,
		fieldCustomerID:    customerID,
		fieldSeller:        in.SellerName,
		fieldDate:          in.Date,
		fieldPaymentMethod: strings.TrimSpace(in.PaymentMethod),
		fieldQuantity:      in.Quantity,
		fieldDiscount:      in.Discount,
		fieldValue:         Value(product.Price, in.Discount, in.Quantity),
	}
	stored, err := s.gw.Insert(ctx, gateway.Sales, rec)
	if err != nil {
		return Sale{}, fmt.Errorf("record sale: %w", err)
	}
	s.metrics.SaleRecorded()
	shared.NotifyChanged(ctx, s.changes, owner)
	return saleFromRecord(stored), nil
}

// Delete removes one sale. An id unknown to the owner yields shared.ErrNotFound.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	n, err := s.gw.Delete(ctx, gateway.Sales, gateway.IDField, id, owner)
	if err != nil {
		return fmt.Errorf("delete sale %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete sale %s: %w", id, shared.ErrNotFound)
	}
	shared.NotifyChanged(ctx, s.changes, owner)
	return nil
}

// List returns the owner's sales with formatted line items.
func (s *Service) List(ctx context.Context, owner string) ([]Sale, error) {
	rows, err := s.gw.Fetch(ctx, gateway.Sales, owner).Rows()
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := make([]Sale, 0, len(rows))
	for _, rec := range rows {
		out = append(out, saleFromRecord(rec))
	}
	return out, nil
}

// Products returns the owner's catalogue.
func (s *Service) Products(ctx context.Context, owner string) ([]Product, error) {
	rows, err := s.gw.Fetch(ctx, gateway.Products, owner).Rows()
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]Product, 0, len(rows))
	for _, rec := range rows {
		out = append(out, productFromRecord(rec))
	}
	return out, nil
}

// Options loads the customer, product and seller lists of the sale form.
func (s *Service) Options(ctx context.Context, owner string) (Options, error) {
	var opts Options
	products, err := s.Products(ctx, owner)
	if err != nil {
		return opts, err
	}
	opts.Products = products

	customers, err := s.names(ctx, gateway.Customers, owner)
	if err != nil {
		return opts, err
	}
	opts.Customers = customers

	sellers, err := s.names(ctx, gateway.Sellers, owner)
	if err != nil {
		return opts, err
	}
	opts.Sellers = sellers
	return opts, nil
}

func (s *Service) names(ctx context.Context, collection, owner string) ([]string, error) {
	rows, err := s.gw.Fetch(ctx, collection, owner).Rows()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]string, 0, len(rows))
	for _, rec := range rows {
		if name := rec.String(fieldName); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func findProduct(products []Product, name string) (Product, bool) {
	for _, p := range products {
		if p.Name == name {
			return p, true
		}
	}
	return Product{}, false
}
