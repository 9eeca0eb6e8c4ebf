// Package reporting builds the dashboard view-model from customers and sales.
package reporting

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/bizdesk/bizdesk/internal/customers"
	"github.com/bizdesk/bizdesk/internal/sales"
)

// MonthTotal is the summed sale value of one calendar month ("01".."12").
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// CustomerSales counts the sales attributed to one customer.
type CustomerSales struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Sales      int    `json:"sales"`
}

// Dashboard is the aggregate view of one owner's records.
type Dashboard struct {
	MonthlySales      []MonthTotal    `json:"monthly_sales"`
	SkippedSales      int             `json:"skipped_sales"`
	SalesCount        int             `json:"sales_count"`
	Revenue           decimal.Decimal `json:"revenue"`
	ActiveCustomers   int             `json:"active_customers"`
	InactiveCustomers int             `json:"inactive_customers"`
	SalesPerCustomer  []CustomerSales `json:"sales_per_customer"`
}

// Build aggregates the records. Months from different years share a bucket.
// Sales whose date does not parse are left out of MonthlySales and counted in
// SkippedSales.
func Build(cs []customers.Customer, ss []sales.Sale) Dashboard {
	d := Dashboard{
		MonthlySales:     []MonthTotal{},
		SalesPerCustomer: []CustomerSales{},
		SalesCount:       len(ss),
		Revenue:          decimal.Zero,
	}

	months := map[string]decimal.Decimal{}
	for _, s := range ss {
		d.Revenue = d.Revenue.Add(s.Value)
		t, ok := s.ParsedDate()
		if !ok {
			d.SkippedSales++
			continue
		}
		key := t.Format("01")
		months[key] = months[key].Add(s.Value)
	}
	for month, total := range months {
		d.MonthlySales = append(d.MonthlySales, MonthTotal{Month: month, Total: total})
	}
	sort.Slice(d.MonthlySales, func(i, j int) bool {
		return d.MonthlySales[i].Month < d.MonthlySales[j].Month
	})

	byID := make(map[string]int, len(cs))
	byName := make(map[string]int, len(cs))
	for i, c := range cs {
		if c.Active {
			d.ActiveCustomers++
		} else {
			d.InactiveCustomers++
		}
		d.SalesPerCustomer = append(d.SalesPerCustomer, CustomerSales{CustomerID: c.ID, Name: c.Name})
		byID[c.ID] = i
		name := norm.NFC.String(c.Name)
		if _, seen := byName[name]; !seen {
			byName[name] = i
		}
	}
	for _, s := range ss {
		var (
			idx int
			ok  bool
		)
		if s.CustomerID != "" {
			idx, ok = byID[s.CustomerID]
		} else {
			// Legacy rows carry only the customer name.
			idx, ok = byName[norm.NFC.String(s.Customer)]
		}
		if ok {
			d.SalesPerCustomer[idx].Sales++
		}
	}
	return d
}

// MonthLabels returns the month keys in display order.
func (d Dashboard) MonthLabels() []string {
	out := make([]string, len(d.MonthlySales))
	for i, m := range d.MonthlySales {
		out[i] = m.Month
	}
	return out
}

// MonthValues returns the monthly totals as floats for charting.
func (d Dashboard) MonthValues() []float64 {
	out := make([]float64, len(d.MonthlySales))
	for i, m := range d.MonthlySales {
		out[i] = m.Total.InexactFloat64()
	}
	return out
}
