package reporting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/customers"
	"github.com/bizdesk/bizdesk/internal/sales"
)

func sale(date, value, customerID, customer string) sales.Sale {
	return sales.Sale{
		Date:       date,
		Value:      decimal.RequireFromString(value),
		CustomerID: customerID,
		Customer:   customer,
	}
}

func TestBuildSumsSalesPerMonth(t *testing.T) {
	d := Build(nil, []sales.Sale{
		sale("2024-01-05", "10", "", ""),
		sale("2024-01-20", "5", "", ""),
	})
	require.Len(t, d.MonthlySales, 1)
	assert.Equal(t, "01", d.MonthlySales[0].Month)
	assert.True(t, decimal.NewFromInt(15).Equal(d.MonthlySales[0].Total))
	assert.Zero(t, d.SkippedSales)
}

func TestBuildOrdersMonthsAndMergesYears(t *testing.T) {
	d := Build(nil, []sales.Sale{
		sale("2024-11-01", "1", "", ""),
		sale("2023-02-10", "2", "", ""),
		sale("2024-02-10", "3", "", ""),
	})
	assert.Equal(t, []string{"02", "11"}, d.MonthLabels())
	assert.Equal(t, []float64{5, 1}, d.MonthValues())
}

func TestBuildSkipsMalformedDates(t *testing.T) {
	d := Build(nil, []sales.Sale{
		sale("05/01/2024", "10", "", ""),
		sale("", "4", "", ""),
		sale("2024-03-01", "7", "", ""),
	})
	require.Len(t, d.MonthlySales, 1)
	assert.Equal(t, "03", d.MonthlySales[0].Month)
	assert.Equal(t, 2, d.SkippedSales)
	assert.Equal(t, 3, d.SalesCount)
	assert.True(t, decimal.NewFromInt(21).Equal(d.Revenue), "revenue still counts every sale")
}

func TestBuildCountsCustomers(t *testing.T) {
	cs := []customers.Customer{
		{ID: "c1", Name: "Ana", Active: true},
		{ID: "c2", Name: "Bruno", Active: false},
		{ID: "c3", Name: "Carla", Active: true},
	}
	d := Build(cs, []sales.Sale{
		sale("2024-01-01", "1", "c1", "Ana"),
		sale("2024-01-02", "1", "c1", "Ana (renomeada)"),
		sale("2024-01-03", "1", "", "Bruno"),
		sale("2024-01-04", "1", "", "Desconhecido"),
		sale("2024-01-05", "1", "c9", "Carla"),
	})

	assert.Equal(t, 2, d.ActiveCustomers)
	assert.Equal(t, 1, d.InactiveCustomers)
	require.Len(t, d.SalesPerCustomer, 3)
	assert.Equal(t, CustomerSales{CustomerID: "c1", Name: "Ana", Sales: 2}, d.SalesPerCustomer[0])
	assert.Equal(t, 1, d.SalesPerCustomer[1].Sales, "legacy rows match by name")
	assert.Zero(t, d.SalesPerCustomer[2].Sales, "an unknown customer id never falls back to the name")
}

func TestBuildEmpty(t *testing.T) {
	d := Build(nil, nil)
	assert.NotNil(t, d.MonthlySales)
	assert.NotNil(t, d.SalesPerCustomer)
	assert.True(t, d.Revenue.IsZero())
}
