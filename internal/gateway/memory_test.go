package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/shared"
)

func TestMemoryStoreOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a, err := store.Insert(ctx, Sales, Record{OwnerField: "owner-a", "produto": "Widget"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, Sales, Record{OwnerField: "owner-b", "produto": "Widget"})
	require.NoError(t, err)

	rows, err := store.Fetch(ctx, Sales, "owner-a").Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID(), rows[0].ID())

	n, err := store.Update(ctx, Sales, IDField, a.ID(), "owner-b", Record{"produto": "Gadget"})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.Delete(ctx, Sales, IDField, a.ID(), "owner-b")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, store.Len(Sales))

	n, err = store.Delete(ctx, Sales, IDField, a.ID(), "owner-a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryStoreRequiresOwnerAndKnownCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	res := store.Fetch(ctx, Customers, "")
	assert.ErrorIs(t, res.Err, shared.ErrUnauthenticated)

	_, err := store.Insert(ctx, "secrets", Record{OwnerField: "o"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = store.Insert(ctx, Customers, Record{OwnerField: "o", "nome; drop": "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestResultStatusDistinguishesEmptyFromFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	assert.Equal(t, StatusEmpty, store.Fetch(ctx, Customers, "o").Status())

	store.FailNext(errors.New("connection refused"))
	res := store.Fetch(ctx, Customers, "o")
	assert.Equal(t, StatusFailed, res.Status())
	assert.ErrorIs(t, res.Err, shared.ErrBackend)

	store.Seed(Customers, Record{OwnerField: "o", "nome": "Ana"})
	assert.Equal(t, StatusData, store.Fetch(ctx, Customers, "o").Status())
}

func TestFetchEqualityFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Seed(Customers,
		Record{OwnerField: "o", "nome": "Ana", "ativo": true},
		Record{OwnerField: "o", "nome": "Bia", "ativo": false},
	)
	rows, err := store.Fetch(ctx, Customers, "o", Eq("ativo", false)).Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bia", rows[0].String("nome"))
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{
		"n":    "12",
		"f":    12.5,
		"d":    decimal.RequireFromString("3.10"),
		"b":    "true",
		"date": "2024-01-05T00:00:00",
		"bad":  "05/01/2024",
	}
	assert.EqualValues(t, 12, rec.Int("n"))
	assert.True(t, rec.Decimal("f").Equal(decimal.RequireFromString("12.5")))
	assert.True(t, rec.Decimal("d").Equal(decimal.RequireFromString("3.1")))
	assert.True(t, rec.Bool("b"))
	_, ok := rec.Date("date")
	assert.True(t, ok)
	_, ok = rec.Date("bad")
	assert.False(t, ok)
	assert.Equal(t, "", rec.String("missing"))
}
