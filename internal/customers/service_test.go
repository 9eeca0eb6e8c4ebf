package customers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/shared"
)

type changeRecorder struct {
	owners []string
}

func (c *changeRecorder) OwnerChanged(_ context.Context, owner string) {
	c.owners = append(c.owners, owner)
}

func newTestService() (*Service, *gateway.MemoryStore, *changeRecorder) {
	store := gateway.NewMemoryStore()
	changes := &changeRecorder{}
	svc := NewService(store, nil, changes)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc, store, changes
}

func validInput() CustomerInput {
	return CustomerInput{
		Name:    "Ana",
		Contact: "11999990000",
		Address: "Rua A, 1",
		Email:   "ana@example.com",
	}
}

func TestRegisterIsIdempotentOnKey(t *testing.T) {
	ctx := context.Background()
	svc, store, changes := newTestService()

	created, err := svc.Register(ctx, "owner-1", validInput())
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.NotEmpty(t, created.ID)

	_, err = svc.Register(ctx, "owner-1", validInput())
	assert.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Equal(t, 1, store.Len(gateway.Customers))
	assert.Equal(t, []string{"owner-1"}, changes.owners)
}

func TestRegisterKeyIgnoresWhitespaceAndNormalisation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	in := validInput()
	in.Name = "Jos\u00e9"
	_, err := svc.Register(ctx, "owner-1", in)
	require.NoError(t, err)

	again := validInput()
	again.Name = "  Jose\u0301 "
	again.Address = "Outro endereço"
	_, err = svc.Register(ctx, "owner-1", again)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Equal(t, 1, store.Len(gateway.Customers))
}

func TestRegisterKeyIsScopedByOwner(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	_, err := svc.Register(ctx, "owner-1", validInput())
	require.NoError(t, err)
	_, err = svc.Register(ctx, "owner-2", validInput())
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len(gateway.Customers))
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	noAddress := validInput()
	noAddress.Address = "   "
	_, err := svc.Register(ctx, "owner-1", noAddress)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	badEmail := validInput()
	badEmail.Email = "ana@"
	_, err = svc.Register(ctx, "owner-1", badEmail)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	future := validInput()
	future.BirthDate = "2030-01-01"
	_, err = svc.Register(ctx, "owner-1", future)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	ancient := validInput()
	ancient.BirthDate = "1899-12-31"
	_, err = svc.Register(ctx, "owner-1", ancient)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.Register(ctx, "", validInput())
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	assert.Zero(t, store.Len(gateway.Customers))
}

func TestRegisterStoresBirthDate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	in := validInput()
	in.BirthDate = "1990-03-15"
	_, err := svc.Register(ctx, "owner-1", in)
	require.NoError(t, err)

	list, err := svc.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1990-03-15", list[0].BirthDateValue())
}

func TestImportSkipsInvalidRowsWithoutAborting(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	rows, err := ParseCSV(strings.NewReader(
		"nome,contato,email\n" +
			"Ana,111,ana@example.com\n" +
			"Bia,222,\n" +
			"Caio,333,caio@example.com\n"))
	require.NoError(t, err)

	report, err := svc.Import(ctx, "owner-1", rows)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Inserted)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 3, report.Skipped[0].Line)
	assert.Equal(t, 2, store.Len(gateway.Customers))

	list, err := svc.List(ctx, "owner-1")
	require.NoError(t, err)
	for _, c := range list {
		assert.Equal(t, "", c.Address)
		assert.True(t, c.Active)
	}
}

func TestImportDeduplicatesAgainstStoredAndBatch(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	_, err := svc.Register(ctx, "owner-1", validInput())
	require.NoError(t, err)

	report, err := svc.Import(ctx, "owner-1", []ImportRow{
		{Line: 2, Name: "Ana", Contact: "11999990000", Email: "ana@example.com"},
		{Line: 3, Name: "Bia", Contact: "222", Email: "bia@example.com"},
		{Line: 4, Name: " Bia", Contact: "222 ", Email: "bia@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, 2, report.Skipped[0].Line)
	assert.Equal(t, 4, report.Skipped[1].Line)
	assert.Equal(t, 2, store.Len(gateway.Customers))

	again, err := svc.Import(ctx, "owner-1", []ImportRow{
		{Line: 2, Name: "Bia", Contact: "222", Email: "bia@example.com"},
	})
	require.NoError(t, err)
	assert.Zero(t, again.Inserted)
	assert.Equal(t, 2, store.Len(gateway.Customers))
}

func TestImportStopsBeforeWritingWhenLookupFails(t *testing.T) {
	ctx := context.Background()
	svc, store, changes := newTestService()
	store.FailNext(errors.New("connection reset"))

	_, err := svc.Import(ctx, "owner-1", []ImportRow{{Line: 2, Name: "Ana", Contact: "1", Email: "a@b.co"}})
	assert.ErrorIs(t, err, shared.ErrBackend)
	assert.Zero(t, store.Len(gateway.Customers))
	assert.Empty(t, changes.owners)
}

func TestUpdateAndSetActive(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	ana, err := svc.Register(ctx, "owner-1", validInput())
	require.NoError(t, err)
	bia := validInput()
	bia.Name = "Bia"
	_, err = svc.Register(ctx, "owner-1", bia)
	require.NoError(t, err)

	edit := validInput()
	edit.City = "Recife"
	inactive := false
	edit.Active = &inactive
	require.NoError(t, svc.Update(ctx, "owner-1", ana.ID, edit))

	got, err := svc.Get(ctx, "owner-1", ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "Recife", got.City)
	assert.False(t, got.Active)

	clash := validInput()
	clash.Name = "Bia"
	assert.ErrorIs(t, svc.Update(ctx, "owner-1", ana.ID, clash), shared.ErrDuplicate)

	assert.ErrorIs(t, svc.Update(ctx, "owner-1", "missing", validInput()), shared.ErrNotFound)
	err = svc.Update(ctx, "owner-1", "missing", bia)
	assert.ErrorIs(t, err, shared.ErrNotFound, "an unknown id is reported before any key clash")
	assert.NotErrorIs(t, err, shared.ErrDuplicate)
	assert.ErrorIs(t, svc.Update(ctx, "owner-2", ana.ID, validInput()), shared.ErrNotFound)

	require.NoError(t, svc.SetActive(ctx, "owner-1", ana.ID, true))
	got, err = svc.Get(ctx, "owner-1", ana.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, "Ativo", got.Status())

	assert.ErrorIs(t, svc.SetActive(ctx, "owner-1", "missing", true), shared.ErrNotFound)
}

func TestListReportsBackendFailure(t *testing.T) {
	svc, store, _ := newTestService()
	store.FailNext(errors.New("timeout"))

	_, err := svc.List(context.Background(), "owner-1")
	assert.ErrorIs(t, err, shared.ErrBackend)
}
