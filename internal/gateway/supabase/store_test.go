package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/shared"
)

func newTestStore(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.Client(), srv.URL, "anon-key", nil, nil)
}

func TestFetchBuildsOwnerScopedQuery(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/clientes", r.URL.Path)
		assert.Equal(t, "eq.owner-1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "eq.Ana", r.URL.Query().Get("nome"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`[{"id": 7, "nome": "Ana", "user_id": "owner-1", "ativo": true}]`))
	})

	res := store.Fetch(context.Background(), gateway.Customers, "owner-1", gateway.Eq("nome", "Ana"))
	require.NoError(t, res.Err)
	require.Equal(t, gateway.StatusData, res.Status())
	assert.Equal(t, "7", res.Records[0].ID())
	assert.True(t, res.Records[0].Bool("ativo"))
}

func TestFetchFailureIsTagged(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	res := store.Fetch(context.Background(), gateway.Sales, "owner-1")
	assert.Equal(t, gateway.StatusFailed, res.Status())
	assert.ErrorIs(t, res.Err, shared.ErrBackend)
}

func TestInsertReturnsRepresentation(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["id"] = 11
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]map[string]any{body})
	})

	rec, err := store.Insert(context.Background(), gateway.Sales, gateway.Record{"user_id": "o", "produto": "Widget"})
	require.NoError(t, err)
	assert.Equal(t, "11", rec.ID())
	assert.Equal(t, "Widget", rec.String("produto"))
}

func TestInsertConflictIsDuplicate(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505"}`))
	})
	_, err := store.Insert(context.Background(), gateway.Customers, gateway.Record{"user_id": "o", "nome": "Ana"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
	assert.NotErrorIs(t, err, shared.ErrBackend)
}

func TestUpdateAndDeleteCountAffectedRows(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.o", r.URL.Query().Get("user_id"))
		assert.Equal(t, "eq.42", r.URL.Query().Get("id"))
		switch r.Method {
		case http.MethodPatch:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.NotContains(t, body, "user_id")
			_, _ = w.Write([]byte(`[{"id": 42}]`))
		case http.MethodDelete:
			_, _ = w.Write([]byte(`[]`))
		}
	})

	n, err := store.Update(context.Background(), gateway.Investments, "id", 42, "o", gateway.Record{"fechado": true, "user_id": "x"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.Delete(context.Background(), gateway.Investments, "id", "42", "o")
	require.NoError(t, err)
	assert.Zero(t, n)
}
