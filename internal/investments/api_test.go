package investments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/platform/httpx"
	"github.com/bizdesk/bizdesk/internal/shared"
	_ "github.com/bizdesk/bizdesk/testing"
)

type apiFixture struct {
	router   http.Handler
	store    *gateway.MemoryStore
	svc      *Service
	sessions *shared.SessionManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := gateway.NewMemoryStore()
	svc := NewService(store, nil, nil)
	h := NewHandler(nil, svc, nil)
	r := chi.NewRouter()
	h.MountAPI(r)
	return &apiFixture{router: r, store: store, svc: svc, sessions: shared.NewSessionManager(client, "bizdesk_test", time.Hour, false)}
}

func (f *apiFixture) post(t *testing.T, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/investments/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	if user != "" {
		sess.SetUser(user, user+"@example.com")
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAPIPaymentStatusMapping(t *testing.T) {
	f := newAPIFixture(t)
	inv, err := f.svc.Create(context.Background(), owner, CreateInput{Name: "Plano", UnitValue: "100", Duration: "5"})
	require.NoError(t, err)
	closed, err := f.svc.Create(context.Background(), owner, CreateInput{Name: "Fechado", UnitValue: "100", Duration: "5"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Close(context.Background(), owner, closed.ID))

	cases := []struct {
		name   string
		user   string
		body   string
		status int
		title  string
	}{
		{"unauthenticated", "", `{"investment_id":"` + inv.ID + `","payment_date":"2024-01-01","payment_amount":10}`, http.StatusUnauthorized, ""},
		{"malformed", owner, `{"investment_id":`, http.StatusBadRequest, ""},
		{"missing fields", owner, `{"investment_id":"` + inv.ID + `"}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"invalid amount", owner, `{"investment_id":"` + inv.ID + `","payment_date":"2024-01-01","payment_amount":"abc"}`, http.StatusUnprocessableEntity, "invalid-amount"},
		{"not found", owner, `{"investment_id":"nope","payment_date":"2024-01-01","payment_amount":10}`, http.StatusNotFound, ""},
		{"closed", owner, `{"investment_id":"` + closed.ID + `","payment_date":"2024-01-01","payment_amount":10}`, http.StatusConflict, "closed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.post(t, tc.user, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			var problem httpx.ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tc.status, problem.Status)
			if tc.title != "" {
				assert.Equal(t, tc.title, problem.Title)
			}
		})
	}
}

func TestAPIPaymentSuccess(t *testing.T) {
	f := newAPIFixture(t)
	inv, err := f.svc.Create(context.Background(), owner, CreateInput{Name: "Plano", UnitValue: "100", Duration: "5"})
	require.NoError(t, err)

	rec := f.post(t, owner, `{"investment_id":"`+inv.ID+`","payment_date":"2024-01-01","payment_amount":100}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Message   string  `json:"message"`
		Closed    bool    `json:"closed"`
		Remaining float64 `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Closed)
	assert.Equal(t, 400.0, body.Remaining)
	assert.Equal(t, "Pagamento adicionado. Valor restante: R$ 400,00", body.Message)

	rec = f.post(t, owner, `{"investment_id":"`+inv.ID+`","payment_date":"2024-02-01","payment_amount":"50","direction":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Closed)
	assert.Equal(t, MessageClosed, body.Message)
}

func TestAPIPaymentNumericInvestmentID(t *testing.T) {
	ctx := context.Background()
	f := newAPIFixture(t)
	_, err := f.svc.Create(ctx, owner, CreateInput{Name: "Plano", UnitValue: "100", Duration: "5"})
	require.NoError(t, err)
	rows, err := f.store.Fetch(ctx, gateway.Investments, owner).Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	legacy := rows[0].Clone()
	legacy[gateway.IDField] = "9007199254740993"
	f.store.Seed(gateway.Investments, legacy)

	rec := f.post(t, owner, `{"investment_id":9007199254740993,"payment_date":"2024-01-01","payment_amount":100.10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Remaining json.Number `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, json.Number("399.90"), body.Remaining)
}

func TestAPIPaymentBackendUnavailable(t *testing.T) {
	f := newAPIFixture(t)
	inv, err := f.svc.Create(context.Background(), owner, CreateInput{Name: "Plano", UnitValue: "100", Duration: "5"})
	require.NoError(t, err)
	f.store.FailNext(errors.New("connection refused"))

	rec := f.post(t, owner, `{"investment_id":"`+inv.ID+`","payment_date":"2024-01-01","payment_amount":10}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
