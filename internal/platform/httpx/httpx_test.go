package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/shared"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		shared.ErrUnauthenticated:                       http.StatusUnauthorized,
		shared.Invalid("payment_amount", "obrigatório"): http.StatusUnprocessableEntity,
		fmt.Errorf("load: %w", shared.ErrNotFound):      http.StatusNotFound,
		fmt.Errorf("pay: %w", shared.ErrConflict):       http.StatusConflict,
		fmt.Errorf("fetch: %w", shared.ErrBackend):      http.StatusServiceUnavailable,
		fmt.Errorf("%w: eof", ErrMalformedRequest):      http.StatusBadRequest,
		errors.New("boom"):                              http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestRespondErrorWritesProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("pay: %w", shared.ErrConflict))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusConflict, body.Status)
	assert.NotEmpty(t, body.Detail)
}

func TestDecodeJSONMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var target map[string]any
	err := DecodeJSON(httptest.NewRecorder(), req, &target)
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestDecodeJSONKeepsNumberText(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":9007199254740993,"amount":0.10}`))
	var target struct {
		ID     any `json:"id"`
		Amount any `json:"amount"`
	}
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &target))
	assert.Equal(t, json.Number("9007199254740993"), target.ID)
	assert.Equal(t, json.Number("0.10"), target.Amount)
}
