// Package supabase implements the data gateway on the Supabase PostgREST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/shared"
)

var tracer = otel.Tracer("bizdesk/gateway/supabase")

// Store talks to /rest/v1 with the project API key.
type Store struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewCircuitBreaker trips after a majority of recent calls failed.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// New constructs a Store. A nil httpClient uses a 10s timeout client.
func New(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, logger *slog.Logger) *Store {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cb == nil {
		cb = NewCircuitBreaker("supabase-rest")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		cb:         cb,
		logger:     logger,
	}
}

// Fetch implements gateway.Gateway.
func (s *Store) Fetch(ctx context.Context, collection, owner string, filters ...gateway.Filter) gateway.Result {
	if err := gateway.ValidateScope(collection, owner, gateway.FilterFields(filters)...); err != nil {
		return gateway.Result{Err: err}
	}
	q := scopeQuery(owner, filters)
	q.Set("select", "*")
	q.Set("order", gateway.IDField+".asc")

	rows, err := s.call(ctx, "fetch", http.MethodGet, collection, q, nil)
	if err != nil {
		return gateway.Failed(err)
	}
	return gateway.Result{Records: rows}
}

// Insert implements gateway.Gateway.
func (s *Store) Insert(ctx context.Context, collection string, rec gateway.Record) (gateway.Record, error) {
	if err := gateway.ValidateScope(collection, rec.String(gateway.OwnerField), gateway.RecordFields(rec)...); err != nil {
		return nil, err
	}
	rows, err := s.call(ctx, "insert", http.MethodPost, collection, nil, rec)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gateway.Backend(fmt.Errorf("supabase: insert %s returned no representation", collection))
	}
	return rows[0], nil
}

// Update implements gateway.Gateway.
func (s *Store) Update(ctx context.Context, collection, matchField string, matchValue any, owner string, patch gateway.Record) (int64, error) {
	fields := append(gateway.RecordFields(patch), matchField)
	if err := gateway.ValidateScope(collection, owner, fields...); err != nil {
		return 0, err
	}
	body := patch.Clone()
	delete(body, gateway.IDField)
	delete(body, gateway.OwnerField)
	rows, err := s.call(ctx, "update", http.MethodPatch, collection,
		scopeQuery(owner, []gateway.Filter{gateway.Eq(matchField, matchValue)}), body)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Delete implements gateway.Gateway.
func (s *Store) Delete(ctx context.Context, collection, matchField string, matchValue any, owner string) (int64, error) {
	if err := gateway.ValidateScope(collection, owner, matchField); err != nil {
		return 0, err
	}
	rows, err := s.call(ctx, "delete", http.MethodDelete, collection,
		scopeQuery(owner, []gateway.Filter{gateway.Eq(matchField, matchValue)}), nil)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// call executes one request through the circuit breaker. Every method asks
// for return=representation so PATCH and DELETE report the affected rows.
func (s *Store) call(ctx context.Context, op, method, collection string, query url.Values, body gateway.Record) ([]gateway.Record, error) {
	ctx, span := tracer.Start(ctx, "Supabase."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("db.collection", collection), attribute.String("http.method", method))

	out, err := s.cb.Execute(func() (any, error) {
		return s.do(ctx, method, collection, query, body)
	})
	if c, ok := out.(conflict); ok {
		return nil, fmt.Errorf("supabase: %s %s: %w: %s", op, collection, shared.ErrDuplicate, c.detail)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("supabase request failed",
			slog.String("op", op),
			slog.String("collection", collection),
			slog.Any("error", err),
		)
		return nil, gateway.Backend(fmt.Errorf("supabase: %s %s: %w", op, collection, err))
	}
	rows, _ := out.([]gateway.Record)
	return rows, nil
}

// conflict is returned as a value so that unique violations do not count as
// breaker failures.
type conflict struct {
	detail string
}

func (s *Store) do(ctx context.Context, method, collection string, query url.Values, body gateway.Record) (any, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, collection)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusConflict {
		return conflict{detail: strings.TrimSpace(string(raw))}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	s.logger.Debug("supabase request ok", slog.String("method", method), slog.String("collection", collection), slog.Int("status", resp.StatusCode))
	return decodeRows(raw)
}

func decodeRows(raw []byte) ([]gateway.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	out := make([]gateway.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, gateway.Record(r))
	}
	return out, nil
}

func scopeQuery(owner string, filters []gateway.Filter) url.Values {
	q := url.Values{}
	q.Set(gateway.OwnerField, "eq."+owner)
	for _, f := range filters {
		q.Add(f.Field, "eq."+gateway.ValueString(f.Value))
	}
	return q
}

var _ gateway.Gateway = (*Store)(nil)
