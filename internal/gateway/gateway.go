// Package gateway defines the owner-scoped data access contract used by every
// domain service, plus an in-memory implementation.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/bizdesk/bizdesk/internal/shared"
)

// Collection names as stored by the hosted backend.
const (
	Customers   = "clientes"
	Products    = "produtos"
	Sellers     = "vendedores"
	Sales       = "vendas"
	Investments = "investimento"
)

// OwnerField is the column every record is scoped by.
const OwnerField = "user_id"

// IDField is the primary key column.
const IDField = "id"

var knownCollections = map[string]struct{}{
	Customers:   {},
	Products:    {},
	Sellers:     {},
	Sales:       {},
	Investments: {},
}

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Filter is an equality predicate on one field.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Gateway is implemented by every storage adapter.
//
// Owner scoping is mandatory: adapters add the owner predicate to every
// statement, including updates and deletes.
type Gateway interface {
	Fetch(ctx context.Context, collection, owner string, filters ...Filter) Result
	Insert(ctx context.Context, collection string, rec Record) (Record, error)
	Update(ctx context.Context, collection, matchField string, matchValue any, owner string, patch Record) (int64, error)
	Delete(ctx context.Context, collection, matchField string, matchValue any, owner string) (int64, error)
}

// Status tags a fetch outcome.
type Status int

const (
	StatusData Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusData:
		return "data"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Result separates "no rows" from "fetch failed".
type Result struct {
	Records []Record
	Err     error
}

// Status reports the tag of the result.
func (r Result) Status() Status {
	switch {
	case r.Err != nil:
		return StatusFailed
	case len(r.Records) == 0:
		return StatusEmpty
	default:
		return StatusData
	}
}

// Rows returns the records or the failure wrapped as shared.ErrBackend.
func (r Result) Rows() ([]Record, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Records, nil
}

// Failed builds a failed Result wrapping err as a backend failure.
func Failed(err error) Result {
	return Result{Err: Backend(err)}
}

// Backend wraps err so that errors.Is(err, shared.ErrBackend) holds.
// Errors already classified by the shared taxonomy are returned unchanged.
func Backend(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrBackend) || errors.Is(err, shared.ErrInvalidInput) ||
		errors.Is(err, shared.ErrUnauthenticated) || errors.Is(err, shared.ErrDuplicate) {
		return err
	}
	return fmt.Errorf("%w: %w", shared.ErrBackend, err)
}

// ValidateCollection rejects unknown collections.
func ValidateCollection(collection string) error {
	if _, ok := knownCollections[collection]; !ok {
		return shared.Invalid("collection", "unknown collection "+collection)
	}
	return nil
}

// ValidateField rejects field names that are not plain snake_case identifiers.
func ValidateField(field string) error {
	if !fieldPattern.MatchString(field) {
		return shared.Invalid("field", "invalid field name "+field)
	}
	return nil
}

// ValidateScope checks the collection, the owner and the filter fields.
func ValidateScope(collection, owner string, fields ...string) error {
	if owner == "" {
		return shared.ErrUnauthenticated
	}
	if err := ValidateCollection(collection); err != nil {
		return err
	}
	for _, f := range fields {
		if err := ValidateField(f); err != nil {
			return err
		}
	}
	return nil
}

// FilterFields lists the fields referenced by filters, for validation.
func FilterFields(filters []Filter) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		out = append(out, f.Field)
	}
	return out
}

// RecordFields lists the keys of rec, for validation.
func RecordFields(rec Record) []string {
	out := make([]string, 0, len(rec))
	for k := range rec {
		out = append(out, k)
	}
	return out
}
