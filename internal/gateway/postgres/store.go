// Package postgres implements the data gateway directly on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/shared"
)

const uniqueViolation = "23505"

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

// Store runs gateway operations as single SQL statements.
type Store struct {
	db dbtx
}

// New wraps a pool or transaction.
func New(db dbtx) *Store {
	return &Store{db: db}
}

// Fetch implements gateway.Gateway.
func (s *Store) Fetch(ctx context.Context, collection, owner string, filters ...gateway.Filter) gateway.Result {
	if err := gateway.ValidateScope(collection, owner, gateway.FilterFields(filters)...); err != nil {
		return gateway.Result{Err: err}
	}
	where, args := whereClause(owner, filters, 1)
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY %s",
		ident(collection), where, ident(gateway.IDField))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return gateway.Failed(fmt.Errorf("postgres: fetch %s: %w", collection, err))
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return gateway.Failed(fmt.Errorf("postgres: scan %s: %w", collection, err))
	}
	out := make([]gateway.Record, 0, len(maps))
	for _, m := range maps {
		out = append(out, gateway.Record(m))
	}
	return gateway.Result{Records: out}
}

// Insert implements gateway.Gateway.
func (s *Store) Insert(ctx context.Context, collection string, rec gateway.Record) (gateway.Record, error) {
	if err := gateway.ValidateScope(collection, rec.String(gateway.OwnerField), gateway.RecordFields(rec)...); err != nil {
		return nil, err
	}
	cols := sortedKeys(rec)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[c]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(collection), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(collection, "insert", err)
	}
	stored, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, classify(collection, "insert", err)
	}
	return gateway.Record(stored), nil
}

// Update implements gateway.Gateway.
func (s *Store) Update(ctx context.Context, collection, matchField string, matchValue any, owner string, patch gateway.Record) (int64, error) {
	fields := append(gateway.RecordFields(patch), matchField)
	if err := gateway.ValidateScope(collection, owner, fields...); err != nil {
		return 0, err
	}
	cols := sortedKeys(patch)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+2)
	for _, c := range cols {
		if c == gateway.IDField || c == gateway.OwnerField {
			continue
		}
		args = append(args, patch[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", ident(c), len(args)))
	}
	if len(sets) == 0 {
		return 0, shared.Invalid("patch", "nothing to update")
	}
	where, whereArgs := whereClause(owner, []gateway.Filter{gateway.Eq(matchField, matchValue)}, len(args)+1)
	args = append(args, whereArgs...)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", ident(collection), strings.Join(sets, ", "), where)

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, classify(collection, "update", err)
	}
	return tag.RowsAffected(), nil
}

// Delete implements gateway.Gateway.
func (s *Store) Delete(ctx context.Context, collection, matchField string, matchValue any, owner string) (int64, error) {
	if err := gateway.ValidateScope(collection, owner, matchField); err != nil {
		return 0, err
	}
	where, args := whereClause(owner, []gateway.Filter{gateway.Eq(matchField, matchValue)}, 1)
	tag, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", ident(collection), where), args...)
	if err != nil {
		return 0, classify(collection, "delete", err)
	}
	return tag.RowsAffected(), nil
}

// whereClause compares columns as text so that filter values need no type
// knowledge of the target column.
func whereClause(owner string, filters []gateway.Filter, start int) (string, []any) {
	conds := []string{fmt.Sprintf("%s::text = $%d", ident(gateway.OwnerField), start)}
	args := []any{owner}
	for _, f := range filters {
		args = append(args, gateway.ValueString(f.Value))
		conds = append(conds, fmt.Sprintf("%s::text = $%d", ident(f.Field), start+len(args)-1))
	}
	return strings.Join(conds, " AND "), args
}

func classify(collection, op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("postgres: %s %s: %w", op, collection, shared.ErrDuplicate)
	}
	return gateway.Backend(fmt.Errorf("postgres: %s %s: %w", op, collection, err))
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func sortedKeys(rec gateway.Record) []string {
	keys := gateway.RecordFields(rec)
	sort.Strings(keys)
	return keys
}

var _ gateway.Gateway = (*Store)(nil)
