// Package customers registers, imports and edits the customers of an owner,
// keeping one record per (name, contact, email).
package customers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bizdesk/bizdesk/internal/gateway"
	"github.com/bizdesk/bizdesk/internal/observability"
	"github.com/bizdesk/bizdesk/internal/shared"
)

var minBirthDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// Service implements customer business rules on top of the gateway.
type Service struct {
	gw       gateway.Gateway
	validate *validator.Validate
	metrics  *observability.Metrics
	changes  shared.ChangeListener
	now      func() time.Time
}

// NewService constructs a Service. metrics and changes may be nil.
func NewService(gw gateway.Gateway, metrics *observability.Metrics, changes shared.ChangeListener) *Service {
	return &Service{
		gw:       gw,
		validate: shared.NewValidator(),
		metrics:  metrics,
		changes:  changes,
		now:      time.Now,
	}
}

// List returns every customer of owner.
func (s *Service) List(ctx context.Context, owner string) ([]Customer, error) {
	rows, err := s.gw.Fetch(ctx, gateway.Customers, owner).Rows()
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]Customer, 0, len(rows))
	for _, rec := range rows {
		out = append(out, customerFromRecord(rec))
	}
	return out, nil
}

// Get loads one customer.
func (s *Service) Get(ctx context.Context, owner, id string) (Customer, error) {
	rows, err := s.gw.Fetch(ctx, gateway.Customers, owner, gateway.Eq(gateway.IDField, id)).Rows()
	if err != nil {
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	if len(rows) == 0 {
		return Customer{}, fmt.Errorf("get customer %s: %w", id, shared.ErrNotFound)
	}
	return customerFromRecord(rows[0]), nil
}

// Register stores a manually entered customer. A customer with the same key
// already present yields shared.ErrDuplicate and nothing is written.
func (s *Service) Register(ctx context.Context, owner string, in CustomerInput) (Customer, error) {
	if owner == "" {
		return Customer{}, shared.ErrUnauthenticated
	}
	in = in.normalized()
	if err := shared.CheckStruct(s.validate, in, fieldLabels); err != nil {
		return Customer{}, err
	}
	birth, err := s.birthDate(in.BirthDate)
	if err != nil {
		return Customer{}, err
	}
	existing, _, err := s.keys(ctx, owner, "")
	if err != nil {
		return Customer{}, err
	}
	if _, dup := existing[KeyOf(in.Name, in.Contact, in.Email)]; dup {
		s.metrics.CustomerWritten("single", "skipped")
		return Customer{}, fmt.Errorf("register customer: %w", shared.ErrDuplicate)
	}

	rec := in.record(birth)
	rec[gateway.OwnerField] = owner
	rec[fieldActive] = true
	stored, err := s.gw.Insert(ctx, gateway.Customers, rec)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			s.metrics.CustomerWritten("single", "skipped")
		}
		return Customer{}, fmt.Errorf("register customer: %w", err)
	}
	s.metrics.CustomerWritten("single", "inserted")
	shared.NotifyChanged(ctx, s.changes, owner)
	return customerFromRecord(stored), nil
}

// Import stores each row independently. Invalid and duplicate rows, including
// repeats inside the batch, are reported in ImportReport.Skipped and never
// abort the remaining rows. The error is only set when the existing customers
// could not be read, in which case nothing is written.
func (s *Service) Import(ctx context.Context, owner string, rows []ImportRow) (ImportReport, error) {
	report := ImportReport{Total: len(rows)}
	if owner == "" {
		return report, shared.ErrUnauthenticated
	}
	seen, _, err := s.keys(ctx, owner, "")
	if err != nil {
		return report, err
	}

	skip := func(line int, reason string) {
		report.Skipped = append(report.Skipped, RowIssue{Line: line, Reason: reason})
		s.metrics.CustomerWritten("bulk", "skipped")
	}

	for _, row := range rows {
		in := row.input()
		check := ImportRow{Name: in.Name, Contact: in.Contact, Email: in.Email}
		if err := shared.CheckStruct(s.validate, check, fieldLabels); err != nil {
			skip(row.Line, shared.UserSafeMessage(err))
			continue
		}
		birth, err := s.birthDate(in.BirthDate)
		if err != nil {
			// An unusable birth date is dropped, the row itself is still valid.
			birth = time.Time{}
		}
		key := KeyOf(in.Name, in.Contact, in.Email)
		if _, dup := seen[key]; dup {
			skip(row.Line, "Cliente já cadastrado.")
			continue
		}

		rec := in.record(birth)
		rec[gateway.OwnerField] = owner
		rec[fieldActive] = true
		if _, err := s.gw.Insert(ctx, gateway.Customers, rec); err != nil {
			skip(row.Line, shared.UserSafeMessage(err))
			if errors.Is(err, shared.ErrDuplicate) {
				seen[key] = struct{}{}
			}
			continue
		}
		seen[key] = struct{}{}
		report.Inserted++
		s.metrics.CustomerWritten("bulk", "inserted")
	}

	if report.Inserted > 0 {
		shared.NotifyChanged(ctx, s.changes, owner)
	}
	return report, nil
}

// Update rewrites the editable fields of a customer. Changing the key to one
// held by another customer yields shared.ErrDuplicate.
func (s *Service) Update(ctx context.Context, owner, id string, in CustomerInput) error {
	if owner == "" {
		return shared.ErrUnauthenticated
	}
	in = in.normalized()
	if err := shared.CheckStruct(s.validate, in, fieldLabels); err != nil {
		return err
	}
	birth, err := s.birthDate(in.BirthDate)
	if err != nil {
		return err
	}
	others, found, err := s.keys(ctx, owner, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("update customer %s: %w", id, shared.ErrNotFound)
	}
	if _, dup := others[KeyOf(in.Name, in.Contact, in.Email)]; dup {
		return fmt.Errorf("update customer %s: %w", id, shared.ErrDuplicate)
	}

	patch := in.record(birth)
	if in.Active != nil {
		patch[fieldActive] = *in.Active
	}
	n, err := s.gw.Update(ctx, gateway.Customers, gateway.IDField, id, owner, patch)
	if err != nil {
		return fmt.Errorf("update customer %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update customer %s: %w", id, shared.ErrNotFound)
	}
	shared.NotifyChanged(ctx, s.changes, owner)
	return nil
}

// SetActive activates or deactivates a customer.
func (s *Service) SetActive(ctx context.Context, owner, id string, active bool) error {
	n, err := s.gw.Update(ctx, gateway.Customers, gateway.IDField, id, owner, gateway.Record{fieldActive: active})
	if err != nil {
		return fmt.Errorf("set customer %s active: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set customer %s active: %w", id, shared.ErrNotFound)
	}
	shared.NotifyChanged(ctx, s.changes, owner)
	return nil
}

// keys returns the composite keys of owner's customers, leaving out exceptID.
// found reports whether exceptID is one of them.
func (s *Service) keys(ctx context.Context, owner, exceptID string) (out map[Key]struct{}, found bool, err error) {
	list, err := s.List(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	out = make(map[Key]struct{}, len(list))
	for _, c := range list {
		if exceptID != "" && c.ID == exceptID {
			found = true
			continue
		}
		out[c.key()] = struct{}{}
	}
	return out, found, nil
}

func (s *Service) birthDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(gateway.DateLayout, raw)
	if err != nil {
		return time.Time{}, shared.Invalid("BirthDate", "Data de nascimento deve estar no formato AAAA-MM-DD.")
	}
	if d.Before(minBirthDate) || d.After(s.now()) {
		return time.Time{}, shared.Invalid("BirthDate", "Data de nascimento fora do intervalo permitido.")
	}
	return d, nil
}

func (in CustomerInput) record(birth time.Time) gateway.Record {
	rec := gateway.Record{
		fieldName:         in.Name,
		fieldContact:      in.Contact,
		fieldAddress:      in.Address,
		fieldEmail:        in.Email,
		fieldNeighborhood: in.Neighborhood,
		fieldCity:         in.City,
		fieldState:        in.State,
		fieldPostalCode:   in.PostalCode,
		fieldGender:       in.Gender,
		fieldBirthDate:    nil,
	}
	if !birth.IsZero() {
		rec[fieldBirthDate] = birth.Format(gateway.DateLayout)
	}
	return rec
}
