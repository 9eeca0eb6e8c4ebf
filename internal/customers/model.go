package customers

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/bizdesk/bizdesk/internal/gateway"
)

// Storage fields of the clientes collection.
const (
	fieldName         = "nome"
	fieldContact      = "contato"
	fieldAddress      = "endereco"
	fieldEmail        = "email"
	fieldNeighborhood = "bairro"
	fieldCity         = "cidade"
	fieldState        = "estado"
	fieldPostalCode   = "cep"
	fieldGender       = "genero"
	fieldBirthDate    = "data_nascimento"
	fieldActive       = "ativo"
)

// Customer is a client record owned by one user.
type Customer struct {
	ID           string
	Name         string
	Contact      string
	Address      string
	Email        string
	Neighborhood string
	City         string
	State        string
	PostalCode   string
	Gender       string
	BirthDate    time.Time
	Active       bool
}

// Status renders the active flag for listings.
func (c Customer) Status() string {
	if c.Active {
		return "Ativo"
	}
	return "Inativo"
}

// BirthDateValue formats the birth date for date inputs.
func (c Customer) BirthDateValue() string {
	if c.BirthDate.IsZero() {
		return ""
	}
	return c.BirthDate.Format(gateway.DateLayout)
}

func customerFromRecord(rec gateway.Record) Customer {
	c := Customer{
		ID:           rec.ID(),
		Name:         rec.String(fieldName),
		Contact:      rec.String(fieldContact),
		Address:      rec.String(fieldAddress),
		Email:        rec.String(fieldEmail),
		Neighborhood: rec.String(fieldNeighborhood),
		City:         rec.String(fieldCity),
		State:        rec.String(fieldState),
		PostalCode:   rec.String(fieldPostalCode),
		Gender:       rec.String(fieldGender),
		Active:       rec.Bool(fieldActive),
	}
	if d, ok := rec.Date(fieldBirthDate); ok {
		c.BirthDate = d
	}
	return c
}

// Key identifies a customer for de-duplication within one owner's records.
type Key struct {
	Name    string
	Contact string
	Email   string
}

// KeyOf builds the composite key from raw values.
func KeyOf(name, contact, email string) Key {
	return Key{Name: clean(name), Contact: clean(contact), Email: clean(email)}
}

func (c Customer) key() Key {
	return KeyOf(c.Name, c.Contact, c.Email)
}

// clean trims and NFC-normalises text so that visually equal values compare equal.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
