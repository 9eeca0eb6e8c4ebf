package customers

// CustomerInput carries the manual registration and edit forms.
type CustomerInput struct {
	Name         string `validate:"required,max=200"`
	Contact      string `validate:"required,max=100"`
	Address      string `validate:"required,max=300"`
	Email        string `validate:"required,email,max=200"`
	Neighborhood string `validate:"max=100"`
	City         string `validate:"max=100"`
	State        string `validate:"max=50"`
	PostalCode   string `validate:"max=20"`
	Gender       string `validate:"max=30"`
	BirthDate    string `validate:"omitempty,datetime=2006-01-02"`
	// Active is only honoured by Update.
	Active *bool
}

// ImportRow is one data line of a bulk import. Address is optional.
type ImportRow struct {
	Line         int
	Name         string `validate:"required"`
	Contact      string `validate:"required"`
	Address      string
	Email        string `validate:"required"`
	Neighborhood string
	City         string
	State        string
	PostalCode   string
	Gender       string
	BirthDate    string
}

// RowIssue explains why an import line was not stored.
type RowIssue struct {
	Line   int
	Reason string
}

// ImportReport summarises a bulk import.
type ImportReport struct {
	Total    int
	Inserted int
	Skipped  []RowIssue
}

var fieldLabels = map[string]string{
	"Name":         "Nome",
	"Contact":      "Contato",
	"Address":      "Endereço",
	"Email":        "Email",
	"Neighborhood": "Bairro",
	"City":         "Cidade",
	"State":        "Estado",
	"PostalCode":   "CEP",
	"Gender":       "Gênero",
	"BirthDate":    "Data de nascimento",
}

func (in CustomerInput) normalized() CustomerInput {
	in.Name = clean(in.Name)
	in.Contact = clean(in.Contact)
	in.Address = clean(in.Address)
	in.Email = clean(in.Email)
	in.Neighborhood = clean(in.Neighborhood)
	in.City = clean(in.City)
	in.State = clean(in.State)
	in.PostalCode = clean(in.PostalCode)
	in.Gender = clean(in.Gender)
	in.BirthDate = clean(in.BirthDate)
	return in
}

func (r ImportRow) input() CustomerInput {
	return CustomerInput{
		Name:         r.Name,
		Contact:      r.Contact,
		Address:      r.Address,
		Email:        r.Email,
		Neighborhood: r.Neighborhood,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Gender:       r.Gender,
		BirthDate:    r.BirthDate,
	}.normalized()
}
