package customers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bizdesk/bizdesk/internal/shared"
)

var requiredColumns = []string{fieldName, fieldContact, fieldEmail}

// ParseCSV reads a header-driven customer file. Column order is free; nome,
// contato and email columns must exist, the others are optional. Lines are
// numbered as in the file, the header being line 1.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, shared.Invalid("csv_file", "O arquivo CSV está vazio.")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %w", shared.ErrInvalidInput, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, shared.Invalid("csv_file", "O arquivo CSV precisa das colunas nome, contato e email.")
		}
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %w", shared.ErrInvalidInput, err)
		}
		line, _ := reader.FieldPos(0)
		get := func(col string) string {
			i, ok := columns[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		rows = append(rows, ImportRow{
			Line:         line,
			Name:         get(fieldName),
			Contact:      get(fieldContact),
			Address:      get(fieldAddress),
			Email:        get(fieldEmail),
			Neighborhood: get(fieldNeighborhood),
			City:         get(fieldCity),
			State:        get(fieldState),
			PostalCode:   get(fieldPostalCode),
			Gender:       get(fieldGender),
			BirthDate:    get(fieldBirthDate),
		})
	}
	return rows, nil
}
