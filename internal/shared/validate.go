package shared

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their Go name.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// CheckStruct validates s and converts the first failure into a
// ValidationError. labels maps struct field names to user facing names.
func CheckStruct(v *validator.Validate, s any, labels map[string]string) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	fe := fieldErrs[0]
	label := labels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	return Invalid(fe.Field(), fieldMessage(label, fe.Tag()))
}

func fieldMessage(label, tag string) string {
	switch tag {
	case "required":
		return "Por favor, preencha o campo " + label + "."
	case "email", "mailbox":
		return "Email inválido. Certifique-se de incluir um domínio válido."
	case "datetime":
		return label + " deve estar no formato AAAA-MM-DD."
	case "gt":
		return label + " deve ser maior que zero."
	case "gte", "min":
		return label + " está abaixo do mínimo permitido."
	case "lte", "max":
		return label + " excede o limite permitido."
	default:
		return label + " inválido."
	}
}
