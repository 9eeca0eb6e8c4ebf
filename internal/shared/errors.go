package shared

import "errors"

var (
	// ErrNotFound indicates the referenced record does not exist for the owner.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates the composite key is already present.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidInput indicates a missing or malformed field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates the record state forbids the operation.
	ErrConflict = errors.New("conflict")
	// ErrBackend indicates the data gateway failed.
	ErrBackend = errors.New("backend failure")
	// ErrUnauthenticated indicates no owner is attached to the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps an error to a sentence that can be shown to the user.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicate):
		return "Registro já cadastrado."
	case errors.Is(err, ErrNotFound):
		return "Registro não encontrado."
	case errors.Is(err, ErrInvalidInput):
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Message != "" {
			return ve.Message
		}
		return "Dados inválidos. Verifique os campos informados."
	case errors.Is(err, ErrConflict):
		return "Operação não permitida no estado atual do registro."
	case errors.Is(err, ErrUnauthenticated):
		return "Faça login para acessar esta funcionalidade."
	case errors.Is(err, ErrInvalidCredentials):
		return "Email ou senha inválidos."
	case errors.Is(err, ErrBackend):
		return "Serviço de dados indisponível. Tente novamente."
	default:
		return "Erro inesperado."
	}
}

// ValidationError carries a field level message and unwraps to ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return "invalid input: " + e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
