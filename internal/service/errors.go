package service

import "errors"

// ErrConnection is the failure injected by the simulated submitter.
var ErrConnection = errors.New("error de conexión")

// ErrInvalidCredentials is returned by an Authenticator for unknown users or
// wrong passwords.
var ErrInvalidCredentials = errors.New("usuario o contraseña incorrectos")

// ValidationError reports user input that failed a screen rule. The wizard
// state is left unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// SubmitError wraps a failure of the external submission collaborator. The
// user retries by submitting again.
type SubmitError struct {
	Op  string
	Err error
}

func (e *SubmitError) Error() string {
	return "Error al guardar: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error { return e.Err }
