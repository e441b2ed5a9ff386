package gemini

import (
	"errors"
	"strings"
)

// Error kinds. Compare with errors.Is.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrGenerationEmpty   = errors.New("generation returned no artifact")
	ErrTransport         = errors.New("transport failure")
	ErrValidation        = errors.New("validation failure")
	ErrBusy              = errors.New("generation already in progress")
)

// Error carries a user-facing message. Diagnostic holds any text the service
// returned instead of an artifact.
type Error struct {
	Kind       error
	Message    string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func Validation(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

func missingCredential(message string) *Error {
	return &Error{Kind: ErrMissingCredential, Message: message}
}

func generationEmpty(diagnostic string) *Error {
	diagnostic = strings.TrimSpace(diagnostic)
	if diagnostic == "" {
		return &Error{
			Kind:    ErrGenerationEmpty,
			Message: "A IA não retornou nenhum resultado. Tente uma narrativa diferente.",
		}
	}
	return &Error{
		Kind:       ErrGenerationEmpty,
		Message:    "A IA não gerou o resultado. Resposta: \"" + diagnostic + "\"",
		Diagnostic: diagnostic,
	}
}

// transport wraps a service failure. Credential problems reported by the
// service keep their original text so callers can ask for a new key.
func transport(err error) *Error {
	msg := strings.TrimSpace(err.Error())
	var se *serviceError
	if errors.As(err, &se) && strings.TrimSpace(se.Message) != "" {
		msg = strings.TrimSpace(se.Message)
	}
	if msg == "" {
		msg = "Falha desconhecida"
	}
	if isCredentialFailure(err) {
		return &Error{Kind: ErrInvalidCredential, Message: msg, Err: err}
	}
	return &Error{Kind: ErrTransport, Message: "Erro na IA: " + msg, Err: err}
}

// UserMessage extracts the text to show for any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Message
	}
	return err.Error()
}

var credentialMarkers = []string{
	"api key",
	"api_key",
	"apikey",
	"permission_denied",
	"unauthenticated",
}

func isCredentialFailure(err error) bool {
	var se *serviceError
	if errors.As(err, &se) && (se.Status == 401 || se.Status == 403) {
		return true
	}
	lower := strings.ToLower(err.Error())
	for _, marker := range credentialMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
