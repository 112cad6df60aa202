// Package apierror provides the error taxonomy of the cash ledger engine and
// the standardized error response structures for the API. All errors returned
// to clients go through this package to ensure consistency and to prevent
// leaking internal details (stack traces, DB errors, etc.).
package apierror

import "errors"

// Kind classifies a domain error so handlers and the sync coordinator can
// react without string matching.
type Kind int

const (
	// KindInterno covers everything that is not a domain outcome: bugs,
	// DB/transport failures outside the ledger's taxonomy.
	KindInterno Kind = iota
	// KindValidacao: non-positive amount, missing required reason, bad enum.
	KindValidacao
	// KindPermissao: the device/role pair lacks the capability for the action.
	KindPermissao
	// KindEstadoSessao: no open session when one is required, a session
	// already open on abrir, or fechar on an already-closed session.
	KindEstadoSessao
	// KindSaldoInsuficiente: sangria exceeds the current cash-on-hand.
	KindSaldoInsuficiente
	// KindConflitoSync: a concurrent durable-store write lost a uniqueness race.
	KindConflitoSync
	// KindRede: transient transport failure; absorbed by the sync
	// coordinator's retry loop, never surfaced as a command failure.
	KindRede
)

// Error is the typed domain error carried across the service, repository and
// sync layers.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Validacao(msg string) *Error         { return &Error{Kind: KindValidacao, Msg: msg} }
func Permissao(msg string) *Error         { return &Error{Kind: KindPermissao, Msg: msg} }
func EstadoSessao(msg string) *Error      { return &Error{Kind: KindEstadoSessao, Msg: msg} }
func SaldoInsuficiente(msg string) *Error { return &Error{Kind: KindSaldoInsuficiente, Msg: msg} }
func ConflitoSync(msg string) *Error      { return &Error{Kind: KindConflitoSync, Msg: msg} }
func Rede(msg string) *Error              { return &Error{Kind: KindRede, Msg: msg} }

// KindOf returns the Kind of err, or KindInterno when err carries no taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInterno
}

// Dominio reports whether err is a classified domain outcome. Errors outside
// the taxonomy are treated as transport/store failures by the sync coordinator.
func Dominio(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Erro de validação", Fields: fields}
}
