// Package errs — доменные ошибки helpdesk-service и их отображение для пользователя.
package errs

import "errors"

var (
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOpenTicketExists   = errors.New("client already has an open ticket")
	ErrTicketResolved     = errors.New("ticket already resolved")
	ErrTicketCancelled    = errors.New("ticket already cancelled")
	ErrInvalidInput       = errors.New("invalid input")
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindBusinessRule
	KindUnauthorized
)

// KindOf классифицирует ошибку (в т.ч. обёрнутую через %w).
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrTicketNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	case errors.Is(err, ErrOpenTicketExists),
		errors.Is(err, ErrTicketResolved),
		errors.Is(err, ErrTicketCancelled):
		return KindBusinessRule
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	}
	return KindInternal
}

// Message returns the user-facing text shown by the front end.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrTicketNotFound):
		return "Chamado não encontrado."
	case errors.Is(err, ErrInvalidCredentials):
		return "Credenciais inválidas."
	case errors.Is(err, ErrOpenTicketExists):
		return "Você já possui um chamado em aberto. Por favor, acompanhe o chamado existente."
	case errors.Is(err, ErrTicketResolved):
		return "Chamado já está resolvido."
	case errors.Is(err, ErrTicketCancelled):
		return "Chamado já foi cancelado."
	case errors.Is(err, ErrInvalidInput):
		return "Dados inválidos."
	}
	return "Erro interno. Tente novamente mais tarde."
}

// Code — короткий машиночитаемый код для поля "error" в ответе API.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrTicketNotFound):
		return "ticket_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrOpenTicketExists):
		return "open_ticket_exists"
	case errors.Is(err, ErrTicketResolved):
		return "ticket_resolved"
	case errors.Is(err, ErrTicketCancelled):
		return "ticket_cancelled"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return "internal"
}
