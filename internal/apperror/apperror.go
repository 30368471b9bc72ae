// Package apperror описывает классифицированные ошибки приложения.
// Граница HTTP сопоставляет Kind со статусом ответа.
package apperror

import (
	"errors"
	"fmt"
)

// Kind — тег категории ошибки
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error — ошибка с категорией, сообщением для клиента и необязательными деталями
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func BadRequest(message string, details any) *Error {
	return &Error{Kind: KindBadRequest, Message: message, Details: details}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Internal оборачивает неожиданную ошибку; сообщение клиенту не раскрывает причину
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf возвращает категорию ошибки; всё неклассифицированное — KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MsgDuplicateEmail — сообщение при нарушении уникальности email
const MsgDuplicateEmail = "User with this email already exists"
