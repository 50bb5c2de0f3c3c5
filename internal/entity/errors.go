package entity

import (
	"errors"

	"github.com/n-r-w/nerr"
)

// ErrorKind категория ошибки конвейера обновления
type ErrorKind int

const (
	// KindPrecondition нарушение предусловия (нет URL, нет обновления). Не повторяется
	KindPrecondition = ErrorKind(iota + 1)
	// KindTransport сетевая ошибка или таймаут при скачивании
	KindTransport
	// KindIntegrity несовпадение размера, контрольной суммы или подписи
	KindIntegrity
	// KindCatalog ошибка работы с каталогом версий
	KindCatalog
)

func (k ErrorKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindTransport:
		return "transport"
	case KindIntegrity:
		return "integrity"
	case KindCatalog:
		return "catalog"
	default:
		return "unknown"
	}
}

// UpdateError ошибка с категорией. Позволяет вызывающему ветвиться по
// категории через errors.As, а не по тексту сообщения
type UpdateError struct {
	Kind ErrorKind
	Err  error
}

func (e *UpdateError) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// NewError создать ошибку указанной категории
func NewError(kind ErrorKind, args ...interface{}) *UpdateError {
	return &UpdateError{
		Kind: kind,
		Err:  nerr.New(args...),
	}
}

// NewErrorFmt создать ошибку указанной категории с форматированием
func NewErrorFmt(kind ErrorKind, format string, args ...interface{}) *UpdateError {
	return &UpdateError{
		Kind: kind,
		Err:  nerr.NewFmt(format, args...),
	}
}

// KindOf категория ошибки. 0 если ошибка не категоризирована
func KindOf(err error) ErrorKind {
	var ue *UpdateError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return 0
}
