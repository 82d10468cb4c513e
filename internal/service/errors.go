package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication событие не прошло проверку подписи или не разбирается
	ErrAuthentication = errors.New("authentication failed")
	// ErrUpstreamQuery провайдер платежей не ответил на запрос статуса
	ErrUpstreamQuery = errors.New("upstream query failed")
	// ErrInvalidEvent подписанное событие без обязательных полей (повтор доставки не поможет)
	ErrInvalidEvent = errors.New("invalid checkout event")
	// ErrSessionIDRequired не передан идентификатор checkout сессии
	ErrSessionIDRequired = errors.New("session id is required")
	// ErrInvalidSubmission некорректная форма доступности
	ErrInvalidSubmission = errors.New("invalid availability submission")
	// ErrInvalidCheckout некорректный запрос на создание checkout сессии
	ErrInvalidCheckout = errors.New("invalid checkout request")
	// ErrReferenceExhausted не удалось подобрать свободный booking reference
	ErrReferenceExhausted = errors.New("booking reference attempts exhausted")
)

// AuthenticationError оборачивает причину отказа верификатора
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// UpstreamQueryError ошибка запроса к провайдеру. Детали только для логов.
type UpstreamQueryError struct {
	SessionID string
	Err       error
}

func (e *UpstreamQueryError) Error() string {
	return fmt.Sprintf("payment provider query for %s failed: %v", e.SessionID, e.Err)
}

func (e *UpstreamQueryError) Unwrap() error {
	return e.Err
}

func (e *UpstreamQueryError) Is(target error) bool {
	return target == ErrUpstreamQuery
}
