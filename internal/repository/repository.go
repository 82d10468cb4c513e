package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status статус бронирования. Двигается только вперёд.
type Status string

const (
	// StatusPendingScheduling оплачено, ждёт согласования расписания (обычные пакеты)
	StatusPendingScheduling Status = "PAID_PENDING_SCHEDULING"
	// StatusPendingVerification оплачено, staff должен проверить заявленные данные (pass guarantee)
	StatusPendingVerification Status = "PAID_PENDING_VERIFICATION"
)

// forwardTransitions единственные разрешённые переходы статуса
var forwardTransitions = map[Status][]Status{
	StatusPendingVerification: {StatusPendingScheduling},
}

// Valid сообщает, известен ли статус
func (s Status) Valid() bool {
	return s == StatusPendingScheduling || s == StatusPendingVerification
}

// CanAdvanceTo true только для перехода вперёд. Возврат в прежний статус и повтор текущего запрещены.
func (s Status) CanAdvanceTo(to Status) bool {
	for _, next := range forwardTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// PackageType тариф, выбранный при оплате
type PackageType string

const (
	PackagePAYG          PackageType = "payg"
	PackageBulk          PackageType = "bulk"
	PackagePassGuarantee PackageType = "pass_guarantee"
	PackageUnknown       PackageType = "unknown"
)

// ParsePackageType приводит значение из metadata к известному тарифу.
// Пустое значение превращается в unknown, незнакомое сохраняется как есть.
func ParsePackageType(s string) PackageType {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return PackageUnknown
	}
	return PackageType(s)
}

// RequiresVerification сообщает, нужна ли проверка staff-ом перед планированием
func (p PackageType) RequiresVerification() bool {
	return p == PackagePassGuarantee
}

// ExtendedMetadata данные, заявленные клиентом на checkout.
// Не проверены: только для отображения staff-у, логика на них не ветвится.
type ExtendedMetadata struct {
	ProvisionalLicence string
	TestStatus         string
	TestReference      string
	TestCentre         string
	// Hours количество часов для bulk пакета (из metadata сессии)
	Hours string
}

// Booking доменная модель бронирования.
// Неизменяема после создания, кроме Status.
type Booking struct {
	Reference     string
	SessionID     string
	CustomerEmail string
	CustomerName  string
	PackageType   PackageType
	// AmountMinor сумма в минимальных единицах валюты (пенсы)
	AmountMinor int64
	Currency    string
	Metadata    ExtendedMetadata
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AmountPaid сумма в основных единицах валюты (30 для 3000 пенсов)
func (b Booking) AmountPaid() float64 {
	return float64(b.AmountMinor) / 100
}

// FirstName имя клиента для приветствия в письмах
func (b Booking) FirstName() string {
	if fields := strings.Fields(b.CustomerName); len(fields) > 0 {
		return fields[0]
	}
	return "there"
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=BookingRepository --dir=. --output=./mocks --outpkg=mocks

// BookingRepository хранилище бронирований.
// Create единственная точка идемпотентности: уникальность session_id проверяется атомарно.
type BookingRepository interface {
	// Create сохраняет новое бронирование.
	// Возвращает *ConflictError (errors.Is ErrConflict), если session_id или reference уже заняты.
	Create(ctx context.Context, booking Booking) (Booking, error)

	// FindByReference возвращает ErrNotFound, если бронирования нет
	FindByReference(ctx context.Context, reference string) (Booking, error)

	// FindBySessionID возвращает ErrNotFound, если бронирования нет
	FindBySessionID(ctx context.Context, sessionID string) (Booking, error)

	// AdvanceStatus compare-and-swap: меняет статус только если текущий равен from.
	// Возвращает *InvalidTransitionError при несовпадении, ErrNotFound если reference не существует.
	AdvanceStatus(ctx context.Context, reference string, from, to Status) (Booking, error)
}

var (
	// ErrNotFound возвращается, когда запись не найдена в хранилище
	ErrNotFound = errors.New("booking not found")
	// ErrConflict базовая ошибка нарушения уникальности
	ErrConflict = errors.New("booking conflict")
	// ErrInvalidTransition базовая ошибка compare-and-swap статуса
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ConflictField какое уникальное поле нарушено
type ConflictField string

const (
	ConflictSessionID ConflictField = "session_id"
	ConflictReference ConflictField = "booking_reference"
)

// ConflictError нарушение уникальности при Create.
// По Field сервис отличает повторную доставку события (session_id) от коллизии reference.
type ConflictError struct {
	Field ConflictField
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking conflict on %s %q", e.Field, e.Value)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidTransitionError текущий статус не совпал с ожидаемым
type InvalidTransitionError struct {
	Reference string
	Expected  Status
	Actual    Status
	Target    Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition for %s: expected %s, actual %s, target %s",
		e.Reference, e.Expected, e.Actual, e.Target)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
