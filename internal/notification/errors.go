package notification

import (
	"errors"
	"fmt"
)

// ErrDelivery базовая ошибка доставки по одному каналу
var ErrDelivery = errors.New("notification delivery failed")

// DeliveryError сбой одного канала. Остальные каналы это не останавливает.
type DeliveryError struct {
	Notification     string
	Channel          string
	BookingReference string
	Err              error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s via %s for %s: %v", e.Notification, e.Channel, e.BookingReference, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}
