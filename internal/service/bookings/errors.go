package bookings

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = fmt.Errorf("bookings: booking %w", domain.ErrNotFound)

	// ErrBusinessNotFound возвращается, когда бизнес бронирования не найден в каталоге
	ErrBusinessNotFound = fmt.Errorf("bookings: business %w", domain.ErrNotFound)

	// ErrAlreadyFinalized возвращается при попытке отменить завершенное бронирование
	ErrAlreadyFinalized = fmt.Errorf("bookings: booking is already finalized: %w", domain.ErrInvalidState)

	// ErrCancellationWindowClosed возвращается, когда до начала осталось меньше cancellationHours
	ErrCancellationWindowClosed = fmt.Errorf("bookings: cancellation window closed: %w", domain.ErrPolicyViolation)

	// ErrInvalidTransition возвращается при недопустимом переходе статуса
	ErrInvalidTransition = fmt.Errorf("bookings: %w", domain.ErrInvalidTransition)

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = fmt.Errorf("bookings: %w", domain.ErrInvalidInput)

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("bookings: internal error")
)
