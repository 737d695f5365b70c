package cancel_booking

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-BookingEngine/internal/api/handlers"
	"github.com/m04kA/SMC-BookingEngine/internal/api/middleware"
	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/service/bookings"
	"github.com/m04kA/SMC-BookingEngine/internal/service/bookings/models"
)

const (
	msgInvalidBookingID   = "некорректный ID бронирования"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgNotFound           = "бронирование не найдено"
	msgBusinessNotFound   = "бизнес бронирования не найден"
	msgAlreadyFinalized   = "бронирование уже завершено и не может быть отменено"
	msgWindowClosed       = "срок отмены бронирования истек"
	msgStatusChanged      = "статус бронирования изменился, повторите запрос"
	msgInvalidInput       = "некорректная причина отмены"
)

const operation = "cancel"

type Handler struct {
	service BookingService
	metrics OutcomeRecorder
	logger  Logger
}

func NewHandler(service BookingService, metrics OutcomeRecorder, logger Logger) *Handler {
	return &Handler{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{bookingId}/cancel
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := handlers.PathInt64(r, "bookingId")
	if err != nil {
		h.logger.Warn("PATCH /bookings/{id}/cancel - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PATCH /bookings/{id}/cancel - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req models.CancelBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /bookings/{id}/cancel - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	req.RequestedBy = userID

	booking, err := h.service.Cancel(r.Context(), bookingID, &req)
	h.metrics.RecordBookingOutcome(operation, handlers.OutcomeLabel(err))
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			msg = msgNotFound
		case errors.Is(err, bookings.ErrBusinessNotFound):
			msg = msgBusinessNotFound
		case errors.Is(err, bookings.ErrAlreadyFinalized):
			msg = msgAlreadyFinalized
		case errors.Is(err, bookings.ErrCancellationWindowClosed):
			msg = msgWindowClosed
		case errors.Is(err, bookings.ErrInvalidInput):
			msg = msgInvalidInput
		case errors.Is(err, domain.ErrStatusChanged):
			msg = msgStatusChanged
		default:
			h.logger.Error("PATCH /bookings/{id}/cancel - Failed to cancel booking: booking_id=%d, error=%v",
				bookingID, err)
			handlers.RespondInternalError(w)
			return
		}

		h.logger.Warn("PATCH /bookings/{id}/cancel - Rejected: booking_id=%d, user_id=%d, error=%v", bookingID, userID, err)
		handlers.RespondKindError(w, err, msg)
		return
	}

	h.logger.Info("PATCH /bookings/{id}/cancel - Booking cancelled successfully: booking_id=%d, user_id=%d",
		bookingID, userID)
	handlers.RespondJSON(w, http.StatusOK, booking)
}
