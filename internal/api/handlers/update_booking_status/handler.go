package update_booking_status

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
	msgInvalidStatus      = "некорректный статус бронирования"
	msgInvalidTransition  = "недопустимый переход статуса"
	msgWindowClosed       = "срок отмены бронирования истек"
	msgStatusChanged      = "статус бронирования изменился, повторите запрос"
)

const operation = "update_status"

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

// Handle PATCH /api/v1/bookings/{bookingId}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := handlers.PathInt64(r, "bookingId")
	if err != nil {
		h.logger.Warn("PATCH /bookings/{id}/status - Invalid booking ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("PATCH /bookings/{id}/status - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req models.UpdateStatusRequest
	if err := handlers.DecodeJSON(r, &req); err != nil || req.Status == "" {
		h.logger.Warn("PATCH /bookings/{id}/status - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	req.RequestedBy = userID

	booking, err := h.service.UpdateStatus(r.Context(), bookingID, &req)
	h.metrics.RecordBookingOutcome(operation, handlers.OutcomeLabel(err))
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			msg = msgNotFound
		case errors.Is(err, bookings.ErrBusinessNotFound):
			msg = msgBusinessNotFound
		case errors.Is(err, bookings.ErrInvalidInput):
			msg = msgInvalidStatus
		case errors.Is(err, bookings.ErrInvalidTransition):
			msg = msgInvalidTransition
		case errors.Is(err, bookings.ErrCancellationWindowClosed):
			msg = msgWindowClosed
		case errors.Is(err, domain.ErrStatusChanged):
			msg = msgStatusChanged
		default:
			h.logger.Error("PATCH /bookings/{id}/status - Failed to update status: booking_id=%d, error=%v",
				bookingID, err)
			handlers.RespondInternalError(w)
			return
		}

		h.logger.Warn("PATCH /bookings/{id}/status - Rejected: booking_id=%d, status=%s, error=%v",
			bookingID, req.Status, err)
		handlers.RespondKindError(w, err, msg)
		return
	}

	h.logger.Info("PATCH /bookings/{id}/status - Status updated successfully: booking_id=%d, status=%s, user_id=%d",
		bookingID, booking.Status, userID)
	handlers.RespondJSON(w, http.StatusOK, booking)
}
