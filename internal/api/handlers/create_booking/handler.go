package create_booking

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-BookingEngine/internal/api/handlers"
	"github.com/m04kA/SMC-BookingEngine/internal/api/middleware"
	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/service/bookings/models"
	createBooking "github.com/m04kA/SMC-BookingEngine/internal/usecase/create_booking"
)

const (
	msgMissingUserID      = "отсутствует ID пользователя"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidDate        = "некорректный формат даты бронирования, ожидается YYYY-MM-DD"
	msgInvalidTime        = "некорректный формат времени начала, ожидается HH:MM"
	msgSlotNotAvailable   = "выбранный временной слот недоступен"
	msgBusinessNotFound   = "бизнес не найден"
	msgServiceNotFound    = "услуга не найдена"
	msgBusinessClosed     = "бизнес закрыт в выбранную дату"
	msgOutsideHours       = "время бронирования вне рабочих часов"
	msgPastDate           = "дата бронирования в прошлом"
	msgDateTooFar         = "дата бронирования слишком далеко в будущем"
	msgTooLateToBook      = "слишком поздно для бронирования этого слота"
	msgInvalidInput       = "некорректные параметры бронирования"
)

const operation = "create"

type Handler struct {
	useCase CreateBookingUseCase
	metrics OutcomeRecorder
	logger  Logger
}

func NewHandler(useCase CreateBookingUseCase, metrics OutcomeRecorder, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		metrics: metrics,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	// Клиент - действующий пользователь из заголовка X-User-ID
	customerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /bookings - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Конвертируем HTTP запрос в модель use case (с парсингом даты и времени)
	useCaseReq, err := req.ToUseCaseRequest(customerID)
	if err != nil {
		h.logger.Warn("POST /bookings - Failed to parse request: %v", err)
		if errors.Is(err, errInvalidTime) {
			handlers.RespondBadRequest(w, msgInvalidTime)
		} else {
			handlers.RespondBadRequest(w, msgInvalidDate)
		}
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	h.metrics.RecordBookingOutcome(operation, handlers.OutcomeLabel(err))
	if err != nil {
		h.respondError(w, err, customerID, &req)
		return
	}

	h.logger.Info("POST /bookings - Booking created successfully: booking_id=%d, customer_id=%d, business_id=%d",
		result.ID, customerID, req.BusinessID)
	handlers.RespondJSON(w, http.StatusCreated, models.FromDomainBooking(result))
}

func (h *Handler) respondError(w http.ResponseWriter, err error, customerID int64, req *CreateBookingRequest) {
	var msg string
	switch {
	case errors.Is(err, createBooking.ErrSlotNotAvailable):
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) && conflict.Blocking != nil {
			h.logger.Warn("POST /bookings - Slot not available: customer_id=%d, business_id=%d, blocking_id=%d",
				customerID, req.BusinessID, conflict.Blocking.ID)
		} else {
			h.logger.Warn("POST /bookings - Slot not available: customer_id=%d, business_id=%d",
				customerID, req.BusinessID)
		}
		msg = msgSlotNotAvailable
	case errors.Is(err, createBooking.ErrBusinessNotFound):
		msg = msgBusinessNotFound
	case errors.Is(err, createBooking.ErrServiceNotFound):
		msg = msgServiceNotFound
	case errors.Is(err, createBooking.ErrBusinessClosed):
		msg = msgBusinessClosed
	case errors.Is(err, createBooking.ErrOutsideWorkingHours):
		msg = msgOutsideHours
	case errors.Is(err, createBooking.ErrPastDate):
		msg = msgPastDate
	case errors.Is(err, createBooking.ErrDateTooFarInFuture):
		msg = msgDateTooFar
	case errors.Is(err, createBooking.ErrTooLateToBook):
		msg = msgTooLateToBook
	case errors.Is(err, createBooking.ErrInvalidInput):
		msg = msgInvalidInput
	default:
		h.logger.Error("POST /bookings - Failed to create booking: customer_id=%d, business_id=%d, error=%v",
			customerID, req.BusinessID, err)
		handlers.RespondInternalError(w)
		return
	}

	if !errors.Is(err, createBooking.ErrSlotNotAvailable) {
		h.logger.Warn("POST /bookings - Rejected: customer_id=%d, business_id=%d, error=%v", customerID, req.BusinessID, err)
	}
	handlers.RespondKindError(w, err, msg)
}
