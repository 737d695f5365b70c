// Package api собирает HTTP маршруты сервиса.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	cancelBookingHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/cancel_booking"
	createBookingHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/create_booking"
	getAvailableSlotsHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/get_available_slots"
	getBookingHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/get_booking"
	getBusinessBookingsHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/get_business_bookings"
	getBusinessSettingsHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/get_business_settings"
	getCustomerBookingsHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/get_customer_bookings"
	updateBookingStatusHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/update_booking_status"
	updateBusinessSettingsHandler "github.com/m04kA/SMC-BookingEngine/internal/api/handlers/update_business_settings"
	"github.com/m04kA/SMC-BookingEngine/internal/api/middleware"
	bookingsService "github.com/m04kA/SMC-BookingEngine/internal/service/bookings"
	settingsService "github.com/m04kA/SMC-BookingEngine/internal/service/settings"
	createBookingUC "github.com/m04kA/SMC-BookingEngine/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/m04kA/SMC-BookingEngine/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-BookingEngine/pkg/metrics"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Deps зависимости HTTP слоя
type Deps struct {
	CreateBooking     *createBookingUC.UseCase
	GetAvailableSlots *getAvailableSlotsUC.UseCase
	Bookings          *bookingsService.Service
	Settings          *settingsService.Service

	Metrics     *metrics.Metrics // nil = метрики выключены
	MetricsPath string
	Logger      Logger
}

// NewRouter создает роутер со всеми маршрутами /api/v1
func NewRouter(deps Deps) *mux.Router {
	log := deps.Logger

	var outcomes outcomeRecorder = noopRecorder{}
	if deps.Metrics != nil {
		outcomes = deps.Metrics
	}

	// Инициализируем handlers
	createBooking := createBookingHandler.NewHandler(deps.CreateBooking, outcomes, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(deps.GetAvailableSlots, log)
	getBooking := getBookingHandler.NewHandler(deps.Bookings, log)
	cancelBooking := cancelBookingHandler.NewHandler(deps.Bookings, outcomes, log)
	updateBookingStatus := updateBookingStatusHandler.NewHandler(deps.Bookings, outcomes, log)
	getCustomerBookings := getCustomerBookingsHandler.NewHandler(deps.Bookings, log)
	getBusinessBookings := getBusinessBookingsHandler.NewHandler(deps.Bookings, log)
	getBusinessSettings := getBusinessSettingsHandler.NewHandler(deps.Settings, log)
	updateBusinessSettings := updateBusinessSettingsHandler.NewHandler(deps.Settings, log)

	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover(log))

	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.Handle(deps.MetricsPath, deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Identity)

	// --- Слоты ---
	api.HandleFunc("/businesses/{businessId}/services/{serviceId}/available-slots",
		getAvailableSlots.Handle).Methods(http.MethodGet)

	// --- Бронирования ---
	api.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPatch)
	api.HandleFunc("/bookings/{bookingId}/status", updateBookingStatus.Handle).Methods(http.MethodPatch)
	api.HandleFunc("/customers/{customerId}/bookings", getCustomerBookings.Handle).Methods(http.MethodGet)
	api.HandleFunc("/businesses/{businessId}/bookings", getBusinessBookings.Handle).Methods(http.MethodGet)

	// --- Настройки расписания ---
	api.HandleFunc("/businesses/{businessId}/settings", getBusinessSettings.Handle).Methods(http.MethodGet)
	api.HandleFunc("/businesses/{businessId}/settings", updateBusinessSettings.Handle).Methods(http.MethodPut)

	return r
}

type outcomeRecorder interface {
	RecordBookingOutcome(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordBookingOutcome(string, string) {}
