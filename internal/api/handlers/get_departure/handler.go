package get_departure

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-QueueService/internal/api/handlers"
	"github.com/m04kA/SMC-QueueService/internal/api/middleware"
	"github.com/m04kA/SMC-QueueService/internal/service/departure"
)

const (
	msgInvalidBookingID = "некорректный ID бронирования"
	msgUnauthorized     = "требуется авторизация"
	msgForbidden        = "доступ запрещен"
	msgNotFound         = "бронирование не найдено"
)

type Handler struct {
	service DepartureService
	logger  Logger
}

func NewHandler(service DepartureService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/bookings/{bookingId}/departure
// Рекомендация доступна только владельцу бронирования
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	bookingID, err := strconv.ParseInt(mux.Vars(r)["bookingId"], 10, 64)
	if err != nil || bookingID <= 0 {
		h.logger.Warn("GET /bookings/{id}/departure - Invalid booking ID: %q", mux.Vars(r)["bookingId"])
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	rec, err := h.service.GetDepartureForCustomer(r.Context(), bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, departure.ErrBookingNotFound):
			h.logger.Warn("GET /bookings/{id}/departure - Booking not found: booking_id=%d", bookingID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, departure.ErrAccessDenied):
			h.logger.Warn("GET /bookings/{id}/departure - Access denied: booking_id=%d, user_id=%d", bookingID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /bookings/{id}/departure - Failed to calculate: booking_id=%d, error=%v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	if rec == nil {
		h.logger.Info("GET /bookings/{id}/departure - Recommendation unavailable: booking_id=%d", bookingID)
	}
	handlers.RespondJSON(w, http.StatusOK, FromDomain(bookingID, rec))
}
