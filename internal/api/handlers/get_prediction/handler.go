package get_prediction

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-QueueService/internal/api/handlers"
)

const msgInvalidBookingID = "некорректный ID бронирования"

type Handler struct {
	service QueueService
	logger  Logger
}

func NewHandler(service QueueService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/bookings/{bookingId}/prediction
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(mux.Vars(r)["bookingId"], 10, 64)
	if err != nil || bookingID <= 0 {
		h.logger.Warn("GET /bookings/{id}/prediction - Invalid booking ID: %q", mux.Vars(r)["bookingId"])
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	prediction, err := h.service.GetPredictedStartTime(r.Context(), bookingID)
	if err != nil {
		h.logger.Error("GET /bookings/{id}/prediction - Failed to predict: booking_id=%d, error=%v", bookingID, err)
		handlers.RespondInternalError(w)
		return
	}

	if prediction == nil {
		h.logger.Info("GET /bookings/{id}/prediction - Prediction unavailable: booking_id=%d", bookingID)
	}
	handlers.RespondJSON(w, http.StatusOK, FromDomain(bookingID, prediction))
}
