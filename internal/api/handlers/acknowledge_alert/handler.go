package acknowledge_alert

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-QueueService/internal/api/handlers"
	"github.com/m04kA/SMC-QueueService/internal/api/middleware"
	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/internal/service/alerts"
)

const (
	msgInvalidAlertID       = "некорректный ID уведомления"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgInvalidResponse      = "некорректный ответ, допустимо: acknowledged, will_be_late, reschedule, cancel"
	msgInvalidDepartureTime = "некорректное время выхода, ожидается формат HH:MM"
	msgUnauthorized         = "требуется авторизация"
	msgNotFound             = "уведомление не найдено"
	msgForbidden            = "доступ запрещен"
)

type Handler struct {
	service AlertService
	logger  Logger
}

func NewHandler(service AlertService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/departure-alerts/{alertId}/acknowledge
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		handlers.RespondUnauthorized(w, msgUnauthorized)
		return
	}

	alertID, err := strconv.ParseInt(mux.Vars(r)["alertId"], 10, 64)
	if err != nil || alertID <= 0 {
		h.logger.Warn("POST /departure-alerts/{id}/acknowledge - Invalid alert ID: %q", mux.Vars(r)["alertId"])
		handlers.RespondBadRequest(w, msgInvalidAlertID)
		return
	}

	var req AcknowledgeRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /departure-alerts/{id}/acknowledge - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	actual, err := req.ActualDeparture()
	if err != nil {
		h.logger.Warn("POST /departure-alerts/{id}/acknowledge - Invalid departure time: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDepartureTime)
		return
	}

	alert, err := h.service.AcknowledgeAlert(r.Context(), alertID, userID, domain.CustomerResponse(req.Response), actual)
	if err != nil {
		switch {
		case errors.Is(err, alerts.ErrInvalidResponse):
			h.logger.Warn("POST /departure-alerts/{id}/acknowledge - Invalid response: %q", req.Response)
			handlers.RespondBadRequest(w, msgInvalidResponse)

		case errors.Is(err, alerts.ErrAlertNotFound):
			h.logger.Warn("POST /departure-alerts/{id}/acknowledge - Alert not found: alert_id=%d", alertID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, alerts.ErrAccessDenied):
			h.logger.Warn("POST /departure-alerts/{id}/acknowledge - Access denied: alert_id=%d, user_id=%d",
				alertID, userID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("POST /departure-alerts/{id}/acknowledge - Failed to acknowledge: alert_id=%d, error=%v",
				alertID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /departure-alerts/{id}/acknowledge - Alert acknowledged: alert_id=%d, user_id=%d, response=%s",
		alertID, userID, req.Response)
	handlers.RespondJSON(w, http.StatusOK, FromDomain(alert))
}
