package get_queue_status

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-QueueService/internal/api/handlers"
	"github.com/m04kA/SMC-QueueService/internal/domain"
)

const (
	msgInvalidSalonID = "некорректный ID салона"
	msgInvalidDate    = "некорректная дата, ожидается формат YYYY-MM-DD"
	msgInvalidLive    = "некорректный параметр live"
	msgNotFound       = "салон не найден"
)

type Handler struct {
	service QueueService
	logger  Logger
	now     func() time.Time
}

func NewHandler(service QueueService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle GET /api/v1/salons/{salonId}/queue-status?date=YYYY-MM-DD&live=true
// Без даты используется сегодняшний день; live=true пересчитывает очередь вместо чтения сохранённой
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	salonID, err := strconv.ParseInt(mux.Vars(r)["salonId"], 10, 64)
	if err != nil || salonID <= 0 {
		h.logger.Warn("GET /salons/{id}/queue-status - Invalid salon ID: %q", mux.Vars(r)["salonId"])
		handlers.RespondBadRequest(w, msgInvalidSalonID)
		return
	}

	now := h.now()
	date := domain.DateOnly(now)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(domain.DateFormat, raw, now.Location())
		if err != nil {
			h.logger.Warn("GET /salons/{id}/queue-status - Invalid date: %q", raw)
			handlers.RespondBadRequest(w, msgInvalidDate)
			return
		}
		date = parsed
	}

	live := false
	if raw := r.URL.Query().Get("live"); raw != "" {
		live, err = strconv.ParseBool(raw)
		if err != nil {
			handlers.RespondBadRequest(w, msgInvalidLive)
			return
		}
	}

	status, err := h.service.GetSalonQueueStatus(r.Context(), salonID, date, live)
	if err != nil {
		h.logger.Error("GET /salons/{id}/queue-status - Failed to get status: salon_id=%d, error=%v", salonID, err)
		handlers.RespondInternalError(w)
		return
	}
	if status == nil {
		h.logger.Warn("GET /salons/{id}/queue-status - Salon not found: salon_id=%d", salonID)
		handlers.RespondNotFound(w, msgNotFound)
		return
	}

	h.logger.Info("GET /salons/{id}/queue-status - salon_id=%d date=%s status=%s",
		salonID, date.Format(domain.DateFormat), status.Status)
	handlers.RespondJSON(w, http.StatusOK, FromDomain(status))
}
