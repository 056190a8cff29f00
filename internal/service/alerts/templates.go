package alerts

import (
	"strconv"
	"strings"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

const defaultStaffName = "your specialist"

type template struct {
	title string
	body  string
}

// Плейсхолдеры: {salon} {staff} {time} {predicted} {departure} {delay} {minutes}
var templates = map[domain.AlertType]template{
	domain.AlertInitialReminder: {
		title: "Appointment at {salon}",
		body:  "Your appointment at {salon} is at {time}. Leave in {minutes} min, by {departure}, to arrive on time.",
	},
	domain.AlertOnTime: {
		title: "Right on schedule",
		body:  "{staff} is on schedule for your {time} appointment at {salon}. Leave by {departure}.",
	},
	domain.AlertDelayUpdate: {
		title: "Running {delay} min behind",
		body:  "{salon} is running about {delay} min behind. Your {time} appointment is now expected at {predicted}. Leave by {departure}.",
	},
	domain.AlertEarlierAvailable: {
		title: "You can come earlier",
		body:  "{staff} at {salon} can see you earlier, around {predicted}. Leave by {departure} to make it.",
	},
	domain.AlertStaffChange: {
		title: "Your appointment is with {staff}",
		body:  "Your {time} appointment at {salon} will be with {staff}, expected start {predicted}. Leave by {departure}.",
	},
}

type templateData struct {
	SalonName    string
	StaffName    string
	MinutesUntil int
}

// render подставляет данные уведомления в шаблон его типа
// Для неизвестного типа используется шаблон on_time
func render(a *domain.DepartureAlert, data templateData) (string, string) {
	tpl, ok := templates[a.AlertType]
	if !ok {
		tpl = templates[domain.AlertOnTime]
	}

	staff := data.StaffName
	if staff == "" {
		staff = defaultStaffName
	}
	minutes := data.MinutesUntil
	if minutes < 0 {
		minutes = 0
	}

	r := strings.NewReplacer(
		"{salon}", data.SalonName,
		"{staff}", staff,
		"{time}", a.OriginalBookingTime.String(),
		"{predicted}", a.PredictedStartTime.String(),
		"{departure}", a.SuggestedDepartureTime.String(),
		"{delay}", strconv.Itoa(a.DelayMinutes),
		"{minutes}", strconv.Itoa(minutes),
	)
	return r.Replace(tpl.title), r.Replace(tpl.body)
}
