package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// MinutesPerDay количество минут в сутках
const MinutesPerDay = 1440

// ErrInvalidTimeOfDay возвращается при некорректном формате времени
var ErrInvalidTimeOfDay = errors.New("types: invalid time of day")

// Допускаем "H:MM", "HH:MM" и "HH:MM:SS" (postgres TIME отдаёт секунды)
var timeOfDayPattern = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?$`)

// TimeOfDay время суток в минутах от полуночи, всегда в диапазоне [0, 1440)
//
// Арифметика выполняется по модулю суток: переход через полночь не отслеживается,
// 23:50 + 20 минут = 00:10 того же "дня".
type TimeOfDay int

// NewTimeOfDay возвращает время суток для переданного момента времени
func NewTimeOfDay(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// NewTimeOfDayFromMinutes нормализует количество минут в диапазон суток
func NewTimeOfDayFromMinutes(minutes int) TimeOfDay {
	return TimeOfDay(normalize(minutes))
}

// ParseTimeOfDay разбирает строку формата HH:MM (секунды игнорируются)
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return TimeOfDay(hours*60 + minutes), nil
}

// ParseTimeOfDayOrZero разбирает строку, при ошибке возвращает полночь
func ParseTimeOfDayOrZero(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return 0
	}
	return t
}

// Minutes возвращает количество минут от полуночи
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Hour возвращает час (0-23)
func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

// AddMinutes прибавляет минуты по модулю суток
func (t TimeOfDay) AddMinutes(minutes int) TimeOfDay {
	return TimeOfDay(normalize(int(t) + minutes))
}

// SubMinutes вычитает минуты по модулю суток
func (t TimeOfDay) SubMinutes(minutes int) TimeOfDay {
	return TimeOfDay(normalize(int(t) - minutes))
}

// MinutesUntil возвращает разницу other - t в минутах без учёта перехода через полночь
// Отрицательное значение означает, что other уже прошло
func (t TimeOfDay) MinutesUntil(other TimeOfDay) int {
	return int(other) - int(t)
}

// IsBefore возвращает true, если t раньше other
func (t TimeOfDay) IsBefore(other TimeOfDay) bool {
	return t < other
}

// IsAfter возвращает true, если t позже other
func (t TimeOfDay) IsAfter(other TimeOfDay) bool {
	return t > other
}

// Between проверяет попадание в интервал [start, end)
// Интервал может переходить через полночь (22:00-07:00)
func (t TimeOfDay) Between(start, end TimeOfDay) bool {
	if start == end {
		return false
	}
	if start < end {
		return t >= start && t < end
	}
	return t >= start || t < end
}

// On возвращает момент времени на дату date
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), int(t)%60, 0, 0, date.Location())
}

// String форматирует время как HH:MM
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), int(t)%60)
}

// Value реализует driver.Valuer
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan реализует sql.Scanner
// lib/pq возвращает TIME как []byte "HH:MM:SS", timestamp как time.Time
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = 0
		return nil
	case []byte:
		parsed, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case time.Time:
		*t = NewTimeOfDay(v)
		return nil
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidTimeOfDay, src)
	}
}

// MarshalJSON сериализует время как строку "HH:MM"
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON разбирает строку "HH:MM"
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimeOfDay, err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func normalize(minutes int) int {
	return ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
}
