package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{name: "hh:mm", input: "14:05", want: 14*60 + 5},
		{name: "single digit hour", input: "9:30", want: 9*60 + 30},
		{name: "with seconds", input: "23:59:59", want: 23*60 + 59},
		{name: "midnight", input: "00:00", want: 0},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "garbage", input: "ten past two", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeOfDayOrZero(t *testing.T) {
	assert.Equal(t, TimeOfDay(0), ParseTimeOfDayOrZero("bad"))
	assert.Equal(t, TimeOfDay(61), ParseTimeOfDayOrZero("01:01"))
}

func TestTimeOfDayArithmeticWrapsAroundMidnight(t *testing.T) {
	late := ParseTimeOfDayOrZero("23:50")
	assert.Equal(t, "00:10", late.AddMinutes(20).String())

	early := ParseTimeOfDayOrZero("00:15")
	assert.Equal(t, "23:45", early.SubMinutes(30).String())

	// Несколько суток сворачиваются в одно значение
	assert.Equal(t, "00:15", early.SubMinutes(3*MinutesPerDay).String())
	assert.Equal(t, "00:15", early.AddMinutes(2*MinutesPerDay).String())

	for _, minutes := range []int{-5000, -1, 0, 1439, 1440, 99999} {
		v := early.AddMinutes(minutes)
		assert.GreaterOrEqual(t, v.Minutes(), 0)
		assert.Less(t, v.Minutes(), MinutesPerDay)
	}
}

func TestTimeOfDayMinutesUntil(t *testing.T) {
	now := ParseTimeOfDayOrZero("13:00")
	assert.Equal(t, 45, now.MinutesUntil(ParseTimeOfDayOrZero("13:45")))
	assert.Equal(t, -30, now.MinutesUntil(ParseTimeOfDayOrZero("12:30")))
}

func TestTimeOfDayBetween(t *testing.T) {
	assert.True(t, ParseTimeOfDayOrZero("23:00").Between(ParseTimeOfDayOrZero("22:00"), ParseTimeOfDayOrZero("07:00")))
	assert.True(t, ParseTimeOfDayOrZero("06:59").Between(ParseTimeOfDayOrZero("22:00"), ParseTimeOfDayOrZero("07:00")))
	assert.False(t, ParseTimeOfDayOrZero("07:00").Between(ParseTimeOfDayOrZero("22:00"), ParseTimeOfDayOrZero("07:00")))
	assert.True(t, ParseTimeOfDayOrZero("12:00").Between(ParseTimeOfDayOrZero("09:00"), ParseTimeOfDayOrZero("18:00")))
	assert.False(t, ParseTimeOfDayOrZero("12:00").Between(ParseTimeOfDayOrZero("12:00"), ParseTimeOfDayOrZero("12:00")))
}

func TestTimeOfDayScan(t *testing.T) {
	var v TimeOfDay
	require.NoError(t, v.Scan([]byte("14:00:00")))
	assert.Equal(t, "14:00", v.String())

	require.NoError(t, v.Scan(time.Date(2026, 1, 2, 9, 15, 0, 0, time.UTC)))
	assert.Equal(t, "09:15", v.String())

	require.NoError(t, v.Scan(nil))
	assert.Equal(t, TimeOfDay(0), v)

	require.Error(t, v.Scan(42))
}

func TestTimeOfDayJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		At TimeOfDay `json:"at"`
	}{At: ParseTimeOfDayOrZero("08:05")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"08:05"}`, string(raw))

	var decoded struct {
		At TimeOfDay `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"17:45"}`), &decoded))
	assert.Equal(t, "17:45", decoded.At.String())

	require.Error(t, json.Unmarshal([]byte(`{"at":"25:00"}`), &decoded))
}

func TestTimeOfDayOn(t *testing.T) {
	date := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	got := ParseTimeOfDayOrZero("14:18").On(date)
	assert.Equal(t, time.Date(2026, 10, 19, 14, 18, 0, 0, time.UTC), got)
}
