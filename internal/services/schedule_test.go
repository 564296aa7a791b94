package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria/server/internal/models"
)

var testHours = map[string]DayHours{
	"monday":    {Open: "11:00", Close: "22:00"},
	"tuesday":   {Open: "11:00", Close: "22:00"},
	"wednesday": {Open: "11:00", Close: "22:00"},
	"thursday":  {Open: "11:00", Close: "22:00"},
	"friday":    {Open: "11:00", Close: "23:00"},
	"saturday":  {Open: "12:00", Close: "23:00"},
	"sunday":    {Closed: true},
}

func newTestSchedule(now time.Time) *ScheduleService {
	s := NewScheduleService(testHours, 15*time.Minute, 20*time.Minute)
	s.now = func() time.Time { return now }
	return s
}

func TestAvailableTimesClosedDay(t *testing.T) {
	s := newTestSchedule(time.Date(2026, 8, 24, 9, 0, 0, 0, time.Local))

	// 2026-08-30 - воскресенье
	_, err := s.AvailableTimes("2026-08-30")
	assert.ErrorIs(t, err, models.ErrStoreClosed)
}

func TestAvailableTimesFutureDay(t *testing.T) {
	// Сегодня понедельник, слоты на вторник начинаются с открытия
	s := newTestSchedule(time.Date(2026, 8, 24, 9, 0, 0, 0, time.Local))

	times, err := s.AvailableTimes("2026-08-25")
	require.NoError(t, err)
	require.NotEmpty(t, times)

	assert.Equal(t, "11:00", times[0].Value)
	assert.Equal(t, "11:15", times[1].Value)
	// Закрытие не входит: последний слот за шаг до него
	assert.Equal(t, "21:45", times[len(times)-1].Value)
	// 11:00..21:45 с шагом 15 минут
	assert.Len(t, times, 44)
}

func TestAvailableTimesTodayPrepLead(t *testing.T) {
	// Понедельник 13:07, готовка 20 минут: первый слот не раньше 13:27,
	// выровненный вверх по шагу - 13:30
	s := newTestSchedule(time.Date(2026, 8, 24, 13, 7, 0, 0, time.Local))

	times, err := s.AvailableTimes("2026-08-24")
	require.NoError(t, err)
	require.NotEmpty(t, times)
	assert.Equal(t, "13:30", times[0].Value)
}

func TestAvailableTimesTodayBeforeOpen(t *testing.T) {
	// До открытия слоты идут с 11:00, как в обычный день
	s := newTestSchedule(time.Date(2026, 8, 24, 8, 0, 0, 0, time.Local))

	times, err := s.AvailableTimes("2026-08-24")
	require.NoError(t, err)
	require.NotEmpty(t, times)
	assert.Equal(t, "11:00", times[0].Value)
}

func TestAvailableTimesBadDate(t *testing.T) {
	s := newTestSchedule(time.Date(2026, 8, 24, 9, 0, 0, 0, time.Local))

	_, err := s.AvailableTimes("24-08-2026")
	assert.Error(t, err)
}

func TestValidateSchedule(t *testing.T) {
	s := newTestSchedule(time.Date(2026, 8, 24, 9, 0, 0, 0, time.Local))

	// Пусто = как можно скорее
	assert.NoError(t, s.ValidateSchedule(""))

	assert.NoError(t, s.ValidateSchedule("2026-08-25 18:30"))

	// Вне часов работы
	assert.Error(t, s.ValidateSchedule("2026-08-25 23:30"))

	// Закрытый день
	assert.ErrorIs(t, s.ValidateSchedule("2026-08-30 12:00"), models.ErrStoreClosed)

	// Кривой формат
	assert.Error(t, s.ValidateSchedule("tomorrow"))
}
