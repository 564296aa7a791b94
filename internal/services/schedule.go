package services

import (
	"fmt"
	"strings"
	"time"

	"pizzeria/server/internal/models"
)

// DayHours - часы работы на один день недели
type DayHours struct {
	Open   string `json:"open"`  // "11:00"
	Close  string `json:"close"` // "22:00"
	Closed bool   `json:"closed"`
}

// TimeSlot - доступное время для предзаказа
type TimeSlot struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ScheduleService выдает слоты времени для отложенных заказов
// с учетом часов работы и времени на готовку
type ScheduleService struct {
	hours    map[string]DayHours // ключ - день недели в нижнем регистре
	interval time.Duration       // шаг слотов
	prepTime time.Duration       // минимум от "сейчас" до первого слота
	now      func() time.Time    // подменяется в тестах
}

func NewScheduleService(hours map[string]DayHours, interval, prepTime time.Duration) *ScheduleService {
	normalized := make(map[string]DayHours, len(hours))
	for day, h := range hours {
		normalized[strings.ToLower(day)] = h
	}
	return &ScheduleService{
		hours:    normalized,
		interval: interval,
		prepTime: prepTime,
		now:      time.Now,
	}
}

// AvailableTimes возвращает слоты на дату в формате "2006-01-02".
// Для сегодняшней даты первый слот сдвигается на время готовки
// и выравнивается вверх по шагу слотов
func (s *ScheduleService) AvailableTimes(date string) ([]TimeSlot, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("некорректная дата %q: %w", date, err)
	}

	dayName := strings.ToLower(day.Weekday().String())
	hours, ok := s.hours[dayName]
	if !ok || hours.Closed {
		return nil, models.ErrStoreClosed
	}

	open, err := atTime(day, hours.Open)
	if err != nil {
		return nil, err
	}
	end, err := atTime(day, hours.Close)
	if err != nil {
		return nil, err
	}

	current := open
	now := s.now()
	if sameDay(day, now) {
		earliest := now.Add(s.prepTime)
		if current.Before(earliest) {
			current = ceilTo(earliest, s.interval)
		}
	}

	var times []TimeSlot
	for current.Before(end) {
		value := current.Format("15:04")
		times = append(times, TimeSlot{Value: value, Label: value})
		current = current.Add(s.interval)
	}
	return times, nil
}

// ValidateSchedule проверяет время предзаказа "2006-01-02 15:04".
// Пустая строка означает "как можно скорее" и всегда валидна
func (s *ScheduleService) ValidateSchedule(scheduledFor string) error {
	if scheduledFor == "" {
		return nil
	}

	parts := strings.SplitN(scheduledFor, " ", 2)
	if len(parts) != 2 {
		return fmt.Errorf("некорректное время предзаказа %q", scheduledFor)
	}

	slots, err := s.AvailableTimes(parts[0])
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if slot.Value == parts[1] {
			return nil
		}
	}
	return models.ErrStoreClosed
}

func atTime(day time.Time, clock string) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", clock, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректное время %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func ceilTo(t time.Time, step time.Duration) time.Time {
	rounded := t.Truncate(step)
	if rounded.Before(t) {
		rounded = rounded.Add(step)
	}
	return rounded
}
