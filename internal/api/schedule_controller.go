package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzeria/server/internal/models"
	"pizzeria/server/internal/services"
)

// ScheduleController отдает слоты времени для предзаказа
type ScheduleController struct {
	schedule *services.ScheduleService
}

func NewScheduleController(schedule *services.ScheduleService) *ScheduleController {
	return &ScheduleController{schedule: schedule}
}

// GetAvailableTimes отдает слоты на дату (?date=2026-08-29)
func (sc *ScheduleController) GetAvailableTimes(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}

	times, err := sc.schedule.AvailableTimes(date)
	if err != nil {
		if errors.Is(err, models.ErrStoreClosed) {
			c.JSON(http.StatusOK, gin.H{"date": date, "closed": true, "times": []services.TimeSlot{}})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "closed": false, "times": times})
}
