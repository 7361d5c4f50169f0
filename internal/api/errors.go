package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aristath/buildplan/internal/schedule"
)

// writeError maps engine errors to HTTP status codes. Validation failures
// carry enough structure for the caller to act on.
func writeError(c *gin.Context, err error) {
	var cycleErr *schedule.CycleError
	var dateErr *schedule.InvalidDateError
	var frozenErr *schedule.FrozenZoneError
	var capErr *schedule.CapacityError

	switch {
	case errors.As(err, &cycleErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":    err.Error(),
			"cycle_at": cycleErr.Code,
		})
	case errors.As(err, &dateErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"date":  dateErr.Date.Format(schedule.DateLayout),
		})
	case errors.As(err, &frozenErr):
		c.JSON(http.StatusLocked, gin.H{
			"error":        err.Error(),
			"frozen_until": frozenErr.FrozenUntil.Format(schedule.DateLayout),
		})
	case errors.As(err, &capErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":           err.Error(),
			"team_id":         capErr.TeamID,
			"date":            capErr.Date.Format(schedule.DateLayout),
			"available_slots": capErr.AvailableSlots,
		})
	case errors.Is(err, schedule.ErrNoWorkingWeekday):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, schedule.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, schedule.ErrTaskCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
