package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/buildplan/internal/capacity"
	"github.com/aristath/buildplan/internal/commit"
	"github.com/aristath/buildplan/internal/schedule"
)

// Store is the persistence surface the handlers need beyond the commit
// service. The SQLite store implements it.
type Store interface {
	SaveTask(ctx context.Context, task *schedule.Task) error
	GetTask(ctx context.Context, taskID string) (*schedule.Task, error)
	ListProjectTasks(ctx context.Context, projectID string) ([]*schedule.Task, error)
	SaveTeam(ctx context.Context, team *capacity.Team) error
	SetCapacityOverride(ctx context.Context, teamID string, date time.Time, totalSlots int) error
	SaveWorkingDayRules(ctx context.Context, rules []schedule.WorkingDayRule) error
	AddHoliday(ctx context.Context, h schedule.Holiday) error
}

type handlers struct {
	store Store
	svc   *commit.Service
	log   zerolog.Logger
}

func (h *handlers) register(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	{
		v1.GET("/tasks/:id", h.getTask)

		projects := v1.Group("/projects/:project")
		{
			projects.POST("/tasks", h.createTask)
			projects.GET("/tasks", h.listTasks)
			projects.POST("/schedule", h.scheduleProject)
			projects.POST("/template", h.applyTemplate)
			projects.POST("/reschedule/preview", h.previewMove)
			projects.POST("/reschedule/commit", h.commitMove)
		}

		v1.PUT("/teams", h.saveTeam)
		v1.PUT("/teams/:id/capacity", h.setCapacityOverride)
		v1.PUT("/calendar/rules", h.saveWorkingDayRules)
		v1.POST("/calendar/holidays", h.addHoliday)
	}
}

// taskResponse is the wire form of a task. Dates are plain YYYY-MM-DD.
type taskResponse struct {
	ID             string   `json:"id"`
	ProjectID      string   `json:"project_id"`
	Code           string   `json:"code"`
	Label          string   `json:"label,omitempty"`
	Trade          string   `json:"trade,omitempty"`
	DurationDays   float64  `json:"duration_days"`
	DependsOn      []string `json:"depends_on,omitempty"`
	TeamID         string   `json:"team_id,omitempty"`
	ScheduledStart string   `json:"scheduled_start,omitempty"`
	ScheduledEnd   string   `json:"scheduled_end,omitempty"`
	Status         string   `json:"status"`
	SortOrder      int      `json:"sort_order"`
}

func toTaskResponse(t *schedule.Task) taskResponse {
	resp := taskResponse{
		ID:           t.ID,
		ProjectID:    t.ProjectID,
		Code:         t.Code,
		Label:        t.Label,
		Trade:        t.Trade,
		DurationDays: t.DurationDays,
		DependsOn:    t.DependsOn,
		TeamID:       t.TeamID,
		Status:       string(t.Status),
		SortOrder:    t.SortOrder,
	}
	if t.ScheduledStart != nil {
		resp.ScheduledStart = t.ScheduledStart.Format(schedule.DateLayout)
	}
	if t.ScheduledEnd != nil {
		resp.ScheduledEnd = t.ScheduledEnd.Format(schedule.DateLayout)
	}
	return resp
}

func toTaskResponses(tasks []*schedule.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

// parseDate parses a YYYY-MM-DD request field. Writes a 400 and returns
// false on failure.
func parseDate(c *gin.Context, field, value string) (time.Time, bool) {
	d, err := time.ParseInLocation(schedule.DateLayout, value, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " must be a YYYY-MM-DD date"})
		return time.Time{}, false
	}
	return d, true
}

func (h *handlers) createTask(c *gin.Context) {
	var input struct {
		Code         string   `json:"code" binding:"required"`
		Label        string   `json:"label"`
		Trade        string   `json:"trade"`
		DurationDays float64  `json:"duration_days" binding:"required"`
		DependsOn    []string `json:"depends_on"`
		TeamID       string   `json:"team_id"`
		SortOrder    int      `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := &schedule.Task{
		ID:           uuid.NewString(),
		ProjectID:    c.Param("project"),
		Code:         input.Code,
		Label:        input.Label,
		Trade:        input.Trade,
		DurationDays: input.DurationDays,
		DependsOn:    input.DependsOn,
		TeamID:       input.TeamID,
		Status:       schedule.StatusPending,
		SortOrder:    input.SortOrder,
	}
	if err := h.store.SaveTask(c.Request.Context(), task); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

func (h *handlers) getTask(c *gin.Context) {
	task, err := h.store.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (h *handlers) listTasks(c *gin.Context) {
	tasks, err := h.store.ListProjectTasks(c.Request.Context(), c.Param("project"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponses(tasks))
}

func (h *handlers) scheduleProject(c *gin.Context) {
	var input struct {
		StartDate string `json:"start_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, ok := parseDate(c, "start_date", input.StartDate)
	if !ok {
		return
	}

	scheduled, err := h.svc.ScheduleProject(c.Request.Context(), c.Param("project"), start)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": toTaskResponses(scheduled)})
}

func (h *handlers) applyTemplate(c *gin.Context) {
	var input struct {
		StartDate string                `json:"start_date" binding:"required"`
		Tasks     []commit.TemplateTask `json:"tasks" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, ok := parseDate(c, "start_date", input.StartDate)
	if !ok {
		return
	}

	scheduled, err := h.svc.ApplyTemplate(c.Request.Context(), c.Param("project"), start, input.Tasks)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": toTaskResponses(scheduled)})
}

type moveInput struct {
	TaskID         string `json:"task_id" binding:"required"`
	NewStart       string `json:"new_start" binding:"required"`
	NewTeamID      string `json:"new_team_id"`
	OverrideFrozen bool   `json:"override_frozen"`
}

func (h *handlers) moveRequest(c *gin.Context) (commit.MoveRequest, bool) {
	var input moveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return commit.MoveRequest{}, false
	}
	newStart, ok := parseDate(c, "new_start", input.NewStart)
	if !ok {
		return commit.MoveRequest{}, false
	}
	return commit.MoveRequest{
		ProjectID:      c.Param("project"),
		TaskID:         input.TaskID,
		NewStart:       newStart,
		NewTeamID:      input.NewTeamID,
		OverrideFrozen: input.OverrideFrozen,
	}, true
}

// changesResponse renders a preview's change set keyed by task ID.
func changesResponse(changes map[string]schedule.Change) gin.H {
	out := make(map[string]gin.H, len(changes))
	for id, ch := range changes {
		out[id] = gin.H{
			"start": ch.Start.Format(schedule.DateLayout),
			"end":   ch.End.Format(schedule.DateLayout),
		}
	}
	return gin.H{"changes": out, "affected_tasks": len(changes)}
}

func (h *handlers) previewMove(c *gin.Context) {
	req, ok := h.moveRequest(c)
	if !ok {
		return
	}
	preview, err := h.svc.PreviewMove(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, changesResponse(preview.Changes))
}

func (h *handlers) commitMove(c *gin.Context) {
	req, ok := h.moveRequest(c)
	if !ok {
		return
	}
	preview, err := h.svc.CommitMove(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, changesResponse(preview.Changes))
}

func (h *handlers) saveTeam(c *gin.Context) {
	var input struct {
		ID              string `json:"id" binding:"required"`
		Name            string `json:"name"`
		DefaultCapacity int    `json:"default_capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team := &capacity.Team{ID: input.ID, Name: input.Name, DefaultCapacity: input.DefaultCapacity}
	if err := h.store.SaveTeam(c.Request.Context(), team); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *handlers) setCapacityOverride(c *gin.Context) {
	var input struct {
		Date       string `json:"date" binding:"required"`
		TotalSlots int    `json:"total_slots" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, ok := parseDate(c, "date", input.Date)
	if !ok {
		return
	}

	if err := h.store.SetCapacityOverride(c.Request.Context(), c.Param("id"), date, input.TotalSlots); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"team_id": c.Param("id"), "date": input.Date, "total_slots": input.TotalSlots})
}

func (h *handlers) saveWorkingDayRules(c *gin.Context) {
	var input struct {
		Rules []struct {
			Weekday int    `json:"weekday"`
			Working bool   `json:"working"`
			Start   string `json:"start"`
			End     string `json:"end"`
		} `json:"rules" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rules := make([]schedule.WorkingDayRule, 0, len(input.Rules))
	for _, r := range input.Rules {
		if r.Weekday < 0 || r.Weekday > 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weekday must be 0 (Sunday) through 6 (Saturday)"})
			return
		}
		rules = append(rules, schedule.WorkingDayRule{
			Weekday: time.Weekday(r.Weekday),
			Working: r.Working,
			Start:   r.Start,
			End:     r.End,
		})
	}
	if err := h.store.SaveWorkingDayRules(c.Request.Context(), rules); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": len(rules)})
}

func (h *handlers) addHoliday(c *gin.Context) {
	var input struct {
		Date  string `json:"date" binding:"required"`
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, ok := parseDate(c, "date", input.Date)
	if !ok {
		return
	}

	if err := h.store.AddHoliday(c.Request.Context(), schedule.Holiday{Date: date, Label: input.Label}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"date": input.Date, "label": input.Label})
}
