package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/buildplan/internal/capacity"
	"github.com/aristath/buildplan/internal/commit"
	"github.com/aristath/buildplan/internal/config"
	"github.com/aristath/buildplan/internal/events"
	"github.com/aristath/buildplan/internal/persistence"
	"github.com/aristath/buildplan/internal/schedule"
)

// testServer wires a full server against an in-memory store. frozenDays 0
// disables the frozen zone so fixed test dates work regardless of the
// wall clock.
func testServer(t *testing.T, frozenDays int) (http.Handler, *persistence.SQLiteStore) {
	t.Helper()

	store, err := persistence.NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	bus := events.NewEventBus()
	t.Cleanup(bus.Close)

	guard := capacity.NewGuard(store, 1)
	svc := commit.NewService(store, guard, bus, zerolog.Nop(), frozenDays)
	srv := NewServer(config.ServerConfig{Addr: ":0"}, store, svc, zerolog.Nop())
	return srv.Handler(), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	handler, _ := testServer(t, 0)

	w := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	handler, _ := testServer(t, 0)

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/tasks", map[string]any{
		"code":          "foundation",
		"label":         "Pour foundation",
		"trade":         "concrete",
		"duration_days": 3,
		"depends_on":    []string{"excavate"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("created task has no id")
	}
	if created["status"] != "pending" {
		t.Errorf("status = %v, want pending", created["status"])
	}

	w = doJSON(t, handler, http.MethodGet, "/v1/tasks/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decodeBody(t, w)
	if got["code"] != "foundation" {
		t.Errorf("code = %v, want foundation", got["code"])
	}
	if got["project_id"] != "proj-1" {
		t.Errorf("project_id = %v, want proj-1", got["project_id"])
	}
}

func TestGetTaskNotFound(t *testing.T) {
	handler, _ := testServer(t, 0)

	w := doJSON(t, handler, http.MethodGet, "/v1/tasks/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestApplyTemplateSchedules(t *testing.T) {
	handler, _ := testServer(t, 0)

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/template", map[string]any{
		"start_date": "2026-03-02",
		"tasks": []map[string]any{
			{"code": "excavate", "duration_days": 2},
			{"code": "foundation", "duration_days": 3, "depends_on": []string{"excavate"}},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	tasks, _ := body["tasks"].([]any)
	if len(tasks) != 2 {
		t.Fatalf("returned %d tasks, want 2", len(tasks))
	}

	byCode := make(map[string]map[string]any)
	for _, raw := range tasks {
		task := raw.(map[string]any)
		byCode[task["code"].(string)] = task
	}
	if got := byCode["excavate"]["scheduled_start"]; got != "2026-03-02" {
		t.Errorf("excavate start = %v, want 2026-03-02", got)
	}
	if got := byCode["foundation"]["scheduled_start"]; got != "2026-03-04" {
		t.Errorf("foundation start = %v, want 2026-03-04", got)
	}
}

func TestApplyTemplateCycleConflict(t *testing.T) {
	handler, _ := testServer(t, 0)

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/template", map[string]any{
		"start_date": "2026-03-02",
		"tasks": []map[string]any{
			{"code": "a", "duration_days": 1, "depends_on": []string{"b"}},
			{"code": "b", "duration_days": 1, "depends_on": []string{"a"}},
		},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	body := decodeBody(t, w)
	if body["cycle_at"] == nil {
		t.Error("conflict response missing cycle_at")
	}
}

// seedProject applies a small template and returns task IDs by code.
func seedProject(t *testing.T, handler http.Handler) map[string]string {
	t.Helper()

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/template", map[string]any{
		"start_date": "2026-03-02",
		"tasks": []map[string]any{
			{"code": "A", "duration_days": 2},
			{"code": "B", "duration_days": 1, "depends_on": []string{"A"}},
			{"code": "C", "duration_days": 2, "depends_on": []string{"B"}},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("seed template status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	ids := make(map[string]string)
	for _, raw := range body["tasks"].([]any) {
		task := raw.(map[string]any)
		ids[task["code"].(string)] = task["id"].(string)
	}
	return ids
}

func TestCommitMoveRipples(t *testing.T) {
	handler, store := testServer(t, 0)
	ids := seedProject(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/reschedule/commit", map[string]any{
		"task_id":   ids["A"],
		"new_start": "2026-03-05",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if got := body["affected_tasks"].(float64); got != 3 {
		t.Errorf("affected_tasks = %v, want 3", got)
	}

	task, err := store.GetTask(context.Background(), ids["C"])
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got := task.ScheduledStart.Format(schedule.DateLayout); got != "2026-03-10" {
		t.Errorf("C start = %s, want 2026-03-10", got)
	}
}

func TestPreviewMoveDoesNotWrite(t *testing.T) {
	handler, store := testServer(t, 0)
	ids := seedProject(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/reschedule/preview", map[string]any{
		"task_id":   ids["A"],
		"new_start": "2026-03-05",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	task, err := store.GetTask(context.Background(), ids["A"])
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got := task.ScheduledStart.Format(schedule.DateLayout); got != "2026-03-02" {
		t.Errorf("A start = %s after preview, want original 2026-03-02", got)
	}
}

func TestCommitMoveNonWorkingDay(t *testing.T) {
	handler, _ := testServer(t, 0)
	ids := seedProject(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/reschedule/commit", map[string]any{
		"task_id":   ids["A"],
		"new_start": "2026-03-07", // Saturday
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCommitMoveBadDateFormat(t *testing.T) {
	handler, _ := testServer(t, 0)
	ids := seedProject(t, handler)

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/reschedule/commit", map[string]any{
		"task_id":   ids["A"],
		"new_start": "03/05/2026",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCommitMoveFrozenZone(t *testing.T) {
	handler, store := testServer(t, 3)

	// An always-working week keeps "today" a valid working day no matter
	// when the test runs.
	rules := make([]schedule.WorkingDayRule, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		rules = append(rules, schedule.WorkingDayRule{Weekday: wd, Working: true})
	}
	if err := store.SaveWorkingDayRules(context.Background(), rules); err != nil {
		t.Fatalf("SaveWorkingDayRules() error = %v", err)
	}

	ids := seedProject(t, handler)
	today := schedule.DateOnly(time.Now().UTC()).Format(schedule.DateLayout)

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/reschedule/commit", map[string]any{
		"task_id":   ids["A"],
		"new_start": today,
	})
	if w.Code != http.StatusLocked {
		t.Fatalf("status = %d, want 423, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["frozen_until"] == nil {
		t.Error("locked response missing frozen_until")
	}

	// Override pushes it through.
	w = doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/reschedule/commit", map[string]any{
		"task_id":         ids["A"],
		"new_start":       today,
		"override_frozen": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("override status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestCommitMoveCapacityConflict(t *testing.T) {
	handler, store := testServer(t, 0)
	ids := seedProject(t, handler)
	ctx := context.Background()

	if err := store.SaveTeam(ctx, &capacity.Team{ID: "crew-1", DefaultCapacity: 1}); err != nil {
		t.Fatalf("SaveTeam() error = %v", err)
	}
	start, _ := time.ParseInLocation(schedule.DateLayout, "2026-03-05", time.UTC)
	end, _ := time.ParseInLocation(schedule.DateLayout, "2026-03-06", time.UTC)
	if err := store.SaveTask(ctx, &schedule.Task{
		ID: "busy", ProjectID: "proj-2", Code: "other", DurationDays: 2,
		TeamID: "crew-1", ScheduledStart: &start, ScheduledEnd: &end,
		Status: schedule.StatusScheduled,
	}); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}

	w := doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/reschedule/commit", map[string]any{
		"task_id":     ids["A"],
		"new_start":   "2026-03-05",
		"new_team_id": "crew-1",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["available_slots"] == nil {
		t.Error("conflict response missing available_slots")
	}
}

func TestTeamAndCalendarEndpoints(t *testing.T) {
	handler, _ := testServer(t, 0)

	w := doJSON(t, handler, http.MethodPut, "/v1/teams", map[string]any{
		"id":               "crew-1",
		"name":             "Framing crew",
		"default_capacity": 2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save team status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodPut, "/v1/teams/crew-1/capacity", map[string]any{
		"date":        "2026-03-05",
		"total_slots": 4,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("capacity override status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, handler, http.MethodPost, "/v1/calendar/holidays", map[string]any{
		"date":  "2026-03-04",
		"label": "site closure",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("holiday status = %d, body = %s", w.Code, w.Body.String())
	}

	// With Wednesday closed the template shifts around it.
	w = doJSON(t, handler, http.MethodPost, "/v1/projects/proj-1/template", map[string]any{
		"start_date": "2026-03-02",
		"tasks": []map[string]any{
			{"code": "A", "duration_days": 2},
			{"code": "B", "duration_days": 1, "depends_on": []string{"A"}},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("template status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	for _, raw := range body["tasks"].([]any) {
		task := raw.(map[string]any)
		if task["code"] == "B" {
			if got := task["scheduled_start"]; got != "2026-03-05" {
				t.Errorf("B start = %v, want 2026-03-05 (holiday skipped)", got)
			}
		}
	}
}

func TestSaveWorkingDayRules(t *testing.T) {
	handler, store := testServer(t, 0)

	w := doJSON(t, handler, http.MethodPut, "/v1/calendar/rules", map[string]any{
		"rules": []map[string]any{
			{"weekday": 2, "working": true},
			{"weekday": 3, "working": true},
			{"weekday": 4, "working": true},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	cal, err := store.Calendar(context.Background())
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	mon, _ := time.ParseInLocation(schedule.DateLayout, "2026-03-02", time.UTC)
	if cal.IsWorkingDay(mon) {
		t.Error("Monday should not be working under Tue-Thu rules")
	}
}

func TestSaveWorkingDayRulesInvalidWeekday(t *testing.T) {
	handler, _ := testServer(t, 0)

	w := doJSON(t, handler, http.MethodPut, "/v1/calendar/rules", map[string]any{
		"rules": []map[string]any{
			{"weekday": 9, "working": true},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
