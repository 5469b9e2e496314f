package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planner/internal/checksum"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/planservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *planservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *planservice.Service) *Handler {
	return &Handler{svc: svc}
}

func pathID(r *http.Request) models.ID {
	return models.ID(chi.URLParam(r, "id"))
}

// ListGoals handles GET /api/goals.
//
//	@Summary		List goals
//	@Tags			goals
//	@Produce		json
//	@Success		200	{array}	models.Goal
//	@Security		BearerAuth
//	@Router			/goals [get]
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListGoals(r.Context()))
}

// GetGoal handles GET /api/goals/{id}.
//
//	@Summary		Get a goal
//	@Tags			goals
//	@Produce		json
//	@Param			id	path		string	true	"Goal ID"
//	@Success		200	{object}	models.Goal
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id} [get]
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.GetGoal(r.Context(), pathID(r))
	if err != nil {
		writeError(w, "get goal", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// CreateGoal handles POST /api/goals.
//
//	@Summary		Create a goal
//	@Tags			goals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GoalRequest	true	"Goal to create"
//	@Success		201		{object}	models.Goal
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals [post]
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate(req); err != nil {
		writeError(w, "create goal", err)
		return
	}
	g, err := h.svc.CreateGoal(r.Context(), req.model())
	if err != nil {
		writeError(w, "create goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// UpdateGoal handles PUT /api/goals/{id}.
//
//	@Summary		Update a goal
//	@Tags			goals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Goal ID"
//	@Param			body	body		GoalRequest	true	"New goal fields"
//	@Success		200		{object}	models.Goal
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id} [put]
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate(req); err != nil {
		writeError(w, "update goal", err)
		return
	}
	g, err := h.svc.UpdateGoal(r.Context(), pathID(r), req.model())
	if err != nil {
		writeError(w, "update goal", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// DeleteGoal handles DELETE /api/goals/{id}.
//
//	@Summary		Delete a goal
//	@Tags			goals
//	@Param			id	path	string	true	"Goal ID"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id} [delete]
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGoal(r.Context(), pathID(r)); err != nil {
		writeError(w, "delete goal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActivities handles GET /api/activities.
//
//	@Summary		List daily activities
//	@Tags			activities
//	@Produce		json
//	@Success		200	{array}	models.Activity
//	@Security		BearerAuth
//	@Router			/activities [get]
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListActivities(r.Context()))
}

// CreateActivity handles POST /api/activities.
//
//	@Summary		Create a daily activity
//	@Tags			activities
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ActivityRequest	true	"Activity to create"
//	@Success		201		{object}	models.Activity
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/activities [post]
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate(req); err != nil {
		writeError(w, "create activity", err)
		return
	}
	a, err := h.svc.CreateActivity(r.Context(), req.model())
	if err != nil {
		writeError(w, "create activity", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateActivity handles PUT /api/activities/{id}.
//
//	@Summary		Update a daily activity
//	@Tags			activities
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Activity ID"
//	@Param			body	body		ActivityRequest	true	"New activity fields"
//	@Success		200		{object}	models.Activity
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/activities/{id} [put]
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate(req); err != nil {
		writeError(w, "update activity", err)
		return
	}
	a, err := h.svc.UpdateActivity(r.Context(), pathID(r), req.model())
	if err != nil {
		writeError(w, "update activity", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteActivity handles DELETE /api/activities/{id}.
//
//	@Summary		Delete a daily activity
//	@Tags			activities
//	@Param			id	path	string	true	"Activity ID"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/activities/{id} [delete]
func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteActivity(r.Context(), pathID(r)); err != nil {
		writeError(w, "delete activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		List tasks
//	@Tags			tasks
//	@Produce		json
//	@Param			pending	query	bool	false	"Only tasks that are not completed"
//	@Success		200		{array}	models.Task
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.svc.ListTasks(r.Context())
	if pending, _ := strconv.ParseBool(r.URL.Query().Get("pending")); pending {
		open := tasks[:0]
		for _, t := range tasks {
			if !t.Completed {
				open = append(open, t)
			}
		}
		tasks = open
	}
	writeJSON(w, http.StatusOK, tasks)
}

// UpcomingTasks handles GET /api/tasks/upcoming.
//
//	@Summary		Pending tasks dated in the next days
//	@Tags			tasks
//	@Produce		json
//	@Param			days	query	int	false	"Window length in days (default 7)"
//	@Success		200		{array}	models.Task
//	@Security		BearerAuth
//	@Router			/tasks/upcoming [get]
func (h *Handler) UpcomingTasks(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = planservice.WeekDays
	}
	writeJSON(w, http.StatusOK, h.svc.Upcoming(r.Context(), days))
}

// CreateTask handles POST /api/tasks.
//
//	@Summary		Create a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TaskRequest	true	"Task to create"
//	@Success		201		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate(req); err != nil {
		writeError(w, "create task", err)
		return
	}
	t, err := h.svc.CreateTask(r.Context(), req.model())
	if err != nil {
		writeError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTask handles PUT /api/tasks/{id}.
//
//	@Summary		Update a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Task ID"
//	@Param			body	body		TaskRequest	true	"New task fields"
//	@Success		200		{object}	models.Task
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id} [put]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate(req); err != nil {
		writeError(w, "update task", err)
		return
	}
	t, err := h.svc.UpdateTask(r.Context(), pathID(r), req.model())
	if err != nil {
		writeError(w, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CompleteTask handles POST /api/tasks/{id}/complete.
//
//	@Summary		Mark a task completed or pending
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Task ID"
//	@Param			body	body		CompleteRequest	false	"Completion flag, default true"
//	@Success		200		{object}	models.Task
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id}/complete [post]
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	done := true
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	if len(body) > 0 {
		var req CompleteRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		if req.Completed != nil {
			done = *req.Completed
		}
	}
	t, err := h.svc.CompleteTask(r.Context(), pathID(r), done)
	if err != nil {
		writeError(w, "complete task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTask handles DELETE /api/tasks/{id}.
//
//	@Summary		Delete a task
//	@Tags			tasks
//	@Param			id	path	string	true	"Task ID"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/tasks/{id} [delete]
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(r.Context(), pathID(r)); err != nil {
		writeError(w, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCollection handles GET /api/collections/{key}.
//
//	@Summary		Read a whole collection with its revision
//	@Tags			collections
//	@Produce		json
//	@Param			key	path	string	true	"Collection key"	Enums(goals, dailyActivities, tasks, schedule, insights)
//	@Success		200
//	@Success		304
//	@Header			200	{string}	ETag	"Collection revision"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{key} [get]
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	data, rev, err := h.svc.Collection(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, "get collection", err)
		return
	}
	w.Header().Set("ETag", `"`+rev+`"`)
	if revisionMatches(r, rev) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(data)
}

// ReplaceCollection handles PUT /api/collections/{key}.
//
//	@Summary		Replace a whole editable collection
//	@Tags			collections
//	@Accept			json
//	@Param			key			path	string	true	"Collection key"	Enums(goals, dailyActivities, tasks)
//	@Param			If-Match	header	string	false	"Expected revision"
//	@Success		204
//	@Header			204	{string}	ETag	"New revision"
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{key} [put]
func (h *Handler) ReplaceCollection(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("body too large"))
		return
	}
	rev, err := h.svc.ReplaceCollection(r.Context(), chi.URLParam(r, "key"), body, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "replace collection", err)
		return
	}
	w.Header().Set("ETag", `"`+rev+`"`)
	w.WriteHeader(http.StatusNoContent)
}

// revisionMatches reports whether the request's If-None-Match names rev.
func revisionMatches(r *http.Request, rev string) bool {
	inm := r.Header.Get("If-None-Match")
	return inm != "" && checksum.Matches(inm, rev)
}
