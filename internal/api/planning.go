package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/starford/planner/internal/backup"
	"github.com/starford/planner/internal/calendar"
	"github.com/starford/planner/internal/schedule"
)

// GetSchedule handles GET /api/schedule.
//
//	@Summary		Cached schedule
//	@Tags			schedule
//	@Produce		json
//	@Success		200	{object}	ScheduleResponse
//	@Security		BearerAuth
//	@Router			/schedule [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Schedule(r.Context()))
}

// GenerateSchedule handles POST /api/schedule.
//
//	@Summary		Synthesize today's schedule
//	@Tags			schedule
//	@Produce		json
//	@Success		200	{object}	ScheduleResponse
//	@Security		BearerAuth
//	@Router			/schedule [post]
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GenerateSchedule(r.Context())
	if err != nil {
		writeError(w, "generate schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// WeekSchedule handles GET /api/schedule/week.
//
//	@Summary		Seven-day view
//	@Tags			schedule
//	@Produce		json
//	@Param			from	query		string	false	"First day, YYYY-MM-DD (default today)"
//	@Success		200		{object}	WeekResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/schedule/week [get]
func (h *Handler) WeekSchedule(w http.ResponseWriter, r *http.Request) {
	from, ok := h.dateParam(w, r, "from")
	if !ok {
		return
	}
	plans := h.svc.WeekPlan(r.Context(), from)
	resp := WeekResponse{From: from.Format(schedule.DateLayout), Days: make([]DayPlanVM, len(plans))}
	for i, p := range plans {
		resp.Days[i] = DayPlanVM{Date: p.Day, Entries: p.Entries, Unscheduled: p.Unscheduled}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetInsights handles GET /api/insights.
//
//	@Summary		Cached insights
//	@Tags			insights
//	@Produce		json
//	@Success		200	{object}	InsightsResponse
//	@Security		BearerAuth
//	@Router			/insights [get]
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InsightsResponse{Insights: h.svc.Insights(r.Context())})
}

// AnalyzeInsights handles POST /api/insights.
//
//	@Summary		Recompute insights
//	@Tags			insights
//	@Produce		json
//	@Param			source	query		string	false	"rules or ai"	Enums(rules, ai)
//	@Success		200		{object}	InsightsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/insights [post]
func (h *Handler) AnalyzeInsights(w http.ResponseWriter, r *http.Request) {
	var useAI bool
	switch src := r.URL.Query().Get("source"); src {
	case "", "rules":
	case "ai":
		useAI = true
	default:
		writeJSON(w, http.StatusBadRequest, errorBody(fmt.Sprintf("unknown source %q", src)))
		return
	}
	out, err := h.svc.AnalyzeInsights(r.Context(), useAI)
	if err != nil {
		writeError(w, "analyze insights", err)
		return
	}
	resp := InsightsResponse{Insights: out.Insights, Source: string(out.Source)}
	if out.Err != nil {
		resp.Warning = out.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Feedback handles POST /api/feedback.
//
//	@Summary		Send feedback to the text generator
//	@Tags			insights
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FeedbackRequest	true	"Feedback text"
//	@Success		200		{object}	FeedbackResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/feedback [post]
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate(req); err != nil {
		writeError(w, "feedback", err)
		return
	}
	res, err := h.svc.Feedback(r.Context(), req.Feedback)
	if err != nil {
		writeError(w, "feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Breakdown handles POST /api/goals/{id}/breakdown.
//
//	@Summary		Propose sub-goals for a goal
//	@Tags			goals
//	@Produce		json
//	@Param			id	path		string	true	"Goal ID"
//	@Success		200	{object}	BreakdownResponse
//	@Failure		404	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id}/breakdown [post]
func (h *Handler) Breakdown(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Breakdown(r.Context(), pathID(r))
	if err != nil {
		writeError(w, "breakdown", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ApplyBreakdown handles POST /api/goals/{id}/breakdown/apply.
//
//	@Summary		Create sub-goals from accepted drafts
//	@Tags			goals
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Parent goal ID"
//	@Param			body	body		ApplyBreakdownRequest	true	"Accepted drafts"
//	@Success		201		{array}		models.Goal
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals/{id}/breakdown/apply [post]
func (h *Handler) ApplyBreakdown(w http.ResponseWriter, r *http.Request) {
	var req ApplyBreakdownRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate(req); err != nil {
		writeError(w, "apply breakdown", err)
		return
	}
	goals, err := h.svc.ApplyBreakdown(r.Context(), pathID(r), req.SubGoals)
	if err != nil {
		writeError(w, "apply breakdown", err)
		return
	}
	writeJSON(w, http.StatusCreated, goals)
}

// Calendar handles GET /api/calendar.ics.
//
//	@Summary		Download the schedule as iCalendar
//	@Tags			schedule
//	@Produce		text/calendar
//	@Param			date	query		string	false	"Calendar date, YYYY-MM-DD (default today)"
//	@Param			week	query		bool	false	"Export seven planned days"
//	@Success		200
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar.ics [get]
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.dateParam(w, r, "date")
	if !ok {
		return
	}
	week, _ := strconv.ParseBool(r.URL.Query().Get("week"))
	data, err := h.svc.Calendar(r.Context(), ref, week)
	if err != nil {
		writeError(w, "export calendar", err)
		return
	}
	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, calendar.Filename(ref)))
	_, _ = w.Write(data)
}

// ExportBackup handles GET /api/backup.
//
//	@Summary		Download a backup of all collections
//	@Tags			backup
//	@Produce		json
//	@Success		200
//	@Security		BearerAuth
//	@Router			/backup [get]
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportBackup(r.Context())
	if err != nil {
		writeError(w, "export backup", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, backup.Filename(h.svc.Now())))
	_, _ = w.Write(data)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Text-generation settings, API key masked
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	models.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()).Masked())
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Update text-generation settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SettingsRequest	true	"Settings; a masked key keeps the stored one"
//	@Success		200		{object}	models.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.UpdateSettings(r.Context(), req)
	if err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, st.Masked())
}

// dateParam reads a YYYY-MM-DD query parameter in the calendar zone,
// defaulting to today.
func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	now := h.svc.Now()
	v := r.URL.Query().Get(name)
	if v == "" {
		return now, true
	}
	d, err := time.ParseInLocation(schedule.DateLayout, v, now.Location())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(name+" must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return d, true
}
