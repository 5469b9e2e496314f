package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planner/internal/planservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *planservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/goals", func(r chi.Router) {
		r.Get("/", h.ListGoals)
		r.Post("/", h.CreateGoal)
		r.Get("/{id}", h.GetGoal)
		r.Put("/{id}", h.UpdateGoal)
		r.Delete("/{id}", h.DeleteGoal)
		r.Post("/{id}/breakdown", h.Breakdown)
		r.Post("/{id}/breakdown/apply", h.ApplyBreakdown)
	})

	r.Route("/activities", func(r chi.Router) {
		r.Get("/", h.ListActivities)
		r.Post("/", h.CreateActivity)
		r.Put("/{id}", h.UpdateActivity)
		r.Delete("/{id}", h.DeleteActivity)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Get("/upcoming", h.UpcomingTasks)
		r.Put("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
		r.Post("/{id}/complete", h.CompleteTask)
	})

	// Whole-collection access with ETag / If-Match.
	r.Get("/collections/{key}", h.GetCollection)
	r.Put("/collections/{key}", h.ReplaceCollection)

	r.Get("/schedule", h.GetSchedule)
	r.Post("/schedule", h.GenerateSchedule)
	r.Get("/schedule/week", h.WeekSchedule)

	r.Get("/insights", h.GetInsights)
	r.Post("/insights", h.AnalyzeInsights)
	r.Post("/feedback", h.Feedback)

	r.Get("/calendar.ics", h.Calendar)

	r.Get("/backup", h.ExportBackup)
	r.Post("/backup", h.ImportBackup)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
